package ingest

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/showledger/showledger/app/database"
)

// Validator turns raw catalog payloads into normalized shows. The
// rules are deliberately forgiving: optional fields degrade to NULL or
// empty values, and only a missing required field or an unparseable
// premiere date rejects a record outright.
type Validator struct {
	sanitizer *Sanitizer
}

func NewValidator() *Validator {
	return &Validator{sanitizer: NewSanitizer()}
}

// Run validates a batch of latest raw versions. Every input row lands
// in exactly one of the two result slices.
func (v *Validator) Run(raws []database.RawShow) ([]database.Show, []Rejection) {
	shows := make([]database.Show, 0, len(raws))
	var rejections []Rejection

	for _, raw := range raws {
		show, reason := v.validate(raw)
		if reason != "" {
			slog.Warn("Show payload rejected",
				"show_id", raw.ShowID, "version", raw.Version, "reason", reason)
			rejections = append(rejections, Rejection{
				ShowID:  raw.ShowID,
				Version: raw.Version,
				Reason:  reason,
				Snippet: payloadSnippet(raw.Payload),
			})
			continue
		}
		shows = append(shows, *show)
	}

	return shows, rejections
}

// validate normalizes one payload. A non-empty reason means the record
// was rejected.
func (v *Validator) validate(raw database.RawShow) (*database.Show, string) {
	var payload map[string]any
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		return nil, "payload is not a JSON object"
	}

	show := &database.Show{ShowID: raw.ShowID}

	var ok bool
	if show.Name, ok = requiredString(payload, "name"); !ok {
		return nil, "missing or empty name"
	}
	if show.Kind, ok = requiredString(payload, "type"); !ok {
		return nil, "missing or empty type"
	}
	if show.Status, ok = requiredString(payload, "status"); !ok {
		return nil, "missing or empty status"
	}

	show.Language = optionalString(payload, "language")
	show.Genres = stringList(payload["genres"])
	show.Runtime = numericValue(payload["runtime"])
	show.Rating = ratingValue(payload["rating"])

	premiere, ok := premiereDate(payload["premiered"])
	if !ok {
		return nil, "unparseable premiere date"
	}
	show.PremiereDate = premiere

	if summary, ok := payload["summary"].(string); ok {
		show.Summary = v.sanitizer.Run(summary)
	}

	return show, ""
}

func requiredString(payload map[string]any, key string) (string, bool) {
	value, _ := payload[key].(string)
	value = strings.TrimSpace(value)
	return value, value != ""
}

func optionalString(payload map[string]any, key string) *string {
	value, _ := payload[key].(string)
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// stringList accepts only a list of strings. Anything else, including
// a list with one bad element, degrades to an empty list.
func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	list := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return []string{}
		}
		list = append(list, s)
	}
	return list
}

// numericValue coerces numbers and numeric strings. Placeholders like
// "TBD" become NULL rather than rejections.
func numericValue(value any) *float64 {
	switch n := value.(type) {
	case float64:
		return &n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return &f
		}
	}
	return nil
}

// ratingValue handles both a bare number and the nested {"average": x}
// shape the source uses.
func ratingValue(value any) *float64 {
	if nested, ok := value.(map[string]any); ok {
		return numericValue(nested["average"])
	}
	return numericValue(value)
}

// premiereDate parses an ISO date. Absent or empty means NULL; a
// present but unparseable value is the one optional field that rejects
// the record.
func premiereDate(value any) (*string, bool) {
	switch d := value.(type) {
	case nil:
		return nil, true
	case string:
		d = strings.TrimSpace(d)
		if d == "" {
			return nil, true
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, false
		}
		return &d, true
	default:
		return nil, false
	}
}

// payloadSnippet truncates a payload for rejection records and logs.
func payloadSnippet(payload []byte) string {
	const maxLen = 200
	if len(payload) <= maxLen {
		return string(payload)
	}
	return string(payload[:maxLen]) + "..."
}
