package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// Record is a single entry from a catalog page. Canonical holds the
// payload re-encoded with sorted keys, so byte equality (and Hash
// equality) means the upstream record has not changed regardless of the
// key order the API happened to emit.
type Record struct {
	ShowID    int64
	Payload   map[string]any
	Canonical []byte
	Hash      string
}

// DecodeRecord decodes a raw JSON object into a Record, extracting the
// numeric identity and computing the canonical form and its hash.
func DecodeRecord(raw []byte) (Record, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}

	id, err := extractShowID(payload)
	if err != nil {
		return Record{}, err
	}

	// encoding/json writes map keys in sorted order, which makes the
	// re-encoded bytes canonical for hashing.
	canonical, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode record: %w", err)
	}

	hash := sha256.Sum256(canonical)

	return Record{
		ShowID:    id,
		Payload:   payload,
		Canonical: canonical,
		Hash:      hex.EncodeToString(hash[:]),
	}, nil
}

func extractShowID(payload map[string]any) (int64, error) {
	value, ok := payload["id"]
	if !ok {
		return 0, fmt.Errorf("record is missing the id field")
	}

	number, ok := value.(float64)
	if !ok || number != math.Trunc(number) {
		return 0, fmt.Errorf("record id is not an integer: %v", value)
	}

	return int64(number), nil
}
