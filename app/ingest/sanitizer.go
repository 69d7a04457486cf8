package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// Sanitizer reduces source-supplied markup to plain text. Tags are
// stripped, entities decoded, unicode normalized to NFC and whitespace
// collapsed to single spaces.
type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Run sanitizes one summary string. Input that cannot be parsed at all
// comes back empty rather than failing the record.
func (s *Sanitizer) Run(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return ""
	}

	text := norm.NFC.String(doc.Text())

	return strings.Join(strings.Fields(text), " ")
}
