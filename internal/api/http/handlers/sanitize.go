package handlers

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// sanitizeText strips all markup from free text. Entities bluemonday
// escapes are decoded again so plain text round-trips unchanged.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeText(*s)
	return &v
}
