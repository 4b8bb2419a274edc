package sanitizer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLStripperer is what request DTOs need to clean free text.
type HTMLStripperer interface {
	StripHTML(s string) string
	Text(s string) string
	Texts(values []string) []string
}

// HTMLStripper removes all markup from user supplied text.
type HTMLStripper struct {
	bm *bluemonday.Policy
}

// NewHTMLStripper return a new instance of blue monday policy
func NewHTMLStripper() *HTMLStripper {
	return &HTMLStripper{
		bm: bluemonday.StrictPolicy(),
	}
}

func (hs *HTMLStripper) StripHTML(s string) string {
	return hs.bm.Sanitize(s)
}

// Text strips markup and surrounding whitespace.
func (hs *HTMLStripper) Text(s string) string {
	return strings.TrimSpace(hs.StripHTML(s))
}

// Texts applies Text to every element, returning a new slice.
func (hs *HTMLStripper) Texts(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = hs.Text(v)
	}
	return out
}
