package pipeline

import (
	"regexp"
	"strings"
)

// nonKeyChars matches everything that may not appear in a candidate key:
// anything that is not a word character or a dash.
var nonKeyChars = regexp.MustCompile(`[^\w-]`)

// Normalize reduces raw extracted text to candidate key form: em-dashes
// become ordinary dashes and every character outside [word, dash] is
// dropped. Both the text and the OCR path go through this one function.
// Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "—", "-")
	return nonKeyChars.ReplaceAllString(s, "")
}
