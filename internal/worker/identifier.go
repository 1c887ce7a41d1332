package worker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxIdentifierLength bounds an identifier in runes after normalization.
const MaxIdentifierLength = 255

// NormalizeIdentifier trims and NFC-normalizes raw so that visually identical
// identifiers compare equal, and rejects empty, oversized, or control-bearing
// values.
func NormalizeIdentifier(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("identifier is not valid UTF-8")
	}
	id := norm.NFC.String(strings.TrimSpace(raw))
	if id == "" {
		return "", fmt.Errorf("identifier is empty")
	}
	if n := utf8.RuneCountInString(id); n > MaxIdentifierLength {
		return "", fmt.Errorf("identifier has %d characters, limit is %d", n, MaxIdentifierLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("identifier contains control character %U", r)
		}
	}
	return id, nil
}
