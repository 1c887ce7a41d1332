package template

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MinEncodedLength is the exclusive lower bound on the encoded form's length.
const MinEncodedLength = 100

// ErrInvalidTemplate reports text that is not a usable template encoding.
var ErrInvalidTemplate = errors.New("invalid template")

// Template is an immutable biometric template held in its base64 text form.
type Template struct {
	encoded string
}

// Parse validates text as a template encoding.
func Parse(text string) (Template, error) {
	text = strings.TrimSpace(text)
	if !IsEncoding(text) {
		return Template{}, fmt.Errorf("%w: %d characters", ErrInvalidTemplate, len(text))
	}
	return Template{encoded: text}, nil
}

// IsEncoding reports whether s is longer than MinEncodedLength and made only of
// base64 alphabet characters.
func IsEncoding(s string) bool {
	if len(s) <= MinEncodedLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isBase64Char(s[i]) {
			return false
		}
	}
	return true
}

func isBase64Char(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+', c == '/', c == '=':
		return true
	}
	return false
}

// Encoded returns the base64 text form.
func (t Template) Encoded() string {
	return t.encoded
}

// IsZero reports whether t holds no template.
func (t Template) IsZero() bool {
	return t.encoded == ""
}

// Size returns the length of the encoded form, which is what the store records
// as template_size.
func (t Template) Size() int {
	return len(t.encoded)
}

// DecodedLen returns the number of bytes the encoding represents.
func (t Template) DecodedLen() int {
	n := len(t.encoded)
	if n == 0 {
		return 0
	}
	pad := len(t.encoded) - len(strings.TrimRight(t.encoded, "="))
	return n*3/4 - pad
}

// Bytes decodes the template. Engines occasionally emit unpadded encodings,
// so the raw alphabet is tried when standard decoding fails.
func (t Template) Bytes() ([]byte, error) {
	if t.encoded == "" {
		return nil, ErrInvalidTemplate
	}
	data, err := base64.StdEncoding.DecodeString(t.encoded)
	if err == nil {
		return data, nil
	}
	data, rawErr := base64.RawStdEncoding.DecodeString(t.encoded)
	if rawErr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("%w: decode: %w", ErrInvalidTemplate, err)
}

// Equal reports byte equality of two templates.
func (t Template) Equal(other Template) bool {
	return t.encoded == other.encoded
}

// Preview returns a short prefix suitable for logs.
func (t Template) Preview() string {
	const n = 24
	if len(t.encoded) <= n {
		return t.encoded
	}
	return t.encoded[:n] + "..."
}

// String implements fmt.Stringer without leaking the full encoding.
func (t Template) String() string {
	if t.IsZero() {
		return "template(empty)"
	}
	return fmt.Sprintf("template(%d chars, %s)", len(t.encoded), t.Preview())
}
