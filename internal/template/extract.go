package template

import "strings"

// Extract scans capture output from the last line toward the first and returns
// the first line that is a valid template encoding. Engines place the template
// near the end after a variable amount of diagnostic output, and progress
// output often rewrites the terminal line with a bare carriage return.
func Extract(output string) (Template, bool) {
	lines := strings.FieldsFunc(output, isLineBreak)
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if IsEncoding(line) {
			return Template{encoded: line}, true
		}
	}
	return Template{}, false
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
