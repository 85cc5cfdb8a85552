package splitter

import (
	"strings"
	"unicode"
)

// Defaults for CharWindows.
const (
	DefaultMaxChars     = 4000
	DefaultOverlapChars = 200
)

// CharWindows caps chunk length. Text longer than Max characters is cut
// into pieces of at most Max characters, each repeating the last Overlap
// characters of the previous one. Cuts prefer whitespace in the second half
// of a window.
type CharWindows struct {
	Max     int
	Overlap int
}

// Windows returns text split into capped pieces. Short text comes back whole.
func (w CharWindows) Windows(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	r := []rune(text)
	if w.Max <= 0 || len(r) <= w.Max {
		return []string{text}
	}

	var out []string
	for start := 0; start < len(r); {
		end := start + w.Max
		if end >= len(r) {
			end = len(r)
		} else {
			for i := end; i > start+w.Max/2; i-- {
				if unicode.IsSpace(r[i-1]) {
					end = i
					break
				}
			}
		}
		if piece := strings.TrimSpace(string(r[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(r) {
			break
		}
		next := end - w.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}
