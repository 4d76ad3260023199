package report

import (
	"strings"
	"unicode/utf8"
)

// DefaultMarker is appended to truncated reports.
const DefaultMarker = "\n\n... (truncated)"

// Compose assembles header, an "=" underline and the non-empty section bodies
// separated by blank lines, then truncates the whole once.
func Compose(header string, results []SectionResult, limit int, marker string) string {
	bodies := make([]string, 0, len(results))
	for _, r := range results {
		if body := r.Body(); strings.TrimSpace(body) != "" {
			bodies = append(bodies, body)
		}
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", utf8.RuneCountInString(header)))
	b.WriteString("\n\n")
	b.WriteString(strings.Join(bodies, "\n\n"))

	return Truncate(b.String(), limit, marker)
}

// Truncate bounds text to limit runes including marker. Text is only cut at
// a line break; if no complete line fits, only the marker is returned.
func Truncate(text string, limit int, marker string) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}

	budget := limit - utf8.RuneCountInString(marker)
	if budget > 0 {
		head := string(runes[:budget])
		cut := strings.LastIndex(head, "\n")
		if runes[budget] == '\n' {
			cut = len(head)
		}
		if cut > 0 {
			if kept := strings.TrimRight(head[:cut], " \t\r\n"); kept != "" {
				return kept + marker
			}
		}
	}

	m := []rune(strings.TrimLeft(marker, "\n"))
	if len(m) > limit {
		m = m[:limit]
	}
	return string(m)
}
