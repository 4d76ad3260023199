package news

import (
	"fmt"
	"strings"
)

// FormatItems renders a numbered list of items. stale marks every line as cached.
func FormatItems(items []Item, verbose, stale bool) string {
	if len(items) == 0 {
		return "No news items found."
	}

	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s", i+1, item.Title)
		if verbose {
			fmt.Fprintf(&b, " [score:%d]", item.Score)
		}
		if stale {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Source: %s | %s\n", item.Source, item.Category)
		if verbose && item.Link != "" {
			fmt.Fprintf(&b, "   %s\n", item.Link)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
