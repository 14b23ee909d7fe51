package ledger

import (
	"fmt"
	"os"
	"strings"
)

// WriteNotGatheredFile writes the grouped-by-SCC missing-evidence report.
func (l *Ledger) WriteNotGatheredFile(path string) error {
	items := l.NotGathered()

	var b strings.Builder
	current := ""
	for _, item := range items {
		if item.SCC != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = item.SCC
			fmt.Fprintf(&b, "%s\n", item.SCC)
		}
		fmt.Fprintf(&b, "\t%s\n", item.Key)
	}
	if current != "" {
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write not-gathered report: %w", err)
	}
	return nil
}
