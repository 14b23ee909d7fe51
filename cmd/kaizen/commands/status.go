package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusWriteReport bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress and what evidence is still missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		l := s.Ledger

		var b strings.Builder
		b.WriteString(titleStyle.Render("PROJECT") + "\n")
		b.WriteString(fmt.Sprintf("  Ledger    %s\n", s.LedgerPath))
		b.WriteString(fmt.Sprintf("  SCCs      %d tracked\n", len(l.SCCs)))

		b.WriteString(titleStyle.Render("PIPELINE") + "\n")
		b.WriteString(stampLine("Pull info", l.Settings.PullInfoDate))
		b.WriteString(stampLine("Gather and sort", l.Settings.GatherSortDate))
		b.WriteString(stampLine("Checklists generated", l.Settings.ChecklistsGenDate))
		b.WriteString(stampLine("Inventory check", l.Settings.LastInventoryCheck))
		b.WriteString(stampLine("Doc tracker update", l.Settings.DocTrackerUpdate))
		b.WriteString(boolLine("Directories built", l.Settings.DirectoriesBuilt))
		b.WriteString(boolLine("Templates built", l.Settings.TemplatesBuilt))

		missing := l.NotGathered()
		b.WriteString(titleStyle.Render("NOT GATHERED") + "\n")
		if len(missing) == 0 {
			b.WriteString(okStyle.Render("  all evidence gathered") + "\n")
		}
		for _, item := range missing {
			line := fmt.Sprintf("  %-12s %-20s %s", item.Category, item.Key, item.SCC)
			if item.TLA {
				line += " (TLA)"
			}
			b.WriteString(warnStyle.Render(line) + "\n")
		}

		fmt.Println(lipgloss.NewStyle().PaddingLeft(1).Render(b.String()))

		if statusWriteReport {
			path := filepath.Join(s.ProjectDir, "Not_gathered.txt")
			if err := l.WriteNotGatheredFile(path); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("  [OK]   ") + path)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusWriteReport, "write-report", false, "Also write Not_gathered.txt to the project directory")
	rootCmd.AddCommand(statusCmd)
}

func stampLine(label, stamp string) string {
	if stamp == "" {
		return failStyle.Render(fmt.Sprintf("  %-22s never", label)) + "\n"
	}
	return fmt.Sprintf("  %-22s %s\n", label, stamp)
}

func boolLine(label string, done bool) string {
	if !done {
		return failStyle.Render(fmt.Sprintf("  %-22s no", label)) + "\n"
	}
	return fmt.Sprintf("  %-22s yes\n", label)
}
