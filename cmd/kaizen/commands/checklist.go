package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kaizen-tdl/kaizen/internal/checklist"
)

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Generate and sync per-SCC checklists",
}

var checklistGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the info doc and plain-text checklist for every SCC",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project"); err != nil {
			return err
		}

		r := &checklist.Renderer{ProjectDir: s.ProjectDir, Log: log}
		results := r.GenerateAll(s.Ledger)
		s.Ledger.Settings.ChecklistsGenDate = time.Now().Format(stampLayout)
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

var checklistSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Read checkbox state out of edited info docs back into the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project"); err != nil {
			return err
		}

		results := checklist.Sync(s.Ledger, s.ProjectDir, log)
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

func init() {
	checklistCmd.AddCommand(checklistGenerateCmd)
	checklistCmd.AddCommand(checklistSyncCmd)
	rootCmd.AddCommand(checklistCmd)
}
