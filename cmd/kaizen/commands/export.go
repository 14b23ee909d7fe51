package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaizen-tdl/kaizen/internal/docval"
	"github.com/kaizen-tdl/kaizen/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger to a progress workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project"); err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(s.ProjectDir, "progress.xlsx")
		}
		if err := export.WriteWorkbook(s.Ledger, out); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("  [OK]   ") + out)
		return nil
	},
}

var exportTrackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Fill the team's Document Validation workbook from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("template"); err != nil {
			return err
		}

		path := filepath.Join(s.TemplateDir, "Document Validation.xlsx")
		if err := docval.UpdateTracker(s.Ledger, path); err != nil {
			return err
		}
		s.Ledger.Settings.DocTrackerUpdate = time.Now().Format(stampLayout)
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("  [OK]   ") + path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output workbook path (default {project}/progress.xlsx)")
	exportCmd.AddCommand(exportTrackerCmd)
	rootCmd.AddCommand(exportCmd)
}
