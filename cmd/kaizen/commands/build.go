package commands

import (
	"github.com/spf13/cobra"

	"github.com/kaizen-tdl/kaizen/internal/provision"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Provision per-SCC directories and evidence templates",
}

var buildDirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "Create the evidence directory tree for every SCC",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project"); err != nil {
			return err
		}

		b := &provision.Builder{ProjectDir: s.ProjectDir, Log: log}
		results := b.BuildDirs(s.Ledger)
		if stage.Summarize(results).Failed == 0 {
			s.Ledger.Settings.DirectoriesBuilt = true
		}
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

var buildTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Copy team evidence templates into each SCC's folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project", "template"); err != nil {
			return err
		}

		t := &provision.Templater{
			ProjectDir:  s.ProjectDir,
			TemplateDir: s.TemplateDir,
			Editor:      provision.DocxEditor{},
			Log:         log,
		}
		results := t.BuildTemplates(s.Ledger)
		if stage.Summarize(results).Failed == 0 {
			s.Ledger.Settings.TemplatesBuilt = true
		}
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

func init() {
	buildCmd.AddCommand(buildDirsCmd)
	buildCmd.AddCommand(buildTemplatesCmd)
	rootCmd.AddCommand(buildCmd)
}
