package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kaizen-tdl/kaizen/internal/session"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

const CurrentVersion = "0.9.2"

var (
	cfgFile    string
	ledgerPath string
	verbose    bool

	flagProjectDir     string
	flagSCCDir         string
	flagBPERDir        string
	flagAttestationDir string
	flagSupDocsDir     string
	flagTemplateDir    string
)

var rootCmd = &cobra.Command{
	Use:   "kaizen",
	Short: "The TDL evidence bookkeeper",
	Long: `KAIZEN - Technical Design Letter compliance tracking

Parse. Gather. Verify.`,
	Version: CurrentVersion,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.kaizen.yaml)")
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "Path to progress.json")
	rootCmd.PersistentFlags().StringVar(&flagProjectDir, "project-dir", "", "TDL project directory")
	rootCmd.PersistentFlags().StringVar(&flagSCCDir, "scc-dir", "", "Directory holding SCC spreadsheets")
	rootCmd.PersistentFlags().StringVar(&flagBPERDir, "bper-dir", "", "Central BPER evidence directory")
	rootCmd.PersistentFlags().StringVar(&flagAttestationDir, "attestation-dir", "", "Central attestation evidence directory")
	rootCmd.PersistentFlags().StringVar(&flagSupDocsDir, "supdocs-dir", "", "Central supporting documents directory")
	rootCmd.PersistentFlags().StringVar(&flagTemplateDir, "template-dir", "", "Team template directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".kaizen.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("KAIZEN")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// overrides merges flag values over config-file values. Ledger settings fill
// whatever stays empty when the session opens.
func overrides() session.Overrides {
	return session.Overrides{
		ProjectDir:        firstNonEmpty(flagProjectDir, viper.GetString("project_dir")),
		SCCDir:            firstNonEmpty(flagSCCDir, viper.GetString("scc_dir")),
		BPERDir:           firstNonEmpty(flagBPERDir, viper.GetString("bper_dir")),
		AttestationDir:    firstNonEmpty(flagAttestationDir, viper.GetString("attestation_dir")),
		SupportingDocsDir: firstNonEmpty(flagSupDocsDir, viper.GetString("supdocs_dir")),
		TemplateDir:       firstNonEmpty(flagTemplateDir, viper.GetString("template_dir")),
	}
}

func openSession() (*session.Session, error) {
	path := firstNonEmpty(ledgerPath, viper.GetString("ledger"))
	return session.Open(path, overrides())
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00B7C3")).
			MarginBottom(1)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	flagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

func renderHelp(cmd *cobra.Command) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("KAIZEN %s", CurrentVersion)))
	fmt.Println("TDL compliance documentation workflow.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if len(cmd.Commands()) > 0 {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-18s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}

// printResults renders a batch outcome list plus its tally.
func printResults(results []stage.Result) {
	for _, r := range results {
		switch r.Outcome {
		case stage.OK:
			fmt.Println(okStyle.Render("  [OK]   ") + r.Unit)
		case stage.Skipped:
			fmt.Println(warnStyle.Render("  [SKIP] ") + fmt.Sprintf("%s (%s)", r.Unit, r.Reason))
		case stage.Failed:
			fmt.Println(failStyle.Render("  [FAIL] ") + fmt.Sprintf("%s: %s", r.Unit, r.Reason))
		}
	}
	fmt.Println("  " + stage.Summarize(results).String())
}
