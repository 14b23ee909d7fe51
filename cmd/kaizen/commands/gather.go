package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaizen-tdl/kaizen/internal/snow"
)

var (
	gatherSnowURL    string
	gatherDocSysIDs  string
	gatherBPERSysIDs string
	gatherDownloads  string
	gatherNoLogin    bool
)

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Download ungathered evidence from ServiceNow",
	Long: `Opens each ungathered record's export URL in your browser session and
sorts what lands in the downloads folder into the evidence directories.
Sign in when the login page opens; downloads start after you confirm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project", "bper", "attestation", "supporting-docs"); err != nil {
			return err
		}

		baseURL := firstNonEmpty(gatherSnowURL, viper.GetString("snow_url"))
		if baseURL == "" {
			return fmt.Errorf("no ServiceNow URL configured (set --snow-url or snow_url)")
		}

		docIDs, err := snow.LoadSysIDs(sysIDPath(gatherDocSysIDs, "doc_sysids", s.ProjectDir, "doc_sysids.json"))
		if err != nil {
			return err
		}
		bperIDs, err := snow.LoadSysIDs(sysIDPath(gatherBPERSysIDs, "bper_sysids", s.ProjectDir, "BPER_sysids.json"))
		if err != nil {
			return err
		}

		fetcher := &snow.BrowserFetcher{
			BaseURL:      baseURL,
			DownloadsDir: gatherDownloads,
			DocSysIDs:    docIDs,
			BPERSysIDs:   bperIDs,
			Log:          log,
		}

		if !gatherNoLogin {
			if err := fetcher.OpenLogin(); err != nil {
				return fmt.Errorf("open login page: %w", err)
			}
			fmt.Print("Sign in to ServiceNow in the opened browser, then press Enter...")
			bufio.NewReader(os.Stdin).ReadString('\n')
		}

		g := &snow.Gatherer{
			DocSysIDs:      docIDs,
			BPERSysIDs:     bperIDs,
			Fetch:          fetcher,
			BPERDir:        s.BPERDir,
			AttestationDir: s.AttestationDir,
			DocumentDir:    s.SupportingDocsDir,
			Log:            log,
		}
		results := g.Run(cmd.Context(), s.Ledger)
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

func init() {
	gatherCmd.Flags().StringVar(&gatherSnowURL, "snow-url", "", "ServiceNow instance URL")
	gatherCmd.Flags().StringVar(&gatherDocSysIDs, "doc-sysids", "", "Path to the document sys_id registry")
	gatherCmd.Flags().StringVar(&gatherBPERSysIDs, "bper-sysids", "", "Path to the BPER sys_id registry")
	gatherCmd.Flags().StringVar(&gatherDownloads, "downloads-dir", "", "Browser downloads folder (default ~/Downloads)")
	gatherCmd.Flags().BoolVar(&gatherNoLogin, "no-login", false, "Skip the interactive login step")
	rootCmd.AddCommand(gatherCmd)
}

// sysIDPath resolves a registry path: flag, then config key, then the
// conventional file next to the ledger.
func sysIDPath(flagValue, configKey, projectDir, defaultName string) string {
	return firstNonEmpty(flagValue, viper.GetString(configKey), filepath.Join(projectDir, defaultName))
}
