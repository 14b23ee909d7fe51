package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaizen-tdl/kaizen/internal/tenable"
)

var (
	scanBaseURL    string
	scanCACert     string
	scanStart      string
	scanChunkSize  int
	scanChain      string
	scanOnlySCC    string
	scanTargetUser string
	reportOwner    string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Drive SecurityCenter scans for automated evidence",
}

var scanInventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Check which SCCs have a device inventory file in place",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project"); err != nil {
			return err
		}

		results := tenable.CheckInventories(s.Ledger, s.ProjectDir, time.Now(), log)
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

var scanLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Copy, chunk and schedule scans from each SCC's inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project"); err != nil {
			return err
		}

		client, err := newTenableClient()
		if err != nil {
			return err
		}
		start, err := parseStartTime(scanStart)
		if err != nil {
			return err
		}
		chain, err := parseChainPolicy(scanChain)
		if err != nil {
			return err
		}

		o := &tenable.Orchestrator{
			Client:       client,
			StartTime:    start.Format("20060102T150405"),
			ChunkSize:    scanChunkSize,
			Chain:        chain,
			TargetUserID: scanTargetUser,
			Log:          log,
		}
		results, err := o.InitiateScans(cmd.Context(), s.Ledger, scanOnlySCC)
		if err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

var scanReportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Download finished scan reports into the evidence tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project"); err != nil {
			return err
		}
		owner := firstNonEmpty(reportOwner, viper.GetString("tenable_user"))
		if owner == "" {
			return fmt.Errorf("no report owner configured (set --owner or tenable_user)")
		}

		client, err := newTenableClient()
		if err != nil {
			return err
		}
		results, err := client.DownloadReportsForOwner(cmd.Context(), owner, s.ProjectDir, log)
		if err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

func init() {
	scanCmd.PersistentFlags().StringVar(&scanBaseURL, "base-url", "", "SecurityCenter URL")
	scanCmd.PersistentFlags().StringVar(&scanCACert, "ca-cert", "", "PEM bundle for the SecurityCenter TLS certificate")

	scanLaunchCmd.Flags().StringVar(&scanStart, "start", "", "First chunk start time, e.g. \"2026-02-01 22:00\" (default one hour out)")
	scanLaunchCmd.Flags().IntVar(&scanChunkSize, "chunk-size", tenable.DefaultChunkSize, "Devices per scan chunk")
	scanLaunchCmd.Flags().StringVar(&scanChain, "chain", "intended", "Chunk chaining on partial failure: intended or last-scheduled")
	scanLaunchCmd.Flags().StringVar(&scanOnlySCC, "scc", "", "Launch scans for a single SCC")
	scanLaunchCmd.Flags().StringVar(&scanTargetUser, "target-user", "", "SecurityCenter user id to own the copied scans")

	scanReportsCmd.Flags().StringVar(&reportOwner, "owner", "", "Report owner username to download for")

	scanCmd.AddCommand(scanInventoryCmd)
	scanCmd.AddCommand(scanLaunchCmd)
	scanCmd.AddCommand(scanReportsCmd)
	rootCmd.AddCommand(scanCmd)
}

// newTenableClient builds an API client from config and environment. Keys
// come from KAIZEN_TENABLE_ACCESS_KEY / KAIZEN_TENABLE_SECRET_KEY or an
// interactive prompt; they stay in memory and are never written to the
// config file or the ledger.
func newTenableClient() (*tenable.Client, error) {
	baseURL := firstNonEmpty(scanBaseURL, viper.GetString("tenable_url"))
	if baseURL == "" {
		return nil, fmt.Errorf("no SecurityCenter URL configured (set --base-url or tenable_url)")
	}

	access := viper.GetString("tenable_access_key")
	secret := viper.GetString("tenable_secret_key")
	if access == "" || secret == "" {
		var err error
		access, secret, err = promptForKeys()
		if err != nil {
			return nil, err
		}
	}

	return tenable.NewClient(tenable.Config{
		BaseURL:    baseURL,
		AccessKey:  access,
		SecretKey:  secret,
		CACertFile: firstNonEmpty(scanCACert, viper.GetString("tenable_ca_cert")),
	})
}

func promptForKeys() (access, secret string, err error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("SecurityCenter access key: ")
	access, err = reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	fmt.Print("SecurityCenter secret key: ")
	secret, err = reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(access), strings.TrimSpace(secret), nil
}

// parseStartTime accepts a local date-time for the first chunk. Empty means
// one hour from now, rounded to the half hour.
func parseStartTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now().Add(time.Hour).Round(30 * time.Minute), nil
	}
	for _, layout := range []string{"2006-01-02 15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized start time %q", s)
}

func parseChainPolicy(s string) (tenable.ChainPolicy, error) {
	switch s {
	case "", "intended":
		return tenable.ChainIntended, nil
	case "last-scheduled":
		return tenable.ChainLastScheduled, nil
	}
	return 0, fmt.Errorf("unknown chain policy %q (use intended or last-scheduled)", s)
}
