package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
)

var markSCC string

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Correct individual ledger records",
}

var markFPCmd = &cobra.Command{
	Use:   "fp <category> <key>",
	Short: "Flag a record as a false positive so later passes skip it",
	Long: `Categories: bpers, attestations, documents. Without --scc the flag
applies to every SCC's entry for the key.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		category, err := parseCategory(args[0])
		if err != nil {
			return err
		}
		if err := s.Ledger.MarkFalsePositive(category, args[1], markSCC); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("  [OK]   ") + fmt.Sprintf("%s %s marked false positive", category, args[1]))
		return nil
	},
}

var markLinkCmd = &cobra.Command{
	Use:   "link <category> <key> <file>",
	Short: "Point a record at its evidence file by hand",
	Long: `The linked path wins over naming-convention lookups and fuzzy matching.
Use it when an evidence file's name has drifted too far to match.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		category, err := parseCategory(args[0])
		if err != nil {
			return err
		}
		path, err := filepath.Abs(args[2])
		if err != nil {
			return err
		}
		if err := s.Ledger.LinkFile(category, args[1], markSCC, path); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("  [OK]   ") + fmt.Sprintf("%s %s linked to %s", category, args[1], path))
		return nil
	},
}

func init() {
	markCmd.PersistentFlags().StringVar(&markSCC, "scc", "", "Restrict the change to one SCC's entry")
	markCmd.AddCommand(markFPCmd)
	markCmd.AddCommand(markLinkCmd)
	rootCmd.AddCommand(markCmd)
}

func parseCategory(s string) (string, error) {
	switch strings.ToLower(s) {
	case "bper", "bpers":
		return ledger.CategoryBPERs, nil
	case "attestation", "attestations":
		return ledger.CategoryAttestations, nil
	case "document", "documents", "doc", "docs":
		return ledger.CategoryDocuments, nil
	}
	return "", fmt.Errorf("unknown category %q (use bpers, attestations or documents)", s)
}
