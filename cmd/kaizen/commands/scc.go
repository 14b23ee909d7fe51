package commands

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/sccparse"
)

var sccCmd = &cobra.Command{
	Use:   "scc",
	Short: "Add, remove or list tracked SCCs",
}

var sccAddCmd = &cobra.Command{
	Use:   "add <spreadsheet.xlsx>",
	Short: "Parse one SCC spreadsheet into the ledger, replacing prior data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		l := s.Ledger

		path := args[0]
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := ledger.CanonicalName(base)

		_, prev := l.FindSCC(name)

		// Re-adding replaces: stale records from an older version of the
		// spreadsheet must not survive the refresh.
		l.RemoveSCC(name)

		e := sccparse.Extract(path, log)
		if e.Empty() {
			return fmt.Errorf("no records extracted from %s", path)
		}
		l.Merge(e)
		rec := sccparse.Validate(path, time.Now(), log)
		if rec == nil {
			return fmt.Errorf("unable to validate %s", path)
		}
		rec.EvidenceMethods = l.MethodsForSCC(rec.Name)
		rec.CarryOperational(prev)
		l.SCCs[rec.Name] = rec
		l.Normalize()

		if err := s.Save(); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("  [OK]   ") + rec.Name)
		return nil
	},
}

var sccRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Drop an SCC and every record that only it references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		name := ledger.CanonicalName(args[0])
		if _, rec := s.Ledger.FindSCC(name); rec == nil {
			return fmt.Errorf("no SCC named %q in the ledger", name)
		}
		s.Ledger.RemoveSCC(name)
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("  [OK]   ") + "removed " + name)
		return nil
	},
}

var sccListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked SCCs with version and evidence methods",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		names := s.Ledger.SCCNames()
		sort.Strings(names)
		for _, name := range names {
			// Resolve by name: older ledgers key SCC records by source
			// file path rather than canonical name.
			_, rec := s.Ledger.FindSCC(name)
			if rec == nil {
				continue
			}
			fmt.Printf("  %-40s v%-4s %s\n", name, rec.Version, strings.Join(rec.EvidenceMethods, ", "))
		}
		fmt.Printf("  %d SCCs tracked\n", len(names))
		return nil
	},
}

func init() {
	sccCmd.AddCommand(sccAddCmd)
	sccCmd.AddCommand(sccRemoveCmd)
	sccCmd.AddCommand(sccListCmd)
	rootCmd.AddCommand(sccCmd)
}
