package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaizen-tdl/kaizen/internal/evidence"
	"github.com/kaizen-tdl/kaizen/internal/reconcile"
	"github.com/kaizen-tdl/kaizen/internal/sccparse"
)

const stampLayout = "2006-01-02 15:04:05"

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Parse SCC spreadsheets and refresh record status from evidence",
	Long: `Extracts BPERs, attestations, supporting documents and check methods from
every SCC spreadsheet, folds them into the ledger, then cross-references
each record against the evidence files on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.RequireDirs("project", "scc"); err != nil {
			return err
		}
		l := s.Ledger

		paths, err := sccSpreadsheets(s.SCCDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no SCC spreadsheets found in %s", s.SCCDir)
		}

		now := time.Now()
		for _, path := range paths {
			l.Merge(sccparse.Extract(path, log))
			if rec := sccparse.Validate(path, now, log); rec != nil {
				rec.EvidenceMethods = l.MethodsForSCC(rec.Name)
				l.SetSCC(rec)
			}
		}

		r := &reconcile.Reconciler{
			Dirs: reconcile.Dirs{
				ProjectDir:     s.ProjectDir,
				BPERDir:        s.BPERDir,
				AttestationDir: s.AttestationDir,
				DocumentDir:    s.SupportingDocsDir,
			},
			Extract: pdfExtractors(log),
			Log:     log,
		}
		results := r.Run(l)

		l.Normalize()
		l.Settings.PullInfoDate = time.Now().Format(stampLayout)
		if err := s.Save(); err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

// sccSpreadsheets lists the checklist workbooks in a directory, skipping
// Office lock files.
func sccSpreadsheets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read SCC directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".xlsx", ".xls":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func pdfExtractors(log *slog.Logger) reconcile.Extractors {
	x := evidence.PDFExtractor{Log: log}
	return reconcile.Extractors{BPER: x, Attestation: x, Document: x}
}
