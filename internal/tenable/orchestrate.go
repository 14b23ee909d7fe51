package tenable

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kaizen-tdl/kaizen/internal/ledger"
	"github.com/kaizen-tdl/kaizen/internal/stage"
)

const stampLayout = "2006-01-02 15:04:05"

// InventoryRequired reports whether an SCC's evidence methods call for a
// device inventory: automated checks and manual auto-info checks both scan.
func InventoryRequired(info *ledger.SCCRecord) bool {
	for _, method := range info.EvidenceMethods {
		m := strings.ToLower(method)
		if strings.Contains(m, "automated") || strings.Contains(m, "manual-auto info") {
			return true
		}
	}
	return false
}

// CheckInventories looks for {SCC}-Inventory.txt inside each SCC's folder
// and records the path (or clears it) on the SCC record. The check timestamp
// lands in program settings.
func CheckInventories(l *ledger.Ledger, projectDir string, now time.Time, log *slog.Logger) []stage.Result {
	var results []stage.Result
	for _, path := range sortedSCCPaths(l) {
		info := l.SCCs[path]
		name := info.Name
		invPath := filepath.Join(projectDir, name, name+"-Inventory.txt")
		if fileExists(invPath) {
			info.InventoryFile = invPath
			results = append(results, stage.OKResult(name))
			continue
		}
		info.InventoryFile = ""
		if InventoryRequired(info) {
			log.Warn("inventory missing for scanning SCC", "scc", name)
			results = append(results, stage.Skip(name, "inventory missing"))
		} else {
			results = append(results, stage.Skip(name, "inventory not required"))
		}
	}
	l.Settings.LastInventoryCheck = now.Format(stampLayout)
	return results
}

// Orchestrator drives the chunked scan rollout for every eligible SCC in a
// ledger.
type Orchestrator struct {
	Client       *Client
	StartTime    string
	ChunkSize    int
	Chain        ChainPolicy
	TargetUserID string
	Log          *slog.Logger
}

// InitiateScans queues chunked scans for each SCC that has an inventory
// file. Automated checks get a TDL-{SCC}-PassFail rollout, manual auto-info
// checks a TDL-{SCC}-Info rollout, and the matching status fields flip to
// Queued. Pass a non-empty only to restrict the run to one SCC.
func (o *Orchestrator) InitiateScans(ctx context.Context, l *ledger.Ledger, only string) ([]stage.Result, error) {
	var results []stage.Result
	matched := false
	for _, path := range sortedSCCPaths(l) {
		info := l.SCCs[path]
		if only != "" && !strings.EqualFold(info.Name, only) {
			continue
		}
		matched = true
		if info.InventoryFile == "" {
			o.Log.Info("skipping SCC without inventory", "scc", info.Name)
			results = append(results, stage.Skip(info.Name, "no inventory file"))
			continue
		}

		methods := loweredMethods(info)
		if methods["automated"] {
			info.PassFailStatus = "Queued"
			results = append(results, o.rollout(ctx, "TDL-"+info.Name+"-PassFail", info.InventoryFile)...)
		}
		if methods["manual-auto info"] {
			info.InfoStatus = "Queued"
			results = append(results, o.rollout(ctx, "TDL-"+info.Name+"-Info", info.InventoryFile)...)
		}
	}
	if only != "" && !matched {
		return results, fmt.Errorf("tenable: SCC %q not found in ledger", only)
	}
	return results, nil
}

func (o *Orchestrator) rollout(ctx context.Context, baseScanName, inventoryFile string) []stage.Result {
	o.Log.Info("initiating scan rollout", "scan", baseScanName)
	results, err := o.Client.ChunkAndCreateScans(ctx, ChunkPlan{
		BaseScanName:  baseScanName,
		InventoryFile: inventoryFile,
		StartTime:     o.StartTime,
		ChunkSize:     o.ChunkSize,
		TargetUserID:  o.TargetUserID,
		Chain:         o.Chain,
	}, o.Log)
	if err != nil {
		return []stage.Result{stage.Fail(baseScanName, err)}
	}
	return results
}

func loweredMethods(info *ledger.SCCRecord) map[string]bool {
	out := map[string]bool{}
	for _, m := range info.EvidenceMethods {
		out[strings.ToLower(m)] = true
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sortedSCCPaths(l *ledger.Ledger) []string {
	var paths []string
	for path, info := range l.SCCs {
		if info != nil && info.Name != "" {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}
