package tenable

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/kaizen-tdl/kaizen/internal/stage"
)

// scheduleTimezone prefixes every one-time schedule start value.
const scheduleTimezone = "TZID=America/New_York:"

// Scan is the subset of SecurityCenter scan fields this tool works with.
type Scan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Owner       Owner    `json:"owner"`
	CreatedTime string   `json:"createdTime"`
	Schedule    Schedule `json:"schedule"`
}

// Owner identifies the SecurityCenter user that owns a scan or report.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Schedule is either a one-time ical schedule or a dependent schedule that
// fires when another scan completes.
type Schedule struct {
	Type        string `json:"type"`
	Start       string `json:"start,omitempty"`
	DependentID string `json:"dependentID,omitempty"`
}

// ICalSchedule builds a one-time schedule at the given local start time,
// formatted YYYYMMDDTHHmmss.
func ICalSchedule(start string) Schedule {
	return Schedule{Type: "ical", Start: scheduleTimezone + start}
}

// DependentSchedule builds a schedule that starts when the named scan
// finishes.
func DependentSchedule(dependentID string) Schedule {
	return Schedule{Type: "dependent", DependentID: dependentID}
}

type scanListEnvelope struct {
	Response struct {
		Usable []Scan `json:"usable"`
	} `json:"response"`
}

type scanCopyEnvelope struct {
	Response struct {
		Scan Scan `json:"scan"`
	} `json:"response"`
}

// ListScans retrieves all scans visible to the authenticated user.
func (c *Client) ListScans(ctx context.Context) ([]Scan, error) {
	params := url.Values{"fields": {"id,name,status,owner,createdTime,schedule"}}
	var env scanListEnvelope
	if err := c.get(ctx, "scan", params, &env); err != nil {
		return nil, err
	}
	return env.Response.Usable, nil
}

// FindScanByName returns the first scan whose name matches, ignoring case.
func FindScanByName(scans []Scan, name string) *Scan {
	for i := range scans {
		if strings.EqualFold(scans[i].Name, name) {
			return &scans[i]
		}
	}
	return nil
}

// CopyScan duplicates a scan under a new name for the given target user.
// The copy inherits the template's settings.
func (c *Client) CopyScan(ctx context.Context, scanID, newName, targetUserID string) (*Scan, error) {
	body := map[string]any{
		"name":       newName,
		"targetUser": map[string]string{"id": targetUserID},
	}
	var env scanCopyEnvelope
	if err := c.post(ctx, "scan/"+scanID+"/copy", body, &env); err != nil {
		return nil, err
	}
	return &env.Response.Scan, nil
}

// EditScanIPList replaces the scan's target list with a comma-separated set
// of addresses or ranges.
func (c *Client) EditScanIPList(ctx context.Context, scanID, ipList string) error {
	return c.patch(ctx, "scan/"+scanID, map[string]string{"ipList": ipList}, nil)
}

// EditScanSchedule replaces the scan's schedule.
func (c *Client) EditScanSchedule(ctx context.Context, scanID string, schedule Schedule) error {
	return c.patch(ctx, "scan/"+scanID, map[string]Schedule{"schedule": schedule}, nil)
}

// LaunchScan starts a scan immediately.
func (c *Client) LaunchScan(ctx context.Context, scanID string) error {
	return c.post(ctx, "scan/"+scanID+"/launch", map[string]any{}, nil)
}

// LaunchScanByName looks up a scan by name and launches it.
func (c *Client) LaunchScanByName(ctx context.Context, name string) error {
	scans, err := c.ListScans(ctx)
	if err != nil {
		return err
	}
	scan := FindScanByName(scans, name)
	if scan == nil {
		return fmt.Errorf("tenable: scan %q not found", name)
	}
	return c.LaunchScan(ctx, scan.ID)
}

// DeleteScan removes a scan.
func (c *Client) DeleteScan(ctx context.Context, scanID string) error {
	return c.delete(ctx, "scan/"+scanID)
}

// ChainPolicy controls which chunk a dependent schedule anchors on when an
// earlier chunk only partially succeeds.
type ChainPolicy int

const (
	// ChainIntended anchors each chunk on its immediate predecessor's scan
	// ID whenever that predecessor was at least copied, even if its target
	// list or schedule edits failed. The chain shape stays as planned and a
	// partially configured predecessor can be repaired in place.
	ChainIntended ChainPolicy = iota

	// ChainLastScheduled anchors on the most recent chunk that completed
	// every step, skipping partially configured chunks entirely.
	ChainLastScheduled
)

// ChunkPlan describes a chunked scan rollout built from one template scan.
type ChunkPlan struct {
	BaseScanName  string
	InventoryFile string

	// StartTime is the first chunk's local start, formatted YYYYMMDDTHHmmss.
	StartTime string

	// ChunkSize is the number of devices per chunk. Defaults to 6.
	ChunkSize int

	TargetUserID string
	Chain        ChainPolicy
}

// DefaultChunkSize is the device count per scan chunk when a plan does not
// set one.
const DefaultChunkSize = 6

// ChunkAndCreateScans splits an inventory into fixed-size chunks and creates
// one scan per chunk by copying the plan's template scan. The first chunk
// gets a one-time schedule at the plan's start; each later chunk is made
// dependent on the previous chunk per the chain policy. A chunk that fails a
// step is reported and skipped; processing continues.
func (c *Client) ChunkAndCreateScans(ctx context.Context, plan ChunkPlan, log *slog.Logger) ([]stage.Result, error) {
	devices, err := readInventory(plan.InventoryFile)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("tenable: inventory %s holds no devices", plan.InventoryFile)
	}

	chunkSize := plan.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	numScans := (len(devices) + chunkSize - 1) / chunkSize

	scans, err := c.ListScans(ctx)
	if err != nil {
		return nil, err
	}
	base := FindScanByName(scans, plan.BaseScanName)
	if base == nil {
		return nil, fmt.Errorf("tenable: base scan %q not found", plan.BaseScanName)
	}

	var results []stage.Result
	previousID := ""
	for i := 0; i < numScans; i++ {
		lo := i * chunkSize
		hi := min(lo+chunkSize, len(devices))
		chunk := devices[lo:hi]
		name := fmt.Sprintf("%s (%dof%d)", plan.BaseScanName, i+1, numScans)

		copied, err := c.CopyScan(ctx, base.ID, name, plan.TargetUserID)
		if err != nil {
			log.Error("copy scan failed", "chunk", name, "err", err)
			results = append(results, stage.Fail(name, err))
			continue
		}

		if err := c.EditScanIPList(ctx, copied.ID, strings.Join(chunk, ",")); err != nil {
			log.Error("edit scan targets failed", "chunk", name, "err", err)
			results = append(results, stage.Fail(name, err))
			if plan.Chain == ChainIntended {
				previousID = copied.ID
			}
			continue
		}

		schedule := ICalSchedule(plan.StartTime)
		if i > 0 {
			schedule = DependentSchedule(previousID)
		}
		if err := c.EditScanSchedule(ctx, copied.ID, schedule); err != nil {
			log.Error("edit scan schedule failed", "chunk", name, "err", err)
			results = append(results, stage.Fail(name, err))
			if plan.Chain == ChainIntended {
				previousID = copied.ID
			}
			continue
		}

		if i == 0 {
			log.Info("scheduled first chunk", "scan", name, "start", plan.StartTime)
		} else {
			log.Info("chained chunk", "scan", name, "dependsOn", previousID)
		}
		log.Info("created scan", "scan", name, "devices", len(chunk))
		previousID = copied.ID
		results = append(results, stage.OKResult(name))
	}
	return results, nil
}

// readInventory loads one device address per line, skipping blanks.
func readInventory(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tenable: open inventory: %w", err)
	}
	defer f.Close()

	var devices []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			devices = append(devices, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tenable: read inventory: %w", err)
	}
	return devices, nil
}
