package sccparse

import (
	"regexp"
	"testing"
	"time"
)

func TestValidateCoverSheet(t *testing.T) {
	cover := [][]string{
		{"System Configuration Checklist"},
		{"SCM Contact:", "SCM12345"},
		{"  SCC Guidance Source  ", "NIST 800-53"},
		{"SCC Policy and Procedures Source:", "WPS-Policy-7"},
		{"SCC System Scope", "Production Linux"},
		{"Last reviewed", "2026-08-01"},
	}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	path := writeSCCFile(t, t.TempDir(), "SCC-OS-LINUX_04.xlsx", cover, controlRows())

	info := Validate(path, now, discardLogger())
	if info == nil {
		t.Fatal("Validate returned nil")
	}
	if info.Name != "SCC-OS-LINUX" {
		t.Errorf("Name = %q, want SCC-OS-LINUX", info.Name)
	}
	if info.Version != "04" {
		t.Errorf("Version = %q, want 04", info.Version)
	}
	if info.SCMName != "SCM12345" {
		t.Errorf("SCMName = %q, want SCM12345", info.SCMName)
	}
	if !info.GuidanceSource || !info.PolicyProcedure || !info.SystemScope {
		t.Errorf("presence flags = %v/%v/%v, all want true",
			info.GuidanceSource, info.PolicyProcedure, info.SystemScope)
	}
	if !info.ExceptionColumn || !info.DeviationColumn || !info.TLAColumn ||
		!info.MethodColumn || !info.DocumentationColumn {
		t.Errorf("column flags incomplete: %+v", info)
	}
	if !info.ReviewedWithin180 {
		t.Errorf("review on 2026-08-01 is inside the window, got %+v", info)
	}
	if info.LastReviewDate == "" {
		t.Error("LastReviewDate not recorded")
	}
}

func TestValidateMissingElements(t *testing.T) {
	cover := [][]string{{"bare cover sheet"}}
	controls := [][]string{
		{"Check ID", "Title"},
		{"1.1.1", "Password policy"},
	}
	path := writeSCCFile(t, t.TempDir(), "SCC-DB-ORACLE.xlsx", cover, controls)

	info := Validate(path, time.Now(), discardLogger())
	if info == nil {
		t.Fatal("Validate returned nil")
	}
	if info.Version != "" {
		t.Errorf("Version = %q, want empty for unversioned name", info.Version)
	}
	if info.SCMName != "" || info.GuidanceSource || info.SystemScope {
		t.Errorf("expected no cover elements found: %+v", info)
	}
	if info.ExceptionColumn || info.TLAColumn {
		t.Errorf("expected no structural columns found: %+v", info)
	}
}

func TestValidateIgnoresFutureDates(t *testing.T) {
	cover := [][]string{
		{"System Configuration Checklist"},
		{"Last reviewed", "2025-06-15"},
		{"Valid to", "2027-06-15"},
	}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	path := writeSCCFile(t, t.TempDir(), "SCC-OS-LINUX_04.xlsx", cover, controlRows())

	info := Validate(path, now, discardLogger())
	if info == nil {
		t.Fatal("Validate returned nil")
	}
	review, err := time.Parse(time.RFC3339, info.LastReviewDate)
	if err != nil {
		t.Fatalf("LastReviewDate %q: %v", info.LastReviewDate, err)
	}
	if review.After(now) {
		t.Errorf("LastReviewDate = %s, a future expiry date leaked in", info.LastReviewDate)
	}
	if got, want := review.Format("2006-01-02"), "2025-06-15"; got != want {
		t.Errorf("LastReviewDate = %s, want %s", got, want)
	}
	if info.ReviewedWithin180 {
		t.Error("a review 14 months back must not count as fresh")
	}
}

func TestReviewedWithinBoundary(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	onBoundary := now.AddDate(0, 0, -180)
	if !ReviewedWithin(onBoundary, now, 180) {
		t.Error("review exactly 180 days old must count as reviewed")
	}
	past := now.AddDate(0, 0, -181)
	if ReviewedWithin(past, now, 180) {
		t.Error("review 181 days old must not count")
	}
}

func TestParseCellDate(t *testing.T) {
	valid := []string{
		"2026-08-01",
		"8/1/26",
		"08/01/2026",
		"2-Jan-06",
		"Jan 2, 2006",
	}
	for _, cell := range valid {
		if _, ok := ParseCellDate(cell); !ok {
			t.Errorf("ParseCellDate(%q) did not parse", cell)
		}
	}
	invalid := []string{"", "  ", "1.1.1", "BPER0012345", "123456"}
	for _, cell := range invalid {
		if _, ok := ParseCellDate(cell); ok {
			t.Errorf("ParseCellDate(%q) parsed unexpectedly", cell)
		}
	}
}

func TestFlexMatch(t *testing.T) {
	re := regexp.MustCompile(`(?i)SCM\d+`)

	if m, ok := FlexMatch(re, "  SCM12345  ", 0); !ok || m != "SCM12345" {
		t.Errorf("trimmed exact match failed: %q %v", m, ok)
	}
	if _, ok := FlexMatch(re, "Contact: SCM12345", 0); ok {
		t.Error("padding beyond slack 0 must not match")
	}
	if m, ok := FlexMatch(re, "Contact: SCM12345", 9); !ok || m != "SCM12345" {
		t.Errorf("padding within slack failed: %q %v", m, ok)
	}
	if _, ok := FlexMatch(re, "no identifier here", 5); ok {
		t.Error("pattern miss must not match")
	}
}
