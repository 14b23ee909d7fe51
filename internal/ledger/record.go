package ledger

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ExceptionRecord tracks one BPER reference found in an SCC.
type ExceptionRecord struct {
	SCC             string `json:"SCC"`
	Name            string `json:"BPER name"`
	ApprovalStatus  string `json:"Approval Status"`
	ValidTo         string `json:"Valid to"`
	Gathered        bool   `json:"Gathered"`
	TLA             bool   `json:"TLA"`
	FalsePositive   bool   `json:"false_positive,omitempty"`
	ManualLink      string `json:"manually_linked,omitempty"`
	UpdatedFromFile string `json:"Updated from filename,omitempty"`
	UpdatedAt       string `json:"Updated from timestamp,omitempty"`
	GatheredAt      string `json:"Gathered timestamp,omitempty"`
}

// AttestationRecord tracks one attestation reference, keyed by its 6-digit number.
type AttestationRecord struct {
	SCC             string `json:"SCC"`
	Number          string `json:"Attestation num"`
	Gathered        bool   `json:"Gathered"`
	ApprovalStatus  string `json:"Approval Status"`
	ValidTo         string `json:"Valid to"`
	ReviewDate      string `json:"Review Date,omitempty"`
	AssessmentDate  string `json:"Assessment Date,omitempty"`
	OverallStatus   string `json:"Overall Status,omitempty"`
	FalsePositive   bool   `json:"false_positive,omitempty"`
	ManualLink      string `json:"manually_linked,omitempty"`
	UpdatedFromFile string `json:"Updated from filename,omitempty"`
	UpdatedAt       string `json:"Updated from timestamp,omitempty"`
	GatheredAt      string `json:"Gathered timestamp,omitempty"`
}

// DocumentRecord tracks one supporting document reference, keyed by cleaned name.
type DocumentRecord struct {
	SCC             string `json:"SCC"`
	Name            string `json:"Doc name"`
	Version         string `json:"Version"`
	LastUpdate      string `json:"Last update"`
	Gathered        bool   `json:"Gathered"`
	FalsePositive   bool   `json:"false_positive,omitempty"`
	ManualLink      string `json:"manually_linked,omitempty"`
	UpdatedFromFile string `json:"Updated from filename,omitempty"`
	UpdatedAt       string `json:"Updated from timestamp,omitempty"`
	GatheredAt      string `json:"Gathered timestamp,omitempty"`
}

// CheckRecord maps a control/check ID to its declared evidence method.
type CheckRecord struct {
	SCC    string `json:"SCC"`
	Method string `json:"Evidence method"`
}

// SCCRecord holds structural-compliance results for one checklist spreadsheet.
type SCCRecord struct {
	Name                 string   `json:"SCC"`
	Version              string   `json:"Version"`
	SCMName              string   `json:"SCM Name"`
	LastReviewDate       string   `json:"Last Review Date"`
	GuidanceSource       bool     `json:"SCC Guidance source presence"`
	PolicyProcedure      bool     `json:"SCC Policy and Procedure presence"`
	SystemScope          bool     `json:"SCC System Scope Presence"`
	ExceptionColumn      bool     `json:"Exception column presence"`
	DeviationColumn      bool     `json:"Deviation column presence"`
	TLAColumn            bool     `json:"TLA column presence"`
	MethodColumn         bool     `json:"Compliance method column presence"`
	DocumentationColumn  bool     `json:"WPS config sup doc presence"`
	ReviewedWithin180    bool     `json:"Reviewed within 180 days"`
	EvidenceMethods      []string `json:"Evidence Methods"`
	DirectoryBuilt       bool     `json:"Directory built,omitempty"`
	InventoryFile        string   `json:"Inventory File,omitempty"`
	PassFailStatus       string   `json:"PassFail_Status,omitempty"`
	InfoStatus           string   `json:"Info_Status,omitempty"`
	InfoDocPath          string   `json:"Info Doc Path,omitempty"`
}

// CarryOperational copies the directory-build and scan-outcome fields from
// a prior record. Spreadsheet validation starts these zeroed, so re-parsing
// an SCC must not wipe what earlier runs recorded. A nil prev is a no-op.
func (r *SCCRecord) CarryOperational(prev *SCCRecord) {
	if prev == nil {
		return
	}
	r.DirectoryBuilt = prev.DirectoryBuilt
	r.InventoryFile = prev.InventoryFile
	r.PassFailStatus = prev.PassFailStatus
	r.InfoStatus = prev.InfoStatus
	r.InfoDocPath = prev.InfoDocPath
}

// Settings is the singleton Program Settings record.
type Settings struct {
	ProjectDir         string `json:"Project Directory"`
	SCCDir             string `json:"SCC Directory,omitempty"`
	BPERDir            string `json:"BPERs Directory,omitempty"`
	AttestationDir     string `json:"Attestation Directory,omitempty"`
	SupportingDocsDir  string `json:"Supporting Documents Directory,omitempty"`
	TemplateDir        string `json:"Template Directory,omitempty"`
	DirectoriesBuilt   bool   `json:"Directories Built"`
	TemplatesBuilt     bool   `json:"Templates Built"`
	GatherSortDate     string `json:"Gather and Sort Date"`
	DocTrackerUpdate   string `json:"Doc Tracker Update"`
	PullInfoDate       string `json:"Pull Info Date"`
	ChecklistsGenDate  string `json:"Checklists generated"`
	LastInventoryCheck string `json:"Last Inventory Check,omitempty"`
}

var versionSuffixRe = regexp.MustCompile(`_(\d{2})$`)

// CanonicalName strips the trailing _NN version suffix from a spreadsheet base
// name. All cross-references (folder names, evidence lookups, file matching)
// key on this form, never the raw file name.
func CanonicalName(base string) string {
	return strings.TrimSpace(versionSuffixRe.ReplaceAllString(base, ""))
}

// VersionFromName recovers the two-digit version suffix, or "" when absent.
func VersionFromName(base string) string {
	m := versionSuffixRe.FindStringSubmatch(strings.TrimSpace(base))
	if m == nil {
		return ""
	}
	return m[1]
}

// exceptionList tolerates the legacy single-object encoding when decoding.
// Every collection is list-valued in memory regardless of how old ledgers
// stored it.
type exceptionList []*ExceptionRecord

func (l *exceptionList) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]*ExceptionRecord)(l))
}

type attestationList []*AttestationRecord

func (l *attestationList) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]*AttestationRecord)(l))
}

type documentList []*DocumentRecord

func (l *documentList) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]*DocumentRecord)(l))
}

func unmarshalOneOrMany[T any](data []byte, out *[]T) error {
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, out)
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*out = []T{single}
	return nil
}
