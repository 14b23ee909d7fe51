package reconcile

// The format-specific evidence readers (PDF text extraction, Word/Excel
// property reads) are external collaborators. The reconciler only depends on
// these narrow interfaces; tests and the CLI wire concrete implementations.

// BPERInfo is what a BPER evidence file yields.
type BPERInfo struct {
	ValidTo        string
	ApprovalStatus string
	TLA            bool
}

// AttestationInfo is what an attestation evidence file yields.
type AttestationInfo struct {
	ApprovalStatus string
	ValidTo        string
	ReviewDate     string
	AssessmentDate string
	OverallStatus  string
}

// DocumentInfo is what a supporting-document file yields.
type DocumentInfo struct {
	LastUpdate string
}

// BPERExtractor reads status/date fields out of a BPER evidence file.
type BPERExtractor interface {
	ExtractBPER(path string) (BPERInfo, error)
}

// AttestationExtractor reads status/date fields out of an attestation file.
type AttestationExtractor interface {
	ExtractAttestation(path string) (AttestationInfo, error)
}

// DocumentExtractor reads the last-update date out of a supporting document.
type DocumentExtractor interface {
	ExtractDocument(path string) (DocumentInfo, error)
}

// Extractors bundles the three collaborators.
type Extractors struct {
	BPER        BPERExtractor
	Attestation AttestationExtractor
	Document    DocumentExtractor
}
