package match

import "testing"

func TestSimilarity(t *testing.T) {
	if got := Similarity("access control policy", "access control policy"); got != 1 {
		t.Errorf("identical strings = %v, want 1", got)
	}
	near := Similarity("access control policy", "access control policies")
	far := Similarity("access control policy", "incident response plan")
	if near <= far {
		t.Errorf("near match %v not above far match %v", near, far)
	}
}

func TestBest(t *testing.T) {
	candidates := []string{
		"access control policy",
		"incident response plan",
		"change management standard",
	}
	m, ok := Best("access control policies", candidates)
	if !ok {
		t.Fatal("Best returned no match")
	}
	if m.Value != "access control policy" {
		t.Errorf("Value = %q, want access control policy", m.Value)
	}
	if m.Confidence < FileThreshold {
		t.Errorf("Confidence = %v, want >= %v", m.Confidence, FileThreshold)
	}

	if _, ok := Best("anything", nil); ok {
		t.Error("empty candidate list must report no match")
	}
}

func TestNormalizeDocName(t *testing.T) {
	cases := map[string]string{
		"Access Control Policy.docx":  "access control policy",
		"Access Control Policy...":    "access control policy",
		"ACCESS CONTROL POLICY":       "access control policy",
		"  Access Control Policy  ":   "access control policy",
		"Patch Mgmt Procedure…":       "patch mgmt procedure",
		"Retention Schedule_2026.pdf": "retention schedule_2026",
	}
	for in, want := range cases {
		if got := NormalizeDocName(in); got != want {
			t.Errorf("NormalizeDocName(%q) = %q, want %q", in, got, want)
		}
	}
}
