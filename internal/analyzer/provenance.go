package analyzer

// ProvenanceAnalyzer flags versions published without a verifiable
// build attestation. p.Provenance is nil when the transparency-log
// adapter did not answer; that is "unknown", not "missing", and emits
// nothing.
type ProvenanceAnalyzer struct{}

func NewProvenanceAnalyzer() *ProvenanceAnalyzer { return &ProvenanceAnalyzer{} }

func (p *ProvenanceAnalyzer) Name() string { return "provenance" }

func (a *ProvenanceAnalyzer) Analyze(p *Profile) []Finding {
	if p.Provenance == nil || p.Provenance.HasProvenance {
		return nil
	}

	return []Finding{{
		Category: CategoryMissingProvenance,
		Severity: SeverityLow,
		Code:     "no-attestations",
		Message:  "Package version was published without build provenance; the artifact cannot be traced to its source build",
	}}
}
