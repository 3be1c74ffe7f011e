package analyzer

// VulnAnalyzer converts merged vulnerability advisories into findings,
// one per identifier.
type VulnAnalyzer struct{}

func NewVulnAnalyzer() *VulnAnalyzer { return &VulnAnalyzer{} }

func (v *VulnAnalyzer) Name() string { return "vulnerabilities" }

func (v *VulnAnalyzer) Analyze(p *Profile) []Finding {
	if !p.VulnsChecked {
		return nil
	}

	findings := make([]Finding, 0, len(p.Vulnerabilities))
	for _, vuln := range p.Vulnerabilities {
		msg := vuln.Summary
		if msg == "" {
			msg = "Known vulnerability " + vuln.Identifier()
		}
		findings = append(findings, Finding{
			Category: CategoryKnownVuln,
			Severity: ParseSeverity(vuln.Severity),
			Code:     vuln.Identifier(),
			Message:  msg,
			Evidence: []string{"advisory: " + vuln.ID},
		})
	}
	return findings
}
