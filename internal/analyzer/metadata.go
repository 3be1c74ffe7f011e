package analyzer

import "fmt"

// Dependency-count thresholds. Direct dependencies beyond these widen
// the install attack surface noticeably.
const (
	depsElevated  = 20
	depsExcessive = 50
)

// MetadataAnalyzer derives findings from registry metadata: package
// age, maintainer count, dependency breadth and licensing.
type MetadataAnalyzer struct{}

func NewMetadataAnalyzer() *MetadataAnalyzer { return &MetadataAnalyzer{} }

func (m *MetadataAnalyzer) Name() string { return "metadata" }

func (m *MetadataAnalyzer) Analyze(p *Profile) []Finding {
	var findings []Finding

	findings = append(findings, m.ageFindings(p)...)
	findings = append(findings, m.maintainerFindings(p)...)
	findings = append(findings, m.dependencyFindings(p)...)
	findings = append(findings, m.licenseFindings(p)...)

	return findings
}

func (m *MetadataAnalyzer) ageFindings(p *Profile) []Finding {
	if !p.AgeKnown {
		return nil
	}

	age := p.AgeDays
	switch {
	case age < 7:
		return []Finding{{
			Category: CategoryPackageAge,
			Severity: SeverityCritical,
			Code:     "very-new",
			Message:  fmt.Sprintf("Package is only %d days old", age),
			Evidence: []string{"created " + p.CreatedAt},
		}}
	case age < 30:
		return []Finding{{
			Category: CategoryPackageAge,
			Severity: SeverityHigh,
			Code:     "new",
			Message:  fmt.Sprintf("Package is %d days old and has little community track record", age),
			Evidence: []string{"created " + p.CreatedAt},
		}}
	case age < 90:
		return []Finding{{
			Category: CategoryPackageAge,
			Severity: SeverityMedium,
			Code:     "recent",
			Message:  fmt.Sprintf("Package is %d days old with limited history", age),
			Evidence: []string{"created " + p.CreatedAt},
		}}
	}
	return nil
}

func (m *MetadataAnalyzer) maintainerFindings(p *Profile) []Finding {
	switch len(p.Maintainers) {
	case 0:
		return []Finding{{
			Category: CategoryMaintainerCount,
			Severity: SeverityCritical,
			Code:     "no-maintainers",
			Message:  "Package has no listed maintainers; it may be abandoned or hijacked",
		}}
	case 1:
		return []Finding{{
			Category: CategoryMaintainerCount,
			Severity: SeverityLow,
			Code:     "single-maintainer",
			Message:  "Package has a single maintainer, a single point of compromise",
			Evidence: []string{"maintainer: " + p.Maintainers[0]},
		}}
	}
	return nil
}

func (m *MetadataAnalyzer) dependencyFindings(p *Profile) []Finding {
	n := len(p.Dependencies)
	switch {
	case n > depsExcessive:
		return []Finding{{
			Category: CategoryExcessiveDeps,
			Severity: SeverityMedium,
			Code:     "excessive",
			Message:  fmt.Sprintf("Package declares %d direct dependencies", n),
			Evidence: []string{fmt.Sprintf("%d direct dependencies", n)},
		}}
	case n > depsElevated:
		return []Finding{{
			Category: CategoryExcessiveDeps,
			Severity: SeverityLow,
			Code:     "elevated",
			Message:  fmt.Sprintf("Package declares %d direct dependencies", n),
			Evidence: []string{fmt.Sprintf("%d direct dependencies", n)},
		}}
	}
	return nil
}

func (m *MetadataAnalyzer) licenseFindings(p *Profile) []Finding {
	var findings []Finding

	if p.License == "" {
		findings = append(findings, Finding{
			Category: CategoryLicenseIssue,
			Severity: SeverityMedium,
			Code:     "missing-license",
			Message:  "Package declares no license",
		})
	} else if p.License == "UNLICENSED" {
		findings = append(findings, Finding{
			Category: CategoryLicenseIssue,
			Severity: SeverityLow,
			Code:     "unlicensed",
			Message:  "Package is marked UNLICENSED (proprietary, not for redistribution)",
		})
	}

	if p.Deprecated != "" {
		findings = append(findings, Finding{
			Category: CategoryMaintainerCount,
			Severity: SeverityMedium,
			Code:     "deprecated",
			Message:  "Package version is deprecated: " + truncate(p.Deprecated, 120),
		})
	}

	return findings
}
