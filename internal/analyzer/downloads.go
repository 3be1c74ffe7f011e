package analyzer

import "fmt"

// Download anomaly thresholds: a brand-new package pulling six-figure
// weekly downloads suggests artificial inflation; a years-old package
// with almost none suggests the community never adopted it.
const (
	spikeMaxAgeDays    = 30
	spikeMinDownloads  = 100000
	adoptionMinAgeDays = 365
	adoptionThreshold  = 100
)

// DownloadsAnalyzer flags anomalous download patterns.
type DownloadsAnalyzer struct{}

func NewDownloadsAnalyzer() *DownloadsAnalyzer { return &DownloadsAnalyzer{} }

func (d *DownloadsAnalyzer) Name() string { return "downloads" }

func (d *DownloadsAnalyzer) Analyze(p *Profile) []Finding {
	if !p.DownloadsKnown || !p.AgeKnown {
		return nil
	}

	if p.AgeDays < spikeMaxAgeDays && p.WeeklyDownloads > spikeMinDownloads {
		return []Finding{{
			Category: CategoryDownloadAnomaly,
			Severity: SeverityHigh,
			Code:     "suspicious-spike",
			Message: fmt.Sprintf("New package (%d days old) has unusually high downloads (%d/week), possibly inflated",
				p.AgeDays, p.WeeklyDownloads),
			Evidence: []string{fmt.Sprintf("%d downloads last week", p.WeeklyDownloads)},
		}}
	}

	if p.AgeDays > adoptionMinAgeDays && p.WeeklyDownloads < adoptionThreshold {
		return []Finding{{
			Category: CategoryDownloadAnomaly,
			Severity: SeverityInfo,
			Code:     "low-adoption",
			Message:  fmt.Sprintf("Package has minimal usage (%d downloads/week)", p.WeeklyDownloads),
			Evidence: []string{fmt.Sprintf("%d downloads last week", p.WeeklyDownloads)},
		}}
	}

	return nil
}
