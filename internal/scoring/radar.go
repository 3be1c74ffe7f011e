package scoring

import "github.com/kluth/chainsaw/internal/analyzer"

// Radar holds per-axis health scores. Each axis starts at 100 and
// findings routed to it deduct points, floored at 0. Higher is
// healthier, the inverse orientation of the overall risk score.
type Radar struct {
	Security     int `json:"security"`
	Maintenance  int `json:"maintenance"`
	Reputation   int `json:"reputation"`
	Authenticity int `json:"authenticity"`
}

// axisPenalty is the per-finding deduction applied to the axis the
// finding routes to.
var axisPenalty = map[analyzer.Severity]int{
	analyzer.SeverityCritical: 40,
	analyzer.SeverityHigh:     25,
	analyzer.SeverityMedium:   15,
	analyzer.SeverityLow:      5,
	analyzer.SeverityInfo:     0,
}

type axis int

const (
	axisSecurity axis = iota
	axisMaintenance
	axisReputation
	axisAuthenticity
)

var categoryAxis = map[analyzer.Category]axis{
	analyzer.CategoryKnownVuln:         axisSecurity,
	analyzer.CategoryInstallScript:     axisSecurity,
	analyzer.CategoryExcessiveDeps:     axisSecurity,
	analyzer.CategoryPackageAge:        axisMaintenance,
	analyzer.CategoryMaintainerCount:   axisMaintenance,
	analyzer.CategoryLicenseIssue:      axisMaintenance,
	analyzer.CategoryDownloadAnomaly:   axisReputation,
	analyzer.CategoryTyposquat:         axisAuthenticity,
	analyzer.CategoryRepoVerification:  axisAuthenticity,
	analyzer.CategoryMissingProvenance: axisAuthenticity,
}

// findingAxis routes a finding to its radar axis. Repository findings
// default to authenticity, except archive/staleness which speak to
// maintenance and star count which speaks to reputation.
func findingAxis(f analyzer.Finding) axis {
	if f.Category == analyzer.CategoryRepoVerification {
		switch f.Code {
		case analyzer.CodeRepoArchived, analyzer.CodeRepoStale:
			return axisMaintenance
		case analyzer.CodeRepoLowStars:
			return axisReputation
		}
	}
	a, ok := categoryAxis[f.Category]
	if !ok {
		return axisSecurity
	}
	return a
}

// BuildRadar computes the four axis scores from a finding set.
func BuildRadar(findings []analyzer.Finding) Radar {
	scores := [4]int{100, 100, 100, 100}
	for _, f := range findings {
		ax := findingAxis(f)
		scores[ax] -= axisPenalty[f.Severity]
		if scores[ax] < 0 {
			scores[ax] = 0
		}
	}
	return Radar{
		Security:     scores[axisSecurity],
		Maintenance:  scores[axisMaintenance],
		Reputation:   scores[axisReputation],
		Authenticity: scores[axisAuthenticity],
	}
}
