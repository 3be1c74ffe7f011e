// Package scoring turns findings into a bounded risk score and a
// per-axis radar breakdown.
package scoring

import "github.com/kluth/chainsaw/internal/analyzer"

const maxScore = 100

// severityPoints maps each finding severity to its score contribution.
var severityPoints = map[analyzer.Severity]int{
	analyzer.SeverityCritical: 25,
	analyzer.SeverityHigh:     15,
	analyzer.SeverityMedium:   8,
	analyzer.SeverityLow:      3,
	analyzer.SeverityInfo:     0,
}

// RiskLevel buckets a score into a coarse label for the report.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// Score sums severity points across findings, capped at 100.
// Higher means riskier.
func Score(findings []analyzer.Finding) int {
	total := 0
	for _, f := range findings {
		total += severityPoints[f.Severity]
	}
	if total > maxScore {
		return maxScore
	}
	return total
}

// Level maps a score to its risk level. Boundaries are inclusive on
// the upper end: 25 is still low, 26 is medium.
func Level(score int) RiskLevel {
	switch {
	case score <= 25:
		return LevelLow
	case score <= 50:
		return LevelMedium
	case score <= 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}
