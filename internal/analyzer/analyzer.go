// Package analyzer derives discrete security findings from a merged
// package profile. Every detector is pure: no network I/O, identical
// input always yields identical findings.
package analyzer

import (
	"sort"

	"github.com/kluth/chainsaw/internal/github"
	"github.com/kluth/chainsaw/internal/osv"
	"github.com/kluth/chainsaw/internal/sigstore"
)

// Severity grades a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank orders severities for sorting, critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity maps advisory severity strings onto the local scale,
// defaulting unknown values to medium.
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "info":
		return SeverityInfo
	default:
		return SeverityMedium
	}
}

// Category classifies a finding for scoring and radar projection.
type Category string

const (
	CategoryTyposquat         Category = "typosquat"
	CategoryPackageAge        Category = "package-age"
	CategoryMaintainerCount   Category = "maintainer-count"
	CategoryInstallScript     Category = "dangerous-install-script"
	CategoryRepoVerification  Category = "repo-verification-failed"
	CategoryDownloadAnomaly   Category = "download-anomaly"
	CategoryExcessiveDeps     Category = "excessive-dependencies"
	CategoryLicenseIssue      Category = "license-issue"
	CategoryKnownVuln         Category = "known-vulnerability"
	CategoryMissingProvenance Category = "missing-provenance"
)

// Finding is one discrete risk signal. Code distinguishes findings
// within a category; an audit carries at most one finding per
// (Category, Code) pair.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Evidence []string `json:"evidence,omitempty"`
}

// Profile is the unified package view the orchestrator assembles from
// whichever adapters answered. Pointer fields are nil when the backing
// adapter did not return ok; detectors must treat nil as "unknown",
// never as "verified absent".
type Profile struct {
	Name          string
	RequestedName string
	Version       string
	Description   string
	License       string
	RepositoryURL string
	Deprecated    string

	CreatedAt    string
	ModifiedAt   string
	AgeDays      int
	AgeKnown     bool
	Maintainers  []string
	Author       string
	VersionCount int

	Dependencies map[string]string
	Scripts      map[string]string

	WeeklyDownloads int
	DownloadsKnown  bool

	Repo            *github.RepoInfo
	Vulnerabilities []osv.Vulnerability
	VulnsChecked    bool
	Provenance      *sigstore.ProvenanceInfo
}

// Analyzer is a single detector over the merged profile.
type Analyzer interface {
	Name() string
	Analyze(p *Profile) []Finding
}

// All returns the full detector set in evaluation order.
func All() []Analyzer {
	return []Analyzer{
		NewTyposquatDetector(),
		NewScriptAnalyzer(),
		NewMetadataAnalyzer(),
		NewRepoAnalyzer(),
		NewDownloadsAnalyzer(),
		NewVulnAnalyzer(),
		NewProvenanceAnalyzer(),
	}
}

// Run evaluates every detector against the profile and returns the
// deduplicated, deterministically ordered finding set.
func Run(analyzers []Analyzer, p *Profile) []Finding {
	var findings []Finding
	for _, a := range analyzers {
		findings = append(findings, a.Analyze(p)...)
	}
	return Dedupe(findings)
}

// Dedupe merges findings sharing a (Category, Code) pair: the first
// occurrence wins, evidence is unioned. The result is sorted by
// severity (critical first), then category, then code.
func Dedupe(findings []Finding) []Finding {
	type key struct {
		cat  Category
		code string
	}
	merged := make(map[key]int, len(findings))
	var out []Finding

	for _, f := range findings {
		k := key{f.Category, f.Code}
		if idx, ok := merged[k]; ok {
			out[idx].Evidence = unionEvidence(out[idx].Evidence, f.Evidence)
			continue
		}
		merged[k] = len(out)
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Code < out[j].Code
	})

	return out
}

func unionEvidence(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, e := range a {
		seen[e] = true
	}
	for _, e := range b {
		if !seen[e] {
			a = append(a, e)
			seen[e] = true
		}
	}
	return a
}
