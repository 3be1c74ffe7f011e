// Package audit orchestrates the source adapters, detectors and
// scoring into a single package risk report.
package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/kluth/chainsaw/internal/analyzer"
	"github.com/kluth/chainsaw/internal/scoring"
)

const maxNameLength = 214

// invalidNameChars are rejected anywhere in an npm package name.
const invalidNameChars = " !#$%^&*()+=[]{}|\\;:'\"<>,?~`"

// PackageIdentity names the exact subject of an audit.
type PackageIdentity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (p PackageIdentity) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

// ParseIdentity normalizes and validates a requested package name and
// optional version. npm names are lowercase, at most 214 characters,
// never start with "." or "_", and scoped names follow @scope/name.
func ParseIdentity(name, version string) (PackageIdentity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	version = strings.TrimSpace(version)

	if name == "" {
		return PackageIdentity{}, &ValidationError{Message: "package name cannot be empty"}
	}
	if len(name) > maxNameLength {
		return PackageIdentity{}, &ValidationError{Message: fmt.Sprintf("package name exceeds %d characters", maxNameLength)}
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return PackageIdentity{}, &ValidationError{Message: "package name cannot start with . or _"}
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return PackageIdentity{}, &ValidationError{Message: "package name contains invalid characters"}
	}
	if strings.HasPrefix(name, "@") {
		parts := strings.Split(name, "/")
		if len(parts) != 2 || len(parts[0]) < 2 || parts[1] == "" {
			return PackageIdentity{}, &ValidationError{Message: "scoped package must have format @scope/name"}
		}
	} else if strings.Contains(name, "/") {
		return PackageIdentity{}, &ValidationError{Message: "only scoped packages may contain /"}
	}

	return PackageIdentity{Name: name, Version: version}, nil
}

// SourceStatus describes how one upstream behaved during an audit.
type SourceStatus string

const (
	SourceOK          SourceStatus = "ok"
	SourceFailed      SourceStatus = "failed"
	SourceTimeout     SourceStatus = "timeout"
	SourceRateLimited SourceStatus = "rate_limited"
)

// SourceRecord is one adapter's outcome, kept in the report so a
// degraded audit is distinguishable from a clean one.
type SourceRecord struct {
	Status SourceStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// Source names used as SourceAvailability keys.
const (
	SourceRegistry        = "registry"
	SourceRepository      = "repository"
	SourceVulnerabilities = "vulnerabilities"
	SourceProvenance      = "provenance"
)

// Metadata carries descriptive package fields for report consumers.
type Metadata struct {
	Description     string   `json:"description,omitempty"`
	Author          string   `json:"author,omitempty"`
	License         string   `json:"license,omitempty"`
	RepositoryURL   string   `json:"repository_url,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
	ModifiedAt      string   `json:"modified_at,omitempty"`
	Maintainers     []string `json:"maintainers,omitempty"`
	WeeklyDownloads int      `json:"weekly_downloads"`
	VersionCount    int      `json:"version_count"`
}

// Report is the full result of auditing one package identity.
type Report struct {
	Package            PackageIdentity         `json:"package"`
	RiskScore          int                     `json:"risk_score"`
	RiskLevel          scoring.RiskLevel       `json:"risk_level"`
	Findings           []analyzer.Finding      `json:"findings"`
	RadarScores        scoring.Radar           `json:"radar_scores"`
	SourceAvailability map[string]SourceRecord `json:"source_availability"`
	Metadata           Metadata                `json:"metadata"`
	Timestamp          time.Time               `json:"timestamp"`
	DurationMillis     int64                   `json:"duration_ms"`
}

// ComparisonReport sets two versions of the same package side by side.
// HistoricalCvesFixed counts the known-vulnerability findings present
// in the older report and absent from the newer one; the matched
// identifiers are listed separately for display.
type ComparisonReport struct {
	ReportA              *Report  `json:"report_a"`
	ReportB              *Report  `json:"report_b"`
	HistoricalCvesFixed  int      `json:"historical_cves_fixed"`
	FixedVulnerabilities []string `json:"fixed_vulnerabilities,omitempty"`
}
