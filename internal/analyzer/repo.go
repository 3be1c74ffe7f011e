package analyzer

import (
	"fmt"
	"time"
)

// Repo findings use distinct codes because they feed different radar
// axes: repo-archived and repo-stale are maintenance signals, low-stars
// is a reputation signal, the rest are authenticity signals.
const (
	CodeRepoNone       = "no-repository"
	CodeRepoUnverified = "unverified"
	CodeRepoArchived   = "repo-archived"
	CodeRepoStale      = "repo-stale"
	CodeRepoLowStars   = "low-stars"
)

const staleRepoAfter = 2 * 365 * 24 * time.Hour

// RepoAnalyzer verifies the linked source repository.
type RepoAnalyzer struct {
	now func() time.Time
}

func NewRepoAnalyzer() *RepoAnalyzer { return &RepoAnalyzer{now: time.Now} }

func (r *RepoAnalyzer) Name() string { return "repository" }

func (r *RepoAnalyzer) Analyze(p *Profile) []Finding {
	if p.RepositoryURL == "" {
		return []Finding{{
			Category: CategoryRepoVerification,
			Severity: SeverityMedium,
			Code:     CodeRepoNone,
			Message:  "Package does not link a source repository, so its code cannot be traced to a source",
		}}
	}

	// Repository URL present but the hosting adapter did not answer:
	// report the inability to verify, never a verified result.
	if p.Repo == nil {
		return []Finding{{
			Category: CategoryRepoVerification,
			Severity: SeverityLow,
			Code:     CodeRepoUnverified,
			Message:  "Linked repository could not be verified",
			Evidence: []string{"repository: " + p.RepositoryURL},
		}}
	}

	var findings []Finding

	if p.Repo.Archived {
		findings = append(findings, Finding{
			Category: CategoryRepoVerification,
			Severity: SeverityHigh,
			Code:     CodeRepoArchived,
			Message:  "Source repository is archived and no longer maintained",
			Evidence: []string{"repository: " + p.Repo.FullName},
		})
	} else if !p.Repo.PushedAt.IsZero() && r.now().Sub(p.Repo.PushedAt) > staleRepoAfter {
		findings = append(findings, Finding{
			Category: CategoryRepoVerification,
			Severity: SeverityLow,
			Code:     CodeRepoStale,
			Message:  "Source repository has had no pushes for over two years",
			Evidence: []string{"last push " + p.Repo.PushedAt.Format("2006-01-02")},
		})
	}

	if p.Repo.Stars < 5 {
		findings = append(findings, Finding{
			Category: CategoryRepoVerification,
			Severity: SeverityInfo,
			Code:     CodeRepoLowStars,
			Message:  fmt.Sprintf("Repository has only %d stars, indicating limited community adoption", p.Repo.Stars),
		})
	}

	return findings
}
