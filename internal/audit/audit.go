package audit

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kluth/chainsaw/internal/analyzer"
	"github.com/kluth/chainsaw/internal/github"
	"github.com/kluth/chainsaw/internal/osv"
	"github.com/kluth/chainsaw/internal/registry"
	"github.com/kluth/chainsaw/internal/scoring"
	"github.com/kluth/chainsaw/internal/sigstore"
	"github.com/kluth/chainsaw/internal/telemetry"
)

const defaultAuditTimeout = 10 * time.Second

// Config tunes the orchestrator.
type Config struct {
	// AuditTimeout bounds one whole audit including all adapter calls.
	AuditTimeout time.Duration
	Metrics      *telemetry.Metrics
	Logger       *slog.Logger
}

// Auditor fans an audit out across the source adapters and folds the
// answers into a scored report.
type Auditor struct {
	registry  *registry.Client
	github    *github.Client
	osv       *osv.Client
	sigstore  *sigstore.Client
	analyzers []analyzer.Analyzer

	timeout time.Duration
	metrics *telemetry.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewAuditor wires the adapters into an orchestrator. Any nil adapter
// other than the registry is recorded as failed instead of being
// called.
func NewAuditor(reg *registry.Client, gh *github.Client, ov *osv.Client, sig *sigstore.Client, cfg Config) *Auditor {
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = defaultAuditTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Auditor{
		registry:  reg,
		github:    gh,
		osv:       ov,
		sigstore:  sig,
		analyzers: analyzer.All(),
		timeout:   cfg.AuditTimeout,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       time.Now,
	}
}

// Audit runs the full pipeline for one package identity. The registry
// is the minimum viable source: if it fails the audit fails with a
// NotFoundError or UnavailableError. Every other adapter degrades into
// the report's source availability map.
func (a *Auditor) Audit(ctx context.Context, id PackageIdentity) (*Report, error) {
	start := a.now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	report, err := a.audit(ctx, id, start)

	if a.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		a.metrics.ObserveAudit(outcome, a.now().Sub(start))
	}
	return report, err
}

func (a *Auditor) audit(ctx context.Context, id PackageIdentity, start time.Time) (*Report, error) {
	sources := map[string]SourceRecord{
		SourceRegistry:        {Status: SourceOK},
		SourceRepository:      {Status: SourceOK},
		SourceVulnerabilities: {Status: SourceOK},
		SourceProvenance:      {Status: SourceOK},
	}

	meta, err := a.registry.GetPackage(ctx, id.Name)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, &NotFoundError{Name: id.Name}
		}
		return nil, &UnavailableError{Source: SourceRegistry, Err: err}
	}

	version, ok := meta.ResolveVersion(id.Version)
	if !ok {
		return nil, &NotFoundError{Name: id.Name, Version: id.Version}
	}

	profile := a.buildProfile(id, meta, &version)

	// Remaining adapters run concurrently under the audit deadline.
	// Each goroutine writes only its own profile fields before wg.Wait
	// releases them to the analyzers.
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		dl, err := a.registry.GetDownloads(ctx, id.Name)
		if err != nil {
			a.log.Debug("download stats unavailable", "package", id.Name, "error", err)
			return
		}
		profile.WeeklyDownloads = dl.Downloads
		profile.DownloadsKnown = true
	}()

	var repoRecord, vulnRecord, provRecord SourceRecord
	var ghsaAdvisories []github.Advisory

	wg.Add(1)
	go func() {
		defer wg.Done()
		repoRecord = a.fetchRepository(ctx, profile)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		vulnRecord = a.fetchVulnerabilities(ctx, id, profile)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if a.github == nil {
			return
		}
		advisories, err := a.github.ListAdvisories(ctx, id.Name)
		if err != nil {
			a.log.Debug("advisory feed unavailable", "package", id.Name, "error", err)
			return
		}
		ghsaAdvisories = advisories
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		provRecord = a.fetchProvenance(ctx, id.Name, profile.Version, profile)
	}()

	wg.Wait()

	sources[SourceRepository] = repoRecord
	sources[SourceVulnerabilities] = vulnRecord
	sources[SourceProvenance] = provRecord

	if vulnRecord.Status == SourceOK {
		mergeAdvisories(profile, ghsaAdvisories)
	}

	if a.metrics != nil {
		for name, rec := range sources {
			if rec.Status != SourceOK {
				a.metrics.ObserveSourceFailure(name, string(rec.Status))
			}
		}
	}

	findings := analyzer.Run(a.analyzers, profile)
	score := scoring.Score(findings)

	report := &Report{
		Package:            PackageIdentity{Name: profile.Name, Version: profile.Version},
		RiskScore:          score,
		RiskLevel:          scoring.Level(score),
		Findings:           findings,
		RadarScores:        scoring.BuildRadar(findings),
		SourceAvailability: sources,
		Metadata:           buildMetadata(profile),
		Timestamp:          start.UTC(),
		DurationMillis:     a.now().Sub(start).Milliseconds(),
	}

	a.log.Info("audit complete",
		"package", report.Package.String(),
		"score", report.RiskScore,
		"level", report.RiskLevel,
		"findings", len(report.Findings),
		"duration_ms", report.DurationMillis)

	return report, nil
}

func (a *Auditor) buildProfile(id PackageIdentity, meta *registry.PackageMetadata, version *registry.PackageVersion) *analyzer.Profile {
	p := &analyzer.Profile{
		Name:          meta.Name,
		RequestedName: id.Name,
		Version:       version.Version,
		Description:   meta.Description,
		License:       version.License,
		RepositoryURL: registry.RepositoryURL(meta, version),
		Deprecated:    version.Deprecated,
		VersionCount:  len(meta.Versions),
		Dependencies:  version.Dependencies,
		Scripts:       version.Scripts,
	}
	if p.Name == "" {
		p.Name = id.Name
	}
	if p.License == "" {
		p.License = meta.License
	}
	if meta.Author != nil {
		p.Author = meta.Author.Name
	}
	for _, m := range meta.Maintainers {
		p.Maintainers = append(p.Maintainers, m.Name)
	}
	if created, ok := meta.Created(); ok {
		p.CreatedAt = created.UTC().Format(time.RFC3339)
		p.AgeDays = int(a.now().Sub(created).Hours() / 24)
		p.AgeKnown = true
	}
	if modified, ok := meta.Modified(); ok {
		p.ModifiedAt = modified.UTC().Format(time.RFC3339)
	}
	return p
}

func (a *Auditor) fetchRepository(ctx context.Context, profile *analyzer.Profile) SourceRecord {
	if profile.RepositoryURL == "" {
		return SourceRecord{Status: SourceOK}
	}
	owner, repo, ok := github.ParseRepoURL(profile.RepositoryURL)
	if !ok {
		return SourceRecord{Status: SourceOK}
	}
	if a.github == nil {
		return SourceRecord{Status: SourceFailed, Error: "repository adapter disabled"}
	}
	info, err := a.github.GetRepository(ctx, owner, repo)
	if err != nil {
		if errors.Is(err, github.ErrRepoNotFound) {
			// A dangling repo link is a finding, not an adapter fault.
			return SourceRecord{Status: SourceOK}
		}
		return classifyError(err)
	}
	profile.Repo = &info
	return SourceRecord{Status: SourceOK}
}

func (a *Auditor) fetchVulnerabilities(ctx context.Context, id PackageIdentity, profile *analyzer.Profile) SourceRecord {
	if a.osv == nil {
		return SourceRecord{Status: SourceFailed, Error: "vulnerability adapter disabled"}
	}
	vulns, err := a.osv.Query(ctx, id.Name, profile.Version)
	if err != nil {
		return classifyError(err)
	}
	profile.Vulnerabilities = vulns
	profile.VulnsChecked = true
	return SourceRecord{Status: SourceOK}
}

func (a *Auditor) fetchProvenance(ctx context.Context, name, version string, profile *analyzer.Profile) SourceRecord {
	if a.sigstore == nil {
		return SourceRecord{Status: SourceFailed, Error: "provenance adapter disabled"}
	}
	info, err := a.sigstore.GetProvenance(ctx, name, version)
	if err != nil {
		return classifyError(err)
	}
	profile.Provenance = &info
	return SourceRecord{Status: SourceOK}
}

// mergeAdvisories folds GitHub advisories into the vulnerability set,
// skipping CVEs the authoritative feed already reported.
func mergeAdvisories(profile *analyzer.Profile, advisories []github.Advisory) {
	if len(advisories) == 0 {
		return
	}
	seen := make(map[string]bool, len(profile.Vulnerabilities))
	for _, v := range profile.Vulnerabilities {
		seen[v.Identifier()] = true
		if v.CVEID != "" {
			seen[v.CVEID] = true
		}
	}
	for _, adv := range advisories {
		id := adv.CVEID
		if id == "" {
			id = adv.GHSAID
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		profile.Vulnerabilities = append(profile.Vulnerabilities, osv.Vulnerability{
			ID:       adv.GHSAID,
			CVEID:    adv.CVEID,
			Severity: adv.Severity,
			Summary:  adv.Summary,
		})
	}
}

func classifyError(err error) SourceRecord {
	switch {
	case errors.Is(err, github.ErrRateLimited):
		return SourceRecord{Status: SourceRateLimited, Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return SourceRecord{Status: SourceTimeout, Error: "deadline exceeded"}
	default:
		return SourceRecord{Status: SourceFailed, Error: err.Error()}
	}
}

func buildMetadata(p *analyzer.Profile) Metadata {
	return Metadata{
		Description:     p.Description,
		Author:          p.Author,
		License:         p.License,
		RepositoryURL:   p.RepositoryURL,
		CreatedAt:       p.CreatedAt,
		ModifiedAt:      p.ModifiedAt,
		Maintainers:     p.Maintainers,
		WeeklyDownloads: p.WeeklyDownloads,
		VersionCount:    p.VersionCount,
	}
}

// Compare audits two versions of the same package concurrently and
// reports the advisories fixed between the older and the newer one.
func (a *Auditor) Compare(ctx context.Context, name, versionA, versionB string) (*ComparisonReport, error) {
	idA, err := ParseIdentity(name, versionA)
	if err != nil {
		return nil, err
	}
	idB, err := ParseIdentity(name, versionB)
	if err != nil {
		return nil, err
	}
	if idA.Version == "" || idB.Version == "" {
		return nil, &ValidationError{Message: "both versions are required for comparison"}
	}
	if idA.Version == idB.Version {
		return nil, &ValidationError{Message: "versions must differ"}
	}

	var (
		wg         sync.WaitGroup
		repA, repB *Report
		errA, errB error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		repA, errA = a.Audit(ctx, idA)
	}()
	go func() {
		defer wg.Done()
		repB, errB = a.Audit(ctx, idB)
	}()
	wg.Wait()

	if errA != nil {
		return nil, errA
	}
	if errB != nil {
		return nil, errB
	}

	fixed := cvesFixed(repA, repB)
	return &ComparisonReport{
		ReportA:              repA,
		ReportB:              repB,
		HistoricalCvesFixed:  len(fixed),
		FixedVulnerabilities: fixed,
	}, nil
}

// cvesFixed lists vulnerability identifiers present in the older
// report but absent from the newer one.
func cvesFixed(older, newer *Report) []string {
	still := make(map[string]bool)
	for _, f := range newer.Findings {
		if f.Category == analyzer.CategoryKnownVuln {
			still[f.Code] = true
		}
	}
	var fixed []string
	for _, f := range older.Findings {
		if f.Category == analyzer.CategoryKnownVuln && !still[f.Code] {
			fixed = append(fixed, f.Code)
		}
	}
	sort.Strings(fixed)
	return fixed
}
