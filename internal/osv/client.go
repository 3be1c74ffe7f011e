// Package osv is the adapter for the OSV.dev vulnerability database,
// the authoritative source for known-vulnerability findings.
package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kluth/chainsaw/internal/cache"
)

const (
	DefaultAPI = "https://api.osv.dev"

	defaultCallTimeout = 5 * time.Second
	defaultCacheTTL    = time.Hour
)

// Vulnerability is a normalized OSV advisory.
type Vulnerability struct {
	ID       string `json:"id"`
	CVEID    string `json:"cve_id,omitempty"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
}

// Identifier returns the key used to match vulnerabilities across
// versions: the CVE alias when one exists, the OSV id otherwise.
func (v Vulnerability) Identifier() string {
	if v.CVEID != "" {
		return v.CVEID
	}
	return v.ID
}

// Client queries OSV.dev for npm package vulnerabilities.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	callTimeout time.Duration
	cache       *cache.Cache[[]Vulnerability]
}

// NewClient creates an OSV client. Empty baseURL selects the public
// API; non-positive durations select the defaults.
func NewClient(baseURL string, callTimeout, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPI
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Client{
		httpClient:  &http.Client{Timeout: callTimeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		callTimeout: callTimeout,
		cache:       cache.New[[]Vulnerability](cacheTTL),
	}
}

type query struct {
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
	Version string `json:"version,omitempty"`
}

type response struct {
	Vulns []vuln `json:"vulns"`
}

type vuln struct {
	ID               string     `json:"id"`
	Summary          string     `json:"summary"`
	Details          string     `json:"details"`
	Aliases          []string   `json:"aliases"`
	Severity         []severity `json:"severity,omitempty"`
	DatabaseSpecific struct {
		Severity string `json:"severity"`
	} `json:"database_specific"`
}

type severity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

// Query returns vulnerabilities affecting the given package version.
// Results are cached per (name, version) within the TTL window.
func (c *Client) Query(ctx context.Context, name, version string) ([]Vulnerability, error) {
	key := "osv:" + name + "@" + version
	return c.cache.GetOrFetch(key, func() ([]Vulnerability, error) {
		return c.fetch(ctx, name, version)
	})
}

func (c *Client) fetch(ctx context.Context, name, version string) ([]Vulnerability, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var q query
	q.Package.Name = name
	q.Package.Ecosystem = "npm"
	q.Version = version

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshaling OSV query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating OSV request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying OSV: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OSV API returned status %d", resp.StatusCode)
	}

	var osvResp response
	if err := json.NewDecoder(resp.Body).Decode(&osvResp); err != nil {
		return nil, fmt.Errorf("decoding OSV response: %w", err)
	}

	vulns := make([]Vulnerability, 0, len(osvResp.Vulns))
	for _, v := range osvResp.Vulns {
		summary := v.Summary
		if summary == "" {
			summary = v.Details
		}
		if len(summary) > 200 {
			summary = summary[:200] + "..."
		}
		vulns = append(vulns, Vulnerability{
			ID:       v.ID,
			CVEID:    cveAlias(v.Aliases),
			Severity: classifySeverity(v),
			Summary:  summary,
		})
	}
	return vulns, nil
}

func cveAlias(aliases []string) string {
	for _, a := range aliases {
		if strings.HasPrefix(a, "CVE-") {
			return a
		}
	}
	return ""
}

func classifySeverity(v vuln) string {
	if s := strings.ToLower(v.DatabaseSpecific.Severity); s != "" {
		switch s {
		case "critical", "high", "medium", "low":
			return s
		case "moderate":
			return "medium"
		}
	}
	for _, s := range v.Severity {
		if s.Type == "CVSS_V3" {
			return cvssVectorSeverity(s.Score)
		}
	}
	return "medium"
}

// cvssVectorSeverity grades a CVSS v3 vector string without a full
// parser: network-reachable, low-complexity, high-impact flaws rank
// critical, descending from there.
func cvssVectorSeverity(score string) string {
	if score == "" {
		return "medium"
	}
	hasNetwork := strings.Contains(score, "AV:N")
	hasLowComplexity := strings.Contains(score, "AC:L")
	hasHighImpact := strings.Contains(score, "/C:H") || strings.Contains(score, "/I:H")

	switch {
	case hasNetwork && hasLowComplexity && hasHighImpact:
		return "critical"
	case hasNetwork && hasHighImpact:
		return "high"
	case hasNetwork:
		return "medium"
	default:
		return "low"
	}
}
