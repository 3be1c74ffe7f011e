// Package github is the adapter for the source-hosting upstream: it
// verifies linked repositories and pulls security advisories from the
// GitHub Advisory Database. GitHub rate-limits aggressively without a
// token, so responses are cached for an hour and 403/429 answers are
// reported as ErrRateLimited instead of hard failures.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kluth/chainsaw/internal/cache"
)

const (
	DefaultAPI = "https://api.github.com"

	defaultCallTimeout = 5 * time.Second
	defaultCacheTTL    = time.Hour

	userAgent = "chainsaw-audit/1.0"
)

var (
	// ErrRateLimited reports that GitHub refused the call due to rate
	// limiting (HTTP 403 with a rate-limit body, or 429).
	ErrRateLimited = errors.New("github rate limit exceeded")

	// ErrRepoNotFound reports that the repository does not exist or is
	// not public.
	ErrRepoNotFound = errors.New("repository not found")
)

// RepoInfo is the normalized repository record.
type RepoInfo struct {
	FullName      string    `json:"full_name"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
	PushedAt      time.Time `json:"pushed_at"`
	DefaultBranch string    `json:"default_branch"`
}

// Advisory is one entry from the GitHub Advisory Database.
type Advisory struct {
	GHSAID   string `json:"ghsa_id"`
	CVEID    string `json:"cve_id"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
}

// Client talks to the GitHub REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	callTimeout time.Duration

	repoCache     *cache.Cache[RepoInfo]
	advisoryCache *cache.Cache[[]Advisory]
}

// NewClient creates a GitHub client. token may be empty; without it the
// adapter degrades to rate_limited status once the anonymous quota is
// spent. cacheTTL <= 0 selects the one hour default.
func NewClient(baseURL, token string, callTimeout, cacheTTL time.Duration) *Client {
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
		httpClient:    &http.Client{Timeout: callTimeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		callTimeout:   callTimeout,
		repoCache:     cache.New[RepoInfo](cacheTTL),
		advisoryCache: cache.New[[]Advisory](cacheTTL),
	}
}

var repoURLPattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/#?]+)`)

// ParseRepoURL extracts owner and repo from the URL forms npm packages
// carry (https, git+https, git@, ssh, with or without .git suffix).
func ParseRepoURL(repoURL string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSuffix(m[2], ".git"), true
}

// GetRepository fetches repository metadata, serving from cache within
// the TTL window.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (RepoInfo, error) {
	key := "repo:" + owner + "/" + repo
	return c.repoCache.GetOrFetch(key, func() (RepoInfo, error) {
		return c.fetchRepository(ctx, owner, repo)
	})
}

func (c *Client) fetchRepository(ctx context.Context, owner, repo string) (RepoInfo, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	var payload struct {
		FullName      string    `json:"full_name"`
		Stars         int       `json:"stargazers_count"`
		Forks         int       `json:"forks_count"`
		Archived      bool      `json:"archived"`
		CreatedAt     time.Time `json:"created_at"`
		PushedAt      time.Time `json:"pushed_at"`
		DefaultBranch string    `json:"default_branch"`
	}
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return RepoInfo{}, err
	}

	return RepoInfo{
		FullName:      payload.FullName,
		Stars:         payload.Stars,
		Forks:         payload.Forks,
		Archived:      payload.Archived,
		CreatedAt:     payload.CreatedAt,
		PushedAt:      payload.PushedAt,
		DefaultBranch: payload.DefaultBranch,
	}, nil
}

// ListAdvisories fetches npm-ecosystem advisories affecting the given
// package, serving from cache within the TTL window.
func (c *Client) ListAdvisories(ctx context.Context, pkgName string) ([]Advisory, error) {
	key := "advisories:" + pkgName
	return c.advisoryCache.GetOrFetch(key, func() ([]Advisory, error) {
		return c.fetchAdvisories(ctx, pkgName)
	})
}

func (c *Client) fetchAdvisories(ctx context.Context, pkgName string) ([]Advisory, error) {
	q := url.Values{}
	q.Set("ecosystem", "npm")
	q.Set("affects", pkgName)
	reqURL := fmt.Sprintf("%s/advisories?%s", c.baseURL, q.Encode())

	var payload []struct {
		GHSAID   string `json:"ghsa_id"`
		CVEID    string `json:"cve_id"`
		Severity string `json:"severity"`
		Summary  string `json:"summary"`
	}
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return nil, err
	}

	advisories := make([]Advisory, 0, len(payload))
	for _, a := range payload {
		advisories = append(advisories, Advisory{
			GHSAID:   a.GHSAID,
			CVEID:    a.CVEID,
			Severity: strings.ToLower(a.Severity),
			Summary:  a.Summary,
		})
	}
	return advisories, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling github: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding github response: %w", err)
		}
		return nil
	case http.StatusNotFound:
		return ErrRepoNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusForbidden:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if strings.Contains(strings.ToLower(string(body)), "rate limit") ||
			resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return ErrRateLimited
		}
		return fmt.Errorf("github returned status %d", resp.StatusCode)
	default:
		return fmt.Errorf("github returned status %d", resp.StatusCode)
	}
}
