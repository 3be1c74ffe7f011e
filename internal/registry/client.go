// Package registry is the adapter for the npm registry and its
// downloads API. It is the minimum viable source for an audit: when the
// registry itself is unreachable, the audit fails outright instead of
// degrading.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultRegistry     = "https://registry.npmjs.org"
	DefaultDownloadsAPI = "https://api.npmjs.org"

	defaultCallTimeout = 5 * time.Second
)

// ErrNotFound reports that the package does not exist in the registry.
var ErrNotFound = errors.New("package not found")

// Client fetches package metadata and download stats from npm.
type Client struct {
	httpClient   *http.Client
	registryURL  string
	downloadsURL string
	callTimeout  time.Duration
}

// NewClient creates a registry client. Empty registryURL selects the
// public npm registry; callTimeout <= 0 selects the 5s default.
func NewClient(registryURL string, callTimeout time.Duration) *Client {
	if registryURL == "" {
		registryURL = DefaultRegistry
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &Client{
		httpClient:   &http.Client{Timeout: callTimeout},
		registryURL:  strings.TrimRight(registryURL, "/"),
		downloadsURL: DefaultDownloadsAPI,
		callTimeout:  callTimeout,
	}
}

// SetDownloadsURL overrides the downloads API endpoint.
func (c *Client) SetDownloadsURL(u string) {
	c.downloadsURL = strings.TrimRight(u, "/")
}

// GetPackage fetches the full metadata document for a package.
// A 404 from the registry is reported as ErrNotFound.
func (c *Client) GetPackage(ctx context.Context, name string) (*PackageMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	// Scoped names keep the @scope/ prefix un-escaped, matching npm's
	// own URL scheme.
	reqURL := fmt.Sprintf("%s/%s", c.registryURL, encodeName(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching package %q: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("package %q: %w", name, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("package %q: registry returned status %d", name, resp.StatusCode)
	}

	var metadata PackageMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("decoding package %q: %w", name, err)
	}

	return &metadata, nil
}

// GetDownloads fetches the last-week download count for a package. The
// downloads API answers 404 for packages that were never downloaded;
// that is a zero count, not an error.
func (c *Client) GetDownloads(ctx context.Context, name string) (*DownloadCount, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/downloads/point/last-week/%s", c.downloadsURL, encodeName(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating downloads request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching downloads for %q: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &DownloadCount{Package: name}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("downloads for %q: API returned status %d", name, resp.StatusCode)
	}

	var dl DownloadCount
	if err := json.NewDecoder(resp.Body).Decode(&dl); err != nil {
		return nil, fmt.Errorf("decoding downloads for %q: %w", name, err)
	}

	return &dl, nil
}

func encodeName(name string) string {
	return strings.ReplaceAll(url.PathEscape(name), "%2F", "/")
}
