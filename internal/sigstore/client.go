// Package sigstore is the adapter for the npm attestation endpoint,
// which exposes Sigstore build provenance logged to the Rekor
// transparency log. A missing attestation is a normal answer ("this
// version was published without provenance"), not an adapter failure.
package sigstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kluth/chainsaw/internal/cache"
)

const (
	DefaultAPI = "https://registry.npmjs.org"

	defaultCallTimeout = 5 * time.Second
	defaultCacheTTL    = time.Hour
)

// Attestation is one signed statement about a package version.
type Attestation struct {
	PredicateType string `json:"predicateType"`
}

// ProvenanceInfo is the normalized provenance verdict for a version.
type ProvenanceInfo struct {
	HasProvenance    bool   `json:"has_provenance"`
	PredicateType    string `json:"predicate_type,omitempty"`
	AttestationCount int    `json:"attestation_count"`
}

// Client fetches attestations for package versions.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	callTimeout time.Duration
	cache       *cache.Cache[ProvenanceInfo]
}

// NewClient creates an attestation client. Empty baseURL selects the
// public npm registry host; non-positive durations select the defaults.
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
		cache:       cache.New[ProvenanceInfo](cacheTTL),
	}
}

// GetProvenance fetches and summarizes the attestations for the given
// package version. Results are cached per version within the TTL.
func (c *Client) GetProvenance(ctx context.Context, name, version string) (ProvenanceInfo, error) {
	key := "attestations:" + name + "@" + version
	return c.cache.GetOrFetch(key, func() (ProvenanceInfo, error) {
		return c.fetch(ctx, name, version)
	})
}

func (c *Client) fetch(ctx context.Context, name, version string) (ProvenanceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	subject := url.PathEscape(name + "@" + version)
	reqURL := fmt.Sprintf("%s/-/npm/v1/attestations/%s", c.baseURL, subject)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return ProvenanceInfo{}, fmt.Errorf("creating attestation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProvenanceInfo{}, fmt.Errorf("fetching attestations for %s@%s: %w", name, version, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ProvenanceInfo{}, nil
	case resp.StatusCode != http.StatusOK:
		return ProvenanceInfo{}, fmt.Errorf("attestations for %s@%s: registry returned status %d", name, version, resp.StatusCode)
	}

	var payload struct {
		Attestations []Attestation `json:"attestations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ProvenanceInfo{}, fmt.Errorf("decoding attestations for %s@%s: %w", name, version, err)
	}

	info := ProvenanceInfo{AttestationCount: len(payload.Attestations)}
	for _, a := range payload.Attestations {
		if strings.Contains(strings.ToLower(a.PredicateType), "slsa") {
			info.HasProvenance = true
			info.PredicateType = a.PredicateType
			break
		}
	}
	// A publish attestation alone still proves the artifact was signed
	// and logged, even without SLSA build provenance.
	if !info.HasProvenance && len(payload.Attestations) > 0 {
		info.HasProvenance = true
		info.PredicateType = payload.Attestations[0].PredicateType
	}

	return info, nil
}
