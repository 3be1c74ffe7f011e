package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluth/chainsaw/internal/audit"
	"github.com/kluth/chainsaw/internal/telemetry"
)

type fakeAuditor struct {
	report  *audit.Report
	compare *audit.ComparisonReport
	err     error

	gotIdentity audit.PackageIdentity
}

func (f *fakeAuditor) Audit(ctx context.Context, id audit.PackageIdentity) (*audit.Report, error) {
	f.gotIdentity = id
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeAuditor) Compare(ctx context.Context, name, versionA, versionB string) (*audit.ComparisonReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.compare, nil
}

func newServer(t *testing.T, a Auditor) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(a, telemetry.NewMetrics(), log)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Detail.Message
}

func TestAuditEndpoint(t *testing.T) {
	fa := &fakeAuditor{report: &audit.Report{
		Package:   audit.PackageIdentity{Name: "lodash", Version: "4.17.21"},
		RiskScore: 15,
		RiskLevel: "low",
	}}
	srv := newServer(t, fa)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/audit", `{"package_name": "Lodash", "version": "4.17.21"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	// Identity reaches the auditor normalized.
	assert.Equal(t, "lodash", fa.gotIdentity.Name)

	var report audit.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 15, report.RiskScore)
}

func TestAuditEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		auditErr   error
		wantStatus int
	}{
		{"malformed json", `{"package_name":`, nil, http.StatusUnprocessableEntity},
		{"invalid name", `{"package_name": ".hidden"}`, nil, http.StatusUnprocessableEntity},
		{"unknown package", `{"package_name": "nope"}`, &audit.NotFoundError{Name: "nope"}, http.StatusNotFound},
		{"registry down", `{"package_name": "lodash"}`, &audit.UnavailableError{Source: "registry", Err: io.EOF}, http.StatusBadGateway},
		{"unexpected failure", `{"package_name": "lodash"}`, io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, &fakeAuditor{err: tt.auditErr})
			rec := doJSON(t, srv.Handler(), http.MethodPost, "/audit", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			msg := errorMessage(t, rec.Body.Bytes())
			assert.NotEmpty(t, msg)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", msg, "internals must not leak")
			}
		})
	}
}

func TestCompareEndpoint(t *testing.T) {
	fa := &fakeAuditor{compare: &audit.ComparisonReport{
		ReportA:              &audit.Report{Package: audit.PackageIdentity{Name: "lodash", Version: "4.17.11"}},
		ReportB:              &audit.Report{Package: audit.PackageIdentity{Name: "lodash", Version: "4.17.21"}},
		HistoricalCvesFixed:  1,
		FixedVulnerabilities: []string{"CVE-2020-8203"},
	}}
	srv := newServer(t, fa)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/audit/compare",
		`{"package_name": "lodash", "version_a": "4.17.11", "version_b": "4.17.21"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var cmp audit.ComparisonReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	assert.Equal(t, 1, cmp.HistoricalCvesFixed)
	assert.Equal(t, []string{"CVE-2020-8203"}, cmp.FixedVulnerabilities)

	// The fixed-CVE delta is a count on the wire, not a list.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "1", string(raw["historical_cves_fixed"]))
}

func TestHealthEndpoint(t *testing.T) {
	srv := newServer(t, &fakeAuditor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.NotEmpty(t, health["version"])
	assert.NotEmpty(t, health["timestamp"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, &fakeAuditor{report: &audit.Report{}})

	// Drive one request through the middleware, then scrape.
	doJSON(t, srv.Handler(), http.MethodPost, "/audit", `{"package_name": "lodash"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	srv := newServer(t, &fakeAuditor{})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
