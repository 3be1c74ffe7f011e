package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		in        string
		wantOwner string
		wantRepo  string
		wantOK    bool
	}{
		{"https://github.com/lodash/lodash", "lodash", "lodash", true},
		{"git+https://github.com/lodash/lodash.git", "lodash", "lodash", true},
		{"git://github.com/expressjs/express.git", "expressjs", "express", true},
		{"git@github.com:facebook/react.git", "facebook", "react", true},
		{"https://github.com/babel/babel#readme", "babel", "babel", true},
		{"https://gitlab.com/group/project", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, repo, ok := ParseRepoURL(tt.in)
			if ok != tt.wantOK || owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRepoURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, owner, repo, ok, tt.wantOwner, tt.wantRepo, tt.wantOK)
			}
		})
	}
}

func TestGetRepositoryCaching(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/repos/lodash/lodash" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"full_name":        "lodash/lodash",
			"stargazers_count": 59000,
			"forks_count":      7000,
			"archived":         false,
			"default_branch":   "main",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, time.Hour)

	for i := 0; i < 3; i++ {
		info, err := client.GetRepository(context.Background(), "lodash", "lodash")
		if err != nil {
			t.Fatalf("GetRepository() error = %v", err)
		}
		if info.Stars != 59000 {
			t.Errorf("Stars = %d, want 59000", info.Stars)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached within TTL)", got)
	}
}

func TestGetRepositoryNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, time.Hour)
	_, err := client.GetRepository(context.Background(), "nobody", "nothing")
	if !errors.Is(err, ErrRepoNotFound) {
		t.Errorf("error = %v, want ErrRepoNotFound", err)
	}
}

func TestRateLimitClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		headers map[string]string
		wantErr error
	}{
		{"429", http.StatusTooManyRequests, "", nil, ErrRateLimited},
		{"403 with rate limit body", http.StatusForbidden, `{"message":"API rate limit exceeded"}`, nil, ErrRateLimited},
		{"403 with zero remaining", http.StatusForbidden, `{}`, map[string]string{"X-RateLimit-Remaining": "0"}, ErrRateLimited},
		{"403 plain forbidden", http.StatusForbidden, `{"message":"forbidden"}`, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "", time.Second, time.Hour)
			_, err := client.GetRepository(context.Background(), "a", "b")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && errors.Is(err, ErrRateLimited) {
				t.Errorf("plain 403 misclassified as rate limited: %v", err)
			}
		})
	}
}

func TestListAdvisories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/advisories" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("affects"); got != "minimist" {
			t.Errorf("affects = %q, want minimist", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"ghsa_id": "GHSA-xvch-5gv4-984h", "cve_id": "CVE-2021-44906", "severity": "CRITICAL", "summary": "Prototype pollution"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", time.Second, time.Hour)
	advisories, err := client.ListAdvisories(context.Background(), "minimist")
	if err != nil {
		t.Fatalf("ListAdvisories() error = %v", err)
	}
	if len(advisories) != 1 {
		t.Fatalf("got %d advisories, want 1", len(advisories))
	}
	if advisories[0].CVEID != "CVE-2021-44906" {
		t.Errorf("CVEID = %q", advisories[0].CVEID)
	}
	if advisories[0].Severity != "critical" {
		t.Errorf("Severity = %q, want lowercased", advisories[0].Severity)
	}
}

func TestTokenHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"full_name": "a/b"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", time.Second, time.Hour)
	if _, err := client.GetRepository(context.Background(), "a", "b"); err != nil {
		t.Fatalf("GetRepository() error = %v", err)
	}
}
