package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientDefaults(t *testing.T) {
	tests := []struct {
		name        string
		registryURL string
		wantURL     string
	}{
		{"default registry", "", DefaultRegistry},
		{"custom registry", "https://npm.corp.example", "https://npm.corp.example"},
		{"trailing slash removed", "https://npm.corp.example/", "https://npm.corp.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.registryURL, 0)
			if c.registryURL != tt.wantURL {
				t.Errorf("registryURL = %q, want %q", c.registryURL, tt.wantURL)
			}
			if c.callTimeout != defaultCallTimeout {
				t.Errorf("callTimeout = %v, want %v", c.callTimeout, defaultCallTimeout)
			}
		})
	}
}

func TestGetPackage(t *testing.T) {
	metadata := PackageMetadata{
		Name:     "left-pad",
		DistTags: map[string]string{"latest": "1.3.0"},
		Versions: map[string]PackageVersion{
			"1.3.0": {
				Name:    "left-pad",
				Version: "1.3.0",
				Scripts: map[string]string{"test": "node test"},
			},
		},
		Maintainers: []Maintainer{{Name: "stevemao"}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/left-pad":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(metadata)
		case "/@scope/pkg":
			json.NewEncoder(w).Encode(PackageMetadata{Name: "@scope/pkg"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	got, err := client.GetPackage(context.Background(), "left-pad")
	if err != nil {
		t.Fatalf("GetPackage() error = %v", err)
	}
	if got.Name != "left-pad" {
		t.Errorf("Name = %q, want %q", got.Name, "left-pad")
	}
	if _, ok := got.ResolveVersion("latest"); !ok {
		t.Error("ResolveVersion(latest) not found")
	}

	scoped, err := client.GetPackage(context.Background(), "@scope/pkg")
	if err != nil {
		t.Fatalf("GetPackage(scoped) error = %v", err)
	}
	if scoped.Name != "@scope/pkg" {
		t.Errorf("scoped Name = %q", scoped.Name)
	}

	_, err = client.GetPackage(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPackage(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetDownloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/downloads/point/last-week/left-pad":
			json.NewEncoder(w).Encode(DownloadCount{Downloads: 123456, Package: "left-pad"})
		case "/downloads/point/last-week/never-downloaded":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient("", time.Second)
	client.downloadsURL = server.URL

	dl, err := client.GetDownloads(context.Background(), "left-pad")
	if err != nil {
		t.Fatalf("GetDownloads() error = %v", err)
	}
	if dl.Downloads != 123456 {
		t.Errorf("Downloads = %d, want 123456", dl.Downloads)
	}

	dl, err = client.GetDownloads(context.Background(), "never-downloaded")
	if err != nil {
		t.Fatalf("GetDownloads(404) error = %v", err)
	}
	if dl.Downloads != 0 {
		t.Errorf("Downloads = %d, want 0 for 404", dl.Downloads)
	}

	if _, err := client.GetDownloads(context.Background(), "broken"); err == nil {
		t.Error("GetDownloads(500) expected error")
	}
}

func TestAuthorUnmarshalBothForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"object form", `{"name":"Jane Doe","email":"jane@example.com"}`, "Jane Doe"},
		{"string form", `"Jane Doe <jane@example.com>"`, "Jane Doe <jane@example.com>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Author
			if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
				t.Fatalf("Unmarshal error = %v", err)
			}
			if a.Name != tt.want {
				t.Errorf("Name = %q, want %q", a.Name, tt.want)
			}
		})
	}
}

func TestResolveVersion(t *testing.T) {
	m := &PackageMetadata{
		DistTags: map[string]string{"latest": "2.0.0"},
		Versions: map[string]PackageVersion{
			"1.0.0": {Version: "1.0.0"},
			"2.0.0": {Version: "2.0.0"},
		},
	}

	tests := []struct {
		requested string
		want      string
		ok        bool
	}{
		{"", "2.0.0", true},
		{"latest", "2.0.0", true},
		{"1.0.0", "1.0.0", true},
		{"9.9.9", "", false},
	}

	for _, tt := range tests {
		v, ok := m.ResolveVersion(tt.requested)
		if ok != tt.ok || v.Version != tt.want {
			t.Errorf("ResolveVersion(%q) = (%q, %v), want (%q, %v)", tt.requested, v.Version, ok, tt.want, tt.ok)
		}
	}
}
