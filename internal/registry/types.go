package registry

import (
	"encoding/json"
	"time"
)

// PackageMetadata is the full registry document for a package.
type PackageMetadata struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	DistTags    map[string]string         `json:"dist-tags"`
	Versions    map[string]PackageVersion `json:"versions"`
	Time        map[string]time.Time      `json:"time"`
	Maintainers []Maintainer              `json:"maintainers"`
	Author      *Author                   `json:"author,omitempty"`
	Repository  *Repository               `json:"repository,omitempty"`
	License     string                    `json:"license"`
}

// PackageVersion is the manifest of one published version.
type PackageVersion struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Description      string            `json:"description"`
	Scripts          map[string]string `json:"scripts"`
	Dependencies     map[string]string `json:"dependencies"`
	Dist             Dist              `json:"dist"`
	Maintainers      []Maintainer      `json:"maintainers"`
	Repository       *Repository       `json:"repository,omitempty"`
	License          string            `json:"license"`
	Deprecated       string            `json:"deprecated,omitempty"`
	HasInstallScript bool              `json:"hasInstallScript,omitempty"`
}

// Dist carries distribution and signing info for a version.
type Dist struct {
	Tarball      string        `json:"tarball"`
	Shasum       string        `json:"shasum"`
	Integrity    string        `json:"integrity"`
	Signatures   []Signature   `json:"signatures,omitempty"`
	Attestations *Attestations `json:"attestations,omitempty"`
}

// Signature is one registry signature over the tarball.
type Signature struct {
	Keyid string `json:"keyid"`
	Sig   string `json:"sig"`
}

// Attestations points at provenance attestations for a version.
type Attestations struct {
	URL        string      `json:"url"`
	Provenance *Provenance `json:"provenance,omitempty"`
}

// Provenance identifies the attestation predicate type.
type Provenance struct {
	PredicateType string `json:"predicateType"`
}

// Maintainer is an npm account with publish rights on the package.
type Maintainer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Author is the package author field. npm serializes it either as an
// object or as a bare string; both forms decode into Name.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// UnmarshalJSON accepts both the object and the shorthand string form.
func (a *Author) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Name = s
		return nil
	}
	type plain Author
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Author(p)
	return nil
}

// Repository is the linked source repository.
type Repository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// DownloadCount is the npm downloads API point response.
type DownloadCount struct {
	Downloads int    `json:"downloads"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Package   string `json:"package"`
}

// Created returns the package creation time, if recorded.
func (m *PackageMetadata) Created() (time.Time, bool) {
	t, ok := m.Time["created"]
	return t, ok
}

// Modified returns the last modification time, if recorded.
func (m *PackageMetadata) Modified() (time.Time, bool) {
	t, ok := m.Time["modified"]
	return t, ok
}

// ResolveVersion maps a requested version ("" or "latest" mean the
// latest dist-tag) to a concrete published version.
func (m *PackageMetadata) ResolveVersion(requested string) (PackageVersion, bool) {
	name := requested
	if name == "" || name == "latest" {
		tag, ok := m.DistTags["latest"]
		if !ok {
			return PackageVersion{}, false
		}
		name = tag
	}
	v, ok := m.Versions[name]
	return v, ok
}

// RepositoryURL returns the repository URL preferring the version-level
// field over the package-level one.
func RepositoryURL(m *PackageMetadata, v *PackageVersion) string {
	if v != nil && v.Repository != nil && v.Repository.URL != "" {
		return v.Repository.URL
	}
	if m != nil && m.Repository != nil {
		return m.Repository.URL
	}
	return ""
}
