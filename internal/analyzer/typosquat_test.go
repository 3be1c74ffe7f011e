package analyzer

import "testing"

func TestTyposquatDetector(t *testing.T) {
	tests := []struct {
		name         string
		pkgName      string
		wantFindings bool
	}{
		{"exact popular package", "express", false},
		{"exact popular package lodash", "lodash", false},
		{"typo of express", "expresss", true},
		{"typo of lodash", "lodahs", true},
		{"completely different", "my-unique-pkg-xyz-123", false},
		{"scoped popular package", "@types/node", false},
		{"case and separator normalization", "Lodash", false},
	}

	det := NewTyposquatDetector()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := det.Analyze(&Profile{Name: tt.pkgName, RequestedName: tt.pkgName})
			if tt.wantFindings && len(findings) != 1 {
				t.Errorf("Analyze(%q) returned %d findings, want exactly 1", tt.pkgName, len(findings))
			}
			if !tt.wantFindings && len(findings) > 0 {
				t.Errorf("Analyze(%q) returned %d findings, want 0", tt.pkgName, len(findings))
			}
		})
	}
}

func TestTyposquatSeverityByDistance(t *testing.T) {
	det := NewTyposquatDetector()

	// "lodas" is one deletion away from "lodash".
	findings := det.Analyze(&Profile{RequestedName: "lodas"})
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Severity != SeverityCritical {
		t.Errorf("distance-1 severity = %s, want critical", findings[0].Severity)
	}

	// "lodahs" is two edits away from "lodash".
	findings = det.Analyze(&Profile{RequestedName: "lodahs"})
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Severity != SeverityHigh {
		t.Errorf("distance-2 severity = %s, want high", findings[0].Severity)
	}
	if findings[0].Code != "lodash" {
		t.Errorf("Code = %q, want nearest corpus entry %q", findings[0].Code, "lodash")
	}
}

func TestTyposquatSingleFindingOnly(t *testing.T) {
	// "momant" is within distance 2 of both "moment" and others; the
	// detector must still emit exactly one finding for the nearest.
	det := NewTyposquatDetector()
	findings := det.Analyze(&Profile{RequestedName: "momant"})
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want exactly 1", len(findings))
	}
	if findings[0].Code != "moment" {
		t.Errorf("nearest = %q, want %q", findings[0].Code, "moment")
	}
}

func TestTyposquatScopedCandidate(t *testing.T) {
	det := NewTyposquatDetector()
	// Scope is stripped before distance comparison.
	findings := det.Analyze(&Profile{RequestedName: "@evil/lodahs"})
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Code != "lodash" {
		t.Errorf("nearest = %q, want lodash", findings[0].Code)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"express", "expresss", 1},
		{"lodash", "lodahs", 2},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := levenshtein(tt.a, tt.b); got != tt.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
