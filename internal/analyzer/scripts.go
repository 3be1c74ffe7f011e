package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// lifecycleHooks are the install-time scripts npm runs automatically.
var lifecycleHooks = []string{"preinstall", "install", "postinstall"}

type tokenClass int

const (
	classFetch tokenClass = iota
	classExec
	classDestructive
)

// dangerousTokens are command signatures scanned for in lifecycle
// scripts, grouped by what they let an attacker do.
var dangerousTokens = []struct {
	pattern *regexp.Regexp
	token   string
	class   tokenClass
}{
	{regexp.MustCompile(`(?i)\bcurl\b`), "curl", classFetch},
	{regexp.MustCompile(`(?i)\bwget\b`), "wget", classFetch},
	{regexp.MustCompile(`(?i)\beval\b`), "eval", classExec},
	{regexp.MustCompile(`(?i)\bbash\b`), "bash", classExec},
	{regexp.MustCompile(`(?i)\bsh\s+-c\b`), "sh -c", classExec},
	{regexp.MustCompile(`(?i)\brm\s+-[rf]{2}\b`), "rm -rf", classDestructive},
}

// ScriptAnalyzer scans install lifecycle hooks for dangerous command
// signatures.
type ScriptAnalyzer struct{}

func NewScriptAnalyzer() *ScriptAnalyzer { return &ScriptAnalyzer{} }

func (s *ScriptAnalyzer) Name() string { return "install-scripts" }

// Analyze emits at most one finding per hook, listing every matched
// token as evidence. A fetch token combined with an execution token in
// the same hook is the classic remote-code-execution pipeline and
// escalates the finding to high.
func (s *ScriptAnalyzer) Analyze(p *Profile) []Finding {
	if len(p.Scripts) == 0 {
		return nil
	}

	var findings []Finding
	for _, hook := range lifecycleHooks {
		body, ok := p.Scripts[hook]
		if !ok || body == "" {
			continue
		}

		var tokens []string
		classes := make(map[tokenClass]bool)
		for _, dt := range dangerousTokens {
			if dt.pattern.MatchString(body) {
				tokens = append(tokens, dt.token)
				classes[dt.class] = true
			}
		}
		if len(tokens) == 0 {
			continue
		}
		sort.Strings(tokens)

		sev := SeverityMedium
		if classes[classFetch] && classes[classExec] {
			sev = SeverityHigh
		}

		findings = append(findings, Finding{
			Category: CategoryInstallScript,
			Severity: sev,
			Code:     hook,
			Message:  fmt.Sprintf("%s script contains dangerous commands: %s", hook, strings.Join(tokens, ", ")),
			Evidence: append(tokens, "script: "+truncate(body, 120)),
		})
	}

	return findings
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
