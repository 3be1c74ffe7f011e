package analyzer

import (
	"fmt"
	"strings"
)

// popularPackages is the curated corpus of frequently targeted npm
// package names, assembled from download charts and historical
// typosquatting incidents.
var popularPackages = []string{
	// Top downloads
	"lodash", "react", "react-dom", "express", "axios", "typescript",
	"webpack", "next", "vue", "angular", "moment", "jquery",
	"chalk", "commander", "debug", "request", "async", "bluebird",

	// Frameworks
	"svelte", "nuxt", "gatsby", "redux", "mobx", "rxjs",
	"passport", "socket.io", "ws", "cors", "helmet", "morgan",

	// Testing and build tools
	"jest", "mocha", "chai", "jasmine", "karma", "ava",
	"eslint", "prettier", "babel", "rollup", "parcel", "vite",
	"esbuild", "gulp", "grunt", "webpack-cli", "nodemon",

	// Type definitions
	"@types/node", "@types/react", "@types/express", "@types/jest",

	// Angular ecosystem
	"@angular/core", "@angular/common", "@angular/router",
	"@angular/forms", "@angular/platform-browser",

	// Babel ecosystem
	"@babel/core", "@babel/preset-env", "@babel/preset-react",
	"@babel/preset-typescript", "@babel/plugin-transform-runtime",

	// React ecosystem
	"react-router", "react-router-dom", "prop-types", "classnames",
	"react-scripts", "create-react-app", "styled-components",

	// Node core utilities
	"dotenv", "fs-extra", "body-parser", "cookie-parser", "multer",
	"busboy", "rimraf", "glob", "minimist", "yargs", "inquirer",
	"uuid", "nanoid", "semver", "mkdirp", "cross-env",

	// Database and ORM
	"mongoose", "sequelize", "typeorm", "prisma", "knex",
	"pg", "mysql", "redis", "mongodb", "sqlite3",

	// Auth and security
	"jsonwebtoken", "bcrypt", "bcryptjs", "passport-local",
	"passport-jwt", "express-session", "connect-redis",

	// HTTP clients and servers
	"node-fetch", "got", "superagent", "http-proxy",
	"http-server", "serve",

	// Date and time
	"dayjs", "date-fns", "luxon", "moment-timezone",

	// Validation
	"joi", "yup", "ajv", "validator", "class-validator",

	// Historical attack targets
	"event-stream", "ua-parser-js", "colors", "faker", "node-ipc",
	"is-promise", "flatmap-stream", "getcookies", "crossenv",
	"coa", "rc", "left-pad",
}

// TyposquatDetector flags package names within edit distance 2 of a
// curated popular-package corpus.
type TyposquatDetector struct {
	corpus []string
}

func NewTyposquatDetector() *TyposquatDetector {
	return &TyposquatDetector{corpus: popularPackages}
}

func (t *TyposquatDetector) Name() string { return "typosquat" }

// Analyze emits at most one typosquat finding, referencing the single
// nearest corpus entry. Ties at equal distance are broken by shortest
// corpus name, then lexicographic order.
func (t *TyposquatDetector) Analyze(p *Profile) []Finding {
	candidate := normalizeName(p.RequestedName)
	if candidate == "" {
		candidate = normalizeName(p.Name)
	}
	base := stripScope(candidate)

	best := ""
	bestDist := -1
	for _, popular := range t.corpus {
		normPopular := normalizeName(popular)
		if candidate == normPopular {
			return nil // exact corpus match is not a typosquat
		}

		dist := levenshtein(base, stripScope(normPopular))
		if dist == 0 || dist > 2 {
			continue
		}
		if bestDist == -1 || dist < bestDist ||
			(dist == bestDist && (len(normPopular) < len(best) ||
				(len(normPopular) == len(best) && normPopular < best))) {
			best = normPopular
			bestDist = dist
		}
	}

	if bestDist == -1 {
		return nil
	}

	sev := SeverityHigh
	if bestDist <= 1 {
		sev = SeverityCritical
	}

	return []Finding{{
		Category: CategoryTyposquat,
		Severity: sev,
		Code:     best,
		Message:  fmt.Sprintf("Package name %q is suspiciously similar to the popular package %q", p.RequestedName, best),
		Evidence: []string{fmt.Sprintf("edit distance %d from %q", bestDist, best)},
	}}
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "-")
}

func stripScope(name string) string {
	if strings.HasPrefix(name, "@") {
		if idx := strings.Index(name, "/"); idx >= 0 {
			return name[idx+1:]
		}
	}
	return name
}

// levenshtein computes the edit distance between two strings with a
// two-row matrix.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
