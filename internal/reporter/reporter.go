// Package reporter renders audit reports for the CLI in terminal,
// JSON, markdown and PDF form.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/kluth/chainsaw/internal/analyzer"
	"github.com/kluth/chainsaw/internal/audit"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// Formats
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

// Reporter writes audit reports to a writer in one format.
type Reporter struct {
	writer io.Writer
	format string
}

// New creates a Reporter. An empty format selects terminal output.
func New(w io.Writer, format string) *Reporter {
	if format == "" {
		format = FormatTerminal
	}
	return &Reporter{writer: w, format: format}
}

// Render outputs a single-package report.
func (r *Reporter) Render(report *audit.Report) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(report)
	case FormatMarkdown:
		return r.renderMarkdown(report)
	case FormatPDF:
		return r.renderPDF(report)
	default:
		return r.renderTerminal(report)
	}
}

// RenderComparison outputs a version comparison.
func (r *Reporter) RenderComparison(cmp *audit.ComparisonReport) error {
	if r.format == FormatJSON {
		enc := json.NewEncoder(r.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(cmp)
	}

	w := r.writer
	a, b := cmp.ReportA, cmp.ReportB
	fmt.Fprintf(w, "%s%s%s: %s -> %s\n\n", colorBold, a.Package.Name, colorReset, a.Package.Version, b.Package.Version)
	fmt.Fprintf(w, "  %-24s %4d -> %d\n", "risk score", a.RiskScore, b.RiskScore)
	fmt.Fprintf(w, "  %-24s %4s -> %s\n", "risk level", a.RiskLevel, b.RiskLevel)
	fmt.Fprintf(w, "  %-24s %4d -> %d\n", "findings", len(a.Findings), len(b.Findings))
	if cmp.HistoricalCvesFixed > 0 {
		fmt.Fprintf(w, "\n  %sfixed between versions (%d):%s\n", colorGreen, cmp.HistoricalCvesFixed, colorReset)
		for _, cve := range cmp.FixedVulnerabilities {
			fmt.Fprintf(w, "    %s+ %s%s\n", colorGreen, cve, colorReset)
		}
	} else {
		fmt.Fprintf(w, "\n  %sno known vulnerabilities fixed between these versions%s\n", colorDim, colorReset)
	}
	return nil
}

func (r *Reporter) renderJSON(report *audit.Report) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func severityColor(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical, analyzer.SeverityHigh:
		return colorRed
	case analyzer.SeverityMedium:
		return colorYellow
	default:
		return colorDim
	}
}

func levelColor(level string) string {
	switch level {
	case "critical", "high":
		return colorRed
	case "medium":
		return colorYellow
	default:
		return colorGreen
	}
}

func (r *Reporter) renderTerminal(report *audit.Report) error {
	w := r.writer
	lc := levelColor(string(report.RiskLevel))

	fmt.Fprintf(w, "%s%s%s@%s%s\n", colorBold, report.Package.Name, colorReset, report.Package.Version, colorReset)
	fmt.Fprintf(w, "%srisk: %s%s (%d/100)%s\n\n", colorBold, lc, strings.ToUpper(string(report.RiskLevel)), report.RiskScore, colorReset)

	fmt.Fprintf(w, "%sradar%s\n", colorBold, colorReset)
	printAxis(w, "security", report.RadarScores.Security)
	printAxis(w, "maintenance", report.RadarScores.Maintenance)
	printAxis(w, "reputation", report.RadarScores.Reputation)
	printAxis(w, "authenticity", report.RadarScores.Authenticity)
	fmt.Fprintln(w)

	if len(report.Findings) == 0 {
		fmt.Fprintf(w, "%sno findings%s\n", colorGreen, colorReset)
	} else {
		fmt.Fprintf(w, "%sfindings (%d)%s\n", colorBold, len(report.Findings), colorReset)
		for _, f := range report.Findings {
			fmt.Fprintf(w, "  %s[%s]%s %s: %s\n", severityColor(f.Severity), strings.ToUpper(string(f.Severity)), colorReset, f.Category, f.Message)
			for _, e := range f.Evidence {
				fmt.Fprintf(w, "      %s%s%s\n", colorDim, e, colorReset)
			}
		}
	}

	var degraded []string
	for name, rec := range report.SourceAvailability {
		if rec.Status != audit.SourceOK {
			degraded = append(degraded, fmt.Sprintf("%s (%s)", name, rec.Status))
		}
	}
	if len(degraded) > 0 {
		fmt.Fprintf(w, "\n%sdegraded sources: %s%s\n", colorYellow, strings.Join(degraded, ", "), colorReset)
	}

	fmt.Fprintf(w, "\n%saudited %s in %dms%s\n", colorDim, report.Timestamp.Format("2006-01-02 15:04:05"), report.DurationMillis, colorReset)
	return nil
}

func printAxis(w io.Writer, name string, score int) {
	filled := score / 5
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)
	color := colorGreen
	if score < 50 {
		color = colorRed
	} else if score < 80 {
		color = colorYellow
	}
	fmt.Fprintf(w, "  %-13s %s%s%s %3d\n", name, color, bar, colorReset, score)
}

func (r *Reporter) renderMarkdown(report *audit.Report) error {
	w := r.writer

	fmt.Fprintf(w, "# Audit: %s@%s\n\n", report.Package.Name, report.Package.Version)
	fmt.Fprintf(w, "**Risk:** %s (%d/100)\n\n", strings.ToUpper(string(report.RiskLevel)), report.RiskScore)

	fmt.Fprintln(w, "| Axis | Score |")
	fmt.Fprintln(w, "|------|-------|")
	fmt.Fprintf(w, "| Security | %d |\n", report.RadarScores.Security)
	fmt.Fprintf(w, "| Maintenance | %d |\n", report.RadarScores.Maintenance)
	fmt.Fprintf(w, "| Reputation | %d |\n", report.RadarScores.Reputation)
	fmt.Fprintf(w, "| Authenticity | %d |\n\n", report.RadarScores.Authenticity)

	if len(report.Findings) == 0 {
		fmt.Fprintln(w, "No findings.")
	} else {
		fmt.Fprintln(w, "## Findings")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Severity | Category | Detail |")
		fmt.Fprintln(w, "|----------|----------|--------|")
		for _, f := range report.Findings {
			fmt.Fprintf(w, "| %s | %s | %s |\n", f.Severity, f.Category, f.Message)
		}
	}

	fmt.Fprintf(w, "\n_Audited %s in %dms._\n", report.Timestamp.Format("2006-01-02 15:04:05"), report.DurationMillis)
	return nil
}

func (r *Reporter) renderPDF(report *audit.Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	red := []int{215, 58, 73}
	gray := []int{106, 115, 125}
	dark := []int{36, 41, 46}
	green := []int{40, 167, 69}

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(dark[0], dark[1], dark[2])
	pdf.Cell(0, 12, "Package Audit Report")
	pdf.Ln(14)

	pdf.SetFillColor(246, 248, 250)
	pdf.Rect(10, pdf.GetY(), 190, 22, "F")
	pdf.SetY(pdf.GetY() + 3)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "  "+report.Package.Name+"@"+report.Package.Version)
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	if report.Metadata.License != "" {
		pdf.Cell(95, 6, "  License: "+report.Metadata.License)
	}
	pdf.Cell(95, 6, fmt.Sprintf("Weekly downloads: %d", report.Metadata.WeeklyDownloads))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(40, 6, "Risk:")
	switch report.RiskLevel {
	case "critical", "high":
		pdf.SetTextColor(red[0], red[1], red[2])
	case "medium":
		pdf.SetTextColor(227, 98, 9)
	default:
		pdf.SetTextColor(green[0], green[1], green[2])
	}
	pdf.Cell(0, 6, fmt.Sprintf("%s (%d/100)", strings.ToUpper(string(report.RiskLevel)), report.RiskScore))
	pdf.SetTextColor(dark[0], dark[1], dark[2])
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Radar")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 9)
	for _, axis := range []struct {
		name  string
		score int
	}{
		{"Security", report.RadarScores.Security},
		{"Maintenance", report.RadarScores.Maintenance},
		{"Reputation", report.RadarScores.Reputation},
		{"Authenticity", report.RadarScores.Authenticity},
	} {
		pdf.Cell(40, 5, axis.name)
		pdf.SetFillColor(234, 236, 239)
		pdf.Rect(50, pdf.GetY()+1, 100, 3, "F")
		if axis.score < 50 {
			pdf.SetFillColor(red[0], red[1], red[2])
		} else {
			pdf.SetFillColor(green[0], green[1], green[2])
		}
		pdf.Rect(50, pdf.GetY()+1, float64(axis.score), 3, "F")
		pdf.SetX(155)
		pdf.Cell(0, 5, fmt.Sprintf("%d", axis.score))
		pdf.Ln(5)
	}
	pdf.Ln(5)

	if len(report.Findings) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(green[0], green[1], green[2])
		pdf.Cell(0, 8, "No findings.")
	} else {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Findings (%d)", len(report.Findings)))
		pdf.Ln(7)
		for _, f := range report.Findings {
			pdf.SetFont("Arial", "B", 9)
			switch f.Severity {
			case analyzer.SeverityCritical, analyzer.SeverityHigh:
				pdf.SetTextColor(red[0], red[1], red[2])
			case analyzer.SeverityMedium:
				pdf.SetTextColor(227, 98, 9)
			default:
				pdf.SetTextColor(gray[0], gray[1], gray[2])
			}
			pdf.Cell(0, 5, fmt.Sprintf("[%s] %s", strings.ToUpper(string(f.Severity)), f.Category))
			pdf.Ln(5)
			pdf.SetTextColor(dark[0], dark[1], dark[2])
			pdf.SetFont("Arial", "", 9)
			msg := f.Message
			if len(msg) > 200 {
				msg = msg[:197] + "..."
			}
			pdf.MultiCell(0, 4, msg, "", "", false)
			pdf.Ln(2)
		}
	}

	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(gray[0], gray[1], gray[2])
	pdf.CellFormat(0, 10, "Audited "+report.Timestamp.Format("2006-01-02 15:04:05 UTC"), "", 0, "C", false, 0, "")

	return pdf.Output(r.writer)
}
