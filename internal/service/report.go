package service

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"ruleforge/internal/executor"
	"ruleforge/internal/rule"
)

// Layout constants, matching the teacher's analysis-report idiom.
const (
	reportMargin          = 18.0
	reportSectionSpace    = 8.0
	reportBodyFontSize    = 11.0
	reportLineHeight      = 5.5
)

type reportColor struct{ R, G, B int }

var (
	colorDark   = reportColor{30, 41, 59}
	colorMedium = reportColor{100, 116, 139}
	colorRed    = reportColor{239, 68, 68}
	colorAmber  = reportColor{245, 158, 11}
	colorGreen  = reportColor{16, 185, 129}
)

type reportBuilder struct {
	pdf *gofpdf.Fpdf
}

func newReportBuilder(title string) *reportBuilder {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(reportMargin, reportMargin, reportMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(colorDark.R, colorDark.G, colorDark.B)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	return &reportBuilder{pdf: pdf}
}

func (b *reportBuilder) section(title string) {
	b.pdf.Ln(reportSectionSpace / 2)
	b.pdf.SetFont("Helvetica", "B", 13)
	b.pdf.SetTextColor(colorDark.R, colorDark.G, colorDark.B)
	b.pdf.Cell(0, 7, title)
	b.pdf.Ln(8)
}

func (b *reportBuilder) body(c reportColor, text string) {
	b.pdf.SetFont("Helvetica", "", reportBodyFontSize)
	b.pdf.SetTextColor(c.R, c.G, c.B)
	b.pdf.MultiCell(0, reportLineHeight, text, "", "", false)
}

func (b *reportBuilder) bytes() (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := b.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

// GenerateValidationReportPDF renders a ValidationResult summary: the
// computed execution levels on success, or every accumulated error and
// warning on failure.
func GenerateValidationReportPDF(productID string, result *rule.ValidationResult) (*bytes.Buffer, error) {
	b := newReportBuilder("Rule Set Validation Report: " + productID)

	if result.Valid() {
		b.section("Status: Valid")
		b.body(colorGreen, fmt.Sprintf("%d execution level(s) computed.", len(result.Levels)))
		for i, level := range result.Levels {
			b.body(colorMedium, fmt.Sprintf("Level %d: %v", i, level))
		}
	} else {
		b.section("Status: Invalid")
		for _, e := range result.Errors {
			b.body(colorRed, e.Error())
		}
	}

	if len(result.Warnings) > 0 {
		b.section("Warnings")
		for _, w := range result.Warnings {
			b.body(colorAmber, w)
		}
	}

	return b.bytes()
}

// GenerateExecutionReportPDF renders an ExecutionResult summary:
// per-rule outputs, timings, and the aggregated timing statistics.
func GenerateExecutionReportPDF(productID string, result *executor.ExecutionResult) (*bytes.Buffer, error) {
	b := newReportBuilder("Rule Set Execution Report: " + productID)

	b.section("Timing")
	b.body(colorMedium, fmt.Sprintf(
		"total=%dns mean=%.0fns stddev=%.0fns min=%.0fns max=%.0fns",
		result.TotalTimeNs, result.Timing.MeanNs, result.Timing.StdDevNs,
		result.Timing.MinNs, result.Timing.MaxNs))

	b.section("Rule Results")
	for _, rr := range result.RuleResults {
		b.body(colorDark, fmt.Sprintf("%s (%dns)", rr.RuleID, rr.ExecutionTimeNs))
		for path, v := range rr.Outputs {
			b.body(colorMedium, fmt.Sprintf("  %s = %v", path, v))
		}
	}

	b.section("Execution Levels")
	for i, level := range result.Levels {
		b.body(colorMedium, fmt.Sprintf("Level %d: %v", i, level))
	}

	return b.bytes()
}
