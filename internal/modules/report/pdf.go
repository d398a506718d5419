// Package report turns a finished SWOT analysis into a branded PDF, names the
// download and archives rendered copies to object storage.
package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/strategiq/swot/internal/models"
)

type rgb struct{ r, g, b int }

var (
	brandPrimary     = rgb{0x8B, 0x5C, 0xF6}
	brandPrimaryDark = rgb{0x7C, 0x3A, 0xED}
	neutral700       = rgb{0x37, 0x41, 0x51}
	neutral100       = rgb{0xF3, 0xF4, 0xF6}
	white            = rgb{0xFF, 0xFF, 0xFF}

	categoryColors = map[string]rgb{
		"Strengths":     {0x10, 0xB9, 0x81},
		"Weaknesses":    {0xF5, 0x9E, 0x0B},
		"Opportunities": {0x3B, 0x82, 0xF6},
		"Threats":       {0xEF, 0x44, 0x44},
	}
)

const (
	pageMargin   = 25.4
	footerOffset = -15.0
	bodyLine     = 6.0
	bulletLine   = 5.5
)

// Render produces the PDF report for a.
func Render(a models.SwotAnalysis) ([]byte, error) {
	return render(a, true)
}

// RenderContext runs Render and gives up once ctx is done. The abandoned
// render finishes in the background and its output is discarded.
func RenderContext(ctx context.Context, a models.SwotAnalysis) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	type result struct {
		pdf []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		pdf, err := Render(a)
		done <- result{pdf: pdf, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("render pdf: %w", ctx.Err())
	case r := <-done:
		return r.pdf, r.err
	}
}

func render(a models.SwotAnalysis, compress bool) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("SWOT Analysis Report: "+a.PrimaryEntity, true)
	pdf.SetAuthor("StrategIQ", true)
	pdf.SetCreator("StrategIQ", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	w := contentWidth(pdf)

	pdf.SetFooterFunc(func() {
		pdf.SetY(footerOffset)
		pdf.SetFont("Helvetica", "", 9)
		setText(pdf, neutral700)
		left, _, _, _ := pdf.GetMargins()
		pdf.SetX(left)
		pdf.CellFormat(w, 6, "Generated by StrategIQ", "", 0, "L", false, 0, "")
		pdf.SetX(left)
		pdf.CellFormat(w, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	writeHeader(pdf, tr, w, a)
	writeSummary(pdf, tr, w, a.Analysis)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, brandPrimaryDark)
	pdf.CellFormat(w, 10, "SWOT Analysis", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, cat := range a.Categories() {
		writeCategory(pdf, tr, w, cat)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *fpdf.Fpdf, tr func(string) string, w float64, a models.SwotAnalysis) {
	pdf.SetFont("Helvetica", "B", 24)
	setText(pdf, brandPrimary)
	pdf.CellFormat(w, 12, "SWOT Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 13)
	setText(pdf, neutral700)
	pdf.MultiCell(w, 7, tr("Primary Entity: "+a.PrimaryEntity), "", "C", false)
	if a.IsComparative() {
		pdf.MultiCell(w, 7, tr("Compared with: "+strings.Join(a.ComparisonEntities, ", ")), "", "C", false)
	}
	pdf.Ln(8)
}

func writeSummary(pdf *fpdf.Fpdf, tr func(string) string, w float64, summary string) {
	if strings.TrimSpace(summary) == "" {
		return
	}

	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, brandPrimaryDark)
	pdf.CellFormat(w, 10, "Executive Summary", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	setText(pdf, neutral700)
	setDraw(pdf, brandPrimary)
	pdf.SetLineWidth(0.7)

	margin := pdf.GetCellMargin()
	pdf.SetCellMargin(4)
	pdf.MultiCell(w, bodyLine, tr(summary), "1", "L", false)
	pdf.SetCellMargin(margin)
	pdf.SetLineWidth(0.2)
}

func writeCategory(pdf *fpdf.Fpdf, tr func(string) string, w float64, cat models.Category) {
	color := categoryColors[cat.Name]

	pdf.SetFont("Helvetica", "B", 13)
	setFill(pdf, color)
	setText(pdf, white)
	margin := pdf.GetCellMargin()
	pdf.SetCellMargin(4)
	pdf.CellFormat(w, 10, fmt.Sprintf("%s (%d)", cat.Name, len(cat.Items)), "", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	setFill(pdf, neutral100)
	setText(pdf, neutral700)
	for _, item := range cat.Items {
		pdf.MultiCell(w, bulletLine, tr("• "+item), "", "L", true)
	}
	pdf.SetCellMargin(margin)
	pdf.Ln(6)
}

func contentWidth(pdf *fpdf.Fpdf) float64 {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	return pageW - left - right
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }
