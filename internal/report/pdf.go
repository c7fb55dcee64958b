// Package report renders combined farm analyses as PDF documents.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/herdsight/internal/analysis"
	"github.com/linnemanlabs/herdsight/internal/kpi"
)

// PDF renders analysis reports into a directory on the local filesystem.
type PDF struct {
	outDir string
	logger log.Logger
}

// New creates a PDF renderer writing into outDir. The directory is
// created on first render if it does not exist.
func New(outDir string, logger log.Logger) *PDF {
	if logger == nil {
		logger = log.Nop()
	}
	return &PDF{outDir: outDir, logger: logger}
}

// Render writes the report to a PDF file and returns its path.
func (p *PDF) Render(report *analysis.CombinedReport, runID string) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report: nil report")
	}
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return "", fmt.Errorf("report: create output dir: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	// KPI names and summaries carry Spanish accented characters.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	p.writeTitle(pdf, tr, report)
	p.writeOverview(pdf, tr, report)
	p.writeUrgentKPIs(pdf, tr, report)

	for _, domain := range kpi.CanonicalDomains() {
		da, ok := report.Domains[domain]
		if !ok {
			continue
		}
		p.writeDomain(pdf, tr, da)
	}

	p.writeFinalSummary(pdf, tr, report)

	name := fmt.Sprintf("herdsight_%s_%s.pdf", report.FarmCode, runID)
	path := filepath.Join(p.outDir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("report: write pdf: %w", err)
	}
	return path, nil
}

func (p *PDF) writeTitle(pdf *fpdf.Fpdf, tr func(string) string, report *analysis.CombinedReport) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(fmt.Sprintf("Farm Analysis Report: %s", report.FarmCode)), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, time.Now().UTC().Format("2006-01-02 15:04 UTC"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

func (p *PDF) writeOverview(pdf *fpdf.Fpdf, tr func(string) string, report *analysis.CombinedReport) {
	if report.Overview == "" {
		return
	}
	sectionHeading(pdf, "Overview")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(report.Overview), "", "L", false)
	pdf.Ln(3)
}

func (p *PDF) writeUrgentKPIs(pdf *fpdf.Fpdf, tr func(string) string, report *analysis.CombinedReport) {
	if len(report.UrgentKPIs) == 0 {
		return
	}
	sectionHeading(pdf, "Urgent KPIs")
	pdf.SetFont("Helvetica", "", 10)
	for _, name := range report.UrgentKPIs {
		pdf.MultiCell(0, 5, tr("- "+name), "", "L", false)
	}
	pdf.Ln(3)
}

func (p *PDF) writeDomain(pdf *fpdf.Fpdf, tr func(string) string, da analysis.DomainAnalysis) {
	sectionHeading(pdf, da.Domain)

	if da.Summary != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(da.Summary), "", "L", false)
		pdf.Ln(2)
	}

	if len(da.Issues) > 0 {
		subHeading(pdf, "Issues")
		pdf.SetFont("Helvetica", "", 10)
		for _, issue := range da.Issues {
			pdf.MultiCell(0, 5, tr("- "+issue), "", "L", false)
		}
		pdf.Ln(2)
	}

	horizons := []struct {
		label string
		items []string
	}{
		{"Immediate", da.Recommendations.Immediate},
		{"Short term", da.Recommendations.Short},
		{"Medium term", da.Recommendations.Medium},
		{"Long term", da.Recommendations.Long},
	}
	hasRecs := false
	for _, h := range horizons {
		if len(h.items) > 0 {
			hasRecs = true
			break
		}
	}
	if hasRecs {
		subHeading(pdf, "Recommendations")
		for _, h := range horizons {
			if len(h.items) == 0 {
				continue
			}
			pdf.SetFont("Helvetica", "I", 10)
			pdf.CellFormat(0, 5, tr(h.label), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			for _, rec := range h.items {
				pdf.MultiCell(0, 5, tr("- "+rec), "", "L", false)
			}
			pdf.Ln(1)
		}
	}

	if len(da.KPIsToPlot) > 0 {
		subHeading(pdf, "KPIs to watch")
		pdf.SetFont("Helvetica", "", 10)
		for _, name := range da.KPIsToPlot {
			pdf.MultiCell(0, 5, tr("- "+name), "", "L", false)
		}
	}
	pdf.Ln(4)
}

func (p *PDF) writeFinalSummary(pdf *fpdf.Fpdf, tr func(string) string, report *analysis.CombinedReport) {
	fs := report.FinalSummary
	if fs == nil {
		return
	}
	sectionHeading(pdf, "Executive Summary")

	if fs.OverallHealth != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Overall herd health: %s", fs.OverallHealth)), "", 1, "L", false, 0, "")
	}
	if fs.ExecutiveSummary != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(fs.ExecutiveSummary), "", "L", false)
		pdf.Ln(2)
	}
	if len(fs.PriorityActions) > 0 {
		subHeading(pdf, "Priority actions")
		pdf.SetFont("Helvetica", "", 10)
		for i, action := range fs.PriorityActions {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%d. %s", i+1, action)), "", "L", false)
		}
	}
	if len(fs.DomainsOverview) > 0 {
		subHeading(pdf, "Domains at a glance")
		pdf.SetFont("Helvetica", "", 10)
		for _, domain := range kpi.CanonicalDomains() {
			line, ok := fs.DomainsOverview[domain]
			if !ok {
				continue
			}
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s: %s", domain, line)), "", "L", false)
		}
	}
}

func sectionHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetFillColor(235, 238, 242)
	pdf.CellFormat(0, 8, title, "", 1, "L", true, 0, "")
	pdf.Ln(2)
}

func subHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
}
