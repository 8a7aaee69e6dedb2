// Package reports renders financial year distribution reports as PDF files
// into an exports directory and prunes old exports.
package reports

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

const (
	DefaultDir    = "./exports"
	DefaultMaxAge = 24 * time.Hour
)

type Options struct {
	Dir    string
	MaxAge time.Duration
	Clock  generic.Clock
	Logger *slog.Logger
}

type Renderer struct {
	dir    string
	maxAge time.Duration
	clock  generic.Clock
	log    *slog.Logger
}

func New(opts Options) *Renderer {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Clock == nil {
		opts.Clock = generic.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Renderer{
		dir:    opts.Dir,
		maxAge: opts.MaxAge,
		clock:  opts.Clock,
		log:    opts.Logger.With(slog.String("component", "reports")),
	}
}

// =============================================================================
// DISTRIBUTION REPORT
// =============================================================================

var (
	colWidths = []float64{70, 40, 22, 40, 35, 40}
	headers   = []string{"Investor", "Capital", "Days", "Profit", "Status", "Rolled over"}
)

// RenderDistributionReport writes one PDF for the year and returns its path.
// investors resolves names; unknown IDs are printed as-is.
func (r *Renderer) RenderDistributionReport(list *profit.DistributionList, investors map[profit.InvestorID]profit.Investor) (string, error) {
	if list == nil {
		return "", generic.NewValidationError("distributions", "are required")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create exports dir: %w", err)
	}

	now := r.clock.Now().UTC()
	fy := list.Year
	title := fy.PeriodName
	if title == "" {
		title = fmt.Sprintf("Financial Year %d", fy.Year)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, "Status: "+string(fy.Status), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetDrawColor(200, 200, 200)

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Profit Distribution Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, fmt.Sprintf("%s to %s (%d days)",
		fy.StartDate.Format("2006-01-02"), fy.EndDate.Format("2006-01-02"), fy.TotalDays), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Total profit %s %s, daily rate %s",
		fy.TotalProfit.StringFixed(3), fy.Currency, fy.DailyProfitRate.StringFixed(6)), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, "Generated: "+now.Format("January 2, 2006 at 15:04 UTC"), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	tableHeader(pdf)
	pdf.SetFont("Arial", "", 9)
	shade := false
	for _, d := range list.Distributions {
		if pdf.GetY() > 180 {
			pdf.AddPage()
			tableHeader(pdf)
			pdf.SetFont("Arial", "", 9)
			shade = false
		}
		if shade {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		shade = !shade

		name := string(d.InvestorID)
		if inv, ok := investors[d.InvestorID]; ok {
			name = inv.FullName
		}
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		rolled := "-"
		if d.Rollover.IsRolledOver {
			rolled = d.Rollover.Amount.StringFixed(3)
		}

		pdf.CellFormat(colWidths[0], 7, name, "1", 0, "L", true, 0, "")
		pdf.CellFormat(colWidths[1], 7, d.Calculation.InvestmentAmount.StringFixed(3), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[2], 7, fmt.Sprint(d.Calculation.TotalDays), "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[3], 7, d.Calculation.CalculatedProfit.StringFixed(3), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[4], 7, string(d.Status), "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[5], 7, rolled, "1", 0, "R", true, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(5)
	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, fmt.Sprintf("%d investors, total calculated profit %s %s, average %s",
		list.Summary.TotalInvestors, list.Summary.TotalCalculatedProfit.StringFixed(3), fy.Currency,
		list.Summary.AverageProfit.StringFixed(3)), "", 1, "L", false, 0, "")

	name := fmt.Sprintf("distribution-report-%d-%s.pdf", fy.Year, now.Format("20060102-150405.000"))
	path := filepath.Join(r.dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	r.log.Info("distribution report written",
		slog.String("financial_year_id", string(fy.ID)), slog.String("path", path),
		slog.Int("rows", len(list.Distributions)))
	return path, nil
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

// =============================================================================
// CLEANUP
// =============================================================================

// CleanupOldExports removes regular files in the exports directory older
// than the configured max age. A missing directory is not an error.
func (r *Renderer) CleanupOldExports() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read exports dir: %w", err)
	}

	cutoff := r.clock.Now().Add(-r.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, e.Name())); err != nil {
			r.log.Warn("export cleanup failed", slog.String("file", e.Name()), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		r.log.Info("old exports removed", slog.Int("count", removed))
	}
	return removed, nil
}
