package reports

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/profit"
)

var now = time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

func newRenderer(t *testing.T, dir string) *Renderer {
	t.Helper()
	return New(Options{
		Dir:    dir,
		MaxAge: 24 * time.Hour,
		Clock:  generic.FixedClock{T: now},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func sampleList() *profit.DistributionList {
	fy := profit.FinancialYear{
		ID:          "fy",
		Year:        2025,
		PeriodName:  "FY2025",
		StartDate:   generic.NewDate(2025, time.January, 1),
		EndDate:     generic.NewDate(2025, time.December, 31),
		TotalDays:   365,
		TotalProfit: decimal.NewFromInt(60000),
		Currency:    generic.CurrencyIQD,
		Status:      profit.YearApproved,
	}
	var dists []profit.Distribution
	for i := 0; i < 40; i++ { // enough rows to force a page break
		dists = append(dists, profit.Distribution{
			InvestorID: profit.InvestorID("inv-" + string(rune('a'+i%26))),
			Status:     profit.DistApproved,
			Calculation: profit.Calculation{
				InvestmentAmount: decimal.NewFromInt(1000),
				TotalDays:        365,
				CalculatedProfit: decimal.NewFromInt(1500),
			},
		})
	}
	return &profit.DistributionList{
		Year:          fy,
		Distributions: dists,
		Summary: profit.DistributionListSummary{
			TotalInvestors:        len(dists),
			TotalCalculatedProfit: decimal.NewFromInt(60000),
			AverageProfit:         decimal.NewFromInt(1500),
		},
	}
}

func TestRenderDistributionReport_WritesPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	r := newRenderer(t, dir)

	path, err := r.RenderDistributionReport(sampleList(), map[profit.InvestorID]profit.Investor{
		"inv-a": {ID: "inv-a", FullName: "Ali Hassan"},
	})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "distribution-report-2025-"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF"))
}

func TestRenderDistributionReport_NilList(t *testing.T) {
	r := newRenderer(t, t.TempDir())
	_, err := r.RenderDistributionReport(nil, nil)
	assert.Error(t, err)
}

func TestCleanupOldExports(t *testing.T) {
	dir := t.TempDir()
	r := newRenderer(t, dir)

	stale := filepath.Join(dir, "old.pdf")
	fresh := filepath.Join(dir, "new.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(stale, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.Chtimes(fresh, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keep"), 0o755))

	n, err := r.CleanupOldExports()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestCleanupOldExports_MissingDir(t *testing.T) {
	r := newRenderer(t, filepath.Join(t.TempDir(), "absent"))
	n, err := r.CleanupOldExports()
	require.NoError(t, err)
	assert.Zero(t, n)
}
