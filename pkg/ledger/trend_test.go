package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lendtrack/models"
)

func trendLoan(t *testing.T, day string, profit float64) models.Loan {
	t.Helper()
	d, err := ParseBoundaryDate(day)
	if err != nil {
		t.Fatalf("parse %q: %v", day, err)
	}
	return models.Loan{LoanDate: d, Profit: decimal.NewFromFloat(profit)}
}

func TestBuildProfitTrendSeriesExample(t *testing.T) {
	loans := []models.Loan{
		trendLoan(t, "2026-01-01", 100),
		trendLoan(t, "2026-01-03", 50),
	}

	series := BuildProfitTrendSeries(loans)
	if len(series) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series))
	}
	if series[0].Date != "2026-01-01" || series[1].Date != "2026-01-03" {
		t.Errorf("unexpected dates: %s, %s", series[0].Date, series[1].Date)
	}
	if !series[0].DailyProfit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("day 1 daily profit = %s, want 100", series[0].DailyProfit)
	}
	if !series[1].CumulativeProfit.Equal(decimal.NewFromInt(150)) {
		t.Errorf("final cumulative = %s, want 150", series[1].CumulativeProfit)
	}
}

func TestBuildProfitTrendSeriesEmpty(t *testing.T) {
	if series := BuildProfitTrendSeries(nil); len(series) != 0 {
		t.Errorf("expected empty series, got %d points", len(series))
	}
}

func TestBuildProfitTrendSeriesSameDayBuckets(t *testing.T) {
	loans := []models.Loan{
		trendLoan(t, "2026-02-10", 30),
		trendLoan(t, "2026-02-10", 20),
		trendLoan(t, "2026-02-10", 5),
	}

	series := BuildProfitTrendSeries(loans)
	if len(series) != 1 {
		t.Fatalf("same-day loans must share one bucket, got %d points", len(series))
	}
	if !series[0].DailyProfit.Equal(decimal.NewFromInt(55)) {
		t.Errorf("daily profit = %s, want 55", series[0].DailyProfit)
	}
	if !series[0].CumulativeProfit.Equal(decimal.NewFromInt(55)) {
		t.Errorf("cumulative profit = %s, want 55", series[0].CumulativeProfit)
	}
}

func TestBuildProfitTrendSeriesSortedAndSummed(t *testing.T) {
	loans := []models.Loan{
		trendLoan(t, "2026-03-20", 10),
		trendLoan(t, "2026-01-05", 25),
		trendLoan(t, "2026-02-14", 40),
		trendLoan(t, "2026-01-05", 15),
	}

	series := BuildProfitTrendSeries(loans)
	if len(series) != 3 {
		t.Fatalf("expected 3 distinct days, got %d", len(series))
	}
	seen := map[string]bool{}
	for i, p := range series {
		if seen[p.Date] {
			t.Errorf("duplicate date %s", p.Date)
		}
		seen[p.Date] = true
		if i > 0 && series[i-1].Date >= p.Date {
			t.Errorf("dates not ascending: %s then %s", series[i-1].Date, p.Date)
		}
	}
	total := decimal.NewFromInt(90)
	if last := series[len(series)-1].CumulativeProfit; !last.Equal(total) {
		t.Errorf("final cumulative = %s, want %s", last, total)
	}
}

func TestBuildProfitTrendSeriesFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC)
	loans := []models.Loan{{CreatedAt: created, Profit: decimal.NewFromInt(12)}}

	series := BuildProfitTrendSeries(loans)
	if len(series) != 1 {
		t.Fatalf("expected 1 point, got %d", len(series))
	}
	if series[0].Date != "2026-04-02" {
		t.Errorf("expected createdAt day, got %s", series[0].Date)
	}
}
