package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"lendtrack/models"
)

// TrendPoint is one calendar day of realized profit.
type TrendPoint struct {
	Date             string          `json:"date"`
	DailyProfit      decimal.Decimal `json:"dailyProfit"`
	CumulativeProfit decimal.Decimal `json:"cumulativeProfit"`
}

// BuildProfitTrendSeries buckets loan profit by the UTC calendar day the
// loan was made (falling back to the record's creation time), in ascending
// date order with a running total. A loan's profit counts once, on its own
// day; loans sharing a day share one bucket.
func BuildProfitTrendSeries(loans []models.Loan) []TrendPoint {
	if len(loans) == 0 {
		return []TrendPoint{}
	}

	daily := make(map[string]decimal.Decimal)
	for _, loan := range loans {
		day := loan.LoanDate
		if day.IsZero() {
			day = loan.CreatedAt
		}
		if day.IsZero() {
			day = time.Now()
		}
		key := DateKey(day)
		daily[key] = daily[key].Add(loan.Profit)
	}

	keys := make([]string, 0, len(daily))
	for k := range daily {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := make([]TrendPoint, 0, len(keys))
	cumulative := decimal.Zero
	for _, k := range keys {
		cumulative = cumulative.Add(daily[k])
		series = append(series, TrendPoint{
			Date:             k,
			DailyProfit:      daily[k],
			CumulativeProfit: cumulative,
		})
	}
	return series
}
