package ledger

import (
	"fmt"
	"math"
	"time"
)

const minuteMs = int64(time.Minute / time.Millisecond)

// GenerateInstallmentDates splits the interval (start, end] into count due
// dates at millisecond precision. Intermediate dates land on the even
// split, bumped forward a minute when a candidate would not increase and
// clamped a minute short of end; the final date is always exactly end.
func GenerateInstallmentDates(start, end time.Time, count int) ([]time.Time, error) {
	if count < 1 {
		return nil, fmt.Errorf("number of installments must be an integer greater than 0")
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("invalid start or end date")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("final payment date must be after loan date")
	}

	startMs := start.UnixMilli()
	endMs := end.UnixMilli()
	spanMs := endMs - startMs

	dates := make([]time.Time, 0, count)
	previousMs := startMs
	for i := 1; i <= count; i++ {
		if i == count {
			dates = append(dates, time.UnixMilli(endMs).UTC())
			continue
		}

		dueMs := startMs + int64(math.Round(float64(spanMs)*float64(i)/float64(count)))
		if dueMs <= previousMs {
			dueMs = previousMs + minuteMs
		}
		if dueMs >= endMs {
			dueMs = endMs - minuteMs
		}
		previousMs = dueMs
		dates = append(dates, time.UnixMilli(dueMs).UTC())
	}
	return dates, nil
}
