package query

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the date format sreport accepts for start= and end=
const DateLayout = "2006-01-02"

// DefaultDays is the lookback window used when no start date is given
const DefaultDays = 30

// DateRange is a resolved reporting window
type DateRange struct {
	Start string
	End   string
}

// ResolveDates fills in missing dates relative to now. Explicit dates
// always win over days.
func ResolveDates(now time.Time, days int, start, end string) DateRange {
	r := DateRange{Start: start, End: end}
	if r.Start == "" {
		r.Start = now.AddDate(0, 0, -days).Format(DateLayout)
	}
	if r.End == "" {
		r.End = now.Format(DateLayout)
	}
	return r
}

// FormatTotal renders an SU total with at least one decimal place
// ("20.0", "7.25") so output stays stable for downstream parsers.
func FormatTotal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
