// month.go - Calendar-month time handling.
//
// Sales are recorded at month granularity: the day is normalized to the
// first of the month on persistence, and date filters cover whole months.

package sales

import (
	"fmt"
	"time"
)

// Month is a calendar month (year + month).
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth accepts "2006-01" or "2006-01-02"; a day component is
// discarded.
func ParseMonth(s string) (Month, error) {
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return Month{}, fmt.Errorf("invalid month %q", s)
}

// MonthOf truncates a time to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) IsZero() bool { return m.Year == 0 }

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) Equal(o Month) bool { return m.Year == o.Year && m.Month == o.Month }

// FirstDay returns the normalized persistence date (the 1st, UTC).
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the final day of the month, for inclusive range filters.
func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

// String formats as "2006-01".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
