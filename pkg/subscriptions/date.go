package subscriptions

import (
	"encoding/json"
	"time"

	"github.com/platinummonkey/backer/pkg/apierrors"
)

// DateLayout is the wire format of dates
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC
type Date struct {
	time.Time
}

// NewDate truncates t to its UTC calendar day
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, apierrors.BadRequest("Invalid date: %s", s)
	}
	return Date{t.UTC()}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Period is an inclusive range of calendar days
type Period struct {
	Start Date
	End   Date
}

// MaxPeriods bounds the number of months a summary may span
const MaxPeriods = 600

// MonthlyPeriods covers [start, end] with calendar months. The first period
// starts on the first day of start's month and the last one contains end.
func MonthlyPeriods(start, end Date) ([]Period, error) {
	if start.After(end.Time) {
		return nil, apierrors.BadRequest("start_date must be before or equal to end_date")
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	if months > MaxPeriods {
		return nil, apierrors.BadRequest("date range spans %d months, at most %d are allowed", months, MaxPeriods)
	}

	periods := make([]Period, 0, months)
	cursor := NewDate(start.Year(), start.Month(), 1)
	for !cursor.After(end.Time) {
		next := Date{cursor.AddDate(0, 1, 0)}
		periods = append(periods, Period{Start: cursor, End: Date{next.AddDate(0, 0, -1)}})
		cursor = next
	}
	return periods, nil
}
