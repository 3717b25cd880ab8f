// Package civil converts between UTC instants and the fixed-offset civil
// time all business metrics are keyed on. The offset is configuration, not
// an ambient global, so detection and matching logic can be tested against
// other zone policies.
package civil

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultOffset is the business zone, UTC+5:30.
	DefaultOffset = 5*time.Hour + 30*time.Minute

	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

var (
	ErrInvalidHour = errors.New("hour must be between 0 and 23")
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
)

type Converter struct {
	loc    *time.Location
	offset time.Duration
}

func NewConverter(offset time.Duration) *Converter {
	sign := "+"
	abs := offset
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, int(abs.Hours()), int(abs.Minutes())%60)
	return &Converter{
		loc:    time.FixedZone(name, int(offset/time.Second)),
		offset: offset,
	}
}

func DefaultConverter() *Converter {
	return NewConverter(DefaultOffset)
}

func (c *Converter) Offset() time.Duration {
	return c.offset
}

func (c *Converter) Location() *time.Location {
	return c.loc
}

// ToCivil re-expresses an instant in the business zone.
func (c *Converter) ToCivil(t time.Time) time.Time {
	return t.In(c.loc)
}

// Format renders an instant as a civil datetime string, 24-hour clock.
func (c *Converter) Format(t time.Time) string {
	return c.ToCivil(t).Format(DateTimeLayout)
}

// ConstructCivil builds the instant at date, hour:00:00 in the business
// zone. The hour must be in [0,23] and the date in YYYY-MM-DD form.
func (c *Converter) ConstructCivil(date string, hour int) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidHour, hour)
	}
	d, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return d.Add(time.Duration(hour) * time.Hour), nil
}

// Window builds the [start, end] search window around a center instant.
func (c *Converter) Window(center time.Time, before, after time.Duration) (time.Time, time.Time) {
	return center.Add(-before), center.Add(after)
}

// UTCDayBounds returns the 00:00:00Z and 23:59:59Z instants of the UTC
// calendar day containing t. The day-wide alert fallback queries this
// range.
func UTCDayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Second)
}

// MinuteOfDay is t's minute-of-day in its own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
