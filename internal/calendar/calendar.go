package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/sla-engine/internal/config"
)

// Calendar converts between wall-clock instants and business time elapsed
// for a fixed weekly working window in a single timezone. All methods are
// pure functions of the instant arguments and the calendar definition, so
// computed deadlines are reproducible.
type Calendar struct {
	loc      *time.Location
	open     time.Duration // offset from local midnight
	close    time.Duration
	workdays [7]bool // indexed by time.Weekday
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// New builds a calendar from configuration, failing fast on an empty or
// inverted window rather than letting later lookups loop forever.
func New(cfg config.CalendarConfig) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar: timezone %q: %w", cfg.Timezone, err)
	}
	open, err := parseClock(cfg.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar: open: %w", err)
	}
	closeAt, err := parseClock(cfg.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar: close: %w", err)
	}
	if closeAt <= open {
		return nil, fmt.Errorf("invalid calendar: window %s-%s is empty", cfg.Open, cfg.Close)
	}

	cal := &Calendar{loc: loc, open: open, close: closeAt}
	for _, name := range cfg.WorkdayList() {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("invalid calendar: unknown workday %q", name)
		}
		cal.workdays[day] = true
	}
	any := false
	for _, working := range cal.workdays {
		any = any || working
	}
	if !any {
		return nil, fmt.Errorf("invalid calendar: no working days configured")
	}
	return cal, nil
}

func parseClock(val string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", val)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Add advances start by duration, counting only business time when
// businessOnly is set. A start outside the window first rolls forward to
// the next window open before any duration is consumed.
func (c *Calendar) Add(start time.Time, d time.Duration, businessOnly bool) time.Time {
	if !businessOnly {
		return start.Add(d)
	}
	if d < 0 {
		d = 0
	}
	t := c.nextOpen(start.In(c.loc))
	for d > 0 {
		closeAt := c.dayClose(t)
		available := closeAt.Sub(t)
		if d <= available {
			return t.Add(d)
		}
		d -= available
		t = c.nextOpen(closeAt)
	}
	return t
}

// Elapsed returns the business time between from and to, the inverse of
// Add: Elapsed(s, Add(s, d, true), true) == d for non-negative d.
func (c *Calendar) Elapsed(from, to time.Time, businessOnly bool) time.Duration {
	if !to.After(from) {
		return 0
	}
	if !businessOnly {
		return to.Sub(from)
	}
	var total time.Duration
	t := c.nextOpen(from.In(c.loc))
	end := to.In(c.loc)
	for t.Before(end) {
		closeAt := c.dayClose(t)
		segEnd := closeAt
		if end.Before(segEnd) {
			segEnd = end
		}
		total += segEnd.Sub(t)
		t = c.nextOpen(closeAt)
	}
	return total
}

// nextOpen returns t when it is already inside a business window, otherwise
// the next window open at or after t.
func (c *Calendar) nextOpen(t time.Time) time.Time {
	for {
		if c.workdays[t.Weekday()] {
			open := c.dayOpen(t)
			closeAt := c.dayClose(t)
			if t.Before(open) {
				return open
			}
			if t.Before(closeAt) {
				return t
			}
		}
		t = c.dayOpen(t).AddDate(0, 0, 1)
	}
}

func (c *Calendar) dayOpen(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, c.loc).Add(c.open)
}

func (c *Calendar) dayClose(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, c.loc).Add(c.close)
}
