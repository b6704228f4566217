package clock

import (
	"fmt"
	"sync"
	"time"
)

const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// Clock supplies "now" in the provider's local time zone.
type Clock interface {
	Now() time.Time
}

type Local struct {
	loc *time.Location
}

func NewLocal(tz string) (*Local, error) {
	if tz == "" {
		tz = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
	}
	return &Local{loc: loc}, nil
}

func (l *Local) Now() time.Time { return time.Now().In(l.loc) }

func (l *Local) Location() *time.Location { return l.loc }

// Today returns the current local date as dd/mm/yyyy.
func Today(c Clock) string { return c.Now().Format(DateLayout) }

// HourMinute returns the current local time as HH:mm.
func HourMinute(c Clock) string { return c.Now().Format(TimeLayout) }

// Fixed is a manually driven clock for tests and replays.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{now: t} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
