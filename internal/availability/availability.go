package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/JandsonS/teste-sub000/internal/clock"
	"github.com/JandsonS/teste-sub000/internal/reservation"
	"github.com/JandsonS/teste-sub000/internal/validation"
)

type Pause struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Settings are the per-establishment business hours.
type Settings struct {
	OpenHour       int     `yaml:"open_hour" json:"openHour"`
	CloseHour      int     `yaml:"close_hour" json:"closeHour"`
	Pauses         []Pause `yaml:"pauses" json:"pauses"`
	DepositPercent int     `yaml:"deposit_percent" json:"depositPercent"`
}

func (s Settings) Validate() error {
	if s.OpenHour < 0 || s.CloseHour > 24 || s.OpenHour >= s.CloseHour {
		return fmt.Errorf("invalid business hours %d-%d", s.OpenHour, s.CloseHour)
	}
	if s.DepositPercent < 0 || s.DepositPercent > 100 {
		return fmt.Errorf("deposit_percent %d out of range", s.DepositPercent)
	}
	for _, p := range s.Pauses {
		if _, err := time.Parse(clock.TimeLayout, p.Start); err != nil {
			return fmt.Errorf("pause start %q: %w", p.Start, err)
		}
		if _, err := time.Parse(clock.TimeLayout, p.End); err != nil {
			return fmt.Errorf("pause end %q: %w", p.End, err)
		}
		if p.Start >= p.End {
			return fmt.Errorf("pause %s-%s is empty", p.Start, p.End)
		}
	}
	return nil
}

func (s Settings) paused(t string) bool {
	for _, p := range s.Pauses {
		if t >= p.Start && t < p.End {
			return true
		}
	}
	return false
}

// Grid lists every half-hour slot between opening and closing hour outside pauses.
func Grid(s Settings) []string {
	var out []string
	for h := s.OpenHour; h < s.CloseHour; h++ {
		for _, m := range []int{0, 30} {
			t := fmt.Sprintf("%02d:%02d", h, m)
			if !s.paused(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// OnGrid reports whether t is an offered slot.
func OnGrid(s Settings, t string) bool {
	for _, g := range Grid(s) {
		if g == t {
			return true
		}
	}
	return false
}

type Result struct {
	Available []string `json:"available"`
	Busy      []string `json:"busy"`
}

// Compute splits the grid of date into free and occupied slots as seen at now.
// On the current date only slots strictly after now's HH:mm are offered, and
// dates before today offer nothing. Busy lists occupied grid slots regardless.
func Compute(s Settings, date string, reservations []reservation.Reservation, now time.Time, grace time.Duration) Result {
	occupied := make(map[string]bool)
	for _, r := range reservations {
		if r.Date == date && r.Occupies(now, grace) {
			occupied[r.Time] = true
		}
	}

	today := now.Format(clock.DateLayout)
	nowHM := now.Format(clock.TimeLayout)
	past := isPastDate(date, now)

	res := Result{Available: []string{}, Busy: []string{}}
	for _, t := range Grid(s) {
		if occupied[t] {
			res.Busy = append(res.Busy, t)
			continue
		}
		if past || (date == today && t <= nowHM) {
			continue
		}
		res.Available = append(res.Available, t)
	}
	return res
}

func isPastDate(date string, now time.Time) bool {
	d, err := time.ParseInLocation(clock.DateLayout, date, now.Location())
	if err != nil {
		return false
	}
	y, m, day := now.Date()
	return d.Before(time.Date(y, m, day, 0, 0, 0, 0, now.Location()))
}

// SettingsSource resolves business hours per establishment.
type SettingsSource interface {
	// Settings returns reservation.ErrNotFound for unknown establishments.
	Settings(ctx context.Context, establishmentID string) (Settings, error)
}

type Calculator struct {
	Store    reservation.Store
	Settings SettingsSource
	Clock    clock.Clock
	Grace    time.Duration
}

func (c *Calculator) Availability(ctx context.Context, establishmentID, date string) (Result, error) {
	if err := validation.Var("establishmentId", establishmentID, "required,slug"); err != nil {
		return Result{}, err
	}
	if err := validation.Var("date", date, "required,brdate"); err != nil {
		return Result{}, err
	}
	s, err := c.Settings.Settings(ctx, establishmentID)
	if err != nil {
		return Result{}, err
	}
	rs, err := c.Store.ListByDate(ctx, establishmentID, date)
	if err != nil {
		return Result{}, fmt.Errorf("list reservations: %w", err)
	}
	return Compute(s, date, rs, c.Clock.Now(), c.grace()), nil
}

func (c *Calculator) grace() time.Duration {
	if c.Grace <= 0 {
		return reservation.DefaultGrace
	}
	return c.Grace
}
