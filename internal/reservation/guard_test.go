package reservation

import (
	"errors"
	"testing"
	"time"
)

func TestGuardCheck(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	g := Guard{Now: now, Grace: DefaultGrace}
	rec := func(id string, st Status, age time.Duration) Reservation {
		return Reservation{ID: id, Status: st, CreatedAt: now.Add(-age)}
	}

	tests := []struct {
		name      string
		atSlot    []Reservation
		sameCust  []Reservation
		wantErr   error
		wantStale []string
	}{
		{name: "empty"},
		{name: "paid holds slot", atSlot: []Reservation{rec("a", StatusPaidFull, time.Hour)}, wantErr: ErrSlotUnavailable},
		{name: "local pending holds slot", atSlot: []Reservation{rec("a", StatusLocalPending, 48*time.Hour)}, wantErr: ErrSlotUnavailable},
		{name: "fresh pending holds slot", atSlot: []Reservation{rec("a", StatusPending, 2*time.Minute)}, wantErr: ErrSlotUnavailable},
		{name: "stale pending reclaimed", atSlot: []Reservation{rec("a", StatusPending, 11*time.Minute)}, wantStale: []string{"a"}},
		{name: "pending at exact grace is stale", atSlot: []Reservation{rec("a", StatusPending, DefaultGrace)}, wantStale: []string{"a"}},
		{name: "canceled and expired ignored", atSlot: []Reservation{rec("a", StatusCanceled, 0), rec("b", StatusExpired, 0)}},
		{
			name:     "customer already booked",
			sameCust: []Reservation{rec("c", StatusConfirmed, time.Hour)},
			wantErr:  ErrDuplicateBooking,
		},
		{
			name:     "customer pending in grace",
			sameCust: []Reservation{rec("c", StatusPending, time.Minute)},
			wantErr:  ErrDuplicateBooking,
		},
		{
			name:     "customer stale pending does not block",
			sameCust: []Reservation{rec("c", StatusPending, time.Hour)},
		},
		{
			name:     "slot conflict wins over duplicate",
			atSlot:   []Reservation{rec("a", StatusPaidDeposit, time.Hour)},
			sameCust: []Reservation{rec("c", StatusConfirmed, time.Hour)},
			wantErr:  ErrSlotUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stale, err := g.Check(tt.atSlot, tt.sameCust)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(stale) != len(tt.wantStale) {
				t.Fatalf("stale = %v, want %v", stale, tt.wantStale)
			}
			for i := range stale {
				if stale[i] != tt.wantStale[i] {
					t.Fatalf("stale = %v, want %v", stale, tt.wantStale)
				}
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	if NormalizeName("  Maria  DA Silva ") != NormalizeName("maria da silva") {
		t.Fatal("names should compare equal after normalization")
	}
}

func TestParseDateAndTime(t *testing.T) {
	for _, d := range []string{"10/03/2025", "29/02/2024"} {
		if _, err := ParseDate(d); err != nil {
			t.Errorf("ParseDate(%q): %v", d, err)
		}
	}
	for _, d := range []string{"2025-03-10", "31/02/2025", "1/3/2025", "29/02/2025"} {
		if _, err := ParseDate(d); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseDate(%q) should fail", d)
		}
	}
	for _, s := range []string{"08:00", "09:30", "23:30"} {
		if err := ParseSlotTime(s); err != nil {
			t.Errorf("ParseSlotTime(%q): %v", s, err)
		}
	}
	for _, s := range []string{"8:00", "09:15", "24:00", "ab:cd"} {
		if err := ParseSlotTime(s); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseSlotTime(%q) should fail", s)
		}
	}
}

func TestGuardCheckPaid(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	g := Guard{Now: now, Grace: DefaultGrace}
	self := Reservation{ID: "self", Status: StatusPending, CreatedAt: now.Add(-time.Hour)}
	rec := func(id string, st Status, age time.Duration) Reservation {
		return Reservation{ID: id, Status: st, CreatedAt: now.Add(-age)}
	}

	tests := []struct {
		name     string
		atSlot   []Reservation
		sameCust []Reservation
		wantErr  error
	}{
		{name: "only itself", atSlot: []Reservation{self}, sameCust: []Reservation{self}},
		{name: "customer moved to another slot", sameCust: []Reservation{self, rec("b", StatusLocalPending, time.Minute)}, wantErr: ErrDuplicateBooking},
		{name: "customer fresh pending elsewhere", sameCust: []Reservation{rec("b", StatusPending, time.Minute)}, wantErr: ErrDuplicateBooking},
		{name: "customer stale pending elsewhere", sameCust: []Reservation{rec("b", StatusPending, time.Hour)}},
		{name: "slot taken", atSlot: []Reservation{self, rec("c", StatusPaidFull, time.Minute)}, wantErr: ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CheckPaid(self, tt.atSlot, tt.sameCust)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
