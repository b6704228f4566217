// Package memstore is an in-process ledger guarded by a single mutex.
// It backs tests and STORE=memory development runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JandsonS/teste-sub000/internal/reservation"
)

type Store struct {
	mu   sync.Mutex
	byID map[string]*reservation.Reservation
	// establishment|date -> ids
	byDay map[string][]string
}

func New() *Store {
	return &Store{
		byID:  make(map[string]*reservation.Reservation),
		byDay: make(map[string][]string),
	}
}

var _ reservation.Store = (*Store)(nil)

func dayKey(establishmentID, date string) string { return establishmentID + "|" + date }

func live(r *reservation.Reservation) bool {
	return r.Status != reservation.StatusCanceled && r.Status != reservation.StatusExpired
}

func (s *Store) Create(ctx context.Context, r *reservation.Reservation, g reservation.Guard) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[r.ID]; ok {
		return nil, reservation.ErrSlotUnavailable
	}

	atSlot, sameCustomer := s.scope(r)
	stale, err := g.Check(atSlot, sameCustomer)
	if err != nil {
		return nil, err
	}
	var expired []string
	for _, id := range stale {
		cur := s.byID[id]
		if cur.Status == reservation.StatusPending {
			cur.Status = reservation.StatusExpired
			cur.UpdatedAt = g.Now
			expired = append(expired, id)
		}
	}

	cp := *r
	s.byID[cp.ID] = &cp
	k := dayKey(cp.EstablishmentID, cp.Date)
	s.byDay[k] = append(s.byDay[k], cp.ID)
	return expired, nil
}

// scope returns the live records sharing r's slot and r's customer day.
// Callers hold s.mu.
func (s *Store) scope(r *reservation.Reservation) (atSlot, sameCustomer []reservation.Reservation) {
	name := reservation.NormalizeName(r.CustomerName)
	for _, id := range s.byDay[dayKey(r.EstablishmentID, r.Date)] {
		cur := s.byID[id]
		if !live(cur) {
			continue
		}
		if cur.Time == r.Time {
			atSlot = append(atSlot, *cur)
		}
		if reservation.NormalizeName(cur.CustomerName) == name {
			sameCustomer = append(sameCustomer, *cur)
		}
	}
	return atSlot, sameCustomer
}

func (s *Store) Get(_ context.Context, id string) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListByDate(_ context.Context, establishmentID, date string) ([]reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservation.Reservation
	for _, id := range s.byDay[dayKey(establishmentID, date)] {
		if r := s.byID[id]; live(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (s *Store) List(_ context.Context, f reservation.Filter) ([]reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range s.byID {
		if f.EstablishmentID != "" && r.EstablishmentID != f.EstablishmentID {
			continue
		}
		if f.Date != "" && r.Date != f.Date {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CompareAndSwapStatus(_ context.Context, id string, from, to reservation.Status, externalPaymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return false, reservation.ErrNotFound
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	if externalPaymentID != "" {
		r.ExternalPaymentID = externalPaymentID
	}
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) ApplyPayment(_ context.Context, id string, to reservation.Status, externalPaymentID string, g reservation.Guard) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return false, reservation.ErrNotFound
	}
	if r.Status != reservation.StatusPending {
		return false, nil
	}
	atSlot, sameCustomer := s.scope(r)
	if err := g.CheckPaid(*r, atSlot, sameCustomer); err != nil {
		return false, err
	}
	r.Status = to
	if externalPaymentID != "" {
		r.ExternalPaymentID = externalPaymentID
	}
	r.UpdatedAt = g.Now
	return true, nil
}

func (s *Store) AttachPayment(_ context.Context, id, externalPaymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return reservation.ErrNotFound
	}
	if r.Status == reservation.StatusPending {
		r.ExternalPaymentID = externalPaymentID
		r.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) ExpireStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, r := range s.byID {
		if r.Status == reservation.StatusPending && !r.CreatedAt.After(cutoff) {
			r.Status = reservation.StatusExpired
			r.UpdatedAt = time.Now()
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
