package reservation

import "time"

// Guard holds the double-booking rules applied when a reservation is created.
type Guard struct {
	Now   time.Time
	Grace time.Duration
}

// Check evaluates the records already at the target slot and the records of
// the same customer on the same day. It returns the ids of stale pending
// records at the slot, which the caller must expire before inserting.
func (g Guard) Check(atSlot, sameCustomer []Reservation) ([]string, error) {
	var stale []string
	for _, r := range atSlot {
		switch {
		case r.Status == StatusCanceled || r.Status == StatusExpired:
			continue
		case r.Status.Blocking():
			return nil, ErrSlotUnavailable
		case r.Status == StatusPending:
			if r.InGrace(g.Now, g.Grace) {
				return nil, ErrSlotUnavailable
			}
			stale = append(stale, r.ID)
		}
	}
	for _, r := range sameCustomer {
		if r.Occupies(g.Now, g.Grace) {
			return nil, ErrDuplicateBooking
		}
	}
	return stale, nil
}

// CheckPaid reports whether self may become blocking: no other record may
// occupy its slot or hold the customer's day. Stale pending records on either
// side do not count.
func (g Guard) CheckPaid(self Reservation, atSlot, sameCustomer []Reservation) error {
	for _, r := range atSlot {
		if r.ID != self.ID && r.Occupies(g.Now, g.Grace) {
			return ErrSlotUnavailable
		}
	}
	for _, r := range sameCustomer {
		if r.ID != self.ID && r.Occupies(g.Now, g.Grace) {
			return ErrDuplicateBooking
		}
	}
	return nil
}
