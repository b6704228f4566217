package events

import "github.com/JandsonS/teste-sub000/internal/reservation"

// ReservationEvent is the payload of the reservation.* events.
type ReservationEvent struct {
	ID              string `json:"id"`
	EstablishmentID string `json:"establishment_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	PaymentMethod   string `json:"payment_method"`
	AmountCents     int64  `json:"amount_cents"`
	Status          string `json:"status"`
	PreviousStatus  string `json:"previous_status,omitempty"`
}

func FromReservation(r reservation.Reservation) ReservationEvent {
	return ReservationEvent{
		ID:              r.ID,
		EstablishmentID: r.EstablishmentID,
		Date:            r.Date,
		Time:            r.Time,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		PaymentMethod:   string(r.PaymentMethod),
		AmountCents:     r.AmountCents,
		Status:          string(r.Status),
	}
}
