package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "reservations_created_total",
			Help:      "Reservations created by payment method.",
		},
		[]string{"method"},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "booking_conflicts_total",
			Help:      "Rejected booking attempts by reason.",
		},
		[]string{"reason"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "status_transitions_total",
			Help:      "Applied reservation status changes.",
		},
		[]string{"from", "to"},
	)

	reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "reconciliations_total",
			Help:      "Payment reconciliation attempts by source and result.",
		},
		[]string{"source", "result"},
	)

	gatewayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "gateway_errors_total",
			Help:      "Payment gateway call failures by operation.",
		},
		[]string{"op"},
	)

	reservationsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "reservations_expired_total",
			Help:      "Pending reservations reclaimed after the grace window.",
		},
		[]string{"by"},
	)

	orphanPayments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "orphan_payments_total",
			Help:      "Approved payments for reservations that were already canceled or expired.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationsCreated, bookingConflicts, statusTransitions,
			reconciliations, gatewayErrors, reservationsExpired, orphanPayments)
	})
}

func IncReservationCreated(method string) {
	reservationsCreated.WithLabelValues(method).Inc()
}

func IncConflict(reason string) {
	bookingConflicts.WithLabelValues(reason).Inc()
}

func IncTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}

func IncReconciliation(source, result string) {
	reconciliations.WithLabelValues(source, result).Inc()
}

func IncGatewayError(op string) {
	gatewayErrors.WithLabelValues(op).Inc()
}

// AddExpired counts n reclaimed reservations; by is "guard" or "sweeper".
func AddExpired(by string, n int) {
	if n > 0 {
		reservationsExpired.WithLabelValues(by).Add(float64(n))
	}
}

func IncOrphanPayment() {
	orphanPayments.Inc()
}
