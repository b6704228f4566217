// Package paymenttest provides an in-memory payment.Gateway.
package paymenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/JandsonS/teste-sub000/internal/payment"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

type Gateway struct {
	mu       sync.Mutex
	seq      int
	payments map[string]payment.Payment

	// Fail makes every call return ErrGatewayUnavailable.
	Fail bool

	Intents  []payment.IntentRequest
	Searches int
	Lookups  int
}

func New() *Gateway { return &Gateway{payments: make(map[string]payment.Payment)} }

func (g *Gateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Fail {
		return nil, fmt.Errorf("create intent: %w", reservation.ErrGatewayUnavailable)
	}
	g.Intents = append(g.Intents, req)
	g.seq++
	id := fmt.Sprintf("pay-%d", g.seq)
	g.payments[id] = payment.Payment{ID: id, Status: "pending", ExternalReference: req.ReservationID, AmountCents: req.AmountCents}
	if req.Method == reservation.MethodCard {
		return &payment.Intent{CheckoutURL: "https://checkout.test/" + req.ReservationID}, nil
	}
	return &payment.Intent{PaymentID: id, QRCode: "000201pix" + id}, nil
}

// Approve marks the payment created for reservationID as approved and returns its id.
// A payment is created when none exists yet.
func (g *Gateway) Approve(reservationID string, amountCents int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, p := range g.payments {
		if p.ExternalReference == reservationID {
			p.Status = payment.StatusApproved
			if amountCents > 0 {
				p.AmountCents = amountCents
			}
			g.payments[id] = p
			return id
		}
	}
	g.seq++
	id := fmt.Sprintf("pay-%d", g.seq)
	g.payments[id] = payment.Payment{ID: id, Status: payment.StatusApproved, ExternalReference: reservationID, AmountCents: amountCents}
	return id
}

func (g *Gateway) GetPayment(_ context.Context, id string) (*payment.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Lookups++
	if g.Fail {
		return nil, fmt.Errorf("get payment: %w", reservation.ErrGatewayUnavailable)
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, reservation.ErrNotFound)
	}
	return &p, nil
}

func (g *Gateway) SearchApproved(ctx context.Context, ref string) (*payment.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Searches++
	if g.Fail {
		return nil, fmt.Errorf("search: %w", reservation.ErrGatewayUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range g.payments {
		if p.ExternalReference == ref && p.Approved() {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}
