package payment

import (
	"context"

	"github.com/JandsonS/teste-sub000/internal/reservation"
)

const StatusApproved = "approved"

// Payment is a gateway-side payment as reported by a lookup or search.
type Payment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	StatusDetail      string `json:"statusDetail,omitempty"`
	ExternalReference string `json:"externalReference"`
	MethodType        string `json:"methodType,omitempty"`
	AmountCents       int64  `json:"amountCents"`
}

func (p Payment) Approved() bool { return p.Status == StatusApproved }

type IntentRequest struct {
	// ReservationID is sent as the gateway's external reference.
	ReservationID string
	Method        reservation.PaymentMethod
	AmountCents   int64
	Description   string
	PayerName     string
	PayerPhone    string
}

// Intent is what the client needs to pay: a PIX QR code or a checkout URL.
type Intent struct {
	PaymentID    string `json:"paymentId,omitempty"`
	QRCode       string `json:"qrCode,omitempty"`
	QRCodeBase64 string `json:"qrCodeBase64,omitempty"`
	TicketURL    string `json:"ticketUrl,omitempty"`
	CheckoutURL  string `json:"checkoutUrl,omitempty"`
}

// Gateway is the payment provider port. Implementations wrap failures in
// reservation.ErrGatewayUnavailable.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	// SearchApproved returns the most recent approved payment carrying the
	// external reference, or nil when there is none.
	SearchApproved(ctx context.Context, externalReference string) (*Payment, error)
}
