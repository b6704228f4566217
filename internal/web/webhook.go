package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JandsonS/teste-sub000/internal/payment"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

// webhookPayload covers the JSON notification shapes the gateway sends:
// {"type":"payment","data":{"id":"123"}} and a flat form carrying only the
// external reference, which the reconciler confirms with a gateway search.
type webhookPayload struct {
	Type              string `json:"type"`
	Topic             string `json:"topic"`
	Action            string `json:"action"`
	ExternalReference string `json:"external_reference"`
	Status            string `json:"status"`
	Data              struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

func rawID(m json.RawMessage) string {
	if len(m) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(m, &n); err == nil {
		return n.String()
	}
	return ""
}

func parseNotification(c *gin.Context, body []byte) (payment.Notification, error) {
	var n payment.Notification
	if len(bytes.TrimSpace(body)) > 0 {
		var p webhookPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return n, reservation.NewValidationError("body", "malformed notification")
		}
		n.Type = p.Type
		if n.Type == "" {
			n.Type = p.Topic
		}
		n.PaymentID = rawID(p.Data.ID)
		n.ExternalReference = p.ExternalReference
		n.Status = p.Status
	}

	// query forms: ?type=payment&data.id=123 and ?topic=payment&id=123
	if n.Type == "" {
		n.Type = c.Query("type")
	}
	if n.Type == "" {
		n.Type = c.Query("topic")
	}
	if n.PaymentID == "" {
		n.PaymentID = c.Query("data.id")
	}
	if n.PaymentID == "" && (c.Query("topic") == "payment" || c.Query("type") == "payment") {
		n.PaymentID = c.Query("id")
	}
	return n, nil
}

func (s *Server) handlePaymentWebhook(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	n, err := parseNotification(c, body)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Reconciler.HandleNotification(c.Request.Context(), n); err != nil {
		if errors.Is(err, reservation.ErrGatewayUnavailable) {
			s.Logger.WarnContext(c.Request.Context(), "webhook deferred, gateway lookup failed", "payment_id", n.PaymentID, "error", err)
			c.JSON(http.StatusBadGateway, errorBody{Error: "payment lookup failed", Code: "gateway_unavailable"})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
