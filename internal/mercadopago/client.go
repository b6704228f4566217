// Package mercadopago implements payment.Gateway against the Mercado Pago REST API.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JandsonS/teste-sub000/internal/payment"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

const DefaultBaseURL = "https://api.mercadopago.com"

type Client struct {
	hc          *http.Client
	baseURL     string
	accessToken string

	// NotificationURL receives the gateway callbacks.
	NotificationURL string
	// BackURL is where the checkout returns the customer after a card payment.
	BackURL    string
	PayerEmail string
	// SearchLimit caps how many results a search returns.
	SearchLimit int
}

type Options struct {
	BaseURL         string
	AccessToken     string
	NotificationURL string
	BackURL         string
	PayerEmail      string
	Timeout         time.Duration
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PayerEmail == "" {
		opts.PayerEmail = "cliente@salonbook.app"
	}
	return &Client{
		hc:              &http.Client{Timeout: opts.Timeout},
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		accessToken:     opts.AccessToken,
		NotificationURL: opts.NotificationURL,
		BackURL:         opts.BackURL,
		PayerEmail:      opts.PayerEmail,
		SearchLimit:     5,
	}
}

var _ payment.Gateway = (*Client)(nil)

func toReais(cents int64) float64 { return float64(cents) / 100 }

func toCents(reais float64) int64 { return int64(math.Round(reais * 100)) }

type payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type createPaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	Payer             payer   `json:"payer"`
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	PaymentTypeID     string      `json:"payment_type_id"`
	TransactionAmount float64     `json:"transaction_amount"`

	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (p paymentResponse) toPayment() *payment.Payment {
	return &payment.Payment{
		ID:                p.ID.String(),
		Status:            p.Status,
		StatusDetail:      p.StatusDetail,
		ExternalReference: p.ExternalReference,
		MethodType:        p.PaymentTypeID,
		AmountCents:       toCents(p.TransactionAmount),
	}
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURLs          *backURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (c *Client) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	switch req.Method {
	case reservation.MethodPix:
		return c.createPix(ctx, req)
	case reservation.MethodCard:
		return c.createPreference(ctx, req)
	}
	return nil, fmt.Errorf("unsupported payment method %q", req.Method)
}

func (c *Client) createPix(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	body := createPaymentRequest{
		TransactionAmount: toReais(req.AmountCents),
		Description:       req.Description,
		PaymentMethodID:   "pix",
		ExternalReference: req.ReservationID,
		NotificationURL:   c.NotificationURL,
		Payer:             payer{Email: c.PayerEmail, FirstName: req.PayerName},
	}
	var out paymentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/payments", nil, req.ReservationID, body, &out); err != nil {
		return nil, fmt.Errorf("create pix payment: %w", err)
	}
	td := out.PointOfInteraction.TransactionData
	return &payment.Intent{
		PaymentID:    out.ID.String(),
		QRCode:       td.QRCode,
		QRCodeBase64: td.QRCodeBase64,
		TicketURL:    td.TicketURL,
	}, nil
}

func (c *Client) createPreference(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	body := preferenceRequest{
		Items: []preferenceItem{{
			Title:      req.Description,
			Quantity:   1,
			UnitPrice:  toReais(req.AmountCents),
			CurrencyID: "BRL",
		}},
		ExternalReference: req.ReservationID,
		NotificationURL:   c.NotificationURL,
	}
	if c.BackURL != "" {
		body.BackURLs = &backURLs{Success: c.BackURL, Failure: c.BackURL, Pending: c.BackURL}
		body.AutoReturn = "approved"
	}
	var out preferenceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout/preferences", nil, req.ReservationID, body, &out); err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	// card payments get their id only once the customer pays
	return &payment.Intent{CheckoutURL: out.InitPoint}, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*payment.Payment, error) {
	var out paymentResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, "", nil, &out); err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	return out.toPayment(), nil
}

type searchResponse struct {
	Results []paymentResponse `json:"results"`
}

func (c *Client) SearchApproved(ctx context.Context, externalReference string) (*payment.Payment, error) {
	q := url.Values{}
	q.Set("external_reference", externalReference)
	q.Set("status", payment.StatusApproved)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")
	q.Set("limit", fmt.Sprint(c.SearchLimit))

	var out searchResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/search", q, "", nil, &out); err != nil {
		return nil, fmt.Errorf("search payments: %w", err)
	}
	for _, r := range out.Results {
		if r.Status == payment.StatusApproved && r.ExternalReference == externalReference {
			return r.toPayment(), nil
		}
	}
	return nil, nil
}

// APIError is a non-2xx gateway answer.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return reservation.ErrNotFound
	}
	return reservation.ErrGatewayUnavailable
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, idemKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		if idemKey == "" {
			idemKey = uuid.NewString()
		}
		req.Header.Set("X-Idempotency-Key", idemKey)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", reservation.ErrGatewayUnavailable, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", reservation.ErrGatewayUnavailable, err)
	}
	if res.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(b, &e)
		if e.Message == "" {
			e.Message = http.StatusText(res.StatusCode)
		}
		return &APIError{Status: res.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: decode: %v", reservation.ErrGatewayUnavailable, err)
	}
	return nil
}

// IsNotFound reports a gateway 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
