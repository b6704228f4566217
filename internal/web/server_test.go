package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"

	"github.com/JandsonS/teste-sub000/internal/auth"
	"github.com/JandsonS/teste-sub000/internal/availability"
	"github.com/JandsonS/teste-sub000/internal/booking"
	"github.com/JandsonS/teste-sub000/internal/clock"
	"github.com/JandsonS/teste-sub000/internal/events"
	"github.com/JandsonS/teste-sub000/internal/memstore"
	"github.com/JandsonS/teste-sub000/internal/payment"
	"github.com/JandsonS/teste-sub000/internal/payment/paymenttest"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

type testEnv struct {
	router *gin.Engine
	store  *memstore.Store
	gw     *paymenttest.Gateway
	clock  *clock.Fixed
	auth   *auth.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	settings, err := availability.ParseSettings([]byte(`
establishments:
  studio-ana:
    open_hour: 8
    close_hour: 10
    deposit_percent: 30
`))
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		store: memstore.New(),
		gw:    paymenttest.New(),
		clock: clock.NewFixed(time.Date(2025, 3, 9, 15, 0, 0, 0, time.FixedZone("BRT", -3*3600))),
	}
	env.auth = auth.NewStore(memstore.NewUsers(), securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))

	srv := &Server{
		Booking: &booking.Service{
			Store: env.store, Settings: settings, Gateway: env.gw, Events: events.Noop{},
			Clock: env.clock, Logger: logger,
		},
		Availability: &availability.Calculator{Store: env.store, Settings: settings, Clock: env.clock},
		Reconciler: &payment.Reconciler{
			Store: env.store, Gateway: env.gw, Throttle: payment.Unlimited{}, Events: events.Noop{},
			Clock: env.clock, Logger: logger,
		},
		Auth:        env.auth,
		Logger:      logger,
		CORSOrigins: []string{"http://localhost:3000"},
	}
	env.router = srv.Routes()
	return env
}

func (e *testEnv) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, _ := json.Marshal(b)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func bookingBody(name, slot, method string) map[string]any {
	return map[string]any{
		"establishmentId":    "studio-ana",
		"date":               "10/03/2025",
		"time":               slot,
		"customerName":       name,
		"customerPhone":      "11999990000",
		"serviceDescription": "Manicure",
		"amountCents":        4500,
		"paymentMethod":      method,
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}

func TestAvailabilityScenario(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Create(context.Background(), &reservation.Reservation{
		ID: "paid", EstablishmentID: "studio-ana", CustomerName: "Ana", Date: "10/03/2025", Time: "09:00",
		PaymentMethod: reservation.MethodPix, Status: reservation.StatusPaidFull, CreatedAt: env.clock.Now(),
	}, reservation.Guard{Now: env.clock.Now(), Grace: reservation.DefaultGrace})
	if err != nil {
		t.Fatal(err)
	}

	w := env.do(http.MethodGet, "/api/v1/establishments/studio-ana/availability?date=10/03/2025", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	got := decode[availability.Result](t, w)
	want := availability.Result{Available: []string{"08:00", "08:30", "09:30"}, Busy: []string{"09:00"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if w := env.do(http.MethodGet, "/api/v1/establishments/studio-ana/availability?date=10-03-2025", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date status %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/v1/establishments/unknown/availability?date=10/03/2025", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown establishment status %d", w.Code)
	}
}

func TestCreateReservationFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/reservations", bookingBody("Ana", "08:30", "PIX"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", w.Code, w.Body.String())
	}
	created := decode[booking.CreateResult](t, w)
	if created.Reservation.Status != reservation.StatusPending || created.Intent == nil || created.Intent.QRCode == "" {
		t.Fatalf("created = %+v", created)
	}
	id := created.Reservation.ID

	w = env.do(http.MethodPost, "/api/v1/reservations", bookingBody("Bia", "08:30", "CARD"))
	if w.Code != http.StatusConflict || decode[errorBody](t, w).Code != "slot_unavailable" {
		t.Fatalf("conflict: %d %s", w.Code, w.Body.String())
	}
	w = env.do(http.MethodPost, "/api/v1/reservations", bookingBody("ana", "09:00", "LOCAL"))
	if w.Code != http.StatusConflict || decode[errorBody](t, w).Code != "duplicate_booking" {
		t.Fatalf("duplicate: %d %s", w.Code, w.Body.String())
	}

	// poll before and after approval
	w = env.do(http.MethodGet, "/api/v1/reservations/"+id+"/status", nil)
	if st := decode[statusResponse](t, w); st.Status != reservation.StatusPending {
		t.Fatalf("poll = %+v", st)
	}
	env.gw.Approve(id, 4500)
	w = env.do(http.MethodGet, "/api/v1/reservations/"+id+"/status", nil)
	st := decode[statusResponse](t, w)
	if st.Status != reservation.StatusPaidFull || st.ExternalPaymentID == "" {
		t.Fatalf("poll after approval = %+v", st)
	}

	if w := env.do(http.MethodGet, "/api/v1/reservations/nope/status", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown poll status %d", w.Code)
	}
}

func TestCreateReservationErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/reservations", `{"establishmentId": `)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status %d", w.Code)
	}

	body := bookingBody("Ana", "08:15", "PIX")
	w = env.do(http.MethodPost, "/api/v1/reservations", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid slot status %d", w.Code)
	}
	if _, ok := decode[errorBody](t, w).Details["time"]; !ok {
		t.Fatalf("details = %s", w.Body.String())
	}

	env.gw.Fail = true
	w = env.do(http.MethodPost, "/api/v1/reservations", bookingBody("Ana", "08:00", "PIX"))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("gateway down status %d", w.Code)
	}
	env.gw.Fail = false

	w = env.do(http.MethodPost, "/api/v1/reservations", bookingBody("Ana", "08:00", "LOCAL"))
	if w.Code != http.StatusCreated {
		t.Fatalf("slot should be released after intent failure: %d %s", w.Code, w.Body.String())
	}
	if res := decode[booking.CreateResult](t, w); res.Intent != nil || res.Reservation.Status != reservation.StatusLocalPending {
		t.Fatalf("local = %+v", res)
	}
}

func TestPaymentWebhook(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/v1/reservations", bookingBody("Ana", "08:30", "PIX"))
	id := decode[booking.CreateResult](t, w).Reservation.ID
	payID := env.gw.Approve(id, 4500)

	body := `{"action":"payment.updated","type":"payment","data":{"id":"` + payID + `"}}`
	for i := 0; i < 2; i++ {
		if w := env.do(http.MethodPost, "/api/v1/webhooks/payments", body); w.Code != http.StatusOK {
			t.Fatalf("delivery %d: %d %s", i, w.Code, w.Body.String())
		}
	}
	r, _ := env.store.Get(context.Background(), id)
	if r.Status != reservation.StatusPaidFull || r.ExternalPaymentID != payID {
		t.Fatalf("after webhook: %+v", r)
	}

	// query form, unknown payment
	if w := env.do(http.MethodPost, "/api/v1/webhooks/payments?topic=payment&id=999", nil); w.Code != http.StatusOK {
		t.Fatalf("unknown payment status %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/v1/webhooks/payments", `{not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed status %d", w.Code)
	}

	env.gw.Fail = true
	if w := env.do(http.MethodPost, "/api/v1/webhooks/payments?type=payment&data.id="+payID, nil); w.Code != http.StatusBadGateway {
		t.Fatalf("gateway down status %d", w.Code)
	}
}

func TestPaymentWebhookRequiresGatewayConfirmation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/v1/reservations", bookingBody("Ana", "08:30", "PIX"))
	id := decode[booking.CreateResult](t, w).Reservation.ID

	body := `{"external_reference":"` + id + `","status":"approved"}`
	if w := env.do(http.MethodPost, "/api/v1/webhooks/payments", body); w.Code != http.StatusOK {
		t.Fatalf("status %d %s", w.Code, w.Body.String())
	}
	r, _ := env.store.Get(context.Background(), id)
	if r.Status != reservation.StatusPending {
		t.Fatalf("unconfirmed payload changed status to %s", r.Status)
	}
	if env.gw.Searches != 1 {
		t.Fatalf("gateway searches = %d, want 1", env.gw.Searches)
	}

	payID := env.gw.Approve(id, 4500)
	if w := env.do(http.MethodPost, "/api/v1/webhooks/payments", body); w.Code != http.StatusOK {
		t.Fatalf("status %d %s", w.Code, w.Body.String())
	}
	r, _ = env.store.Get(context.Background(), id)
	if r.Status != reservation.StatusPaidFull || r.ExternalPaymentID != payID {
		t.Fatalf("confirmed payload: %+v", r)
	}
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.auth.CreateUser(ctx, "owner@salon.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	w := env.do(http.MethodPost, "/api/v1/reservations", bookingBody("Ana", "08:30", "LOCAL"))
	id := decode[booking.CreateResult](t, w).Reservation.ID

	if w := env.do(http.MethodGet, "/api/v1/admin/reservations", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list status %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"email": "owner@salon.com", "password": "nope"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", w.Code)
	}
	w = env.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"email": "owner@salon.com", "password": "correct-horse"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()

	w = env.do(http.MethodGet, "/api/v1/admin/reservations?establishmentId=studio-ana&date=10/03/2025", nil, cookies...)
	list := decode[struct {
		Reservations []reservation.Reservation `json:"reservations"`
	}](t, w)
	if len(list.Reservations) != 1 || list.Reservations[0].ID != id {
		t.Fatalf("list = %s", w.Body.String())
	}
	if w := env.do(http.MethodGet, "/api/v1/admin/reservations?status=PAGO", nil, cookies...); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status filter: %d", w.Code)
	}

	path := "/api/v1/admin/reservations/" + id + "/status"
	if w := env.do(http.MethodPatch, path, map[string]string{"status": "paid_full"}, cookies...); w.Code != http.StatusConflict {
		t.Fatalf("invalid transition status %d", w.Code)
	}
	if w := env.do(http.MethodPatch, path, map[string]string{"status": "bogus"}, cookies...); w.Code != http.StatusBadRequest {
		t.Fatalf("bogus status %d", w.Code)
	}
	w = env.do(http.MethodPatch, path, map[string]string{"status": "confirmed"}, cookies...)
	if w.Code != http.StatusOK || decode[reservation.Reservation](t, w).Status != reservation.StatusConfirmed {
		t.Fatalf("confirm: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodPatch, "/api/v1/admin/reservations/missing/status", map[string]string{"status": "canceled"}, cookies...); w.Code != http.StatusNotFound {
		t.Fatalf("missing reservation status %d", w.Code)
	}

	if w := env.do(http.MethodPost, "/api/v1/admin/logout", nil, cookies...); w.Code != http.StatusNoContent {
		t.Fatalf("logout status %d", w.Code)
	}
}

func TestSettingsServesDepositPercent(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/v1/establishments/studio-ana/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d %s", w.Code, w.Body.String())
	}
	got := decode[availability.Settings](t, w)
	if got.DepositPercent != 30 || got.OpenHour != 8 || got.CloseHour != 10 {
		t.Fatalf("settings = %+v", got)
	}
	if w := env.do(http.MethodGet, "/api/v1/establishments/unknown/settings", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown establishment status %d", w.Code)
	}
}
