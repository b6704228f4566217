package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failing struct{}

func (failing) Publish(context.Context, string, any) error { return errors.New("broker down") }

func TestLoggedSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	l := Logged{Next: failing{}, Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := l.Publish(context.Background(), ReservationCreated, nil); err != nil {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(buf.String(), "broker down") {
		t.Fatalf("log output: %s", buf.String())
	}
}

func TestEnvelopeJSON(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	b, err := json.Marshal(NewEnvelope(ReservationPaid, at, map[string]string{"id": "r1"}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"event":"reservation.paid","version":1,"occurred_at":"2025-03-10T12:00:00Z","data":{"id":"r1"}}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
}
