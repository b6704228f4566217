package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JandsonS/teste-sub000/internal/auth"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

type errorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// statusFor maps domain errors onto HTTP responses.
func statusFor(err error) (int, errorBody) {
	var verr *reservation.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: "invalid request", Code: "validation_error", Details: verr.Fields}
	case errors.Is(err, reservation.ErrSlotUnavailable):
		return http.StatusConflict, errorBody{Error: "this time slot is no longer available", Code: "slot_unavailable"}
	case errors.Is(err, reservation.ErrDuplicateBooking):
		return http.StatusConflict, errorBody{Error: "you already have a booking on this date", Code: "duplicate_booking"}
	case errors.Is(err, reservation.ErrInvalidTransition):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "invalid_transition"}
	case errors.Is(err, reservation.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found", Code: "not_found"}
	case errors.Is(err, reservation.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: "payment provider unavailable, try again", Code: "gateway_unavailable"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Error: "invalid email or password", Code: "invalid_credentials"}
	case errors.Is(err, reservation.ErrValidation):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation_error"}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status >= 500 {
		requestID, _ := c.Get(requestIDKey)
		s.Logger.Log(c.Request.Context(), slog.LevelError, "request failed",
			"request_id", requestID, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg, Code: "validation_error"})
}
