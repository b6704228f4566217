package web

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JandsonS/teste-sub000/internal/booking"
	"github.com/JandsonS/teste-sub000/internal/reservation"
	"github.com/JandsonS/teste-sub000/internal/validation"
)

func (s *Server) handleAvailability(c *gin.Context) {
	res, err := s.Availability.Availability(c.Request.Context(), c.Param("establishmentId"), c.Query("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSettings(c *gin.Context) {
	id := c.Param("establishmentId")
	if err := validation.Var("establishmentId", id, "required,slug"); err != nil {
		s.fail(c, err)
		return
	}
	settings, err := s.Availability.Settings.Settings(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleCreateReservation(c *gin.Context) {
	var in booking.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	res, err := s.Booking.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type statusResponse struct {
	ID                string             `json:"id"`
	Status            reservation.Status `json:"status"`
	ExternalPaymentID string             `json:"externalPaymentId,omitempty"`
}

// handleReservationStatus serves the client's active poll.
func (s *Server) handleReservationStatus(c *gin.Context) {
	r, err := s.Reconciler.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{ID: r.ID, Status: r.Status, ExternalPaymentID: r.ExternalPaymentID})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	id, err := s.Auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Auth.SetSession(c.Writer, c.Request, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.Auth.ClearSession(c.Writer)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminList(c *gin.Context) {
	f := reservation.Filter{
		EstablishmentID: c.Query("establishmentId"),
		Date:            c.Query("date"),
	}
	if st := c.Query("status"); st != "" {
		parsed, err := reservation.ParseStatus(st)
		if err != nil {
			s.fail(c, err)
			return
		}
		f.Status = parsed
	}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			s.fail(c, reservation.NewValidationError("limit", "must be a positive integer"))
			return
		}
		f.Limit = n
	}
	rs, err := s.Booking.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	if rs == nil {
		rs = []reservation.Reservation{}
	}
	c.JSON(http.StatusOK, gin.H{"reservations": rs})
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleAdminTransition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	to, err := reservation.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}
	r, err := s.Booking.Transition(c.Request.Context(), c.Param("id"), to)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// readBody returns at most 64KiB of the request body.
func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
}
