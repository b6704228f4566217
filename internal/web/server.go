package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JandsonS/teste-sub000/internal/auth"
	"github.com/JandsonS/teste-sub000/internal/availability"
	"github.com/JandsonS/teste-sub000/internal/booking"
	"github.com/JandsonS/teste-sub000/internal/payment"
)

type Server struct {
	Booking      *booking.Service
	Availability *availability.Calculator
	Reconciler   *payment.Reconciler
	Auth         *auth.Store
	Logger       *slog.Logger

	CORSOrigins    []string
	MetricsEnabled bool
	// Ready backs /healthz; nil means always ready.
	Ready func(ctx context.Context) error
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(RequestID())
	r.Use(Tracing())
	r.Use(StructuredLogger(s.Logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	if s.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/establishments/:establishmentId/availability", s.handleAvailability)
		v1.GET("/establishments/:establishmentId/settings", s.handleSettings)
		v1.POST("/reservations", s.handleCreateReservation)
		v1.GET("/reservations/:id/status", s.handleReservationStatus)
		v1.POST("/webhooks/payments", s.handlePaymentWebhook)
	}

	admin := v1.Group("/admin")
	{
		admin.POST("/login", s.handleLogin)
		admin.POST("/logout", s.handleLogout)

		authed := admin.Group("")
		authed.Use(s.Auth.RequireAdmin())
		authed.GET("/reservations", s.handleAdminList)
		authed.PATCH("/reservations/:id/status", s.handleAdminTransition)
	}

	return r
}

func Start(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.Ready(ctx); err != nil {
			s.Logger.Warn("readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
