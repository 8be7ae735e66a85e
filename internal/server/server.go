package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jgoulah/energylog/internal/config"
	"github.com/jgoulah/energylog/internal/logging"
	"github.com/jgoulah/energylog/internal/sheet"
	"github.com/jgoulah/energylog/pkg/models"
)

const maxBodyBytes = 10 << 20

// Upserter stores a batch of entries
type Upserter interface {
	Upsert(models.Batch) (sheet.Outcome, error)
}

// Server is the webhook HTTP server
type Server struct {
	store  Upserter
	cfg    config.ServerConfig
	logger *logging.Logger
	engine *gin.Engine
}

// New builds the router and its middleware chain
func New(store Upserter, cfg config.ServerConfig, logger *logging.Logger) *Server {
	s := &Server{store: store, cfg: cfg, logger: logger}

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(logger))
	r.Use(RequestLogMiddleware(logger))
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst), logger))
	}

	r.GET("/", s.handleHealth)
	r.GET("/healthz", s.handleHealth)
	r.POST("/", s.handleSubmit)
	r.POST("/exec", s.handleSubmit)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
	})

	s.engine = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Webhook listening on %s", s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving webhook: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Shutting down webhook...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down webhook: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "energylog webhook is running; POST entries to log them",
	})
}

func (s *Server) handleSubmit(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		s.reject(c, http.StatusBadRequest, fmt.Sprintf("reading request body: %v", err))
		return
	}

	sub, err := sheet.DecodeSubmission(body)
	if err != nil {
		s.reject(c, http.StatusBadRequest, err.Error())
		return
	}
	batch := sub.Batch()

	out, err := s.store.Upsert(batch)
	if err != nil {
		status := http.StatusInternalServerError
		if sheet.IsClientError(err) {
			status = http.StatusBadRequest
		}
		s.reject(c, status, err.Error())
		return
	}

	s.logger.Infof("Logged %d entries for %s (added=%d updated=%d)",
		len(batch.Entries), out.Device, out.RowsAdded, out.RowsUpdated)

	c.JSON(http.StatusOK, models.Response{
		Success:     true,
		Message:     fmt.Sprintf("Logged %d entries for %s", len(batch.Entries), out.Device),
		Device:      out.Device,
		Sheet:       out.Sheet,
		RowsAdded:   out.RowsAdded,
		RowsUpdated: out.RowsUpdated,
	})
}

func (s *Server) reject(c *gin.Context, status int, msg string) {
	s.logger.Warnf("rejected submission id=%s status=%d: %s", c.GetString("request_id"), status, msg)
	c.JSON(status, gin.H{"success": false, "error": msg})
}
