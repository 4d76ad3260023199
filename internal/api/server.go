// Package api exposes the brief and the alert store over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"finance-brief/internal/alerts"
	"finance-brief/internal/report"
	"finance-brief/internal/version"
)

// AlertStore is the subset of the alert store the API mutates.
type AlertStore interface {
	List() []alerts.Alert
	Add(req alerts.Request) (alerts.Alert, error)
	Remove(id int) error
}

// AlertEvaluator runs one evaluation pass.
type AlertEvaluator interface {
	EvaluateAll(ctx context.Context) ([]alerts.Alert, error)
}

// BriefBuilder produces the composed brief.
type BriefBuilder interface {
	Build(ctx context.Context) (string, []report.SectionResult)
}

// Server wires handlers onto a gin engine.
type Server struct {
	store  AlertStore
	engine AlertEvaluator
	brief  BriefBuilder
	logger zerolog.Logger
	router *gin.Engine
}

// New builds the server and its routes.
func New(store AlertStore, engine AlertEvaluator, brief BriefBuilder, logger zerolog.Logger) *Server {
	s := &Server{
		store:  store,
		engine: engine,
		brief:  brief,
		logger: logger.With().Str("component", "api").Logger(),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog())

	router.GET("/healthz", s.health)
	router.GET("/brief", s.getBrief)

	group := router.Group("/alerts")
	{
		group.GET("", s.listAlerts)
		group.POST("", s.addAlert)
		group.DELETE("/:id", s.removeAlert)
		group.POST("/check", s.checkAlerts)
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

type sectionView struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GET /brief[?format=text]
func (s *Server) getBrief(c *gin.Context) {
	if s.brief == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "brief not configured"})
		return
	}

	text, results := s.brief.Build(c.Request.Context())
	if c.Query("format") == "text" {
		c.String(http.StatusOK, text)
		return
	}

	sections := make([]sectionView, 0, len(results))
	for _, r := range results {
		view := sectionView{Name: r.Name, Status: string(r.Status)}
		if r.Err != nil {
			view.Error = r.Err.Error()
		}
		sections = append(sections, view)
	}
	c.JSON(http.StatusOK, gin.H{"text": text, "sections": sections})
}

func (s *Server) listAlerts(c *gin.Context) {
	list := s.store.List()
	if list == nil {
		list = []alerts.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
}

// POST /alerts {"type":"price","symbol":"BHP.AX","condition":"above","target":"50"}
func (s *Server) addAlert(c *gin.Context) {
	var req alerts.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	alert, err := s.store.Add(req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (s *Server) removeAlert(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert id must be an integer"})
		return
	}
	if err := s.store.Remove(id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) checkAlerts(c *gin.Context) {
	if s.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert engine not configured"})
		return
	}

	triggered, saveErr := s.engine.EvaluateAll(c.Request.Context())
	if triggered == nil {
		triggered = []alerts.Alert{}
	}
	body := gin.H{"triggered": triggered, "count": len(triggered)}
	if saveErr != nil {
		body["warning"] = saveErr.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alerts.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, alerts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
