// Package api provides HTTP handlers and the main API server logic for
// CareCover.
//
// It exposes RESTful endpoints for triage, facility lookup, coverage and
// cost estimates, the emergency flow, follow-ups, and chat. The API wires
// together the store, triage, emergency, followup, treatment, and genai
// modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carecover/carecover/internal/cost"
	"github.com/carecover/carecover/internal/emergency"
	"github.com/carecover/carecover/internal/followup"
	"github.com/carecover/carecover/internal/models"
	"github.com/carecover/carecover/internal/store"
	"github.com/carecover/carecover/internal/treatment"
	"github.com/carecover/carecover/internal/triage"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Server timeouts.
const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// replyGenerator produces assistant replies for the chat endpoint.
// genai.Client satisfies it.
type replyGenerator interface {
	GenerateReply(ctx context.Context, userMessage string, documents []models.ExtractedDocument) (string, error)
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr   string
	GenAI  replyGenerator
	Triage *triage.Triage
	Flow   *emergency.Flow
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithGenAI wires the chat reply generator. Without one, the chat endpoint
// returns rule-based guidance only.
func WithGenAI(g replyGenerator) Option {
	return func(o *Opts) { o.GenAI = g }
}

// WithTriage overrides the triage orchestrator.
func WithTriage(t *triage.Triage) Option {
	return func(o *Opts) { o.Triage = t }
}

// WithFlow overrides the emergency flow manager.
func WithFlow(f *emergency.Flow) Option {
	return func(o *Opts) { o.Flow = f }
}

// Server hosts the CareCover HTTP API.
type Server struct {
	addr      string
	store     store.Store
	triage    *triage.Triage
	flow      *emergency.Flow
	followUps *followup.Service
	preparer  *treatment.Preparer
	costs     *cost.Estimator
	genai     replyGenerator
	httpSrv   *http.Server
}

// NewServer creates an API server over the given store and follow-up
// service. The triage orchestrator and emergency flow default to instances
// sharing the application-wide location dictionary.
func NewServer(st store.Store, followUps *followup.Service, detector *emergency.Detector, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Triage == nil {
		cfg.Triage = triage.New(detector)
	}
	if cfg.Flow == nil {
		cfg.Flow = emergency.NewFlow(st, emergency.WithScheduler(followUps))
	}

	return &Server{
		addr:      cfg.Addr,
		store:     st,
		triage:    cfg.Triage,
		flow:      cfg.Flow,
		followUps: followUps,
		preparer:  treatment.NewPreparer(detector),
		costs:     cost.NewEstimator(),
		genai:     cfg.GenAI,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/triage", s.triageHandler)
	mux.HandleFunc("/facilities", s.facilitiesHandler)
	mux.HandleFunc("/facilities/", s.facilityHandler)
	mux.HandleFunc("/coverage", s.coverageHandler)
	mux.HandleFunc("/costs", s.costsHandler)
	mux.HandleFunc("/claims", s.claimsHandler)
	mux.HandleFunc("/documents", s.documentsHandler)
	mux.HandleFunc("/followups", s.followUpsHandler)
	mux.HandleFunc("/followups/", s.followUpHandler)
	mux.HandleFunc("/emergency", s.emergencyHandler)
	mux.HandleFunc("/emergency/action", s.emergencyActionHandler)
	mux.HandleFunc("/treatment/prepare", s.treatmentPrepareHandler)
	mux.HandleFunc("/chat", s.chatHandler)
	return mux
}

// Run starts the follow-up sweep and serves HTTP until the context is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.followUps.Start(ctx); err != nil {
		return fmt.Errorf("failed to start follow-up service: %w", err)
	}
	defer s.followUps.Stop()

	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("CareCover API running", "addr", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
