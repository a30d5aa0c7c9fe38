// Package server hosts the HTTP API: document management, retrieval,
// context assembly, sync and a websocket event stream.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/coachkit/knowledge-engine/internal/db"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
	"github.com/coachkit/knowledge-engine/internal/search"
	"github.com/coachkit/knowledge-engine/internal/syncer"
)

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Server wires the engine's components behind one router.
type Server struct {
	cfg        Config
	db         *db.DB
	store      *knowledge.Store
	processor  *knowledge.Processor
	searcher   *search.Searcher
	assembler  *search.Assembler
	reconciler *syncer.Reconciler
	events     *Hub
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies. The reconciler may be nil
// when no remote vector stores are configured; sync routes are then
// omitted.
func New(cfg Config, database *db.DB, store *knowledge.Store, processor *knowledge.Processor, searcher *search.Searcher, assembler *search.Assembler, reconciler *syncer.Reconciler) *Server {
	s := &Server{
		cfg:        cfg,
		db:         database,
		store:      store,
		processor:  processor,
		searcher:   searcher,
		assembler:  assembler,
		reconciler: reconciler,
		events:     NewHub(),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(s.cfg.CORSOrigins) > 0 {
		corsOpts.AllowedOrigins = s.cfg.CORSOrigins
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	knowledge.RegisterRoutes(r, s.store, s.processor)
	search.RegisterRoutes(r, s.searcher, s.assembler)
	if s.reconciler != nil {
		syncer.RegisterRoutes(r, s.reconciler)
	}
	r.Get("/api/events/ws", s.events.ServeWS)

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Events returns the broadcast hub for processing and sync events.
func (s *Server) Events() *Hub { return s.events }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("kengine server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.events.Close()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
