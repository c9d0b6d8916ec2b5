// Package server owns and coordinates the application's components: the
// database connection, the metadata store, the broadcaster, the indexer,
// and the HTTP router built on top of them.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/xiaoyuanzhu-com/my-life-db/api"
	"github.com/xiaoyuanzhu-com/my-life-db/claude"
	"github.com/xiaoyuanzhu-com/my-life-db/config"
	"github.com/xiaoyuanzhu-com/my-life-db/db"
	"github.com/xiaoyuanzhu-com/my-life-db/log"
	"github.com/xiaoyuanzhu-com/my-life-db/stream"
)

// Server owns and coordinates all application components.
type Server struct {
	cfg *config.Config

	conn        *sql.DB
	store       *db.Store
	broadcaster *stream.Broadcaster
	indexer     *claude.Indexer

	// shutdownCtx is cancelled when the server starts shutting down;
	// long-running handlers (the SSE stream) listen for it.
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	router *gin.Engine
	http   *http.Server
}

// New opens the database, wires the store/broadcaster/indexer, and builds
// the HTTP router. It does not start the indexer or listen for connections —
// call Start for that.
func New(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{cfg: cfg, shutdownCtx: ctx, shutdownCancel: cancel}

	log.Info().Str("path", cfg.DatabasePath).Msg("initializing database")
	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.conn = conn

	s.store = db.NewStore(conn)
	s.broadcaster = stream.New(cfg.HeartbeatInterval)
	s.indexer = claude.NewIndexer(s.store, s.broadcaster, cfg.ArchiveRoot, cfg.BatchSize, cfg.WatchDebounce)

	s.setupRouter()

	log.Info().Msg("server initialized successfully")
	return s, nil
}

// setupRouter creates and configures the Gin router.
func (s *Server) setupRouter() {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger())

	if s.cfg.IsDevelopment() {
		s.router.Use(corsMiddleware())
	} else {
		s.router.Use(securityHeadersMiddleware())
	}

	// Gzip everything except the long-lived stream route, which must flush
	// every write as it happens.
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/claude/stream",
	})))

	s.router.SetTrustedProxies(nil)

	s.router.GET("/.well-known/*path", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	handlers := api.NewHandlers(s.store, s.broadcaster, s.cfg.ArchiveRoot, s.shutdownCtx)
	api.SetupRoutes(s.router.Group("/api/claude"), handlers)
}

// Start starts the indexer and the HTTP server. It blocks until the HTTP
// server stops (Shutdown was called, or it failed to listen).
func (s *Server) Start() error {
	log.Info().Msg("starting indexer")
	s.indexer.Start()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:     addr,
		Handler:  s.router,
		ErrorLog: log.StdErrorLogger(),
	}

	log.Info().Str("addr", addr).Str("env", s.cfg.Env).Msg("HTTP server starting")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully tears the server down: it signals long-running
// handlers to stop, gives them a moment to drain, then stops the HTTP
// listener, the indexer, and finally closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	s.shutdownCancel()
	time.Sleep(100 * time.Millisecond)

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
	}

	s.indexer.Stop()

	if err := s.conn.Close(); err != nil {
		log.Error().Err(err).Msg("database close error")
		return err
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

// Router exposes the underlying gin.Engine, mainly for tests that want to
// drive requests through httptest without a real listener.
func (s *Server) Router() *gin.Engine { return s.router }
