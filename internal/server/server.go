// Package server wires the panel together: the exchange supervisor, the
// event engine, the websocket listener and the HTTP API, plus the periodic
// statistics broadcast.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/enmanuelbasulto/fop2-clone/internal/ami"
	"github.com/enmanuelbasulto/fop2-clone/internal/ami/amilink"
	"github.com/enmanuelbasulto/fop2-clone/internal/auth"
	"github.com/enmanuelbasulto/fop2-clone/internal/broadcast"
	"github.com/enmanuelbasulto/fop2-clone/internal/commands"
	"github.com/enmanuelbasulto/fop2-clone/internal/config"
	"github.com/enmanuelbasulto/fop2-clone/internal/events"
	"github.com/enmanuelbasulto/fop2-clone/internal/middleware"
	"github.com/enmanuelbasulto/fop2-clone/internal/models"
	"github.com/enmanuelbasulto/fop2-clone/internal/sessions"
	"github.com/enmanuelbasulto/fop2-clone/internal/state"
	"github.com/enmanuelbasulto/fop2-clone/internal/stats"
)

// shutdownTimeout is how long graceful shutdown may take before the process
// force-exits.
const shutdownTimeout = 10 * time.Second

// Server owns every long-lived component of the panel process.
type Server struct {
	cfg     *config.Config
	logger  *log.Logger
	version string

	provider    *auth.FileProvider
	registry    *sessions.Registry
	store       *state.Store
	aggregator  *stats.Aggregator
	broadcaster *broadcast.Broadcaster
	supervisor  *ami.Supervisor
	engine      *Engine
	wsHandler   *WSHandler
	cron        *cron.Cron

	httpSrv *http.Server
	wsSrv   *http.Server
}

// New assembles a server from configuration. Nothing is started yet; call
// Run.
func New(cfg *config.Config, version string, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	provider, err := auth.NewFileProvider(cfg.Auth.UsersFile, logger)
	if err != nil {
		return nil, fmt.Errorf("server: load users: %w", err)
	}

	registry := sessions.NewRegistry()
	store := state.NewStore()
	aggregator := stats.NewAggregator()
	broadcaster := broadcast.New(registry, logger)

	dialer := amilink.Dial(amilink.Config{
		Addr:     cfg.AMI.Addr,
		Username: cfg.AMI.Username,
		Secret:   cfg.AMI.Secret,
	}, logger)
	supervisor := ami.NewSupervisor(dialer, ami.WithLogger(logger))

	engine := NewEngine(supervisor.Events(), events.NewNormalizer(logger), store, aggregator, broadcaster, logger)
	router := commands.NewRouter(supervisor, broadcaster, logger)
	wsHandler := NewWSHandler(registry, provider, router, store, logger)

	jwtMgr := middleware.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	api := NewAPI(provider, jwtMgr, store, aggregator, registry, supervisor, version, logger)

	gin.SetMode(gin.ReleaseMode)
	httpEngine := gin.New()
	httpEngine.Use(gin.Recovery())
	api.Routes(httpEngine)

	wsMux := http.NewServeMux()
	wsMux.Handle("/", wsHandler)

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		version:     version,
		provider:    provider,
		registry:    registry,
		store:       store,
		aggregator:  aggregator,
		broadcaster: broadcaster,
		supervisor:  supervisor,
		engine:      engine,
		wsHandler:   wsHandler,
		cron:        cron.New(),
		httpSrv:     &http.Server{Addr: cfg.HTTP.Addr, Handler: httpEngine},
		wsSrv:       &http.Server{Addr: cfg.WS.Addr, Handler: wsMux},
	}

	interval := cfg.Stats.BroadcastInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.broadcastStats); err != nil {
		return nil, fmt.Errorf("server: schedule stats broadcast: %w", err)
	}
	if cfg.Stats.ResetSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.Stats.ResetSchedule, s.resetStats); err != nil {
			return nil, fmt.Errorf("server: schedule stats reset: %w", err)
		}
	}
	return s, nil
}

// Run starts every component and blocks until ctx is cancelled, then shuts
// down gracefully. Shutdown that overruns its deadline force-exits the
// process.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("server: panel %s starting, http=%s ws=%s ami=%s",
		s.version, s.cfg.HTTP.Addr, s.cfg.WS.Addr, s.cfg.AMI.Addr)

	go s.supervisor.Run(ctx)
	go s.engine.Run()
	s.cron.Start()

	errCh := make(chan error, 2)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http listener: %w", err)
		}
	}()
	go func() {
		if err := s.wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("ws listener: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.logger.Printf("server: listener failed: %v", err)
		return err
	}

	s.shutdown()
	return nil
}

func (s *Server) broadcastStats() {
	s.broadcaster.BroadcastAll(models.StatsUpdateMsg{
		Type: models.TypeStatsUpdate,
		Data: buildSnapshot(s.store, s.aggregator),
	})
}

// resetStats clears the aggregator's counters on the configured schedule and
// pushes a fresh snapshot so panels do not show stale numbers until the next
// broadcast tick.
func (s *Server) resetStats() {
	s.aggregator.Reset()
	s.logger.Printf("server: scheduled statistics reset")
	s.broadcastStats()
}

func (s *Server) shutdown() {
	s.logger.Printf("server: shutting down")

	force := time.AfterFunc(shutdownTimeout, func() {
		s.logger.Printf("server: shutdown deadline exceeded, forcing exit")
		os.Exit(1)
	})
	defer force.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cron.Stop()
	s.wsHandler.CloseAll(ctx, "Server shutting down")
	s.wsSrv.Shutdown(ctx)
	s.httpSrv.Shutdown(ctx)
	s.supervisor.Stop()
	s.provider.Close()
	s.logger.Printf("server: shutdown complete")
}
