package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/home"
	"github.com/quillhq/quill/internal/ledger"
	"github.com/quillhq/quill/internal/metrics"
	"github.com/quillhq/quill/internal/notify"
	"github.com/quillhq/quill/internal/pipeline"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/render"
	"github.com/quillhq/quill/internal/server/endpoints"
	"github.com/quillhq/quill/internal/store"
	"github.com/quillhq/quill/internal/svcctx"
)

// Server is the main Quill HTTP server.
// When DefraDB is enabled it also manages the store container lifecycle,
// starting it on server start and stopping it on shutdown.
type Server struct {
	httpServer    *http.Server
	dockerManager *store.DockerManager
	store         store.Store
	orchestrator  *pipeline.Orchestrator
	ledger        *ledger.Memory
	promRegistry  *prometheus.Registry
	metrics       *metrics.Metrics
	configMgr     *config.Manager
	homeDir       *home.Dir
	logger        *slog.Logger

	// generatorOverride replaces the configured OpenAI client when set.
	generatorOverride generator.Generator

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8585)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home locates the data and artifacts directories
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger

	// Generator overrides the OpenAI client built from configuration.
	// Used in tests.
	Generator generator.Generator
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8585"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}

	appCfg := cfg.ConfigManager.Get()

	var dockerManager *store.DockerManager
	if !appCfg.Defra.Disabled {
		dm, err := store.NewDockerManager(store.DockerConfig{
			ContainerName: appCfg.Defra.ContainerName,
			Image:         appCfg.Defra.Image,
			DataPath:      cfg.Home.DataPath(),
			HostPort:      appCfg.Defra.Port,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create docker manager: %w", err)
		}
		dockerManager = dm
	}

	promRegistry := prometheus.NewRegistry()

	s := &Server{
		dockerManager:     dockerManager,
		promRegistry:      promRegistry,
		metrics:           metrics.New(promRegistry),
		configMgr:         cfg.ConfigManager,
		homeDir:           cfg.Home,
		logger:            cfg.Logger,
		generatorOverride: cfg.Generator,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		DockerManager:   dockerManager,
		SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Generator settings are read once at startup. Announce reloads so
	// operators know a restart is needed for them to take effect.
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		cfg.Logger.Info("configuration reloaded",
			"model", c.Generator.Model,
			"note", "generator changes apply on restart")
	})

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and, when enabled, the DefraDB container.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	appCfg := s.configMgr.Get()

	st, err := s.openStore(ctx, appCfg)
	if err != nil {
		s.setNotRunning()
		return err
	}
	s.store = st

	gen := s.generatorOverride
	if gen == nil {
		gen = generator.NewClient(generator.Config{
			APIKey:      config.ResolveEnvVars(appCfg.Generator.APIKey),
			BaseURL:     appCfg.Generator.BaseURL,
			Model:       appCfg.Generator.Model,
			Fallbacks:   appCfg.Generator.Fallbacks,
			Temperature: appCfg.Generator.Temperature,
			Timeout:     appCfg.Generator.Timeout(),
			RPM:         appCfg.Generator.RateLimit,
			MaxRetries:  appCfg.Generator.MaxRetries,
			Logger:      s.logger,
		})
	}

	s.ledger = seedLedger(appCfg.Ledger)

	var renderer render.Renderer
	if appCfg.Render.Disabled {
		renderer = render.Noop{}
	} else {
		outputDir := appCfg.Render.OutputDir
		if outputDir == "" {
			outputDir = s.homeDir.ArtifactsPath()
		}
		renderer = render.NewPDF(outputDir)
	}

	var notifier notify.Notifier
	if appCfg.Notify.Host != "" {
		port, _ := strconv.Atoi(appCfg.Notify.Port)
		notifier = notify.NewSMTP(notify.SMTPConfig{
			Host:     appCfg.Notify.Host,
			Port:     port,
			Username: appCfg.Notify.Username,
			Password: config.ResolveEnvVars(appCfg.Notify.Password),
			From:     appCfg.Notify.From,
		})
	} else {
		notifier = &notify.Log{Logger: s.logger}
	}

	orch, err := pipeline.New(pipeline.Config{
		Store:          s.store,
		Generator:      gen,
		Ledger:         s.ledger,
		Renderer:       renderer,
		Notifier:       notifier,
		Metrics:        s.metrics,
		Logger:         s.logger,
		ChapterCount:   appCfg.Pipeline.ChapterCount,
		ChapterRetries: appCfg.Pipeline.ChapterRetries,
		RetryDelay:     appCfg.Pipeline.RetryDelay(),
		NarrativeDelay: appCfg.Pipeline.NarrativeDelay(),
	})
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	s.orchestrator = orch

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Store:        s.store,
		Orchestrator: s.orchestrator,
		Ledger:       s.ledger,
		Docker:       s.dockerManager,
		Config:       s.configMgr,
		Logger:       s.logger,
		Home:         s.homeDir,
		Registry:     s.promRegistry,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// openStore brings up the configured project store. With DefraDB disabled
// projects live in process memory and vanish on restart.
func (s *Server) openStore(ctx context.Context, appCfg *config.Config) (store.Store, error) {
	if appCfg.Defra.Disabled || s.dockerManager == nil {
		s.logger.Info("DefraDB disabled, using in-memory store")
		return store.NewMemory(), nil
	}

	// Validate any existing container matches our config
	if err := s.dockerManager.ValidateExisting(ctx); err != nil {
		return nil, fmt.Errorf("existing DefraDB container incompatible: %w", err)
	}

	s.logger.Info("starting DefraDB")
	if err := s.dockerManager.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start DefraDB: %w", err)
	}

	defraStore := store.NewDefra(s.dockerManager.URL())

	if err := defraStore.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("DefraDB health check failed: %w", err)
	}
	s.logger.Info("DefraDB is ready", "url", s.dockerManager.URL())

	if err := defraStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("schema initialization failed: %w", err)
	}

	return defraStore, nil
}

// seedLedger builds the in-process entitlement ledger from configuration.
func seedLedger(cfg config.LedgerCfg) *ledger.Memory {
	lg := ledger.NewMemory()
	for email, credits := range cfg.Credits {
		lg.Grant(email, credits)
	}
	for email, tier := range cfg.Tiers {
		if tier == string(project.TierPremium) {
			lg.SetTier(email, project.TierPremium)
		}
	}
	return lg
}

// shutdown performs graceful shutdown of the HTTP server, the pipeline and
// the store container.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.orchestrator != nil {
		s.logger.Info("stopping pipeline tasks")
		s.orchestrator.Shutdown()
	}

	if s.dockerManager != nil {
		s.logger.Info("stopping DefraDB")
		if err := s.dockerManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("DefraDB stop error", "error", err)
		}
		if err := s.dockerManager.Close(); err != nil {
			s.logger.Error("docker manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the project store.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() store.Store {
	return s.store
}

// Orchestrator returns the pipeline orchestrator.
// Returns nil if the server hasn't started yet.
func (s *Server) Orchestrator() *pipeline.Orchestrator {
	return s.orchestrator
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the store and pipeline are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.orchestrator == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
