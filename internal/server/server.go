// Package server assembles the lonb HTTP server: AWS clients, the
// extraction pipeline, and the endpoint registry.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/internal/booking"
	"github.com/codevakure/lonb/internal/config"
	"github.com/codevakure/lonb/internal/extract"
	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/providers"
	"github.com/codevakure/lonb/internal/schema"
	"github.com/codevakure/lonb/internal/server/endpoints"
	"github.com/codevakure/lonb/internal/storage"
	"github.com/codevakure/lonb/internal/svcctx"
)

// Server is the main lonb HTTP server.
type Server struct {
	httpServer       *http.Server
	configMgr        *config.Manager
	logger           *slog.Logger
	endpointRegistry *api.Registry

	// AWS clients, created once at startup.
	retrieveClient  *bedrockagentruntime.Client
	invokeClient    *bedrockruntime.Client
	ingestionClient *bedrockagent.Client
	s3Client        *s3.Client
	dynamoClient    *dynamodb.Client

	mu       sync.RWMutex
	services *svcctx.Services
	running  bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // Extractions and waited syncs run long
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start initializes AWS clients and the extraction pipeline, then serves
// HTTP until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	cfg := s.configMgr.Get()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	s.retrieveClient = bedrockagentruntime.NewFromConfig(awsCfg)
	s.invokeClient = bedrockruntime.NewFromConfig(awsCfg)
	s.ingestionClient = bedrockagent.NewFromConfig(awsCfg)
	s.s3Client = s3.NewFromConfig(awsCfg)
	s.dynamoClient = dynamodb.NewFromConfig(awsCfg)

	services, err := s.buildServices(cfg)
	if err != nil {
		s.setNotRunning()
		return err
	}
	s.mu.Lock()
	s.services = services
	s.mu.Unlock()

	// Rebuild the pipeline when generation or knowledge base settings change.
	s.configMgr.OnChange(func(c *config.Config) {
		rebuilt, err := s.buildServices(c)
		if err != nil {
			s.logger.Error("config reload failed, keeping previous services", "error", err)
			return
		}
		s.mu.Lock()
		s.services = rebuilt
		s.mu.Unlock()
		s.logger.Info("services rebuilt from config")
	})

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// buildServices wires the extraction pipeline from the current config.
// A missing knowledge base ID leaves the extractor and ingestion unset; the
// server still runs so bookings and documents stay reachable.
func (s *Server) buildServices(cfg *config.Config) (*svcctx.Services, error) {
	registry, err := schema.NewRegistry(s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema registry: %w", err)
	}

	services := &svcctx.Services{
		Schemas:       registry,
		Documents:     storage.NewStore(s.s3Client, cfg.Storage.Bucket, cfg.Storage.Prefix, s.logger),
		Bookings:      booking.NewStore(s.dynamoClient, cfg.Bookings.Table, s.logger),
		ConfigManager: s.configMgr,
		Logger:        s.logger,
	}

	if cfg.KnowledgeBase.ID == "" {
		s.logger.Warn("knowledge base ID not configured; extraction and sync are disabled")
		return services, nil
	}

	index, err := kb.NewBedrockIndex(s.retrieveClient, cfg.KnowledgeBase.ID, s.logger)
	if err != nil {
		return nil, err
	}
	retriever := kb.NewRetriever(index, cfg.KnowledgeBase.NumResults, s.logger)
	llm := providers.NewBedrockClient(s.invokeClient, cfg.Generation.ModelID, s.logger)

	services.Extractor = extract.NewExtractor(extract.ExtractorConfig{
		Schemas:     registry,
		Retriever:   retriever,
		LLM:         llm,
		MetadataKey: cfg.KnowledgeBase.MetadataKey,
		MaxTokens:   cfg.Generation.MaxTokens,
		Logger:      s.logger,
	})

	if cfg.KnowledgeBase.DataSourceID != "" {
		ingestion, err := kb.NewIngestion(kb.IngestionConfig{
			Client:       s.ingestionClient,
			KBID:         cfg.KnowledgeBase.ID,
			DataSourceID: cfg.KnowledgeBase.DataSourceID,
			Wait:         cfg.KnowledgeBase.SyncWait,
			Interval:     cfg.KnowledgeBase.SyncInterval,
			Logger:       s.logger,
		})
		if err != nil {
			return nil, err
		}
		services.Ingestion = ingestion
	}

	return services, nil
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
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

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Services returns the current service set. It is nil before Start.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.Services(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until services are built.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Services() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
