package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/feedsync/internal/config"
	"github.com/ifuryst/feedsync/internal/datasync"
	"github.com/ifuryst/feedsync/internal/mapper"
	"github.com/ifuryst/feedsync/internal/projector"
	"github.com/ifuryst/feedsync/internal/resolver"
	"github.com/ifuryst/feedsync/internal/secrets"
	"github.com/ifuryst/feedsync/internal/service"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Engine    *datasync.Engine
	Mapper    *mapper.Mapper
	Telemetry *service.TelemetryService
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	provider := secrets.NewFileProvider(cfg.Secrets.Path)
	db, err := service.NewDatabase(&cfg.Database, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize the mapping store client (process-wide singleton)
	store, err := mapper.Connect(&cfg.Mapper)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mapping store: %w", err)
	}

	// Initialize services
	idMapper := mapper.New(store, cfg.Mapper.Table, cfg.Sync.MapperAnomalyLimit, logger)
	urlResolver, err := resolver.NewClient(&cfg.Resolver, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver client: %w", err)
	}
	telemetry := service.NewTelemetryService(db, logger)
	proj := projector.NewProjector(db, logger, &cfg.Sync)
	engine := datasync.NewEngine(proj, idMapper, urlResolver, telemetry, &cfg.Sync, logger)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:    cfg,
		DB:        db,
		Router:    router,
		Logger:    logger,
		Engine:    engine,
		Mapper:    idMapper,
		Telemetry: telemetry,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		api.POST("/events", s.handleEventBatch)

		mappings := api.Group("/mappings")
		{
			mappings.GET("/:legacyId", s.handleGetMapping)
			mappings.GET("", s.handleListMappings)
		}

		api.GET("/errors", s.handleRecentErrors)
	}
}

type eventBatchRequest struct {
	Messages []datasync.Message `json:"messages"`
}

// handleEventBatch runs one inbound batch through the sync engine and reports
// partial-batch failures so the queue redelivers only the failed items.
func (s *Server) handleEventBatch(c *gin.Context) {
	var req eventBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed batch request"})
		return
	}

	result := s.Engine.ProcessBatch(c.Request.Context(), req.Messages)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetMapping(c *gin.Context) {
	legacyID, err := strconv.ParseInt(c.Param("legacyId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "legacy id must be numeric"})
		return
	}

	mapping, err := s.Mapper.GetByLegacyID(legacyID)
	if err != nil {
		s.Logger.Error("Failed to fetch mapping", zap.Int64("legacy_id", legacyID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch mapping"})
		return
	}
	if mapping == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "mapping not found"})
		return
	}

	c.JSON(http.StatusOK, mapping)
}

func (s *Server) handleListMappings(c *gin.Context) {
	surface := c.Query("surface")
	if surface == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "surface query parameter required"})
		return
	}

	mappings, err := s.Mapper.GetBySurface(surface)
	if err != nil {
		s.Logger.Error("Failed to list mappings", zap.String("surface", surface), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list mappings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mappings": mappings})
}

func (s *Server) handleRecentErrors(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	errors, err := s.Telemetry.GetRecentErrors(limit)
	if err != nil {
		s.Logger.Error("Failed to fetch recent errors", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch errors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"errors": errors})
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
