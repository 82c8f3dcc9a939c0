package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KevinKickass/RackRelay/internal/api/websocket"
	"github.com/KevinKickass/RackRelay/internal/config"
	"github.com/KevinKickass/RackRelay/internal/interfaces"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	logger *zap.Logger
	server *http.Server
	wsHub  *websocket.Hub
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		lm:     lm,
		logger: logger,
		wsHub:  wsHub,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens in the background. errc receives the error if the listener dies.
func (s *Server) Start(errc chan<- error) error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
			if errc != nil {
				errc <- err
			}
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(MetricsMiddleware(s.lm.Metrics()))
	s.router.Use(CORSMiddleware())

	// Root routes keep the paths existing rack tooling calls.
	s.registerRackRoutes(&s.router.RouterGroup)
	s.router.GET("/metrics", gin.WrapH(s.lm.Metrics().Handler()))

	v1 := s.router.Group("/api/v1")
	{
		s.registerRackRoutes(v1)

		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
			system.POST("/shutdown", s.shutdown)
		}

		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

func (s *Server) registerRackRoutes(g *gin.RouterGroup) {
	g.GET("/health", s.getHealth)

	g.GET("/devices", s.listDevices)
	g.GET("/devices/:id", s.getDevice)

	mappings := g.Group("/mappings")
	{
		mappings.GET("", s.getMappings)
		mappings.POST("", s.setMappings)
		mappings.DELETE("", s.deleteMappings)
		mappings.GET("/:slot", s.getMapping)
		mappings.POST("/:slot", s.setMapping)
		mappings.DELETE("/:slot", s.removeMapping)
	}

	// timed is dispatched inside relayOperation
	g.GET("/:rack/:slot/relay/status", s.relayStatus)
	g.POST("/:rack/:slot/relay/:operation", s.relayOperation)
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}
