package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/nodebase/engine/internal/config"
	"github.com/nodebase/engine/internal/engine"
	"github.com/nodebase/engine/internal/status"
	"github.com/nodebase/engine/pkg/api"
	"github.com/nodebase/engine/pkg/util"
)

type (
	// Store is the persistence surface the HTTP API needs
	Store interface {
		SaveWorkflow(context.Context, *api.Workflow) error
		LoadWorkflow(context.Context, api.WorkflowID) (*api.Workflow, error)
		GetExecution(context.Context, api.ExecutionID) (*api.Execution, error)
		ListExecutions(
			context.Context, api.WorkflowID,
		) ([]*api.Execution, error)
	}

	// Server implements the HTTP API server for the workflow engine
	Server struct {
		engine  *engine.Engine
		store   Store
		hub     *status.Hub
		cfg     *config.Config
		sockets util.Set[*Client]
		mu      sync.Mutex
	}
)

// NewServer creates a new HTTP API server
func NewServer(
	eng *engine.Engine, st Store, hub *status.Hub, cfg *config.Config,
) *Server {
	return &Server{
		engine:  eng,
		store:   st,
		hub:     hub,
		cfg:     cfg,
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization, X-Webhook-Secret",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Webhook trigger
	router.POST("/webhooks/:workflowID", s.handleWebhook)

	// Workflow endpoints
	router.PUT("/workflows/:workflowID", s.putWorkflow)
	router.GET("/workflows/:workflowID", s.getWorkflow)
	router.POST("/workflows/:workflowID/run", s.runWorkflow)
	router.GET("/workflows/:workflowID/executions", s.listExecutions)

	// Execution endpoints
	router.GET("/executions/:executionID", s.getExecution)

	// Schedule control
	router.POST("/schedules/start", s.startSchedule)

	// WebSocket
	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, api.ErrorResponse{Error: msg, Status: status})
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
