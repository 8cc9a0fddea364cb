// Package server exposes the HTTP transport: one endpoint accepting
// channel-agnostic inbound envelopes plus a health check.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopmate/config"
	"shopmate/engine"
	"shopmate/llm"
	"shopmate/log"
	"shopmate/model"
)

// Server is the HTTP front of the assistant
type Server struct {
	config *config.Config
	engine *engine.Engine
	http   *http.Server
}

// NewServer creates the HTTP server around an engine
func NewServer(cfg *config.Config, eng *engine.Engine) *Server {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{config: cfg, engine: eng}

	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/api/v1/messages", s.handleMessage)
	router.GET("/health", s.handleHealth)

	s.http = &http.Server{
		Addr:    cfg.HTTP.GetAddress(),
		Handler: router,
	}
	return s
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	log.Log.Infof("[Server] Starting HTTP server | Address: %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleMessage(c *gin.Context) {
	var inbound model.InboundMessage
	if err := c.ShouldBindJSON(&inbound); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	start := time.Now()
	reply, err := s.engine.HandleMessage(c.Request.Context(), &inbound)
	if errors.Is(err, engine.ErrDuplicateMessage) {
		// Already handled; acknowledge so the channel stops retrying.
		c.JSON(http.StatusOK, gin.H{"duplicate": true})
		return
	}
	if errors.Is(err, engine.ErrInvalidInbound) {
		log.Log.Warnf("[Server] Rejected inbound message | Channel: %s | Error: %v", inbound.Channel, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message envelope"})
		return
	}
	if err != nil {
		// An infrastructure failure never surfaces to the channel as an
		// error; the customer gets the fixed apology instead.
		log.Log.Errorf("[Server] Failed to handle message | Channel: %s | Error: %v", inbound.Channel, err)
		c.JSON(http.StatusOK, &model.Reply{Text: llm.FixedFallbackReply, Provider: "static"})
		return
	}

	log.Log.Infof("[Server] Handled message | Channel: %s | Provider: %s | ToolCalls: %d | Took: %s",
		inbound.Channel, reply.Provider, len(reply.ToolLog), time.Since(start).Round(time.Millisecond))
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
