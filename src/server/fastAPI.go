package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	feed    *datafeed.Datafeed
	archive interfaces.IBarArchive // optional
	engine  *gin.Engine
	http    *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	broadcast  chan *models.MBarUpdate
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	// live subscription uid -> owning websocket client
	ownerMu sync.Mutex
	owners  map[string]*Client

	stateMutex  sync.RWMutex
	connections int
	lastUpdate  int64
}

var _ interfaces.IDataExchanger = (*FastAPIServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, feed *datafeed.Datafeed, log *logger.Logger) *FastAPIServer {
	if log == nil {
		log = logger.NewLogger(cfg, "FastAPIServer")
	}
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Logger:  log,
		feed:    feed,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Buffered so polling goroutines never wait on the hub
		broadcast:  make(chan *models.MBarUpdate, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		owners:     make(map[string]*Client),
	}
	if feed != nil {
		feed.SetStopListener(s.onSubscriptionStopped)
	}

	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/config", s.getConfig)
	api.GET("/symbols", s.getSymbol)
	api.GET("/search", s.getSearch)
	api.GET("/history", s.getHistory)
	api.GET("/health", s.getHealth)
	api.GET("/status", s.getStatus)
	api.GET("/archive", s.getArchive)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// SetArchive enables /api/archive. Call before Start.
func (s *FastAPIServer) SetArchive(archive interfaces.IBarArchive) {
	s.archive = archive
}

// Handler exposes the router, mainly for httptest.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP. Blocks until Stop.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.stateMutex.Lock()
	s.http = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	srv := s.http
	s.stateMutex.Unlock()

	go s.handleWebsockets()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.stateMutex.RLock()
		srv := s.http
		s.stateMutex.RUnlock()

		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = srv.Shutdown(ctx)
			cancel()
		}
		close(s.quit)
	})
	return err
}
