package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/snapshot"
	"market-sync/src/stream"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// BridgeServer relays router events to UI clients over websockets and exposes
// the snapshot cache over REST. Hub pattern: one goroutine owns the client
// set; slow clients are pruned so the fan-out loop never blocks.
// -----------------------------------------------------------------------------

type BridgeServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	router *stream.StreamRouter
	snaps  *snapshot.SnapshotCache

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MStreamPayload
	register   chan *Client
	unregister chan *Client

	stateMutex   sync.RWMutex
	detachPrice  interfaces.DetachFunc
	detachCandle interfaces.DetachFunc
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewBridgeServer(cfg *models.MConfig, router *stream.StreamRouter, snaps *snapshot.SnapshotCache, log *logger.Logger) *BridgeServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &BridgeServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.Default(),
		router:  router,
		snaps:   snaps,
		clients: make(map[*Client]struct{}),
		// Buffered queue so tick bursts do not block the emitters
		broadcast:  make(chan *models.MStreamPayload, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// CORS for local UI development
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	s.attachStream()
	return s
}

// -----------------------------------------------------------------------------

func (s *BridgeServer) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/snapshot", s.getSnapshot)
	s.engine.GET("/api/history", s.getHistory)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// attachStream pipes router events into the hub's broadcast queue.
func (s *BridgeServer) attachStream() {
	s.detachPrice = s.router.OnPrice(func(tick models.MTick) {
		s.enqueue(&models.MStreamPayload{
			Type:      "price",
			Tick:      &tick,
			Timestamp: tick.Timestamp.UnixMilli(),
		})
	})

	s.detachCandle = s.router.OnCandle(func(event models.MCandleEvent) {
		s.enqueue(&models.MStreamPayload{
			Type:      "candle",
			Candle:    &event,
			Timestamp: event.Candle.BucketStart.UnixMilli(),
		})
	})
}

// -----------------------------------------------------------------------------

// enqueue drops the payload when the queue is saturated; ticks are ephemeral.
func (s *BridgeServer) enqueue(payload *models.MStreamPayload) {
	select {
	case s.broadcast <- payload:
	default:
		s.Logger.Debug("Broadcast queue full, dropping %s payload", payload.Type)
	}
}

// -----------------------------------------------------------------------------
// Hub loop
// -----------------------------------------------------------------------------

func (s *BridgeServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			s.stateMutex.Unlock()

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case payload := <-s.broadcast:
			s.stateMutex.Lock()
			for client := range s.clients {
				select {
				case client.send <- payload:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *BridgeServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MStreamPayload, 256),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *BridgeServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	s.stateMutex.RUnlock()

	fields := s.snaps.Fields()
	c.JSON(200, gin.H{
		"status":         "ok",
		"connections":    connections,
		"snapshot_valid": fields.IsValid,
		"latest_update":  fields.LastUpdate.UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

func (s *BridgeServer) getSnapshot(c *gin.Context) {
	c.JSON(200, s.snaps.Fields())
}

// -----------------------------------------------------------------------------

func (s *BridgeServer) getHistory(c *gin.Context) {
	symbol := c.Query("symbol")
	timeframe := c.DefaultQuery("timeframe", "1m")
	n, err := strconv.Atoi(c.DefaultQuery("count", "100"))
	if err != nil || symbol == "" {
		c.JSON(400, gin.H{"error": "symbol and a numeric count are required"})
		return
	}

	c.JSON(200, gin.H{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   s.router.CandleHistory(symbol, timeframe, n),
	})
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *BridgeServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting bridge server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *BridgeServer) Stop() error {
	if s.detachPrice != nil {
		s.detachPrice()
	}
	if s.detachCandle != nil {
		s.detachCandle()
	}
	return nil
}
