// Package server exposes the relay hub over HTTP.
package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"drawing-board/config"
	"drawing-board/hub"
	"drawing-board/internal/logx"
)

// NewRouter wires the WebSocket endpoint, health and stats routes, and the
// optional static client.
func NewRouter(cfg config.Config, h *hub.Hub, logger *zap.Logger) *gin.Engine {
	logger = logx.OrNop(logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), Logging(logger), CORS(cfg))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return cfg.OriginAllowed(req.Header.Get("Origin"))
		},
	}

	r.GET("/ws", handleWebSocket(h, upgrader, cfg.SendBuffer, logger))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"participants": h.Count()})
	})

	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
		r.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(cfg.StaticDir, "index.html"))
		})
	}

	return r
}

func handleWebSocket(h *hub.Hub, upgrader websocket.Upgrader, bufSize int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already replied to the client
			logger.Warn("websocket upgrade failed",
				zap.String("origin", c.GetHeader("Origin")),
				zap.Error(err))
			return
		}

		client := hub.NewClient(uuid.NewString(), conn, h, bufSize)
		client.Serve()
	}
}
