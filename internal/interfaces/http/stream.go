package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamMessage is one frame pushed to a read-model stream
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StreamHandler pushes a session's read model over a WebSocket after every change
type StreamHandler struct {
	upgrader websocket.Upgrader
	logger   Logger
}

// NewStreamHandler creates a stream handler accepting the given origins.
// With no origins only same-origin handshakes are accepted.
func NewStreamHandler(allowedOrigins []string, logger Logger) *StreamHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	if len(allowedOrigins) > 0 {
		upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return &StreamHandler{upgrader: upgrader, logger: logger}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

// Stream handles GET /api/session/stream
func (s *StreamHandler) Stream(c *gin.Context) {
	sess := currentSession(c)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	go s.readPump(conn, cancel)

	s.logger.Info("Read model stream opened", "principal_id", sess.Principal.ID)

	models := sess.Aggregator.Watch(ctx)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case model, ok := <-models:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				s.logger.Info("Read model stream closed", "principal_id", sess.Principal.ID)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(StreamMessage{Type: "model", Data: model}); err != nil {
				s.logger.Info("Read model stream write failed", "principal_id", sess.Principal.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and cancels the stream once the peer goes away
func (s *StreamHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
