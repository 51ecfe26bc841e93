package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/audition/internal/queue"
	"github.com/yoockh/audition/internal/services"
	"github.com/yoockh/audition/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WSHandler streams transcript status events for one audition.
type WSHandler struct {
	auditions services.AuditionService
	redis     *redis.Client
	log       *logrus.Logger
	upgrader  websocket.Upgrader
}

func NewWSHandler(auditions services.AuditionService, rdb *redis.Client, log *logrus.Logger, origins []string) *WSHandler {
	allow := map[string]struct{}{}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allow[o] = struct{}{}
	}
	return &WSHandler{
		auditions: auditions,
		redis:     rdb,
		log:       log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || wildcard {
					return true
				}
				_, ok := allow[origin]
				return ok
			},
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(kind int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(kind, b)
}

func (h *WSHandler) AuditionStatus(c *gin.Context) {
	const op = "WSHandler.AuditionStatus"

	userID, ok := resolveUserID(c, op, c.Query("user_id"))
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	sess, err := h.auditions.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return
	}

	ctx := c.Request.Context()
	pubsub := h.redis.Subscribe(ctx, queue.StatusChannel(sessionID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "status stream unavailable", err))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()
	wc := &wsConn{c: conn}

	log := h.log.WithField("session_id", sessionID)
	log.Debug("status stream opened")

	// reader: only control frames are expected; its exit ends the stream
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	msgs := pubsub.Channel()

	// writer: Redis Pub/Sub -> WS
	for {
		select {
		case <-readDone:
			log.Debug("status stream closed by client")
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := wc.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// forward as-is (payload is a queue.StatusEvent)
			if err := wc.write(websocket.TextMessage, []byte(m.Payload)); err != nil {
				return
			}
		}
	}
}
