package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/buildsite-dev/buildsite/internal/logging"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/buildsite-dev/buildsite/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	userClients   = make(map[string]map[*websocket.Conn]bool)
	userClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastUserRefresh hints a user's live subscribers that their profile or
// claims changed. On "claims_updated" the client is expected to force a token
// refresh, since the claims in its current token are stale until then.
func BroadcastUserRefresh(uid string, kind string) {
	userClientsMu.RLock()
	clients, exists := userClients[uid]
	if !exists || len(clients) == 0 {
		userClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	userClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			logging.L().Warn("setting write deadline for broadcast", zap.Error(err))
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type": kind,
			"uid":  uid,
		})

		if err != nil {
			logging.L().Warn("broadcasting refresh hint", zap.String("uid", uid), zap.Error(err))
			userClientsMu.Lock()
			if clients, exists := userClients[uid]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(userClients, uid)
				}
			}
			userClientsMu.Unlock()
			conn.Close()
		}
	}
}

// WebSocket is the authenticated live subscription for the caller's own
// profile document and claims.
func WebSocket(c *gin.Context) {
	uid, err := utils.GetCurrentUID(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.L().Warn("setting initial read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	userClientsMu.Lock()
	if userClients[uid] == nil {
		userClients[uid] = make(map[*websocket.Conn]bool)
	}
	userClients[uid][conn] = true
	userClientsMu.Unlock()

	defer func() {
		userClientsMu.Lock()

		if clients, exists := userClients[uid]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(userClients, uid)
			}
		}

		userClientsMu.Unlock()
		conn.Close()

		logging.L().Info("websocket closed", zap.String("uid", uid))
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	err = conn.WriteJSON(map[string]string{
		"type": "connected",
		"uid":  uid,
	})

	if err != nil {
		logging.L().Warn("sending welcome message", zap.String("uid", uid), zap.Error(err))
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.L().Warn("websocket error", zap.String("uid", uid), zap.Error(err))
			}
			break
		}
	}
}
