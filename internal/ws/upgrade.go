package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pixcharge/config"
	"pixcharge/internal/auth"
	"pixcharge/internal/models"
	"pixcharge/pkg/pix"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PaymentLookup resolves the txid a subscriber asks for.
type PaymentLookup interface {
	GetPayment(ctx context.Context, txid string) (*models.Payment, error)
}

// UpgradeStatusWS authenticates with the token query parameter, checks the
// payment exists, then streams its status changes. The first message is the
// current stored status.
func UpgradeStatusWS(cfg *config.APIConfig, hub *Hub, payments PaymentLookup, notFound error, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}
		claims, err := auth.ParseServiceToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		txid := c.Param("txid")
		p, err := payments.GetPayment(c.Request.Context(), txid)
		if err != nil {
			switch {
			case errors.Is(err, notFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			case errors.Is(err, pix.ErrInvalidTxid):
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid txid"})
			default:
				log.Error().Err(err).Str("txid", txid).Msg("status subscriber lookup failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(txid, claims.Subject)
		hub.Register(client)
		defer client.Close()

		snapshot, _ := json.Marshal(gin.H{"type": "snapshot", "txid": p.Txid, "status": p.Status, "at": p.UpdatedAt})
		client.deliver(snapshot)

		log.Debug().Str("txid", txid).Str("caller", claims.Subject).Msg("status subscriber connected")
		go writePump(client, conn)
		readPump(conn)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump discards inbound frames and returns when the peer goes away.
func readPump(conn *websocket.Conn) {
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
