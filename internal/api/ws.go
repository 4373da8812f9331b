package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsSendBufferSize = 16
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards connect from separate origins; auth happens upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AlertHub fans raised alerts out to connected websocket clients. Slow
// clients are disconnected rather than allowed to block the broadcast.
type AlertHub struct {
	log *logrus.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan *domain.RiskAlert
	// patientID filters the stream; empty receives all patients.
	patientID string
}

// NewAlertHub creates an empty hub.
func NewAlertHub(logger *logrus.Logger) *AlertHub {
	return &AlertHub{
		log:     logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast queues an alert for every subscribed client. A client whose
// send buffer is full is unregistered; its writer goroutine sees the
// closed channel and shuts the connection down.
func (h *AlertHub) Broadcast(alert *domain.RiskAlert) {
	var slow []*wsClient

	h.mu.RLock()
	for client := range h.clients {
		if client.patientID != "" && client.patientID != alert.PatientID {
			continue
		}
		select {
		case client.send <- alert:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("Disconnecting slow websocket client")
		h.unregister(client)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *AlertHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *AlertHub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *AlertHub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// handleAlertStream upgrades the connection and streams alerts until the
// client disconnects. An optional patient_id query filters the stream.
func (h *AlertHub) handleAlertStream(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn:      conn,
		send:      make(chan *domain.RiskAlert, wsSendBufferSize),
		patientID: c.Query("patient_id"),
	}
	h.register(client)

	go h.writePump(client)
	go h.readPump(client)
}

func (h *AlertHub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case alert, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(alert); err != nil {
				h.unregister(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(client)
				return
			}
		}
	}
}

func (h *AlertHub) readPump(client *wsClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
