package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 64
)

// Push получает подписчик треда.
type Push struct {
	Type       string             `json:"type"`
	TrackingID string             `json:"tracking_id"`
	Message    models.ChatMessage `json:"message"`
}

type client struct {
	id         string
	trackingID string
	conn       *websocket.Conn
	send       chan []byte
}

// Hub держит подписчиков по tracking_id. Доступ к треду проверяется до апгрейда соединения.
type Hub struct {
	mu       sync.RWMutex
	threads  map[string]map[string]*client
	upgrader websocket.Upgrader
	allowed  map[string]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		threads: make(map[string]map[string]*client),
		allowed: make(map[string]struct{}),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// WithAllowedOrigins разрешает апгрейд со страниц этих origin'ов помимо собственного хоста.
// Пустой список оставляет только same-origin.
func (h *Hub) WithAllowedOrigins(origins ...string) *Hub {
	for _, o := range origins {
		if o = normalizeOrigin(o); o != "" {
			h.allowed[o] = struct{}{}
		}
	}
	return h
}

// checkOrigin пропускает клиентов без Origin (не браузер), свой хост и список разрешённых.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	_, ok := h.allowed[normalizeOrigin(origin)]
	if !ok {
		h.logger.Warn("ws origin rejected", "origin", origin)
	}
	return ok
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

// Serve апгрейдит запрос и подписывает соединение на тред до его закрытия.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, trackingID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "tracking_id", trackingID, "err", err)
		return
	}
	c := &client{
		id:         uuid.NewString(),
		trackingID: trackingID,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast не блокирует: медленный подписчик отключается.
func (h *Hub) Broadcast(trackingID string, msg models.ChatMessage) {
	b, err := json.Marshal(Push{Type: "message", TrackingID: trackingID, Message: msg})
	if err != nil {
		h.logger.Warn("ws push marshal failed", "tracking_id", trackingID, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.threads[trackingID] {
		select {
		case c.send <- b:
		default:
			h.dropLocked(trackingID, id)
		}
	}
}

func (h *Hub) Subscribers(trackingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads[trackingID])
}

// Close отключает всех подписчиков.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for tid, subs := range h.threads {
		for id := range subs {
			h.dropLocked(tid, id)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.threads[c.trackingID]
	if subs == nil {
		subs = make(map[string]*client)
		h.threads[c.trackingID] = subs
	}
	subs[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c.trackingID, c.id)
}

func (h *Hub) dropLocked(trackingID, id string) {
	subs := h.threads[trackingID]
	c, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.threads, trackingID)
	}
	close(c.send)
}

// readPump нужен только для pong и обнаружения закрытия; входящие данные игнорируются.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("ws read closed", "tracking_id", c.trackingID, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
