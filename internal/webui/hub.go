package webui

import (
	"encoding/json"
	"log/slog"
	"sync"

	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/metrics"
	"pebfutar.app/internal/presentation"
)

// Frame is one render instruction as streamed to websocket clients.
type Frame struct {
	Type     string                 `json:"type"`
	Flow     *presentation.Flow     `json:"flow,omitempty"`
	Sections []presentation.Section `json:"sections,omitempty"`
	Status   *presentation.Status   `json:"status,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Body     string                 `json:"body,omitempty"`
	Screen   string                 `json:"screen,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

// Client is one connected stream. Frames that do not fit in Send are
// dropped for that client only.
type Client struct {
	ID   string
	Send chan []byte
}

func NewClient(id string, bufferSize int) *Client {
	return &Client{ID: id, Send: make(chan []byte, bufferSize)}
}

// Hub is a presentation.Renderer that fans render frames out to websocket
// clients. It keeps the latest frame of each kind so a new client starts
// from the current picture.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	latest  map[string][]byte
	order   []string

	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHub(m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		latest:  make(map[string][]byte),
		metrics: m,
		logger:  logger.With(slog.String("component", "hub")),
	}
}

func (h *Hub) Sections(flow presentation.Flow, sections []presentation.Section) {
	h.publish("sections:"+flow.String(), Frame{Type: "sections", Flow: &flow, Sections: sections})
}

func (h *Hub) Status(status presentation.Status) {
	h.publish("status", Frame{Type: "status", Status: &status})
}

func (h *Hub) Detail(title, body string) {
	h.publish("detail", Frame{Type: "detail", Title: title, Body: body})
}

func (h *Hub) Show(screen presentation.Screen) {
	h.publish("show", Frame{Type: "show", Screen: screen.String()})
}

// Register adds c and queues the current picture for it.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	for _, key := range h.order {
		h.deliver(c, h.latest[key])
	}
	h.metrics.SetWSClients(len(h.clients))
	h.logger.Debug("client registered", slog.String("client_id", c.ID), slog.Int("total", len(h.clients)))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.metrics.SetWSClients(len(h.clients))
	h.logger.Debug("client unregistered", slog.String("client_id", c.ID), slog.Int("total", len(h.clients)))
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) publish(key string, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		logging.LogError(h.logger, "failed to encode frame", err, slog.String("frame", f.Type))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.latest[key]; !ok {
		h.order = append(h.order, key)
	}
	h.latest[key] = data
	for c := range h.clients {
		h.deliver(c, data)
	}
}

func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.logger.Debug("client send buffer full", slog.String("client_id", c.ID))
	}
}
