package ws

import (
	"context"
	"encoding/json"
	"sync"

	"pixcharge/internal/domain"
)

// Client is one websocket subscriber of a single txid.
type Client struct {
	Txid   string
	Caller string
	Send   chan []byte
	hub    *Hub
	mu     sync.Mutex
	closed bool
}

func NewClient(txid, caller string) *Client {
	return &Client{Txid: txid, Caller: caller, Send: make(chan []byte, 16)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.Send)
}

// deliver drops the message when the client is slow or already closed.
func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// Message is what subscribers receive.
type Message struct {
	Type string `json:"type"`
	domain.StatusChange
}

// Hub tracks subscribers per txid and pushes status changes to them.
type Hub struct {
	mu     sync.RWMutex
	byTxid map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byTxid: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byTxid[c.Txid] == nil {
		h.byTxid[c.Txid] = make(map[*Client]struct{})
	}
	h.byTxid[c.Txid][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byTxid[c.Txid]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byTxid, c.Txid)
		}
	}
}

// PublishStatus sends ev to every subscriber of ev.Txid.
func (h *Hub) PublishStatus(ctx context.Context, ev domain.StatusChange) error {
	data, err := json.Marshal(Message{Type: "status", StatusChange: ev})
	if err != nil {
		return err
	}
	h.mu.RLock()
	m := h.byTxid[ev.Txid]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.deliver(data)
	}
	return nil
}

func (h *Hub) SubscriberCount(txid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTxid[txid])
}
