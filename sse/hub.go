package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/transcribe/logger"
)

const clientBuffer = 64

// Publisher sends events to every subscriber of a topic.
type Publisher interface {
	Publish(topic string, ev Event) error
}

// Client is one connected stream.
type Client struct {
	id     string
	topic  string
	events chan []byte
	once   sync.Once
}

// NewClient creates a client subscribed to topic. Its id must be unique.
func NewClient(topic, id string) *Client {
	return &Client{
		id:     topic + ":" + id,
		topic:  topic,
		events: make(chan []byte, clientBuffer),
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) Topic() string { return c.topic }

// Events returns framed events ready to write. It is closed on unregister.
func (c *Client) Events() <-chan []byte { return c.events }

// Send queues a frame. It reports false if the client is not keeping up.
func (c *Client) Send(frame []byte) bool {
	select {
	case c.events <- frame:
		return true
	default:
		logger.Warn("sse client buffer full, dropping event", logger.Fields("client_id", c.id))
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.events) })
}

type message struct {
	pattern string
	frame   []byte
}

// Hub fans events out to clients. Run owns all mutations of the client set.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        logger.WithComponent("sse"),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "clients", n))
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "clients", n))
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop closes every client and makes Run return. It is safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c. It reports false once the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		c.close()
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish encodes ev and queues it for every client of topic.
func (h *Hub) Publish(topic string, ev Event) error {
	frame, err := ev.Encode()
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message{pattern: topic + ":*", frame: frame}:
	case <-h.done:
	}
	return nil
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for id, c := range h.clients {
		ok, err := filepath.Match(m.pattern, id)
		if err != nil {
			h.log.Error("bad broadcast pattern", logger.Fields("pattern", m.pattern, logger.FieldError, err.Error()))
			return
		}
		if ok && c.Send(m.frame) {
			sent++
		}
	}
	h.log.Debug("broadcast", logger.Fields("pattern", m.pattern, "delivered", sent, logger.FieldBytes, len(m.frame)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns how many clients follow topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.topic == topic {
			n++
		}
	}
	return n
}

var _ Publisher = (*Hub)(nil)
