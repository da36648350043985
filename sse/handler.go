package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/transcribe/logger"
)

// DefaultKeepAlive stays under common proxy idle timeouts.
const DefaultKeepAlive = 30 * time.Second

// ConnectedEvent is the payload of the first event on a stream.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

// StreamOptions tune ServeSSE.
type StreamOptions struct {
	KeepAlive time.Duration
	// Initial events are written right after the connected event.
	Initial []Event
}

// ServeSSE streams topic to w until the request ends or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, topic string, opts StreamOptions) {
	log := logger.WithComponent("sse").WithContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported by response writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	// Long-lived streams must outlive the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not clear write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(topic, uuid.NewString())
	if !hub.Register(client) {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	first := append([]Event{{Type: EventTypeConnected, Data: ConnectedEvent{ClientID: client.ID(), Topic: topic}}}, opts.Initial...)
	for _, ev := range first {
		frame, err := ev.Encode()
		if err != nil {
			log.Error("encode initial event", logger.Fields(logger.FieldError, err.Error()))
			continue
		}
		_, _ = w.Write(frame)
	}
	flusher.Flush()
	log.Debug("client connected", logger.Fields("client_id", client.ID(), "remote_addr", r.RemoteAddr))

	interval := opts.KeepAlive
	if interval <= 0 {
		interval = DefaultKeepAlive
	}
	keepAlive := time.NewTicker(interval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("client_id", client.ID()))
			return
		case frame, ok := <-client.Events():
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
