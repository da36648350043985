package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Event types sent on a session stream.
const (
	// EventTypeConnected is the first event on every stream.
	EventTypeConnected = "connected"

	// EventTypeState carries a full session view after each transition.
	EventTypeState = "state"

	// EventTypeSummary is sent when a summary becomes available.
	EventTypeSummary = "summary"

	// EventTypeError carries a user-facing failure message.
	EventTypeError = "error"
)

// Event is one message on a stream. Data is encoded as JSON.
type Event struct {
	Type string
	ID   string
	Data any
}

// Encode frames the event in text/event-stream format.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s event: %w", e.Type, err)
	}
	var buf bytes.Buffer
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", sanitizeField(e.ID))
	}
	if e.Type != "" {
		fmt.Fprintf(&buf, "event: %s\n", sanitizeField(e.Type))
	}
	fmt.Fprintf(&buf, "data: %s\n\n", data)
	return buf.Bytes(), nil
}

// Topic is the client id prefix used for one session's subscribers.
func Topic(sessionID string) string {
	return "session:" + sessionID
}

func sanitizeField(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
