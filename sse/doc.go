// Package sse pushes session state to browsers over Server-Sent Events.
//
// A Hub routes encoded frames to clients subscribed to a topic, one topic
// per session. ServeSSE streams a topic to a single response, starting with
// a connected event and any initial events, then heartbeats until the
// request or the hub ends.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	_ = hub.Publish(sse.Topic(id), sse.Event{Type: sse.EventTypeState, Data: snap})
package sse
