package websocket

import (
	"log"

	"github.com/ramonehamilton/mtg-binder/internal/events"
)

// WebSocketObserver forwards dispatched events to WebSocket clients,
// keeping the event topic so job subscribers only see their job.
type WebSocketObserver struct {
	name    string
	hub     *Hub
	verbose bool
}

// NewWebSocketObserver creates a new observer that forwards events to WebSocket clients.
func NewWebSocketObserver(hub *Hub, verbose bool) *WebSocketObserver {
	return &WebSocketObserver{
		name:    "WebSocketObserver",
		hub:     hub,
		verbose: verbose,
	}
}

// OnEvent forwards the event to subscribed clients.
func (o *WebSocketObserver) OnEvent(event events.Event) error {
	if o.hub == nil {
		log.Printf("[%s] Cannot emit event %s: hub is nil", o.name, event.Type)
		return nil
	}

	o.hub.BroadcastEvent(Event{
		Type:  event.Type,
		Topic: event.Topic,
		Data:  event.Data,
	})
	if o.verbose {
		log.Printf("[%s] Broadcast %s (topic %q) to %d clients", o.name, event.Type, event.Topic, o.hub.ClientCount())
	}
	return nil
}

// GetName returns the observer's name.
func (o *WebSocketObserver) GetName() string {
	return o.name
}

// ShouldHandle returns true for all events.
func (o *WebSocketObserver) ShouldHandle(string) bool {
	return true
}

var _ events.Observer = (*WebSocketObserver)(nil)
