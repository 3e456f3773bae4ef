package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) (Event, error) {
	t.Helper()
	var ev Event
	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	return ev, nil
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels not initialized")
	}
	if !hub.upgrader.CheckOrigin(httptest.NewRequest(http.MethodGet, "/ws", nil)) {
		t.Error("nil checkOrigin should allow every origin")
	}
}

func TestEvent_JSON(t *testing.T) {
	event := Event{
		Type:  "import:progress",
		Topic: "job-1",
		Data:  map[string]interface{}{"processed": 75},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	if decoded.Type != event.Type || decoded.Topic != event.Topic {
		t.Errorf("Round trip changed event: %+v", decoded)
	}

	plain, _ := json.Marshal(Event{Type: "collection:updated"})
	if strings.Contains(string(plain), "topic") {
		t.Errorf("Empty topic should be omitted: %s", plain)
	}
}

func TestClient_Wants(t *testing.T) {
	tests := []struct {
		client string
		topic  string
		want   bool
	}{
		{"", "", true},
		{"", "job-1", true},
		{"job-1", "", true},
		{"job-1", "job-1", true},
		{"job-1", "job-2", false},
	}

	for _, tt := range tests {
		c := &Client{topic: tt.client}
		if got := c.wants(tt.topic); got != tt.want {
			t.Errorf("client %q wants(%q) = %v, want %v", tt.client, tt.topic, got, tt.want)
		}
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	if !hub.BroadcastEvent(Event{Type: "test:event"}) {
		t.Error("BroadcastEvent on a running hub should succeed")
	}
}

func TestHub_TopicFiltering(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	all := dial(t, server, "")
	defer all.Close()
	job1 := dial(t, server, "?job=job-1")
	defer job1.Close()
	job2 := dial(t, server, "?job=job-2")
	defer job2.Close()
	waitForClients(t, hub, 3)

	hub.BroadcastEvent(Event{Type: "import:progress", Topic: "job-1", Data: map[string]int{"processed": 1}})

	for name, conn := range map[string]*websocket.Conn{"all": all, "job1": job1} {
		ev, err := readEvent(t, conn)
		if err != nil {
			t.Fatalf("%s: failed to read event: %v", name, err)
		}
		if ev.Topic != "job-1" || ev.Type != "import:progress" {
			t.Errorf("%s: unexpected event %+v", name, ev)
		}
	}

	if _, err := readEvent(t, job2); err == nil {
		t.Error("job-2 subscriber should not receive job-1 events")
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	conn := dial(t, server, "")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	hub.Stop()
	hub.Stop()

	deadline := time.Now().Add(time.Second)
	for !hub.IsStopped() {
		if time.Now().After(deadline) {
			t.Fatal("hub did not stop")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if hub.BroadcastEvent(Event{Type: "test:event"}) {
		t.Error("BroadcastEvent after Stop should report false")
	}

	rec := httptest.NewRecorder()
	hub.ServeWs(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ServeWs after Stop = %d, want 503", rec.Code)
	}
}
