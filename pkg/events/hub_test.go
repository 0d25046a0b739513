package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gridstake/gridstake/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscriber(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.Size() == 1
	}, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	conn := newSubscriber(t, hub)

	require.NoError(t, hub.Broadcast(Event{
		Type: EventTypeGameStarted,
		Data: map[string]interface{}{"game_id": 1},
	}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, string(EventTypeGameStarted), event.Type)
	assert.Equal(t, float64(1), event.Data["game_id"])
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	conn := newSubscriber(t, hub)
	hub.Unregister(conn)
	assert.Equal(t, 0, hub.Size())
}

func TestWorker_Flush(t *testing.T) {
	hub := NewHub()
	conn := newSubscriber(t, hub)

	q := queue.NewInMemoryQueue()
	w := NewWorker(NewWorkerOptions{Queue: q, Hub: hub})
	q.Enqueue(Event{Type: EventTypeMoveMade})

	w.flush()
	assert.Equal(t, 0, q.Size())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), string(EventTypeMoveMade))
}
