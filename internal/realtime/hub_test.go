package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipi-app/flipi/internal/metrics"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("messages", "conversation_id=eq.7")
	require.NoError(t, err)
	assert.Equal(t, Filter{Column: "conversation_id", Value: 7}, f)
	assert.Equal(t, "conversation_id=eq.7", f.String())

	f, err = ParseFilter("conversations", "requester_id=eq.3")
	require.NoError(t, err)
	assert.Equal(t, "requester_id", f.Column)

	bad := []struct{ table, filter string }{
		{"messages", ""},
		{"messages", "conversation_id=7"},
		{"messages", "conversation_id=eq.x"},
		{"messages", "conversation_id=eq.0"},
		{"messages", "sender_id=eq.1"},
		{"items", "id=eq.1"},
	}
	for _, tc := range bad {
		_, err := ParseFilter(tc.table, tc.filter)
		assert.Error(t, err, "%s %s", tc.table, tc.filter)
	}
}

func TestSubscriptionMatches(t *testing.T) {
	sub := subscription{table: "messages", filter: Filter{Column: "conversation_id", Value: 7}}

	assert.True(t, sub.matches(Event{Table: "messages", Keys: map[string]int64{"conversation_id": 7}}))
	assert.False(t, sub.matches(Event{Table: "messages", Keys: map[string]int64{"conversation_id": 8}}))
	assert.False(t, sub.matches(Event{Table: "conversations", Keys: map[string]int64{"conversation_id": 7}}))
	assert.False(t, sub.matches(Event{Table: "messages"}))
}

var errDenied = errors.New("denied")

// newTestHub serves the hub with the user ID taken from the "uid" query
// parameter. User 1 may subscribe to anything, everyone else is denied.
func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	auth := AuthorizeFunc(func(ctx context.Context, userID int64, table string, f Filter) error {
		if userID != 1 {
			return errDenied
		}
		return nil
	})
	hub := NewHub(auth, metrics.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
		hub.ServeWS(w, r, uid)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, uid int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.Itoa(uid)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubDeliversMatchingEvents(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, 1)

	require.NoError(t, conn.WriteJSON(map[string]string{
		"action": "subscribe", "table": "messages", "filter": "conversation_id=eq.7",
	}))
	ack := readMessage(t, conn)
	require.Equal(t, "SUBSCRIBED", ack["type"])

	hub.Publish(Event{
		Type: Insert, Table: "messages",
		Record: map[string]any{"conversation_id": 8, "content": "other"},
		Keys:   map[string]int64{"conversation_id": 8},
	})
	hub.Publish(Event{
		Type: Insert, Table: "messages",
		Record: map[string]any{"conversation_id": 7, "content": "hello"},
		Keys:   map[string]int64{"conversation_id": 7},
	})

	msg := readMessage(t, conn)
	assert.Equal(t, "INSERT", msg["type"])
	assert.Equal(t, "messages", msg["table"])
	record, ok := msg["record"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", record["content"])
}

func TestHubUnsubscribe(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, 1)

	conn.WriteJSON(map[string]string{"action": "subscribe", "table": "conversations", "filter": "id=eq.3"})
	require.Equal(t, "SUBSCRIBED", readMessage(t, conn)["type"])
	conn.WriteJSON(map[string]string{"action": "subscribe", "table": "conversations", "filter": "id=eq.4"})
	require.Equal(t, "SUBSCRIBED", readMessage(t, conn)["type"])

	conn.WriteJSON(map[string]string{"action": "unsubscribe", "table": "conversations", "filter": "id=eq.3"})
	require.Equal(t, "UNSUBSCRIBED", readMessage(t, conn)["type"])

	hub.Publish(Event{Type: Update, Table: "conversations", Record: map[string]any{"id": 3}, Keys: map[string]int64{"id": 3}})
	hub.Publish(Event{Type: Update, Table: "conversations", Record: map[string]any{"id": 4}, Keys: map[string]int64{"id": 4}})

	msg := readMessage(t, conn)
	assert.Equal(t, "UPDATE", msg["type"])
	assert.EqualValues(t, 4, msg["record"].(map[string]any)["id"])
}

func TestHubRejectsUnauthorizedSubscription(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, 2)

	conn.WriteJSON(map[string]string{"action": "subscribe", "table": "messages", "filter": "conversation_id=eq.7"})
	msg := readMessage(t, conn)
	assert.Equal(t, "ERROR", msg["type"])
	assert.Equal(t, "subscription not allowed", msg["error"])
}

func TestHubRejectsBadFilter(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, 1)

	conn.WriteJSON(map[string]string{"action": "subscribe", "table": "messages", "filter": "content=eq.1"})
	assert.Equal(t, "ERROR", readMessage(t, conn)["type"])

	conn.WriteJSON(map[string]string{"action": "subscribe", "table": "users", "filter": "id=eq.1"})
	assert.Equal(t, "ERROR", readMessage(t, conn)["type"])
}
