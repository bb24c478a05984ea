package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChange(t *testing.T) {
	type testCase struct {
		name     string
		payload  string
		wantKind ChangeKind
		wantErr  bool
	}

	tests := []testCase{
		{
			name:     "Insert",
			payload:  `{"data":{"type":"INSERT","record":{"id":"n1","title":"Receipt ready"}}}`,
			wantKind: ChangeInsert,
		},
		{
			name:     "Update",
			payload:  `{"data":{"type":"UPDATE","record":{"id":"n1"},"old_record":{"id":"n1"}}}`,
			wantKind: ChangeUpdate,
		},
		{
			name:     "Delete",
			payload:  `{"data":{"type":"DELETE","old_record":{"id":"n1"}}}`,
			wantKind: ChangeDelete,
		},
		{
			name:    "UnknownType",
			payload: `{"data":{"type":"TRUNCATE"}}`,
			wantErr: true,
		},
		{
			name:    "Malformed",
			payload: `{"data":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := decodeChange(json.RawMessage(tt.payload))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, event.Kind)
		})
	}
}

func TestDecodeChange_DeleteCarriesOldRow(t *testing.T) {
	event, err := decodeChange(json.RawMessage(`{"data":{"type":"DELETE","old_record":{"id":"n9"}}}`))
	require.NoError(t, err)

	assert.Equal(t, "n9", event.Old["id"])
	assert.Nil(t, event.Record)
}

func TestChannelTopic(t *testing.T) {
	assert.Equal(t, "realtime:public:notifications", channelTopic("notifications", ""))
	assert.Equal(t,
		"realtime:public:notifications:user_id=eq.u1",
		channelTopic("notifications", (&Filter{Column: "user_id", Value: "u1"}).encode()))
}

func TestFilter_EncodeNil(t *testing.T) {
	var f *Filter
	assert.Equal(t, "", f.encode())
}

// fakeRealtime upgrades one connection and replays the frames it is given
// after observing the channel join.
func fakeRealtime(t *testing.T, frames []message) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		var join message
		require.NoError(t, conn.ReadJSON(&join))
		require.Equal(t, eventJoin, join.Event)

		ack := message{Topic: join.Topic, Event: eventReply, Payload: json.RawMessage(`{"status":"ok"}`), Ref: join.Ref}
		require.NoError(t, conn.WriteJSON(&ack))

		for _, f := range frames {
			if f.Topic == "" {
				f.Topic = join.Topic
			}

			require.NoError(t, conn.WriteJSON(&f))
		}

		// Hold the socket open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestBridge_SubscribeReceivesEvents(t *testing.T) {
	frames := []message{
		{Event: eventChanges, Payload: json.RawMessage(`{"data":{"type":"INSERT","record":{"id":"n1","priority":"high"}}}`)},
		{Event: eventChanges, Payload: json.RawMessage(`{"data":{"type":"UPDATE","record":{"id":"n1","priority":"low"}}}`)},
		{Event: eventChanges, Payload: json.RawMessage(`{"data":{"type":"DELETE","old_record":{"id":"n1"}}}`)},
	}

	server := fakeRealtime(t, frames)
	defer server.Close()

	url := strings.Replace(server.URL, "http://", "ws://", 1)

	bridge := NewBridge(url, "anon-key", func() string { return "token" }, nil, nil)

	inserted := make(chan Row, 1)
	updated := make(chan Row, 1)
	deleted := make(chan Row, 1)

	sub, err := bridge.Subscribe("notifications", &Filter{Column: "user_id", Value: "u1"}, Callbacks{
		OnInsert: func(r Row) { inserted <- r },
		OnUpdate: func(r Row) { updated <- r },
		OnDelete: func(r Row) { deleted <- r },
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, bridge.Connect(context.Background()))
	defer bridge.Close()

	select {
	case row := <-inserted:
		assert.Equal(t, "n1", row["id"])
		assert.Equal(t, "high", row["priority"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for insert event")
	}

	select {
	case row := <-updated:
		assert.Equal(t, "low", row["priority"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update event")
	}

	select {
	case row := <-deleted:
		assert.Equal(t, "n1", row["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delete event")
	}

	assert.Equal(t, StateConnected, bridge.State())
}

// flakyRealtime upgrades connections like fakeRealtime but drops the
// first one right after acking the join, forcing the bridge through its
// reconnect path. Every observed join topic is reported on joined.
func flakyRealtime(t *testing.T, joined chan<- string, frames []message) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}

	var conns atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		var join message
		require.NoError(t, conn.ReadJSON(&join))
		require.Equal(t, eventJoin, join.Event)
		joined <- join.Topic

		ack := message{Topic: join.Topic, Event: eventReply, Payload: json.RawMessage(`{"status":"ok"}`), Ref: join.Ref}
		require.NoError(t, conn.WriteJSON(&ack))

		if n == 1 {
			conn.Close()
			return
		}

		for _, f := range frames {
			if f.Topic == "" {
				f.Topic = join.Topic
			}

			require.NoError(t, conn.WriteJSON(&f))
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestBridge_ReconnectRejoinsChannels(t *testing.T) {
	joined := make(chan string, 4)
	frames := []message{
		{Event: eventChanges, Payload: json.RawMessage(`{"data":{"type":"INSERT","record":{"id":"n2"}}}`)},
	}

	server := flakyRealtime(t, joined, frames)
	defer server.Close()

	url := strings.Replace(server.URL, "http://", "ws://", 1)

	states := make(chan State, 8)
	bridge := NewBridge(url, "anon-key", func() string { return "token" }, nil, func(s State) { states <- s })

	inserted := make(chan Row, 1)

	sub, err := bridge.Subscribe("notifications", nil, Callbacks{
		OnInsert: func(r Row) { inserted <- r },
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, bridge.Connect(context.Background()))
	defer bridge.Close()

	// First join, then the server drops the socket and the bridge must
	// redial and rejoin the same channel on its own.
	wantTopic := channelTopic("notifications", "")
	for i := 0; i < 2; i++ {
		select {
		case topic := <-joined:
			assert.Equal(t, wantTopic, topic)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for join %d", i+1)
		}
	}

	select {
	case row := <-inserted:
		assert.Equal(t, "n2", row["id"])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event after reconnect")
	}

	assert.Equal(t, StateConnected, bridge.State())

	var seen []State
	for len(states) > 0 {
		seen = append(seen, <-states)
	}
	assert.Contains(t, seen, StateReconnecting)
}

func TestBridge_ConnectRetriesInitialDialFailure(t *testing.T) {
	upgrader := websocket.Upgrader{}

	var attempts atomic.Int32
	inserted := make(chan Row, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reject the handshake once so the very first dial fails.
		if attempts.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		var join message
		require.NoError(t, conn.ReadJSON(&join))
		require.Equal(t, eventJoin, join.Event)

		ack := message{Topic: join.Topic, Event: eventReply, Payload: json.RawMessage(`{"status":"ok"}`), Ref: join.Ref}
		require.NoError(t, conn.WriteJSON(&ack))

		event := message{Topic: join.Topic, Event: eventChanges, Payload: json.RawMessage(`{"data":{"type":"INSERT","record":{"id":"n3"}}}`)}
		require.NoError(t, conn.WriteJSON(&event))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	url := strings.Replace(server.URL, "http://", "ws://", 1)

	bridge := NewBridge(url, "anon-key", func() string { return "token" }, nil, nil)

	sub, err := bridge.Subscribe("notifications", nil, Callbacks{
		OnInsert: func(r Row) { inserted <- r },
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// The failed dial is reported, but the bridge keeps redialing in the
	// background and must come up without another Connect call.
	require.Error(t, bridge.Connect(context.Background()))
	defer bridge.Close()

	select {
	case row := <-inserted:
		assert.Equal(t, "n3", row["id"])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event after background retry")
	}

	assert.Equal(t, StateConnected, bridge.State())
}

func TestBridge_DuplicateSubscription(t *testing.T) {
	bridge := NewBridge("ws://unused", "anon-key", func() string { return "" }, nil, nil)

	_, err := bridge.Subscribe("receipts", nil, Callbacks{})
	require.NoError(t, err)

	_, err = bridge.Subscribe("receipts", nil, Callbacks{})
	assert.Error(t, err)
}
