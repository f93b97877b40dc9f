package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type allowList map[string][]string // userID -> topics

func (a allowList) CanJoin(userID, topic string) bool {
	for _, t := range a[userID] {
		if t == topic {
			return true
		}
	}
	return false
}

func dialTestHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, userID, w, r)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) OutgoingFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame OutgoingFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame IncomingFrame) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

func TestHub_JoinAndReceive(t *testing.T) {
	hub := NewHub(allowList{"maya": {"trip:t1"}})
	go hub.Run()

	conn := dialTestHub(t, hub, "maya")
	sendFrame(t, conn, IncomingFrame{Action: "join", Topic: "trip:t1", Ref: "1"})
	joined := readFrame(t, conn)
	require.Equal(t, "joined", joined.Event)
	require.Equal(t, "1", joined.Ref)

	hub.Publish("trip:t1", EventMessageNew, map[string]string{"content": "hello"})

	frame := readFrame(t, conn)
	require.Equal(t, EventMessageNew, frame.Event)
	require.Equal(t, "trip:t1", frame.Topic)
}

func TestHub_JoinDeniedForNonMembers(t *testing.T) {
	hub := NewHub(allowList{"maya": {"trip:t1"}})
	go hub.Run()

	conn := dialTestHub(t, hub, "stranger")
	sendFrame(t, conn, IncomingFrame{Action: "join", Topic: "trip:t1", Ref: "1"})
	denied := readFrame(t, conn)
	require.Equal(t, "join_denied", denied.Event)

	// Nothing published to the topic should reach this connection.
	hub.Publish("trip:t1", EventMessageNew, "secret")
	sendFrame(t, conn, IncomingFrame{Action: "heartbeat", Ref: "2"})
	frame := readFrame(t, conn)
	require.Equal(t, "heartbeat_ack", frame.Event)
}

func TestHub_TopicsAreIsolated(t *testing.T) {
	hub := NewHub(allowList{"maya": {"trip:t1", "trip:t2"}})
	go hub.Run()

	conn := dialTestHub(t, hub, "maya")
	sendFrame(t, conn, IncomingFrame{Action: "join", Topic: "trip:t1"})
	require.Equal(t, "joined", readFrame(t, conn).Event)

	hub.Publish("trip:t2", EventBroadcast, "other trip")
	hub.Publish("trip:t1", EventBroadcast, "mine")

	frame := readFrame(t, conn)
	require.Equal(t, "trip:t1", frame.Topic)
	require.Equal(t, "mine", frame.Payload)
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub(allowList{"maya": {"trip:t1"}})
	go hub.Run()

	conn := dialTestHub(t, hub, "maya")
	sendFrame(t, conn, IncomingFrame{Action: "join", Topic: "trip:t1"})
	require.Equal(t, "joined", readFrame(t, conn).Event)

	sendFrame(t, conn, IncomingFrame{Action: "leave", Topic: "trip:t1"})
	require.Equal(t, "left", readFrame(t, conn).Event)

	hub.Publish("trip:t1", EventMessageNew, "after leave")
	sendFrame(t, conn, IncomingFrame{Action: "heartbeat"})
	require.Equal(t, "heartbeat_ack", readFrame(t, conn).Event)
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := NewHub(allowList{"maya": {"trip:t1"}, "jordan": {"trip:t1"}})
	go hub.Run()

	a := dialTestHub(t, hub, "maya")
	b := dialTestHub(t, hub, "jordan")
	sendFrame(t, a, IncomingFrame{Action: "join", Topic: "trip:t1"})
	require.Equal(t, "joined", readFrame(t, a).Event)
	sendFrame(t, b, IncomingFrame{Action: "join", Topic: "trip:t1"})
	require.Equal(t, "joined", readFrame(t, b).Event)

	hub.Publish("trip:t1", EventReaction, "both get this")

	require.Equal(t, EventReaction, readFrame(t, a).Event)
	require.Equal(t, EventReaction, readFrame(t, b).Event)
}

func TestHub_SlowClientDroppedFromAllTopics(t *testing.T) {
	hub := NewHub(allowList{"maya": {"trip:t1"}, "slow": {"trip:t1", "trip:t2"}})
	go hub.Run()

	// An unbuffered send channel with no reader fills on the first publish.
	slow := &Client{hub: hub, send: make(chan []byte), userID: "slow", topics: make(map[string]bool)}
	hub.register <- slow
	require.True(t, hub.join(slow, "trip:t1"))
	require.True(t, hub.join(slow, "trip:t2"))

	hub.Publish("trip:t1", EventMessageNew, "first")

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return !hub.clients[slow] && hub.topics["trip:t1"][slow] == false && hub.topics["trip:t2"][slow] == false
	}, 2*time.Second, 10*time.Millisecond, "dropped client should leave every topic")

	select {
	case _, open := <-slow.send:
		require.False(t, open, "send channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed")
	}

	// The hub keeps serving: a second publish on the same topic must reach a
	// healthy subscriber instead of hitting the dropped client's channel.
	conn := dialTestHub(t, hub, "maya")
	sendFrame(t, conn, IncomingFrame{Action: "join", Topic: "trip:t1"})
	require.Equal(t, "joined", readFrame(t, conn).Event)

	hub.Publish("trip:t1", EventMessageNew, "second")
	frame := readFrame(t, conn)
	require.Equal(t, EventMessageNew, frame.Event)
	require.Equal(t, "second", frame.Payload)
}
