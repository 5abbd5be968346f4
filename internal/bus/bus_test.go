package bus

import (
	"context"
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

func wsURL(srv *httptest.Server) string { return "ws" + strings.TrimPrefix(srv.URL, "http") }

func TestClientReceivesAndPublishes(t *testing.T) {
	t.Parallel()

	replies := make(chan Message, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(Message{From: "phone", To: "other", Kind: KindText, Content: "ignored"})
		_ = conn.WriteJSON(Message{From: "phone", To: "hark", Kind: KindReply, Content: "ignored"})
		_ = conn.WriteJSON(Message{From: "phone", To: "HARK", Kind: KindText, Content: "open firefox"})

		var m Message
		if err := conn.ReadJSON(&m); err == nil {
			replies <- m
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c *Client
	c = New(wsURL(srv), func(_ context.Context, m Message) {
		_ = c.Publish(Message{To: m.From, Kind: KindReply, Content: "got " + m.Content})
	}, WithRetry(10*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case m := <-replies:
		assert.Equal(t, Message{From: "hark", To: "phone", Kind: KindReply, Content: "got open firefox"}, m)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestClientReconnects(t *testing.T) {
	t.Parallel()

	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns.Add(1)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		conn.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(wsURL(srv), nil, WithRetry(10*time.Millisecond))
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool { return conns.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
}

func TestPublishWithoutConnection(t *testing.T) {
	t.Parallel()

	c := New("ws://127.0.0.1:1", nil)
	assert.ErrorIs(t, c.Publish(Message{Kind: KindReply}), ErrNotConnected)
	assert.False(t, c.Connected())
}
