package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/pairchat-go/internal/protocol"
)

// echoServer 原样回写收到的每一帧。
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recv(t *testing.T, conn ClientConn) Frame {
	t.Helper()
	select {
	case f, ok := <-conn.Recv():
		require.True(t, ok, "connection closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return Frame{}
	}
}

func TestTextEcho(t *testing.T) {
	srv := echoServer(t)
	conn, err := NewWSConnector(Config{}).Dial(context.Background(), wsURL(srv), nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(protocol.RegisterRequest{User: "alice"}))
	f := recv(t, conn)
	assert.False(t, f.Binary)

	var req protocol.RegisterRequest
	require.NoError(t, conn.Decode(f, &req))
	assert.Equal(t, "alice", req.User)
}

func TestBinaryEcho(t *testing.T) {
	srv := echoServer(t)
	conn, err := NewWSConnector(Config{Binary: true}).Dial(context.Background(), wsURL(srv), nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(protocol.NewChat("alice", "hi")))
	f := recv(t, conn)
	assert.True(t, f.Binary)

	var chat protocol.Chat
	require.NoError(t, conn.Decode(f, &chat))
	assert.Equal(t, protocol.NewChat("alice", "hi"), chat)
}

func TestCloseEndsRecv(t *testing.T) {
	srv := echoServer(t)
	conn, err := NewWSConnector(Config{}).Dial(context.Background(), wsURL(srv), nil, nil)
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Error(t, conn.Send(protocol.PingRequest{}))

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-conn.Recv():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewWSConnector(Config{}).Dial(ctx, "ws://127.0.0.1:1/ws", nil, nil)
	assert.Error(t, err)
}
