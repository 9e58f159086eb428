package gateway

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/pairchat-go/internal/broker"
	"github.com/lk2023060901/pairchat-go/internal/network/acceptor"
	"github.com/lk2023060901/pairchat-go/internal/network/connector"
	"github.com/lk2023060901/pairchat-go/internal/protocol"
)

// fakeSession 记录 Send 的消息，不做任何网络收发。
type fakeSession struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	sent   []any
	binary bool
}

func newFakeSession(id string) *fakeSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeSession{id: id, ctx: ctx, cancel: cancel}
}

func (s *fakeSession) ID() string               { return s.id }
func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) RemoteAddr() net.Addr     { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (s *fakeSession) SetBinary(b bool)         { s.binary = b }

func (s *fakeSession) Send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSession) Close() error {
	s.cancel()
	return nil
}

func (s *fakeSession) last() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1]
}

type GatewaySuite struct {
	suite.Suite

	broker  *broker.Broker
	gateway *Gateway
}

func (s *GatewaySuite) SetupTest() {
	s.broker = broker.New()
	g, err := New(s.broker)
	s.Require().NoError(err)
	s.gateway = g
}

func (s *GatewaySuite) connect(id string) *fakeSession {
	sess := newFakeSession(id)
	s.Require().NoError(s.gateway.OnConnected(sess))
	return sess
}

func (s *GatewaySuite) TestRoutesCoverClientTypes() {
	s.ElementsMatch(protocol.ClientTypes, s.gateway.Router().Types())
}

func (s *GatewaySuite) TestNilBroker() {
	_, err := New(nil)
	s.Error(err)
}

func (s *GatewaySuite) TestMalformedInput() {
	sess := s.connect("a")

	cases := []struct {
		payload string
		reply   string
	}{
		{`{not json`, "malformed message"},
		{`{"user":"alice"}`, "missing required field"},
		{`{"type":"dance"}`, "unknown message type"},
		{`{"type":"register"}`, "missing required field"},
		{`{"type":"chat","message":""}`, "missing required field"},
		{`{"type":"match"}`, "register first"},
	}
	for _, c := range cases {
		s.gateway.OnMessage(sess, false, []byte(c.payload))
		reply, ok := sess.last().(protocol.ServerError)
		if s.True(ok, "payload %s", c.payload) {
			s.Contains(reply.Message, c.reply, "payload %s", c.payload)
		}
	}
	s.Equal(broker.StateUnregistered, s.broker.State("a"))
}

func (s *GatewaySuite) TestDispatch() {
	a := s.connect("a")
	b := s.connect("b")

	s.gateway.OnMessage(a, false, []byte(`{"type":"REGISTER","user":"alice"}`))
	s.gateway.OnMessage(b, false, []byte(`{"type":"register","user":"bob"}`))
	s.gateway.OnMessage(a, false, []byte(`{"type":"match"}`))
	s.Equal(protocol.NewWaiting(), a.last())
	s.gateway.OnMessage(b, false, []byte(`{"type":"match"}`))
	s.Equal(protocol.NewMatched("alice"), b.last())
	s.Equal(protocol.NewMatched("bob"), a.last())

	s.gateway.OnMessage(a, false, []byte(`{"type":"chat","message":"hi"}`))
	s.Equal(protocol.NewChat("alice", "hi"), b.last())

	s.gateway.OnClosed(a, nil)
	s.Equal(protocol.NewPartnerLeft(), b.last())
	s.Equal(broker.StateClosed, s.broker.State("a"))

	// 重复关闭是空操作。
	s.gateway.OnClosed(a, nil)
}

func (s *GatewaySuite) TestDisconnectMessageClosesSession() {
	a := s.connect("a")
	s.gateway.OnMessage(a, false, []byte(`{"type":"disconnect"}`))
	s.Error(a.Context().Err())
	s.Equal(0, s.broker.Count())
}

func (s *GatewaySuite) TestEndToEnd() {
	a, err := acceptor.NewWSAcceptor(acceptor.Config{}, s.gateway)
	s.Require().NoError(err)
	srv := httptest.NewServer(a)
	defer srv.Close()
	defer a.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	dial := func(binary bool) connector.ClientConn {
		conn, err := connector.NewWSConnector(connector.Config{Binary: binary}).Dial(context.Background(), url, nil, nil)
		s.Require().NoError(err)
		return conn
	}
	send := func(conn connector.ClientConn, req protocol.Inbound) {
		msg, err := protocol.Tagged(req)
		s.Require().NoError(err)
		s.Require().NoError(conn.Send(msg))
	}
	expect := func(conn connector.ClientConn, want protocol.Type) map[string]any {
		select {
		case f, ok := <-conn.Recv():
			s.Require().True(ok, "connection closed while waiting for %s", want)
			var msg map[string]any
			s.Require().NoError(conn.Decode(f, &msg))
			s.Require().Equal(want.String(), msg["type"])
			return msg
		case <-time.After(3 * time.Second):
			s.FailNow("timeout waiting for " + want.String())
			return nil
		}
	}

	alice := dial(false)
	defer alice.Close()
	bob := dial(true)
	defer bob.Close()

	send(alice, &protocol.RegisterRequest{User: "alice"})
	send(alice, &protocol.MatchRequest{})
	expect(alice, protocol.TypeWaiting)

	send(bob, &protocol.RegisterRequest{User: "bob"})
	send(bob, &protocol.MatchRequest{})
	s.Equal("alice", expect(bob, protocol.TypeMatched)["partner"])
	s.Equal("bob", expect(alice, protocol.TypeMatched)["partner"])

	send(alice, &protocol.ChatRequest{Message: "hi"})
	chat := expect(bob, protocol.TypeChat)
	s.Equal("alice", chat["user"])
	s.Equal("hi", chat["message"])

	send(bob, &protocol.PingRequest{})
	expect(bob, protocol.TypePong)

	s.Require().NoError(alice.Send(map[string]any{"type": "chat"}))
	expect(alice, protocol.TypeServerError)

	s.Require().NoError(alice.Close())
	expect(bob, protocol.TypePartnerLeft)
	s.Eventually(func() bool { return s.broker.Count() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestGateway(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}
