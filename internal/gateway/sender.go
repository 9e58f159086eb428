package gateway

import (
	"github.com/lk2023060901/pairchat-go/internal/broker"
	"github.com/lk2023060901/pairchat-go/internal/network/session"
	"github.com/lk2023060901/pairchat-go/internal/protocol"
)

// sessionSender 把会话适配为 broker.Sender。
type sessionSender struct {
	sess session.Session
}

var _ broker.Sender = sessionSender{}

func (s sessionSender) Send(msg protocol.Outbound) error {
	return s.sess.Send(msg)
}

func (s sessionSender) Close() error {
	return s.sess.Close()
}
