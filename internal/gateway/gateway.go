// Package gateway 将 WebSocket 接入层与 broker 连接起来：
// 会话建立/关闭映射为 Broker.Open/Close，每帧消息经 router 解码后交给 Broker.Dispatch。
package gateway

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/pairchat-go/internal/broker"
	network "github.com/lk2023060901/pairchat-go/internal/network"
	"github.com/lk2023060901/pairchat-go/internal/network/acceptor"
	"github.com/lk2023060901/pairchat-go/internal/network/router"
	"github.com/lk2023060901/pairchat-go/internal/network/serializer"
	"github.com/lk2023060901/pairchat-go/internal/network/session"
	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/metrics"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Gateway 实现 acceptor.Handler。
type Gateway struct {
	log.Binder

	broker *broker.Broker
	router router.Router

	text   serializer.Serializer
	binary serializer.Serializer
}

var _ acceptor.Handler = (*Gateway)(nil)

// New 创建 Gateway，并为全部客户端消息类型注册路由。
func New(b *broker.Broker) (*Gateway, error) {
	if b == nil {
		return nil, merr.WrapErrParameterMissing("broker")
	}
	g := &Gateway{
		broker: b,
		router: router.New(),
		text:   serializer.JSONSerializer{},
		binary: serializer.ProtoSerializer{},
	}
	g.SetLogger(log.With(log.FieldModule("gateway")))

	for _, t := range protocol.ClientTypes {
		t := t // per-iteration copy; go directive is 1.21
		err := g.router.Register(t, router.Route{
			NewRequest: func() protocol.Inbound { return protocol.NewRequest(t) },
			Handler:    g.dispatch,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "register route %s", t)
		}
	}
	return g, nil
}

// Router 返回消息路由，便于检查已注册的消息类型。
func (g *Gateway) Router() router.Router {
	return g.router
}

func (g *Gateway) OnConnected(sess session.Session) error {
	return g.broker.Open(broker.ConnID(sess.ID()), sessionSender{sess: sess}, remoteAddr(sess))
}

// OnMessage 解码并分发一帧消息。
//
// 输入类错误以 server_error 回复，连接保持打开；其它错误只记录日志。
func (g *Gateway) OnMessage(sess session.Session, binary bool, payload []byte) {
	ser := g.text
	if binary {
		ser = g.binary
	}

	err := g.router.Handle(sess, ser, payload)
	if err == nil {
		return
	}

	logger := log.Ctx(sess.Context())
	if !merr.IsInputError(err) {
		logger.Warn("message dispatch failed", zap.Error(err))
		return
	}

	metrics.MalformedMessages.Inc()
	logger.RatedWarn(1, "rejected client message", zap.Bool("binary", binary), zap.Error(err))
	if sendErr := sess.Send(protocol.NewServerError(merr.ClientMessage(err))); sendErr != nil {
		logger.RatedWarn(1, "failed to reply server_error", zap.Error(sendErr))
	}
}

func (g *Gateway) OnClosed(sess session.Session, cause error) {
	if err := g.broker.Close(broker.ConnID(sess.ID())); err != nil {
		g.Logger().RatedWarn(1, "disconnect notification failed",
			log.FieldConnID(sess.ID()), zap.Error(err))
	}
	if cause != nil {
		log.Ctx(sess.Context()).Debug("session closed with error", zap.Error(cause))
	}
}

func (g *Gateway) OnError(sess session.Session, stage network.Stage, err error) {
	fields := []zap.Field{zap.String("stage", string(stage)), zap.Error(err)}
	if sess == nil {
		g.Logger().RatedWarn(1, "transport error", fields...)
		return
	}
	log.Ctx(sess.Context()).RatedWarn(1, "transport error", fields...)
}

// dispatch 为所有消息类型共用的路由处理函数。
func (g *Gateway) dispatch(sess session.Session, req protocol.Inbound) error {
	metrics.MessagesReceived.WithLabelValues(req.MsgType().String()).Inc()
	return g.broker.Dispatch(broker.ConnID(sess.ID()), req)
}

func remoteAddr(sess session.Session) string {
	if addr := sess.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
