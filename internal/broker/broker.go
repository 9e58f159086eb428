package broker

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/metrics"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Broker 持有连接表、撮合队列与配对关系。
//
// 三者作为一个整体由同一把互斥锁保护：Open/Dispatch/Close 在持锁期间完整执行，
// 期间的发送都是非阻塞投递，因此同一接收方看到的消息顺序与状态变更顺序一致。
type Broker struct {
	log.Binder

	opts Options

	mu       sync.Mutex
	registry *Registry
	queue    *MatchQueue
	closed   bool
}

func New(opts ...Option) *Broker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Broker{
		opts:     o,
		registry: NewRegistry(),
		queue:    NewMatchQueue(),
	}
	b.SetLogger(log.With(log.FieldModule("broker"), zap.String("mode", string(o.Mode))))
	return b
}

func (b *Broker) Mode() Mode {
	return b.opts.Mode
}

// Open 登记一条新建立的连接，初始状态为 Unregistered。
//
// 广播模式下随后向全部在线连接推送 user_count。
func (b *Broker) Open(id ConnID, sender Sender, remoteAddr string) error {
	if sender == nil {
		return merr.WrapErrParameterMissing("sender")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return merr.WrapErrServiceNotReady("closed")
	}
	c := &Connection{
		ID:          id,
		Sender:      sender,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
	if err := b.registry.Add(c); err != nil {
		return err
	}
	if b.opts.Mode == ModeBroadcast {
		b.logDelivery(b.broadcastUserCount())
	}
	b.updateGauges()

	b.Logger().Debug("connection opened", log.FieldConnID(id.String()), zap.String("remote", remoteAddr))
	return nil
}

// Dispatch 处理 id 发来的一条消息。
//
// 返回的错误均为输入类错误（merr.IsInputError），调用方应以 server_error 回复；
// 投递失败只记录日志，不会中断处理。
func (b *Broker) Dispatch(id ConnID, msg protocol.Inbound) error {
	var toClose Sender

	b.mu.Lock()
	conn, ok := b.registry.Lookup(id)
	if !ok {
		b.mu.Unlock()
		return merr.WrapErrConnectionNotFound(id.String())
	}

	var err error
	switch m := msg.(type) {
	case *protocol.RegisterRequest:
		err = b.register(conn, m.User, false)
	case *protocol.ConnectRequest:
		err = b.register(conn, m.UserID, true)
	case *protocol.MatchRequest:
		if err = b.requireMode(ModeMatch, m); err == nil {
			err = b.requestMatch(conn)
		}
	case *protocol.CancelMatchRequest:
		if err = b.requireMode(ModeMatch, m); err == nil {
			err = b.cancelMatch(conn)
		}
	case *protocol.ChatRequest:
		err = b.chat(conn, m.Message)
	case *protocol.SendMessageRequest:
		if err = b.requireMode(ModeBroadcast, m); err == nil {
			err = b.sendMessage(conn, m.Message)
		}
	case *protocol.PingRequest:
		err = b.send(conn, protocol.NewPong())
	case *protocol.DisconnectRequest:
		err = b.handleDisconnect(id)
		toClose = conn.Sender
	default:
		err = merr.WrapErrUnknownMessageType(fmt.Sprintf("%T", msg))
	}
	b.updateGauges()
	b.mu.Unlock()

	if toClose != nil {
		_ = toClose.Close()
	}

	if err != nil && !merr.IsInputError(err) {
		b.logDelivery(err)
		return nil
	}
	return err
}

// Close 在传输层报告连接关闭时调用，执行断线清理。
//
// 对同一 id 重复调用是空操作。返回值汇总了清理过程中各接收方的投递失败，
// 投递失败不会跳过后续清理步骤。
func (b *Broker) Close(id ConnID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.handleDisconnect(id)
	b.updateGauges()
	return err
}

// State 返回 id 当前所处的状态，不在连接表中的连接视为 Closed。
func (b *Broker) State(id ConnID) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.registry.Lookup(id)
	switch {
	case !ok:
		return StateClosed
	case c.Paired():
		return StatePaired
	case b.queue.Holds(id):
		return StateWaiting
	case c.Registered():
		return StateRegistered
	default:
		return StateUnregistered
	}
}

// Lookup 返回 id 对应连接的副本。
func (b *Broker) Lookup(id ConnID) (Connection, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.registry.Lookup(id)
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Waiting 返回撮合等待位中的连接。
func (b *Broker) Waiting() (ConnID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.queue.Occupant(b.registry); ok {
		return c.ID, true
	}
	return "", false
}

// Count 返回在线连接数。
func (b *Broker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Count()
}

// Shutdown 清空撮合队列、关闭全部连接并清空连接表，之后的 Open 返回 merr.ErrServiceNotReady。
func (b *Broker) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.queue.Clear()
	senders := lo.Map(b.registry.Connections(), func(c *Connection, _ int) Sender {
		return c.Sender
	})
	b.registry = NewRegistry()
	b.updateGauges()
	b.mu.Unlock()

	for _, s := range senders {
		_ = s.Close()
	}
	b.Logger().Info("broker shut down", zap.Int("closedConnections", len(senders)))
}

// register 为连接绑定显示名。legacy 为 true 时（connect 消息）重复注册被静默忽略。
// 调用方需持有 b.mu。
func (b *Broker) register(conn *Connection, name string, legacy bool) error {
	if err := b.registry.Register(conn.ID, name); err != nil {
		if legacy && errors.Is(err, merr.ErrAlreadyRegistered) {
			return nil
		}
		return err
	}
	b.Logger().Info("connection registered", log.FieldConnID(conn.ID.String()), zap.String("displayName", name))

	if b.opts.Mode == ModeBroadcast {
		return b.broadcastUserCount()
	}
	return nil
}

func (b *Broker) requireMode(mode Mode, msg protocol.Inbound) error {
	if b.opts.Mode != mode {
		return merr.WrapErrModeNotSupported(msg.MsgType().String(), string(b.opts.Mode))
	}
	return nil
}

// send 向单条连接投递消息并记录指标，失败时返回带上下文的错误。调用方需持有 b.mu。
func (b *Broker) send(c *Connection, msg protocol.Outbound) error {
	msgType := msg.MsgType().String()
	if err := c.Sender.Send(msg); err != nil {
		metrics.SendFailures.WithLabelValues(msgType).Inc()
		return errors.Wrapf(err, "deliver %s to %s", msgType, c.ID)
	}
	metrics.MessagesSent.WithLabelValues(msgType).Inc()
	return nil
}

func (b *Broker) logDelivery(err error) {
	if err == nil {
		return
	}
	b.Logger().RatedWarn(1, "message delivery failed", zap.Error(err))
}

func (b *Broker) updateGauges() {
	registered, paired := b.registry.Stats()
	metrics.Connections.Set(float64(b.registry.Count()))
	metrics.RegisteredConnections.Set(float64(registered))
	metrics.PairedConnections.Set(float64(paired))
	if _, ok := b.queue.Waiting(); ok {
		metrics.QueueWaiting.Set(1)
	} else {
		metrics.QueueWaiting.Set(0)
	}
}
