package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	network "github.com/lk2023060901/pairchat-go/internal/network"
	"github.com/lk2023060901/pairchat-go/internal/network/serializer"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Conn 为会话依赖的底层连接能力，*websocket.Conn 满足该接口。
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Config 描述单个会话的发送侧配置。
type Config struct {
	// SendQueueSize 为发送队列容量，队列满时 Send 立即失败。
	SendQueueSize int
	// PingInterval 为服务器主动发送 ping 的间隔，为 0 表示不发送。
	PingInterval time.Duration
	// WriteWait 为单次写出的超时时间。
	WriteWait time.Duration

	Text   serializer.Serializer
	Binary serializer.Serializer
}

func defaultConfig() Config {
	return Config{
		SendQueueSize: 256,
		PingInterval:  30 * time.Second,
		WriteWait:     10 * time.Second,
		Text:          serializer.JSONSerializer{},
		Binary:        serializer.ProtoSerializer{},
	}
}

// BaseSession 是 Session 接口的 WebSocket 实现。
//
// 每个会话持有一个有界发送队列和一个专职发送协程：
// Send 只做非阻塞投递，写出、编码、ping 都在发送协程中串行完成，
// 因此对同一连接的写操作不会交叉。
type BaseSession struct {
	id string

	ctx    context.Context
	cancel context.CancelFunc

	conn Conn
	cfg  Config

	remoteAddr net.Addr

	sendQueue chan outboundMessage
	// binary 记录最近一次收到的帧类型，决定回包格式。
	binary atomic.Bool

	sent    atomic.Uint64
	written atomic.Uint64

	writerDone chan struct{}
	closeOnce  sync.Once
}

// 确保 BaseSession 实现了 Session 接口。
var _ Session = (*BaseSession)(nil)

// outboundMessage 表示一条待发送的消息及其帧类型。
type outboundMessage struct {
	msg    any
	binary bool
}

// NewBaseSession 创建会话并启动发送协程。
//
// parent 为会话所属的上层上下文，通常已携带连接相关的日志字段；为 nil 时使用 context.Background()。
func NewBaseSession(parent context.Context, id string, conn Conn, cfg Config) *BaseSession {
	if parent == nil {
		parent = context.Background()
	}
	def := defaultConfig()
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.Text == nil {
		cfg.Text = def.Text
	}
	if cfg.Binary == nil {
		cfg.Binary = def.Binary
	}

	ctx, cancel := context.WithCancel(parent)
	s := &BaseSession{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		cfg:        cfg,
		remoteAddr: conn.RemoteAddr(),
		sendQueue:  make(chan outboundMessage, cfg.SendQueueSize),
		writerDone: make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *BaseSession) ID() string {
	return s.id
}

func (s *BaseSession) Context() context.Context {
	return s.ctx
}

func (s *BaseSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

func (s *BaseSession) SetBinary(binary bool) {
	s.binary.Store(binary)
}

// Send 实现 Session.Send。
func (s *BaseSession) Send(msg any) error {
	if s.ctx.Err() != nil {
		return merr.WrapErrSessionClosed(s.id)
	}
	select {
	case s.sendQueue <- outboundMessage{msg: msg, binary: s.binary.Load()}:
		s.sent.Inc()
		return nil
	default:
		return merr.WrapErrSendQueueFull(s.id, cap(s.sendQueue))
	}
}

// Close 实现 Session.Close。
//
// 先取消上下文并等待发送协程退出，再发送 close 帧并关闭连接。
// 队列中尚未写出的消息会被丢弃。
func (s *BaseSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.writerDone

		deadline := time.Now().Add(s.cfg.WriteWait)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.conn.Close()

		log.Ctx(s.ctx).Debug("session closed",
			zap.Uint64("sent", s.sent.Load()),
			zap.Uint64("written", s.written.Load()))
	})
	return err
}

// writeLoop 为每个会话启动的专职发送协程。
func (s *BaseSession) writeLoop() {
	defer close(s.writerDone)

	var ping <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case out := <-s.sendQueue:
			if err := s.write(out); err != nil {
				s.fail(network.StageSend, err)
				return
			}
		case <-ping:
			deadline := time.Now().Add(s.cfg.WriteWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.fail(network.StageSend, err)
				return
			}
		}
	}
}

func (s *BaseSession) write(out outboundMessage) error {
	ser, frameType := s.cfg.Text, websocket.TextMessage
	if out.binary {
		ser, frameType = s.cfg.Binary, websocket.BinaryMessage
	}

	data, err := ser.Marshal(out.msg)
	if err != nil {
		// 单条消息编码失败不影响会话。
		log.Ctx(s.ctx).Warn("failed to encode outbound message",
			zap.String("stage", string(network.StageEncode)), zap.Error(err))
		return nil
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(frameType, data); err != nil {
		return err
	}
	s.written.Inc()
	return nil
}

// fail 在写出失败时直接关闭底层连接，读协程随后退出并触发完整的 Close 流程。
func (s *BaseSession) fail(stage network.Stage, err error) {
	if s.ctx.Err() == nil {
		log.Ctx(s.ctx).Warn("session write failed", zap.String("stage", string(stage)), zap.Error(err))
	}
	s.cancel()
	_ = s.conn.Close()
}
