package connector

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	network "github.com/lk2023060901/pairchat-go/internal/network"
	"github.com/lk2023060901/pairchat-go/internal/network/serializer"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Frame 为客户端收到的一帧数据。
type Frame struct {
	Binary  bool
	Payload []byte
}

// Config 描述客户端连接的基础配置。
type Config struct {
	SendQueueSize int
	RecvQueueSize int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Binary 为 true 时以二进制帧（protobuf Struct）发送，否则以文本帧（JSON）发送。
	Binary bool
}

func defaultConfig() Config {
	return Config{
		SendQueueSize: 64,
		RecvQueueSize: 64,
		WriteTimeout:  10 * time.Second,
	}
}

// ClientConn 抽象了客户端侧的一条连接。
type ClientConn interface {
	Context() context.Context
	RemoteAddr() net.Addr
	LocalAddr() net.Addr

	// Send 将消息编码后投递到发送队列。
	Send(msg any) error
	// Recv 返回收到的帧，连接关闭后通道被关闭。
	Recv() <-chan Frame
	// Decode 按帧类型将 Frame 解码到 v。
	Decode(f Frame, v any) error

	Close() error
}

// ConnectorHandler 描述客户端在各阶段的回调能力，可为 nil。
type ConnectorHandler interface {
	OnConnected(conn ClientConn)
	OnClosed(conn ClientConn, err error)
	OnError(conn ClientConn, stage network.Stage, err error)
}

// Connector 抽象了客户端的拨号器。
type Connector interface {
	Dial(ctx context.Context, urlStr string, h ConnectorHandler, header http.Header) (ClientConn, error)
}

// wsConnector 是基于 gorilla/websocket 的默认 Connector 实现。
type wsConnector struct {
	cfg Config
}

// NewWSConnector 创建一个基于 WebSocket 的 Connector，零值字段使用默认配置。
func NewWSConnector(cfg Config) Connector {
	def := defaultConfig()
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.RecvQueueSize <= 0 {
		cfg.RecvQueueSize = def.RecvQueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &wsConnector{cfg: cfg}
}

func (c *wsConnector) Dial(ctx context.Context, urlStr string, h ConnectorHandler, header http.Header) (ClientConn, error) {
	if h == nil {
		h = nopHandler{}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, urlStr, header)
	if err != nil {
		return nil, err
	}

	connCtx, cancel := context.WithCancel(context.Background())
	cc := newWSClientConn(connCtx, cancel, conn, c.cfg, h)
	h.OnConnected(cc)
	return cc, nil
}

// wsClientConn 是基于 WebSocket 的 ClientConn 默认实现。
type wsClientConn struct {
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc

	cfg Config
	h   ConnectorHandler

	text   serializer.Serializer
	binary serializer.Serializer

	sendChan chan []byte
	recvChan chan Frame

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newWSClientConn(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	cfg Config,
	h ConnectorHandler,
) *wsClientConn {
	c := &wsClientConn{
		conn:     conn,
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		h:        h,
		text:     serializer.JSONSerializer{},
		binary:   serializer.ProtoSerializer{},
		sendChan: make(chan []byte, cfg.SendQueueSize),
		recvChan: make(chan Frame, cfg.RecvQueueSize),
	}

	c.wg.Add(2)
	go c.recvLoop()
	go c.sendLoop()
	return c
}

func (c *wsClientConn) Context() context.Context { return c.ctx }
func (c *wsClientConn) RemoteAddr() net.Addr     { return c.conn.RemoteAddr() }
func (c *wsClientConn) LocalAddr() net.Addr      { return c.conn.LocalAddr() }
func (c *wsClientConn) Recv() <-chan Frame       { return c.recvChan }
func (c *wsClientConn) Close() error             { return c.close(nil) }

func (c *wsClientConn) Send(msg any) error {
	ser := c.text
	if c.cfg.Binary {
		ser = c.binary
	}
	data, err := ser.Marshal(msg)
	if err != nil {
		c.h.OnError(c, network.StageEncode, err)
		return err
	}
	if c.ctx.Err() != nil {
		return merr.WrapErrSessionClosed("client")
	}
	select {
	case <-c.ctx.Done():
		return merr.WrapErrSessionClosed("client")
	case c.sendChan <- data:
		return nil
	}
}

func (c *wsClientConn) Decode(f Frame, v any) error {
	if f.Binary {
		return c.binary.Unmarshal(f.Payload, v)
	}
	return c.text.Unmarshal(f.Payload, v)
}

func (c *wsClientConn) close(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.conn.Close()
		c.h.OnClosed(c, cause)
	})
	return err
}

// recvLoop 持续读取 WebSocket 帧并投递到 recvChan。
func (c *wsClientConn) recvLoop() {
	defer c.wg.Done()
	defer close(c.recvChan)

	for {
		if c.cfg.ReadTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
				_ = c.close(err)
				return
			}
		}

		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.h.OnError(c, network.StageRecvRaw, err)
				_ = c.close(network.ErrRecvFailed)
				return
			}
			_ = c.close(nil)
			return
		}

		select {
		case c.recvChan <- Frame{Binary: msgType == websocket.BinaryMessage, Payload: data}:
		case <-c.ctx.Done():
			return
		}
	}
}

// sendLoop 从 sendChan 读取已编码的消息并写入 WebSocket。
func (c *wsClientConn) sendLoop() {
	defer c.wg.Done()

	frameType := websocket.TextMessage
	if c.cfg.Binary {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.sendChan:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				_ = c.close(err)
				return
			}
			if err := c.conn.WriteMessage(frameType, data); err != nil {
				c.h.OnError(c, network.StageSend, err)
				_ = c.close(network.ErrSendFailed)
				return
			}
		}
	}
}

type nopHandler struct{}

func (nopHandler) OnConnected(ClientConn)     {}
func (nopHandler) OnClosed(ClientConn, error) {}
func (nopHandler) OnError(conn ClientConn, stage network.Stage, err error) {
	log.Debug("client connection error", zap.String("stage", string(stage)), zap.Error(err))
}
