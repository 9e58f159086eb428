package acceptor

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	network "github.com/lk2023060901/pairchat-go/internal/network"
	"github.com/lk2023060901/pairchat-go/internal/network/session"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/util/conc"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
	"github.com/lk2023060901/pairchat-go/pkg/util/typeutil"
)

// WSAcceptor 是基于 gorilla/websocket 的 Acceptor 实现。
//
// 每条连接占用协程池中的一个长任务：任务内顺序读取帧并回调 Handler，
// 从而保证同一会话上的消息按到达顺序处理。
type WSAcceptor struct {
	cfg      Config
	handler  Handler
	upgrader websocket.Upgrader
	pool     *conc.Pool
	sessions session.SessionManager
	// origins 为小写的允许 Origin 集合，为空表示不限制。
	origins typeutil.Set[string]

	ctx    context.Context
	cancel context.CancelFunc

	// mu 串行化 closed 的检查与 wg.Add，保证 Close 中 wg.Wait 之后不再有新的 Add。
	mu     sync.Mutex
	closed atomic.Bool
	// active 为已占用的连接名额，从升级前预留到连接任务结束。
	active atomic.Int64
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// 确保 WSAcceptor 实现了 Acceptor 接口。
var _ Acceptor = (*WSAcceptor)(nil)

// NewWSAcceptor 创建一个 WebSocket 接入器。零值字段使用默认配置。
func NewWSAcceptor(cfg Config, h Handler) (*WSAcceptor, error) {
	if h == nil {
		return nil, merr.WrapErrParameterMissing("handler")
	}
	def := defaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.Session.PingInterval == 0 {
		cfg.Session.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.Session.PingInterval >= cfg.PongWait {
		return nil, merr.WrapErrParameterInvalidMsg("pingInterval %s must be shorter than pongWait %s",
			cfg.Session.PingInterval, cfg.PongWait)
	}

	pool, err := conc.NewPool(cfg.MaxConnections, conc.WithNonBlocking(true))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &WSAcceptor{
		cfg:      cfg,
		handler:  h,
		pool:     pool,
		sessions: session.NewBaseSessionManager(),
		origins:  typeutil.NewSet[string](),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, o := range cfg.AllowedOrigins {
		a.origins.Insert(strings.ToLower(strings.TrimSpace(o)))
	}
	a.upgrader = websocket.Upgrader{
		EnableCompression: cfg.EnableCompression,
		CheckOrigin:       a.checkOrigin,
	}
	return a, nil
}

func (a *WSAcceptor) Sessions() session.SessionManager {
	return a.sessions
}

// Active 返回当前占用的连接名额数。
func (a *WSAcceptor) Active() int {
	return int(a.active.Load())
}

// acquire 预留一个连接名额。关闭中或名额已满时返回错误。
func (a *WSAcceptor) acquire() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return merr.WrapErrServiceNotReady("acceptor closing")
	}
	if c := a.cfg.MaxConnections; c > 0 && a.active.Load() >= int64(c) {
		return merr.WrapErrPoolExhausted(c)
	}
	a.active.Inc()
	a.wg.Add(1)
	return nil
}

func (a *WSAcceptor) release() {
	a.active.Dec()
	a.wg.Done()
}

// Serve 实现 Acceptor.Serve。
func (a *WSAcceptor) Serve(ctx context.Context, ln net.Listener, mux *http.ServeMux) error {
	if ln == nil {
		return merr.WrapErrParameterMissing("listener")
	}
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.Handle(a.cfg.Path, a)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	log.Info("acceptor serving", zap.String("addr", ln.Addr().String()), zap.String("path", a.cfg.Path))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// 升级后的连接已被 hijack，不受 Shutdown 管理，由 Close 负责关闭。
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http server shutdown failed", zap.Error(err))
		}
		return nil
	}
}

// ServeHTTP 处理单个 WebSocket 升级请求。
func (a *WSAcceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := a.acquire(); err != nil {
		if errors.Is(err, merr.ErrPoolExhausted) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			a.handler.OnError(nil, network.StageHandshake, err)
			return
		}
		http.Error(w, "server closing", http.StatusServiceUnavailable)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.release()
		// Upgrade 已向客户端写回错误响应。
		a.handler.OnError(nil, network.StageHandshake, errors.Mark(err, network.ErrHandshakeFailed))
		return
	}

	id := uuid.NewString()
	err = a.pool.Submit(func() {
		defer a.release()
		a.serveConn(id, conn)
	})
	if err != nil {
		a.release()
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"), deadline)
		_ = conn.Close()
		a.handler.OnError(nil, network.StageHandshake, err)
	}
}

// serveConn 处理单个连接的生命周期。
//
// 流程：
//  1. 创建带连接字段的意图上下文与 Session，并注册到 SessionManager；
//  2. 调用 Handler.OnConnected；
//  3. 循环读取帧并回调 Handler.OnMessage；
//  4. 读失败或被关闭后，回调 Handler.OnClosed 并关闭会话。
func (a *WSAcceptor) serveConn(id string, conn *websocket.Conn) {
	ctx, span := log.NewIntentContext(a.ctx, "pairchat", "serveConn")
	defer span.End()
	ctx = log.WithConnID(ctx, id)

	sess := session.NewBaseSession(ctx, id, conn, a.cfg.Session)
	if err := a.sessions.Register(sess); err != nil {
		a.handler.OnError(sess, network.StageHandshake, err)
		_ = sess.Close()
		return
	}
	defer func() {
		_ = a.sessions.Unregister(id)
	}()
	// Close 先 cancel 再遍历会话，注册晚于遍历的会话在这里关闭。
	if a.ctx.Err() != nil {
		_ = sess.Close()
		return
	}

	log.Ctx(ctx).Debug("connection accepted", zap.Stringer("remote", conn.RemoteAddr()))
	if err := a.handler.OnConnected(sess); err != nil {
		a.handler.OnError(sess, network.StageHandshake, err)
		_ = sess.Close()
		return
	}

	cause := a.readLoop(sess, conn)
	a.handler.OnClosed(sess, cause)
	_ = sess.Close()
}

// readLoop 持续读取帧并回调 Handler，返回 nil 表示正常断开。
func (a *WSAcceptor) readLoop(sess session.Session, conn *websocket.Conn) error {
	conn.SetReadLimit(a.cfg.MaxMessageSize)
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(a.cfg.PongWait))
	}
	if err := extend(); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error { return extend() })

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if isNormalClose(err) || sess.Context().Err() != nil {
				return nil
			}
			a.handler.OnError(sess, network.StageRecvRaw, err)
			return errors.Mark(err, network.ErrRecvFailed)
		}
		if err := extend(); err != nil {
			return err
		}

		switch msgType {
		case websocket.TextMessage:
			sess.SetBinary(false)
			a.handler.OnMessage(sess, false, data)
		case websocket.BinaryMessage:
			sess.SetBinary(true)
			a.handler.OnMessage(sess, true, data)
		}
	}
}

// Close 实现 Acceptor.Close。
func (a *WSAcceptor) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed.Store(true)
		a.mu.Unlock()
		a.cancel()
		a.sessions.Range(func(sess session.Session) bool {
			_ = sess.Close()
			return true
		})
		a.wg.Wait()
		a.pool.Release()
	})
	return nil
}

func (a *WSAcceptor) checkOrigin(r *http.Request) bool {
	if a.origins.Len() == 0 || a.origins.Contain("*") {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return a.origins.Contain(strings.ToLower(origin))
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, net.ErrClosed)
}
