package acceptor

import (
	"context"
	"net"
	"net/http"
	"time"

	network "github.com/lk2023060901/pairchat-go/internal/network"
	"github.com/lk2023060901/pairchat-go/internal/network/session"
)

// Config 描述 Acceptor 的接入与会话配置。
type Config struct {
	// Path 为 WebSocket 的升级路径（如 "/ws"）。
	Path string
	// MaxConnections 为同时在线的最大连接数，<= 0 表示不限。
	MaxConnections int
	// AllowedOrigins 为允许的 Origin 列表，为空时接受任意 Origin。
	AllowedOrigins []string
	// EnableCompression 开启 permessage-deflate。
	EnableCompression bool

	// MaxMessageSize 为单帧最大字节数。
	MaxMessageSize int64
	// PongWait 为读超时，每次收到 pong 或数据帧后顺延。
	PongWait time.Duration

	// Session 为每条连接的发送侧配置，PingInterval 为 0 时取 PongWait 的 9/10。
	Session session.Config
}

func defaultConfig() Config {
	return Config{
		Path:           "/ws",
		MaxMessageSize: 64 * 1024,
		PongWait:       60 * time.Second,
	}
}

// Handler 由框架使用者实现，用于在服务器侧的各个阶段插入自定义逻辑。
//
// 同一会话上的回调都在该会话的读协程中串行调用，应避免耗时操作阻塞读取。
type Handler interface {
	// OnConnected 在握手成功并创建好会话后被调用。
	// 返回错误时连接被立即关闭，不会再回调 OnClosed。
	OnConnected(sess session.Session) error

	// OnMessage 在收到一帧数据后被调用，binary 表示帧类型。
	OnMessage(sess session.Session, binary bool, payload []byte)

	// OnClosed 在会话生命周期结束时被调用一次，err 为关闭原因，正常关闭时为 nil。
	OnClosed(sess session.Session, err error)

	// OnError 在会话处理的各个阶段发生错误时被调用，sess 在握手阶段为 nil。
	OnError(sess session.Session, stage network.Stage, err error)
}

// Acceptor 抽象了服务器侧的 WebSocket 接入层。
//
// 职责：
//   - 作为 http.Handler 处理 WebSocket 升级；
//   - 为每个连接创建 Session，并调用 Handler 的各阶段回调；
//   - 维护当前活跃会话列表，便于运维与监控。
type Acceptor interface {
	http.Handler

	// Serve 在给定 listener 上启动 HTTP 服务，阻塞直至 ctx 取消或出现致命错误。
	// mux 为 nil 时仅挂载 WebSocket 路径。
	Serve(ctx context.Context, ln net.Listener, mux *http.ServeMux) error

	// Close 拒绝新连接并关闭所有会话。
	Close() error

	// Sessions 返回当前活跃会话的管理器。
	Sessions() session.SessionManager
}
