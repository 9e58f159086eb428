package router

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/pairchat-go/internal/network/serializer"
	"github.com/lk2023060901/pairchat-go/internal/network/session"
	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Handler 是框架暴露给业务层的通用处理函数签名。
//
// req 为已经反序列化并通过 Validate 的请求对象，具体类型由 Route.NewRequest 决定。
// 返回的输入类错误由调用方转换为 server_error 回包。
type Handler func(sess session.Session, req protocol.Inbound) error

// Route 描述一条路由规则：消息类型 -> 请求类型 + 业务 Handler。
type Route struct {
	// NewRequest 用于创建一个空的请求对象实例，必须返回指针。
	NewRequest func() protocol.Inbound

	// Handler 为业务层实现的处理函数。
	Handler Handler
}

// Router 维护消息类型到路由规则的映射，并负责从“原始帧”到业务 Handler 的完整调度流程。
//
// 典型调用链（服务器侧）：
//  1. 接入层读取出一帧，按帧类型选择 Serializer；
//  2. Router 读取 type 标签并找到 Route；
//  3. NewRequest 创建请求对象，Serializer.Unmarshal 反序列化，Validate 检查必填字段；
//  4. 调用业务 Handler。
type Router interface {
	// Register 为消息类型注册一条路由规则，同一类型不允许重复注册。
	Register(msgType protocol.Type, route Route) error

	// Handle 处理一帧消息。
	Handle(sess session.Session, ser serializer.Serializer, payload []byte) error

	// Types 返回已注册的消息类型。
	Types() []protocol.Type
}

// defaultRouter 是 Router 接口的基础实现。
type defaultRouter struct {
	routes map[protocol.Type]Route
}

// 编译期断言：确保 defaultRouter 实现了 Router 接口。
var _ Router = (*defaultRouter)(nil)

func New() Router {
	return &defaultRouter{
		routes: make(map[protocol.Type]Route),
	}
}

// Register 实现 Router.Register。
func (r *defaultRouter) Register(msgType protocol.Type, route Route) error {
	if msgType == "" {
		return merr.WrapErrParameterMissing("msgType")
	}
	if route.NewRequest == nil {
		return merr.WrapErrParameterMissing("NewRequest", msgType.String())
	}
	if route.Handler == nil {
		return merr.WrapErrParameterMissing("Handler", msgType.String())
	}
	if _, exists := r.routes[msgType]; exists {
		return errors.Newf("router: type=%s already registered", msgType)
	}
	r.routes[msgType] = route
	return nil
}

// Handle 实现 Router.Handle。
func (r *defaultRouter) Handle(sess session.Session, ser serializer.Serializer, payload []byte) error {
	if sess == nil {
		return merr.WrapErrParameterMissing("session")
	}

	tag, err := ser.Tag(payload)
	if err != nil {
		return err
	}
	msgType, err := protocol.ParseType(tag)
	if err != nil {
		return err
	}
	route, ok := r.routes[msgType]
	if !ok {
		return merr.WrapErrUnknownMessageType(tag)
	}

	req := route.NewRequest()
	if req == nil {
		return merr.WrapErrServiceInternal("nil request", msgType.String())
	}
	if err := ser.Unmarshal(payload, req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	return route.Handler(sess, req)
}

// Types 实现 Router.Types。
func (r *defaultRouter) Types() []protocol.Type {
	return lo.Keys(r.routes)
}
