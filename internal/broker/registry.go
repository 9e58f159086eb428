package broker

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Registry 保存全部在线连接，键为 ConnID。
//
// Registry 自身不加锁，由 Broker 的互斥锁统一保护。
// 连接在建立时即加入（尚未注册显示名），在断开时被移除且只移除一次。
type Registry struct {
	conns map[ConnID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[ConnID]*Connection),
	}
}

// Add 加入一条新连接，id 重复时返回错误。
func (r *Registry) Add(c *Connection) error {
	if c == nil || c.ID == "" {
		return merr.WrapErrParameterMissing("connection")
	}
	if _, exists := r.conns[c.ID]; exists {
		return errors.Newf("registry: connection %s already exists", c.ID)
	}
	r.conns[c.ID] = c
	return nil
}

// Register 为已存在的连接绑定显示名。
//
// 显示名只能设置一次：已注册的连接返回 merr.ErrAlreadyRegistered 且保持原名。
func (r *Registry) Register(id ConnID, displayName string) error {
	if displayName == "" {
		return merr.WrapErrParameterInvalidMsg("empty display name")
	}
	c, ok := r.conns[id]
	if !ok {
		return merr.WrapErrConnectionNotFound(id.String())
	}
	if c.Registered() {
		return merr.ErrAlreadyRegistered
	}
	c.DisplayName = displayName
	return nil
}

// Lookup 返回 id 对应的在线连接。
func (r *Registry) Lookup(id ConnID) (*Connection, bool) {
	if id == "" {
		return nil, false
	}
	c, ok := r.conns[id]
	return c, ok
}

// Remove 移除 id 对应的连接，不存在时为空操作。
func (r *Registry) Remove(id ConnID) (*Connection, bool) {
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return c, ok
}

// Count 返回在线连接数。
func (r *Registry) Count() int {
	return len(r.conns)
}

// RegisteredCount 返回已绑定显示名的连接数。
func (r *Registry) RegisteredCount() int {
	registered, _ := r.Stats()
	return registered
}

// PairedCount 返回处于配对中的连接数。
func (r *Registry) PairedCount() int {
	_, paired := r.Stats()
	return paired
}

// Stats 单次遍历统计已注册与配对中的连接数，不分配内存。
func (r *Registry) Stats() (registered, paired int) {
	for _, c := range r.conns {
		if c.Registered() {
			registered++
		}
		if c.Paired() {
			paired++
		}
	}
	return registered, paired
}

// Connections 返回全部在线连接的快照，顺序不固定。
func (r *Registry) Connections() []*Connection {
	return lo.Values(r.conns)
}
