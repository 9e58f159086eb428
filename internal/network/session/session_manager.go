package session

// SessionManager 维护当前所有在线会话的索引。
//
// 职责说明：
//   - 只负责会话的注册、查询和移除，不直接创建或关闭底层连接；
//   - Session 的生命周期由接入层决定；
//   - 运维侧可以基于 SessionManager 做统计或批量关闭。
type SessionManager interface {
	// Register 将一个已创建好的 Session 注册到管理器中，重复 ID 返回错误。
	Register(sess Session) error

	// Get 根据 session id 查找会话。
	Get(id string) (sess Session, ok bool)

	// Unregister 从管理器中移除指定 id 的会话，不负责调用 sess.Close()。
	Unregister(id string) error

	// Range 遍历当前所有在线会话，fn 返回 false 时中断遍历。
	Range(fn func(sess Session) bool)

	// Count 返回当前已注册的会话数量。
	Count() int
}
