package session

import (
	"context"
	"net"
)

// Session 抽象了一条 WebSocket 会话。
//
// 约定：
//   - 每个 Session 对应一条底层连接，ID 由接入层在握手成功后分配（uuid 字符串）；
//   - Send 只负责投递到会话级发送队列，真正的写出由会话内唯一的发送协程完成；
//   - 框架层只关心会话本身，不关心“用户”“配对”等业务概念。
type Session interface {
	// ID 返回该会话的全局唯一标识。
	ID() string

	// Context 返回与该会话关联的上下文，会话关闭时 Done() 被触发。
	Context() context.Context

	// RemoteAddr 返回远端地址，主要用于日志记录。
	RemoteAddr() net.Addr

	// Send 将一条消息投递到发送队列，不会阻塞。
	//
	// 会话已关闭时返回 merr.ErrSessionClosed，队列已满时返回 merr.ErrSendQueueFull。
	Send(msg any) error

	// SetBinary 设置后续回包使用二进制帧（true）还是文本帧（false）。
	SetBinary(binary bool)

	// Close 主动关闭该会话，多次调用是幂等的。
	Close() error
}
