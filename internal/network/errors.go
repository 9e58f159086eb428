// Package network 包含 WebSocket 接入层的公共定义。
package network

import "github.com/cockroachdb/errors"

// Stage 表示网络收发链路中的处理阶段。
//
// 主要用于在回调中标记错误发生的位置，便于监控与排查。
type Stage string

const (
	StageHandshake Stage = "handshake"
	StageRecvRaw   Stage = "recv_raw" // 读取 WebSocket 帧
	StageDecode    Stage = "decode"   // 帧 -> 请求对象
	StageDispatch  Stage = "dispatch" // 请求对象 -> 业务处理
	StageEncode    Stage = "encode"   // 消息对象 -> 帧
	StageSend      Stage = "send"     // 写出到对端
)

// 用于日志/监控的稳定错误码。
const (
	ErrCodeHandshakeFailed = "network:handshake_failed"
	ErrCodeRecvFailed      = "network:recv_failed"
	ErrCodeSendFailed      = "network:send_failed"
	ErrCodeClosed          = "network:closed"
)

var (
	// ErrHandshakeFailed 表示 WebSocket 升级失败。
	ErrHandshakeFailed = errors.New(ErrCodeHandshakeFailed)

	// ErrRecvFailed 表示在读取底层连接数据时发生错误。
	ErrRecvFailed = errors.New(ErrCodeRecvFailed)

	// ErrSendFailed 表示在发送数据到对端时发生错误。
	ErrSendFailed = errors.New(ErrCodeSendFailed)

	// ErrClosed 表示接入器或连接已关闭。
	ErrClosed = errors.New(ErrCodeClosed)
)
