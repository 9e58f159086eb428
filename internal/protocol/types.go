// Package protocol 定义客户端与服务器之间的消息词汇表。
//
// 每条消息都是带 type 字段的对象；文本帧承载 JSON，二进制帧承载
// google.protobuf.Struct，两者字段一致。
package protocol

import (
	"strings"

	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Type 为消息的 type 标签。
type Type string

// 客户端 -> 服务器。
const (
	TypeRegister    Type = "register"
	TypeMatch       Type = "match"
	TypeCancelMatch Type = "cancel_match"
	TypeChat        Type = "chat"
	TypeConnect     Type = "connect"
	TypePing        Type = "ping"
	TypeDisconnect  Type = "disconnect"
	TypeSendMessage Type = "send_message"
)

// 服务器 -> 客户端。chat 复用 TypeChat。
const (
	TypeWaiting     Type = "waiting"
	TypeMatched     Type = "matched"
	TypePartnerLeft Type = "partner_left"
	TypeServerError Type = "server_error"
	TypePong        Type = "pong"
	TypeUserCount   Type = "user_count"
	TypeChatMessage Type = "chat_message"
)

// ClientTypes 为全部合法的客户端消息类型。
var ClientTypes = []Type{
	TypeRegister,
	TypeMatch,
	TypeCancelMatch,
	TypeChat,
	TypeConnect,
	TypePing,
	TypeDisconnect,
	TypeSendMessage,
}

func (t Type) String() string {
	return string(t)
}

// ParseType 将原始 type 标签解析为客户端消息类型，大小写不敏感。
func ParseType(tag string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(tag)))
	for _, known := range ClientTypes {
		if t == known {
			return t, nil
		}
	}
	return "", merr.WrapErrUnknownMessageType(tag)
}

// NewRequest 返回 t 对应的空请求对象，t 不是客户端类型时返回 nil。
func NewRequest(t Type) Inbound {
	switch t {
	case TypeRegister:
		return &RegisterRequest{}
	case TypeMatch:
		return &MatchRequest{}
	case TypeCancelMatch:
		return &CancelMatchRequest{}
	case TypeChat:
		return &ChatRequest{}
	case TypeConnect:
		return &ConnectRequest{}
	case TypePing:
		return &PingRequest{}
	case TypeDisconnect:
		return &DisconnectRequest{}
	case TypeSendMessage:
		return &SendMessageRequest{}
	default:
		return nil
	}
}
