package protocol

import (
	"github.com/lk2023060901/pairchat-go/internal/json"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Inbound 为客户端发来的一条消息。
type Inbound interface {
	MsgType() Type
	// Validate 检查该类型的必填字段。
	Validate() error
}

var (
	_ Inbound = (*RegisterRequest)(nil)
	_ Inbound = (*MatchRequest)(nil)
	_ Inbound = (*CancelMatchRequest)(nil)
	_ Inbound = (*ChatRequest)(nil)
	_ Inbound = (*ConnectRequest)(nil)
	_ Inbound = (*PingRequest)(nil)
	_ Inbound = (*DisconnectRequest)(nil)
	_ Inbound = (*SendMessageRequest)(nil)
)

// RegisterRequest 为连接绑定显示名。
type RegisterRequest struct {
	User string `json:"user"`
}

func (*RegisterRequest) MsgType() Type { return TypeRegister }

func (r *RegisterRequest) Validate() error {
	if r.User == "" {
		return merr.WrapErrMissingField(TypeRegister.String(), "user")
	}
	return nil
}

type MatchRequest struct{}

func (*MatchRequest) MsgType() Type   { return TypeMatch }
func (*MatchRequest) Validate() error { return nil }

type CancelMatchRequest struct{}

func (*CancelMatchRequest) MsgType() Type   { return TypeCancelMatch }
func (*CancelMatchRequest) Validate() error { return nil }

// ChatRequest 携带一条聊天文本。
type ChatRequest struct {
	Message string `json:"message"`
}

func (*ChatRequest) MsgType() Type { return TypeChat }

func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return merr.WrapErrMissingField(TypeChat.String(), "message")
	}
	return nil
}

// ConnectRequest 是 register 的旧版写法，以 userId 作为显示名。
type ConnectRequest struct {
	UserID string `json:"userId"`
}

func (*ConnectRequest) MsgType() Type { return TypeConnect }

func (r *ConnectRequest) Validate() error {
	if r.UserID == "" {
		return merr.WrapErrMissingField(TypeConnect.String(), "userId")
	}
	return nil
}

type PingRequest struct{}

func (*PingRequest) MsgType() Type   { return TypePing }
func (*PingRequest) Validate() error { return nil }

type DisconnectRequest struct{}

func (*DisconnectRequest) MsgType() Type   { return TypeDisconnect }
func (*DisconnectRequest) Validate() error { return nil }

// SendMessageRequest 为广播模式下的旧版聊天消息，message 为任意对象。
type SendMessageRequest struct {
	Message map[string]any `json:"message"`
}

func (*SendMessageRequest) MsgType() Type { return TypeSendMessage }

func (r *SendMessageRequest) Validate() error {
	if r.Message == nil {
		return merr.WrapErrMissingField(TypeSendMessage.String(), "message")
	}
	return nil
}

// Tagged 将请求展开为带 type 字段的对象，供客户端发送。
func Tagged(req Inbound) (map[string]any, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = req.MsgType().String()
	return fields, nil
}
