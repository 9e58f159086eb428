package protocol

// Outbound 为服务器发往客户端的一条消息。
type Outbound interface {
	MsgType() Type
}

var (
	_ Outbound = Waiting{}
	_ Outbound = Matched{}
	_ Outbound = Chat{}
	_ Outbound = PartnerLeft{}
	_ Outbound = ServerError{}
	_ Outbound = Pong{}
	_ Outbound = UserCount{}
	_ Outbound = ChatMessage{}
)

type Waiting struct {
	Type Type `json:"type"`
}

func NewWaiting() Waiting { return Waiting{Type: TypeWaiting} }

func (Waiting) MsgType() Type { return TypeWaiting }

// Matched 通知双方配对成功，Partner 为对方的显示名。
type Matched struct {
	Type    Type   `json:"type"`
	Partner string `json:"partner"`
}

func NewMatched(partner string) Matched { return Matched{Type: TypeMatched, Partner: partner} }

func (Matched) MsgType() Type { return TypeMatched }

type Chat struct {
	Type    Type   `json:"type"`
	User    string `json:"user"`
	Message string `json:"message"`
}

func NewChat(user, message string) Chat { return Chat{Type: TypeChat, User: user, Message: message} }

func (Chat) MsgType() Type { return TypeChat }

type PartnerLeft struct {
	Type Type `json:"type"`
}

func NewPartnerLeft() PartnerLeft { return PartnerLeft{Type: TypePartnerLeft} }

func (PartnerLeft) MsgType() Type { return TypePartnerLeft }

type ServerError struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func NewServerError(message string) ServerError {
	return ServerError{Type: TypeServerError, Message: message}
}

func (ServerError) MsgType() Type { return TypeServerError }

type Pong struct {
	Type Type `json:"type"`
}

func NewPong() Pong { return Pong{Type: TypePong} }

func (Pong) MsgType() Type { return TypePong }

// UserCount 为广播模式下的在线人数通知。
type UserCount struct {
	Type  Type `json:"type"`
	Count int  `json:"count"`
}

func NewUserCount(count int) UserCount { return UserCount{Type: TypeUserCount, Count: count} }

func (UserCount) MsgType() Type { return TypeUserCount }

// ChatMessage 为 send_message 的广播结果，Message 原样转发并补充 senderName。
type ChatMessage struct {
	Type    Type           `json:"type"`
	Message map[string]any `json:"message"`
}

func NewChatMessage(message map[string]any) ChatMessage {
	return ChatMessage{Type: TypeChatMessage, Message: message}
}

func (ChatMessage) MsgType() Type { return TypeChatMessage }
