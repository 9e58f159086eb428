package broker

import (
	"time"

	"github.com/samber/lo"

	"github.com/lk2023060901/pairchat-go/internal/protocol"
)

// ConnID 为连接的唯一标识，由接入层在握手时分配，连接存活期间不变。
type ConnID string

func (id ConnID) String() string {
	return string(id)
}

// short 返回 id 的前 8 个字符，用作缺省的展示名。
func (id ConnID) short() string {
	return lo.Substring(string(id), 0, 8)
}

// State 为连接在撮合流程中的状态。
type State int

const (
	StateUnregistered State = iota
	StateRegistered
	StateWaiting
	StatePaired
	StateClosed
)

var stateNames = map[State]string{
	StateUnregistered: "unregistered",
	StateRegistered:   "registered",
	StateWaiting:      "waiting",
	StatePaired:       "paired",
	StateClosed:       "closed",
}

func (s State) String() string {
	return stateNames[s]
}

// Sender 是向单条连接投递消息的能力，由传输层实现。
//
// Send 不得阻塞：通道已满或已关闭时直接返回错误。
type Sender interface {
	Send(msg protocol.Outbound) error
	Close() error
}

// Connection 是一条在线连接在撮合核心中的记录。
//
// 所有字段只在 Broker 持锁时读写。
type Connection struct {
	ID ConnID
	// DisplayName 为空表示尚未注册，一经设置不再改变。
	DisplayName string
	// PartnerID 为空表示未配对。
	PartnerID ConnID

	Sender Sender

	RemoteAddr  string
	ConnectedAt time.Time
}

func (c *Connection) Registered() bool {
	return c.DisplayName != ""
}

func (c *Connection) Paired() bool {
	return c.PartnerID != ""
}

// label 返回用于聊天消息的展示名，未注册时退化为 id 前缀。
func (c *Connection) label() string {
	if c.Registered() {
		return c.DisplayName
	}
	return c.ID.short()
}
