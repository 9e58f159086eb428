package broker

import (
	"github.com/samber/lo"

	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// chat 处理 chat 消息。调用方需持有 b.mu。
//
// 撮合模式下转发给当前对方；广播模式下按 IncludeSender 投递给全部在线连接。
func (b *Broker) chat(conn *Connection, text string) error {
	if b.opts.Mode == ModeBroadcast {
		return b.broadcast(conn.ID, protocol.NewChat(conn.label(), text), b.opts.chatAudience())
	}
	return b.routeChat(conn, text)
}

// routeChat 将聊天内容只投递给 sender 的对方。
// 未配对或对方已不在线时静默丢弃。
func (b *Broker) routeChat(sender *Connection, text string) error {
	if !sender.Paired() {
		return nil
	}
	partner, ok := b.registry.Lookup(sender.PartnerID)
	if !ok {
		return nil
	}
	return b.send(partner, protocol.NewChat(sender.DisplayName, text))
}

// broadcast 向在线连接投递 msg，from 为发送者（可为空）。
//
// 单个接收方投递失败不影响其余接收方，失败汇总后返回。
func (b *Broker) broadcast(from ConnID, msg protocol.Outbound, audience Audience) error {
	targets := b.registry.Connections()
	if audience == ToAllExceptSender {
		targets = lo.Reject(targets, func(c *Connection, _ int) bool {
			return c.ID == from
		})
	}
	errs := lo.Map(targets, func(c *Connection, _ int) error {
		return b.send(c, msg)
	})
	return merr.Combine(errs...)
}

// broadcastUserCount 向全部在线连接推送当前连接数。
func (b *Broker) broadcastUserCount() error {
	return b.broadcast("", protocol.NewUserCount(b.registry.Count()), ToAll)
}

// sendMessage 处理旧版 send_message：复制 message，补充 senderName 后以 chat_message 广播给全部连接。
//
// senderName 取 message.senderId 的前 8 个字符，缺失时取发送者的展示名。
func (b *Broker) sendMessage(conn *Connection, message map[string]any) error {
	out := lo.Assign(map[string]any{}, message)
	if senderID, ok := out["senderId"].(string); ok && senderID != "" {
		out["senderName"] = lo.Substring(senderID, 0, 8)
	} else {
		out["senderName"] = conn.label()
	}
	return b.broadcast(conn.ID, protocol.NewChatMessage(out), ToAll)
}
