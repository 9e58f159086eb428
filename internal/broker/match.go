package broker

import (
	"go.uber.org/zap"

	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/metrics"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// requestMatch 处理 match 请求。调用方需持有 b.mu。
//
//   - 已配对的连接先解除旧配对（对方收到 partner_left），视为主动放弃旧会话；
//   - 等待位有其他有效连接时，双方同时进入 Paired 并各自收到 matched；
//   - 否则进入等待位并收到 waiting。等待位本就是自己时重新排队，不会与自己配对。
func (b *Broker) requestMatch(conn *Connection) error {
	if !conn.Registered() {
		return merr.ErrNotRegistered
	}

	var errs []error
	if conn.Paired() {
		errs = append(errs, b.unlinkPartner(conn))
	}

	if waiting, ok := b.queue.Occupant(b.registry); ok && waiting.ID != conn.ID {
		b.queue.Clear()
		conn.PartnerID = waiting.ID
		waiting.PartnerID = conn.ID
		metrics.MatchesTotal.Inc()

		b.Logger().Info("connections matched",
			log.FieldConnID(conn.ID.String()),
			zap.String("partnerID", waiting.ID.String()))
		errs = append(errs,
			b.send(waiting, protocol.NewMatched(conn.DisplayName)),
			b.send(conn, protocol.NewMatched(waiting.DisplayName)))
		return merr.Combine(errs...)
	}

	b.queue.Enqueue(conn.ID)
	errs = append(errs, b.send(conn, protocol.NewWaiting()))
	return merr.Combine(errs...)
}

// cancelMatch 处理 cancel_match：离开等待位；若已配对则解除配对并通知对方。调用方需持有 b.mu。
func (b *Broker) cancelMatch(conn *Connection) error {
	if !conn.Registered() {
		return merr.ErrNotRegistered
	}
	b.queue.Cancel(conn.ID)
	if conn.Paired() {
		return b.unlinkPartner(conn)
	}
	return nil
}

// unlinkPartner 清除 conn 与其对方的双向配对，并向仍在线的对方发送 partner_left。
// 对方已不在连接表中或已不指向 conn 时只清除 conn 一侧。调用方需持有 b.mu。
func (b *Broker) unlinkPartner(conn *Connection) error {
	partnerID := conn.PartnerID
	conn.PartnerID = ""

	partner, ok := b.registry.Lookup(partnerID)
	if !ok || partner.PartnerID != conn.ID {
		return nil
	}
	partner.PartnerID = ""
	return b.send(partner, protocol.NewPartnerLeft())
}
