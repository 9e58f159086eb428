package broker

import (
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/pairchat-go/pkg/log"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// handleDisconnect 执行断线清理，对同一 id 只生效一次。调用方需持有 b.mu。
//
// 步骤：
//  1. 若连接占据等待位，清空等待位；
//  2. 若连接已配对，清除双向配对并向仍在线的对方发送 partner_left；
//  3. 从连接表中移除；
//  4. 广播模式下向剩余连接推送新的 user_count。
//
// 任一步骤的投递失败都不会跳过后续步骤。
func (b *Broker) handleDisconnect(id ConnID) error {
	conn, ok := b.registry.Lookup(id)
	if !ok {
		return nil
	}

	var errs []error
	b.queue.Cancel(id)
	if conn.Paired() {
		errs = append(errs, b.unlinkPartner(conn))
	}
	b.registry.Remove(id)
	if b.opts.Mode == ModeBroadcast {
		errs = append(errs, b.broadcastUserCount())
	}

	b.Logger().Info("connection closed",
		log.FieldConnID(id.String()),
		zap.String("displayName", conn.DisplayName),
		zap.Duration("lifetime", time.Since(conn.ConnectedAt)),
		zap.Int("remaining", b.registry.Count()))
	return merr.Combine(errs...)
}
