package broker

import (
	"sync"

	"github.com/samber/lo"

	"github.com/lk2023060901/pairchat-go/internal/protocol"
	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// recorder 是记录投递消息的 Sender，fail 为 true 时拒绝所有投递。
type recorder struct {
	id string

	mu     sync.Mutex
	msgs   []protocol.Outbound
	fail   bool
	closed bool
}

func (r *recorder) Send(msg protocol.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return merr.WrapErrSendQueueFull(r.id, 0)
	}
	if r.closed {
		return merr.WrapErrSessionClosed(r.id)
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) setFail(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = v
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) all() []protocol.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Outbound(nil), r.msgs...)
}

func (r *recorder) types() []protocol.Type {
	return lo.Map(r.all(), func(m protocol.Outbound, _ int) protocol.Type {
		return m.MsgType()
	})
}

func (r *recorder) last() protocol.Outbound {
	msgs := r.all()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}
