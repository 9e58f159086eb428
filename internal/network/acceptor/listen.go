package acceptor

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/lk2023060901/pairchat-go/pkg/log"
)

// Listen 在 addr 上监听 TCP，失败时按指数退避重试，直到成功、ctx 取消或超过 maxElapsed。
//
// maxElapsed 为 0 时只尝试一次。
func Listen(ctx context.Context, addr string, maxElapsed time.Duration) (net.Listener, error) {
	var lc net.ListenConfig
	if maxElapsed <= 0 {
		return lc.Listen(ctx, "tcp", addr)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = maxElapsed
	b.Reset()

	var ln net.Listener
	op := func() error {
		var err error
		ln, err = lc.Listen(ctx, "tcp", addr)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Warn("failed to listen, wait for retry...", zap.String("addr", addr),
			zap.Error(err), zap.Duration("nextBackoffInterval", next))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return ln, nil
}
