package broker

import (
	"strings"

	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

// Mode 为 Broker 的投递模式。
type Mode string

const (
	// ModeMatch 为一对一撮合：chat 只投递给当前配对的对方。
	ModeMatch Mode = "match"
	// ModeBroadcast 为广播：chat 投递给全部在线连接，并推送在线人数。
	ModeBroadcast Mode = "broadcast"
)

// ParseMode 解析配置中的模式名，大小写不敏感。
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMatch, ModeBroadcast:
		return m, nil
	case "":
		return ModeMatch, nil
	default:
		return "", merr.WrapErrParameterInvalid(string(ModeMatch)+"|"+string(ModeBroadcast), s, "broker mode")
	}
}

// Audience 指定广播的接收范围。
type Audience int

const (
	// ToAll 投递给全部在线连接，包括发送者。
	ToAll Audience = iota
	// ToAllExceptSender 投递给除发送者以外的全部在线连接。
	ToAllExceptSender
)

type Options struct {
	Mode Mode
	// IncludeSender 决定广播模式下 chat 是否回显给发送者。
	IncludeSender bool
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Mode:          ModeMatch,
		IncludeSender: true,
	}
}

func WithMode(m Mode) Option {
	return func(o *Options) {
		o.Mode = m
	}
}

func WithIncludeSender(v bool) Option {
	return func(o *Options) {
		o.IncludeSender = v
	}
}

func (o Options) chatAudience() Audience {
	if o.IncludeSender {
		return ToAll
	}
	return ToAllExceptSender
}
