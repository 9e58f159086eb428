package application

import (
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/pairchat-go/internal/broker"
	"github.com/lk2023060901/pairchat-go/internal/network/acceptor"
	"github.com/lk2023060901/pairchat-go/internal/network/session"
	"github.com/lk2023060901/pairchat-go/pkg/log"
	zviper "github.com/lk2023060901/pairchat-go/pkg/util/viper"
)

const defaultConfigPath = "./config.yaml"

// Config 为进程的完整配置。
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Log     log.Config    `mapstructure:"log"`
}

type ServerConfig struct {
	// Addr 为监听地址，PORT 环境变量只替换其中的端口。
	Addr        string `mapstructure:"addr"`
	Path        string `mapstructure:"path"`
	MetricsPath string `mapstructure:"metricsPath"`
	// MaxConnections <= 0 表示不限。
	MaxConnections    int      `mapstructure:"maxConnections"`
	AllowedOrigins    []string `mapstructure:"allowedOrigins"`
	EnableCompression bool     `mapstructure:"enableCompression"`
	// ListenTimeout 为监听端口失败时的最长重试时间。
	ListenTimeout time.Duration `mapstructure:"listenTimeout"`
}

type SessionConfig struct {
	SendQueueSize  int           `mapstructure:"sendQueueSize"`
	MaxMessageSize int64         `mapstructure:"maxMessageSize"`
	PingInterval   time.Duration `mapstructure:"pingInterval"`
	PongWait       time.Duration `mapstructure:"pongWait"`
	WriteWait      time.Duration `mapstructure:"writeWait"`
}

type BrokerConfig struct {
	// Mode 为 match（一对一撮合）或 broadcast（全员广播）。
	Mode          string `mapstructure:"mode"`
	IncludeSender bool   `mapstructure:"includeSender"`
}

// envOverrides 为可通过环境变量覆盖的配置项。
type envOverrides struct {
	Port       string `env:"PORT"`
	Mode       string `env:"PAIRCHAT_MODE"`
	LogLevel   string `env:"PAIRCHAT_LOG_LEVEL"`
	ConfigPath string `env:"PAIRCHAT_CONFIG_FILE_PATH"`
}

func setDefaults(c *zviper.Config) {
	c.SetDefault("server.addr", ":8080")
	c.SetDefault("server.path", "/")
	c.SetDefault("server.metricsPath", "/metrics")
	c.SetDefault("server.maxConnections", 10000)
	c.SetDefault("server.listenTimeout", 30*time.Second)
	c.SetDefault("session.sendQueueSize", 256)
	c.SetDefault("session.maxMessageSize", 64*1024)
	c.SetDefault("session.pongWait", 60*time.Second)
	c.SetDefault("session.writeWait", 10*time.Second)
	c.SetDefault("broker.mode", string(broker.ModeMatch))
	c.SetDefault("broker.includeSender", true)
	c.SetDefault("log.level", "info")
	c.SetDefault("log.format", "text")
	c.SetDefault("log.stdout", true)
}

// LoadConfig 按以下优先级确定配置文件路径并加载：
//  1. 默认 ./config.yaml，不存在时只使用缺省值；
//  2. 环境变量 PAIRCHAT_CONFIG_FILE_PATH；
//  3. 命令行 --config <path> 或 --config=<path>。
//
// 文件加载后再应用 PORT、PAIRCHAT_MODE、PAIRCHAT_LOG_LEVEL 覆盖。
func LoadConfig(args []string) (*Config, error) {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}

	path := defaultConfigPath
	explicit := false
	if overrides.ConfigPath != "" {
		path, explicit = overrides.ConfigPath, true
	}
	p, ok, err := configFlag(args)
	if err != nil {
		return nil, err
	}
	if ok {
		path, explicit = p, true
	}

	vc := zviper.New()
	setDefaults(vc)
	if explicit {
		err = vc.LoadFile(path)
	} else {
		_, err = vc.LoadFileIfExists(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load config file %q", path)
	}

	cfg := &Config{}
	if err := vc.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.apply(overrides); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFlag(args []string) (string, bool, error) {
	path, found := "", false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return "", false, errors.New("missing value after --config")
			}
			path, found = args[i+1], true
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok && val != "" {
			path, found = val, true
		}
	}
	return path, found, nil
}

func (c *Config) apply(o envOverrides) error {
	if o.Port != "" {
		host, _, err := net.SplitHostPort(c.Server.Addr)
		if err != nil {
			return errors.Wrapf(err, "invalid server.addr %q", c.Server.Addr)
		}
		c.Server.Addr = net.JoinHostPort(host, o.Port)
	}
	if o.Mode != "" {
		c.Broker.Mode = o.Mode
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := broker.ParseMode(c.Broker.Mode); err != nil {
		return err
	}
	if c.Server.Path == c.Server.MetricsPath {
		return errors.Newf("server.path and server.metricsPath must differ, both are %q", c.Server.Path)
	}
	return nil
}

// BrokerOptions 将配置转换为 broker 选项。
func (c *Config) BrokerOptions() []broker.Option {
	mode, _ := broker.ParseMode(c.Broker.Mode)
	return []broker.Option{
		broker.WithMode(mode),
		broker.WithIncludeSender(c.Broker.IncludeSender),
	}
}

// AcceptorConfig 将配置转换为接入层配置。
func (c *Config) AcceptorConfig() acceptor.Config {
	return acceptor.Config{
		Path:              c.Server.Path,
		MaxConnections:    c.Server.MaxConnections,
		AllowedOrigins:    c.Server.AllowedOrigins,
		EnableCompression: c.Server.EnableCompression,
		MaxMessageSize:    c.Session.MaxMessageSize,
		PongWait:          c.Session.PongWait,
		Session: session.Config{
			SendQueueSize: c.Session.SendQueueSize,
			PingInterval:  c.Session.PingInterval,
			WriteWait:     c.Session.WriteWait,
		},
	}
}
