// Package config 提供基于 YAML 的节点配置加载。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 是节点应用的根配置。
type Config struct {
	// AppName 节点/应用的逻辑名称
	AppName string `mapstructure:"app_name"`

	// DataDir 持久化数据的基础目录
	DataDir string `mapstructure:"data_dir"`

	// NodeID 本地节点标识，用于远程寻址和日志
	NodeID string `mapstructure:"node_id"`

	// Serializer 消息负载的编码格式：gob（仅 Go 节点）或 cbor（跨语言）。
	// WAL 落盘和远程传输都使用该序列化器。
	Serializer string `mapstructure:"serializer"`

	// Log 日志配置
	Log LogConfig `mapstructure:"log"`

	// Persistence 邮箱 WAL 持久化配置
	Persistence PersistenceConfig `mapstructure:"persistence"`

	// Metrics 指标暴露配置
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Remote 远程传输配置
	Remote RemoteConfig `mapstructure:"remote"`

	// RateLimit 出站消息限流配置
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LogConfig 定义日志器设置。
type LogConfig struct {
	// Level 日志级别：debug、info、warn、error
	Level string `mapstructure:"level"`
	// Format 输出格式：console 或 json
	Format string `mapstructure:"format"`
	// Outputs 输出目标列表：stdout、stderr 或文件路径
	Outputs []string `mapstructure:"outputs"`

	// Rotation 文件输出时的轮转配置
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development 是否启用开发者友好的日志选项
	Development bool `mapstructure:"development"`
}

// RotationConfig 控制日志文件轮转。
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// PersistenceConfig 控制每个 Actor 的 WAL 持久化。
type PersistenceConfig struct {
	// Enable 是否启用持久化
	Enable bool `mapstructure:"enable"`
	// Dir WAL 文件目录，为空时使用 DataDir 下的 wal 子目录
	Dir string `mapstructure:"dir"`
}

// MetricsConfig 控制 Prometheus 文本指标的暴露。
type MetricsConfig struct {
	// Enable 是否启用指标端点
	Enable bool `mapstructure:"enable"`
	// Addr HTTP 监听地址，默认 :9090
	Addr string `mapstructure:"addr"`
}

// RemoteConfig 控制 gRPC 远程传输。
type RemoteConfig struct {
	// Enable 是否启用远程传输
	Enable bool `mapstructure:"enable"`
	// Listen gRPC 监听地址，默认 :7788
	Listen string `mapstructure:"listen"`
}

// RateLimitConfig 控制出站消息的令牌桶限流。
type RateLimitConfig struct {
	// Enable 是否启用限流
	Enable bool `mapstructure:"enable"`
	// QPS 每秒允许的消息数
	QPS int64 `mapstructure:"qps"`
	// Burst 突发容量，为零时使用 QPS
	Burst int64 `mapstructure:"burst"`
}

// Default 返回带合理默认值的配置。
func Default() *Config {
	return &Config{
		AppName:    "huixin-node",
		DataDir:    "./data",
		NodeID:     "node-1",
		Serializer: "gob",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/huixin.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Persistence: PersistenceConfig{Enable: false},
		Metrics:     MetricsConfig{Enable: false, Addr: ":9090"},
		Remote:      RemoteConfig{Enable: false, Listen: ":7788"},
		RateLimit:   RateLimitConfig{Enable: false, QPS: 10000},
	}
}

// Load 从指定路径读取配置（path 非空时），否则搜索常见位置。
// 支持环境变量覆盖：前缀 HUIXIN，`.` 和 `-` 替换为 `_`。
// 例如：HUIXIN_LOG_LEVEL=debug。
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HUIXIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 给 viper 预置默认值，保证纯环境变量配置也能工作
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("node_id", cfg.NodeID)
	v.SetDefault("serializer", cfg.Serializer)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("persistence.enable", cfg.Persistence.Enable)
	v.SetDefault("persistence.dir", cfg.Persistence.Dir)
	v.SetDefault("metrics.enable", cfg.Metrics.Enable)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("remote.enable", cfg.Remote.Enable)
	v.SetDefault("remote.listen", cfg.Remote.Listen)
	v.SetDefault("rate_limit.enable", cfg.RateLimit.Enable)
	v.SetDefault("rate_limit.qps", cfg.RateLimit.QPS)
	v.SetDefault("rate_limit.burst", cfg.RateLimit.Burst)

	if path == "" {
		if envPath := os.Getenv("HUIXIN_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("huixin")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".huixin"))
		}
	}

	// 找不到配置文件时使用默认值加环境变量
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	if strings.TrimSpace(c.NodeID) == "" {
		c.NodeID = "node-1"
	}
	switch strings.ToLower(strings.TrimSpace(c.Serializer)) {
	case "":
		c.Serializer = "gob"
	case "gob", "cbor":
		c.Serializer = strings.ToLower(strings.TrimSpace(c.Serializer))
	default:
		return fmt.Errorf("invalid serializer: %q (want gob or cbor)", c.Serializer)
	}
	if c.Persistence.Enable && strings.TrimSpace(c.Persistence.Dir) == "" {
		c.Persistence.Dir = filepath.Join(c.DataDir, "wal")
	}
	if c.Metrics.Enable && strings.TrimSpace(c.Metrics.Addr) == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Remote.Enable && strings.TrimSpace(c.Remote.Listen) == "" {
		c.Remote.Listen = ":7788"
	}
	if c.RateLimit.Enable && c.RateLimit.QPS <= 0 {
		return fmt.Errorf("rate_limit.qps must be positive when enabled")
	}
	return nil
}

// MustLoad 是 Load 的便捷包装，出错时 panic。
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
