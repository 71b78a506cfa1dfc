package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // HTTP服务配置
	Snapshot SnapshotConfig `mapstructure:"snapshot"` // 抓取快照文件配置
	Recorder RecorderConfig `mapstructure:"recorder"` // WebSocket录制配置
	Database DatabaseConfig `mapstructure:"database"` // 快照归档数据库配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	CORS     CORSConfig     `mapstructure:"cors"`     // 跨域配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`             // 服务端口
	Mode            string        `mapstructure:"mode"`             // Gin运行模式：debug/release/test
	Name            string        `mapstructure:"name"`             // /api/status 中返回的服务名
	EnablePprof     bool          `mapstructure:"enable_pprof"`     // 是否注册 /debug/pprof
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 优雅退出等待时间
}

// SnapshotConfig 快照文件配置
type SnapshotConfig struct {
	Path           string        `mapstructure:"path"`            // 快照JSON文件路径
	ReloadInterval time.Duration `mapstructure:"reload_interval"` // 轮询文件变化的间隔，0 表示只在启动时加载
}

// RecorderConfig WebSocket 录制器配置（可选，替代浏览器抓取）
type RecorderConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	URL              string            `mapstructure:"url"`               // wss://.../socket.io/?EIO=3&transport=websocket
	PageURL          string            `mapstructure:"page_url"`          // 写入快照的 url 字段
	Origin           string            `mapstructure:"origin"`            // Origin 头
	UserAgent        string            `mapstructure:"user_agent"`        // User-Agent 头
	Headers          map[string]string `mapstructure:"headers"`           // 额外请求头
	Proxy            string            `mapstructure:"proxy"`             // 代理地址
	HandshakeTimeout time.Duration     `mapstructure:"handshake_timeout"` // 握手超时
	PingInterval     time.Duration     `mapstructure:"ping_interval"`     // 客户端主动 ping 间隔（EIO3），0 表示不主动 ping
	FlushInterval    time.Duration     `mapstructure:"flush_interval"`    // 快照落盘并发布的间隔
	ReconnectDelay   time.Duration     `mapstructure:"reconnect_delay"`   // 断线重连最小间隔
	ConnectFrames    []string          `mapstructure:"connect_frames"`    // 连接建立后依次发送的帧（如 "40"）
}

// DatabaseConfig PostgreSQL 快照归档配置
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`           // 未开启时不连接数据库
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL 形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	SeedOnStart     bool          `mapstructure:"seed_on_start"`     // 快照文件不存在时用最近一次归档初始化
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`        // debug/info/warn/error
	Format     string `mapstructure:"format"`       // text/json
	File       string `mapstructure:"file"`         // 为空则只输出到 stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个日志文件大小上限
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的历史文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 历史文件保留天数
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("./config")
}

// LoadConfigFrom 从指定目录加载 config.yaml；文件不存在时使用默认值
func LoadConfigFrom(dir string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.name", "Winamax Data Server")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("snapshot.path", "winamax_socketio_analysis.json")
	v.SetDefault("snapshot.reload_interval", 10*time.Second)

	v.SetDefault("recorder.page_url", "https://www.winamax.fr/paris-sportifs/sports/1")
	v.SetDefault("recorder.origin", "https://www.winamax.fr")
	v.SetDefault("recorder.handshake_timeout", 10*time.Second)
	v.SetDefault("recorder.flush_interval", 5*time.Second)
	v.SetDefault("recorder.reconnect_delay", 5*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		cfg.Snapshot.Path = v
	}
	if v := os.Getenv("RECORDER_URL"); v != "" {
		cfg.Recorder.URL = v
	}
	if v := os.Getenv("RECORDER_PROXY"); v != "" {
		cfg.Recorder.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// GetGORMConfig 获取GORM配置
func (d *DatabaseConfig) GetGORMConfig() gorm.Config {
	// 只记录慢查询和错误
	return gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
}
