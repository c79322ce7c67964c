package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Attendance   AttendanceConfig   `mapstructure:"attendance"`
	Notification NotificationConfig `mapstructure:"notification"`
	Course       CourseConfig       `mapstructure:"course"`
	Membership   MembershipConfig   `mapstructure:"membership"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AccessTokenTTL    time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `mapstructure:"refresh_token_ttl"`
	MinPasswordLength int           `mapstructure:"min_password_length"`
	GoogleClientID    string        `mapstructure:"google_client_id"`
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	Driver           string             `mapstructure:"driver"` // local | b2
	MaxFileBytes     int64              `mapstructure:"max_file_bytes"`
	AllowedMimeTypes []string           `mapstructure:"allowed_mime_types"`
	Local            LocalStorageConfig `mapstructure:"local"`
	B2               B2StorageConfig    `mapstructure:"b2"`
}

// LocalStorageConfig 本地磁盘存储
type LocalStorageConfig struct {
	Dir       string `mapstructure:"dir"`
	PublicURL string `mapstructure:"public_url"`
}

// B2StorageConfig Backblaze B2 存储
type B2StorageConfig struct {
	AccountID      string `mapstructure:"account_id"`
	ApplicationKey string `mapstructure:"application_key"`
	Bucket         string `mapstructure:"bucket"`
}

// AttendanceConfig 签到模块配置
type AttendanceConfig struct {
	DefaultRadiusM  float64       `mapstructure:"default_radius_m"`
	TokenBytes      int           `mapstructure:"token_bytes"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	ScanRateLimit   int           `mapstructure:"scan_rate_limit"`
	ScanRateWindow  time.Duration `mapstructure:"scan_rate_window"`
	TokenMaxRetries int           `mapstructure:"token_max_retries"`
}

// NotificationConfig 通知分发配置
type NotificationConfig struct {
	QueueSize    int `mapstructure:"queue_size"`
	Workers      int `mapstructure:"workers"`
	BodyMaxRunes int `mapstructure:"body_max_runes"`
}

// CourseConfig 课程模块配置
type CourseConfig struct {
	CodeLength      int `mapstructure:"code_length"`
	CodeMaxAttempts int `mapstructure:"code_max_attempts"`
}

// MembershipConfig 成员关系解析配置
type MembershipConfig struct {
	// LegacyEnrollmentFallback 为 true 时同时查询旧表 course_students（数据迁移完成前使用）
	LegacyEnrollmentFallback bool `mapstructure:"legacy_enrollment_fallback"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 32<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173", "http://localhost:19006"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "classpad")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.access_token_ttl", "1h")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.min_password_length", 8)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.max_file_bytes", 20<<20)
	v.SetDefault("storage.allowed_mime_types", []string{
		"application/pdf",
		"image/png",
		"image/jpeg",
		"image/gif",
		"image/webp",
		"text/plain",
		"application/zip",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	})
	v.SetDefault("storage.local.dir", "./uploads")
	v.SetDefault("storage.local.public_url", "http://localhost:8080/uploads")

	v.SetDefault("attendance.default_radius_m", 50)
	v.SetDefault("attendance.token_bytes", 24)
	v.SetDefault("attendance.sweep_interval", "1m")
	v.SetDefault("attendance.scan_rate_limit", 20)
	v.SetDefault("attendance.scan_rate_window", "1m")
	v.SetDefault("attendance.token_max_retries", 3)

	v.SetDefault("notification.queue_size", 256)
	v.SetDefault("notification.workers", 2)
	v.SetDefault("notification.body_max_runes", 100)

	v.SetDefault("course.code_length", 6)
	v.SetDefault("course.code_max_attempts", 10)

	v.SetDefault("membership.legacy_enrollment_fallback", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CLASSPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Storage.Driver {
	case "local", "b2":
	default:
		return fmt.Errorf("配置校验失败: storage.driver 只能是 local 或 b2，实际为 %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "b2" && (c.Storage.B2.AccountID == "" || c.Storage.B2.Bucket == "") {
		return fmt.Errorf("配置校验失败: 使用 b2 存储时必须配置 account_id 与 bucket")
	}
	if c.Auth.MinPasswordLength <= 0 {
		c.Auth.MinPasswordLength = 8
	}
	return nil
}
