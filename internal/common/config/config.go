// Package config 加载应用配置
// 优先级：环境变量 > 配置文件 > 默认值。环境变量以 FUNZONE_ 开头，层级用下划线连接，
// 例如 FUNZONE_DATABASE_HOST 覆盖 database.host。时长字段接受 "30s"、"15m" 这类写法。
package config

import (
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "FUNZONE"

const defaultJWTSecret = "change-me-in-production"

var (
	mu      sync.RWMutex
	current *Config
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Business  BusinessConfig  `mapstructure:"business"`
}

// ServerConfig HTTP 服务，mode 取 debug | test | release
type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr 监听地址
func (s *ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	Timezone        string        `mapstructure:"timezone"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// 开启后记录全部 SQL，否则只记录慢查询与错误
	LogMode       bool          `mapstructure:"log_mode"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	AutoMigrate   bool          `mapstructure:"auto_migrate"`
}

// DSN PostgreSQL 连接串
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone,
	)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// MQTTConfig 游戏机积分下发，未启用时积分只记账不下发
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientIDPrefix string        `mapstructure:"client_id_prefix"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	KeepAlive      time.Duration `mapstructure:"keep_alive"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QoS            byte          `mapstructure:"qos"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

type CryptoConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// PaymentConfig VNPay 网关
type PaymentConfig struct {
	TmnCode    string        `mapstructure:"tmn_code"`
	HashSecret string        `mapstructure:"hash_secret"`
	PayURL     string        `mapstructure:"pay_url"`
	APIURL     string        `mapstructure:"api_url"`
	ReturnURL  string        `mapstructure:"return_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	ExpireMins int           `mapstructure:"expire_mins"`
}

// Configured 商户号与密钥齐全
func (p *PaymentConfig) Configured() bool {
	return p.TmnCode != "" && p.HashSecret != ""
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig 全局按 IP 限流
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// CORSConfig allowed_origins 支持 "*" 与 "https://*.example.com"
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type BusinessConfig struct {
	Points    PointsConfig    `mapstructure:"points"`
	Promotion PromotionConfig `mapstructure:"promotion"`
	Ticket    TicketConfig    `mapstructure:"ticket"`
	Gamify    GamifyConfig    `mapstructure:"gamify"`
	// 操作日志保留天数，0 表示不清理
	OperationLogRetentionDays int `mapstructure:"operation_log_retention_days"`
}

// OperationLogRetention 保留时长
func (b *BusinessConfig) OperationLogRetention() time.Duration {
	return time.Duration(b.OperationLogRetentionDays) * 24 * time.Hour
}

type PointsConfig struct {
	// 每消费多少越南盾积 1 分
	SpendPerPoint int64 `mapstructure:"spend_per_point"`
}

type PromotionConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type TicketConfig struct {
	// 预订后多久未付款自动取消
	BookingTTL         time.Duration `mapstructure:"booking_ttl"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	TransferMemoPrefix string        `mapstructure:"transfer_memo_prefix"`
	QRSize             int           `mapstructure:"qr_size"`
}

type GamifyConfig struct {
	LeaderboardCacheTTL time.Duration `mapstructure:"leaderboard_cache_ttl"`
	LeaderboardLimit    int           `mapstructure:"leaderboard_limit"`
	RecommendCacheTTL   time.Duration `mapstructure:"recommend_cache_ttl"`
}

// 没有默认值的键不会被 AutomaticEnv 填充，敏感项也以空串登记
var defaults = map[string]interface{}{
	"server.name":             "funzone-backend",
	"server.mode":             "debug",
	"server.port":             8000,
	"server.read_timeout":     "30s",
	"server.write_timeout":    "30s",
	"server.shutdown_timeout": "10s",

	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "postgres",
	"database.name":              "funzone",
	"database.sslmode":           "disable",
	"database.timezone":          "Asia/Ho_Chi_Minh",
	"database.max_idle_conns":    10,
	"database.max_open_conns":    50,
	"database.conn_max_lifetime": "1h",
	"database.log_mode":          false,
	"database.slow_threshold":    "200ms",
	"database.auto_migrate":      true,

	"redis.host":           "localhost",
	"redis.port":           6379,
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      50,
	"redis.min_idle_conns": 5,
	"redis.dial_timeout":   "5s",
	"redis.read_timeout":   "3s",
	"redis.write_timeout":  "3s",

	"mqtt.enabled":          false,
	"mqtt.broker":           "tcp://localhost:1883",
	"mqtt.client_id_prefix": "funzone-",
	"mqtt.username":         "",
	"mqtt.password":         "",
	"mqtt.keep_alive":       "60s",
	"mqtt.connect_timeout":  "10s",
	"mqtt.qos":              1,
	"mqtt.topic_prefix":     "funzone/",

	"jwt.secret":           defaultJWTSecret,
	"jwt.access_token_ttl": "24h",
	"jwt.issuer":           "funzone",

	"crypto.bcrypt_cost": 10,

	"payment.tmn_code":    "",
	"payment.hash_secret": "",
	"payment.pay_url":     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
	"payment.api_url":     "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction",
	"payment.return_url":  "",
	"payment.timeout":     "5s",
	"payment.expire_mins": 15,

	"logger.level":       "debug",
	"logger.format":      "console",
	"logger.output":      "stdout",
	"logger.file_path":   "./logs/app.log",
	"logger.max_size":    100,
	"logger.max_backups": 10,
	"logger.max_age":     30,
	"logger.compress":    true,
	"logger.caller":      true,

	"metrics.enabled": true,
	"metrics.path":    "/metrics",

	"tracing.enabled":      false,
	"tracing.service_name": "funzone-backend",
	"tracing.exporter":     "stdout",
	"tracing.endpoint":     "localhost:4317",
	"tracing.sample_rate":  1.0,

	"ratelimit.enabled": true,
	"ratelimit.limit":   120,
	"ratelimit.window":  "1m",

	"cors.allowed_origins":   []string{"*"},
	"cors.allowed_methods":   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"cors.allowed_headers":   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
	"cors.exposed_headers":   []string{"X-Request-ID", "X-Transfer-Memo", "traceparent"},
	"cors.allow_credentials": true,
	"cors.max_age":           86400,

	"business.points.spend_per_point":       5000,
	"business.promotion.cache_ttl":          "30s",
	"business.ticket.booking_ttl":           "24h",
	"business.ticket.sweep_interval":        "10m",
	"business.ticket.transfer_memo_prefix":  "FZ-VE-",
	"business.ticket.qr_size":               256,
	"business.gamify.leaderboard_cache_ttl": "1m",
	"business.gamify.leaderboard_limit":     20,
	"business.gamify.recommend_cache_ttl":   "1m",
	"business.operation_log_retention_days": 90,
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load 读取配置并设为全局配置
// configPath 为空时依次查找 ./configs/config.yaml 与 ./config.yaml，找不到文件时只用默认值与环境变量
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	current = cfg
	mu.Unlock()
	return cfg, nil
}

// Get 全局配置，未 Load 时返回默认配置
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}
	return Default()
}

// Default 只含默认值与环境变量的配置
func Default() *Config {
	cfg := &Config{}
	_ = newViper().Unmarshal(cfg)
	return cfg
}

// Validate 校验会导致启动后才暴露的问题，release 模式下更严格
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Business.Points.SpendPerPoint <= 0 {
		errs = append(errs, stderrors.New("business.points.spend_per_point must be positive"))
	}
	if c.MQTT.Enabled && c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	if c.IsRelease() {
		if c.JWT.Secret == defaultJWTSecret || len(c.JWT.Secret) < 32 {
			errs = append(errs, stderrors.New("jwt.secret must be set to at least 32 characters in release mode"))
		}
		if !c.Payment.Configured() {
			errs = append(errs, stderrors.New("payment.tmn_code and payment.hash_secret are required in release mode"))
		}
	}
	return stderrors.Join(errs...)
}

func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}

func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}
