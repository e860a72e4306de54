// Package config 加载服务配置：可选 YAML 文件叠加环境变量
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// 存储驱动
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverMongo  = "mongo"
)

// 审计传输
const (
	TransportMemory = "memory"
	TransportSync   = "sync"
	TransportNATS   = "nats"
	TransportRedis  = "redis"
)

var (
	drivers    = []string{DriverMemory, DriverSQLite, DriverBolt, DriverMongo}
	transports = []string{TransportMemory, TransportSync, TransportNATS, TransportRedis}
	logFormats = []string{"text", "json"}
)

const masked = "******"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
	Audit  AuditConfig  `yaml:"audit"`
	Auth   AuthConfig   `yaml:"auth"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:":3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
	// TrustProxy 为 true 时审计 IP 取 X-Forwarded-For 的首个地址，仅在可信反向代理之后开启
	TrustProxy bool `yaml:"trust_proxy" env:"SERVER_TRUST_PROXY" env-default:"false"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver" env:"STORE_DRIVER" env-default:"memory"`
	SQLitePath    string `yaml:"sqlite_path" env:"STORE_SQLITE_PATH" env-default:"backoffice.db"`
	BoltPath      string `yaml:"bolt_path" env:"STORE_BOLT_PATH" env-default:"backoffice.bolt"`
	MongoURI      string `yaml:"mongo_uri" env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase string `yaml:"mongo_database" env:"MONGODB_DATABASE" env-default:"backoffice"`
}

type AuditConfig struct {
	Transport     string `yaml:"transport" env:"AUDIT_TRANSPORT" env-default:"memory"`
	QueueSize     int    `yaml:"queue_size" env:"AUDIT_QUEUE_SIZE" env-default:"1024"`
	Workers       int    `yaml:"workers" env:"AUDIT_WORKERS" env-default:"2"`
	NATSURL       string `yaml:"nats_url" env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
	NATSStream    string `yaml:"nats_stream" env:"NATS_STREAM" env-default:"BACKOFFICE"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"127.0.0.1:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	// RedisURL 非空时覆盖 RedisAddr/RedisPassword/RedisDB，例如 redis://:pass@host:6379/1
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:""`
}

type AuthConfig struct {
	// Required 为 false 时允许匿名请求，匿名变更不写审计
	Required      bool          `yaml:"required" env:"AUTH_REQUIRED" env-default:"true"`
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:""`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"JWT_EXPIRES_IN" env-default:"24h"`
	UserCacheSize int           `yaml:"user_cache_size" env:"AUTH_USER_CACHE_SIZE" env-default:"1024"`
	UserCacheTTL  time.Duration `yaml:"user_cache_ttl" env:"AUTH_USER_CACHE_TTL" env-default:"1m"`
}

// Load 读取配置；path 为空时只读环境变量
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Audit.RedisURL != "" {
		addr, password, db, err := parseRedisURL(cfg.Audit.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		cfg.Audit.RedisAddr, cfg.Audit.RedisPassword, cfg.Audit.RedisDB = addr, password, db
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if !slices.Contains(drivers, c.Store.Driver) {
		problems = append(problems, fmt.Sprintf("store.driver must be one of %s", strings.Join(drivers, "|")))
	}
	if !slices.Contains(transports, c.Audit.Transport) {
		problems = append(problems, fmt.Sprintf("audit.transport must be one of %s", strings.Join(transports, "|")))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		problems = append(problems, "log.format must be text or json")
	}
	if c.Audit.Transport == TransportMemory && (c.Audit.QueueSize <= 0 || c.Audit.Workers <= 0) {
		problems = append(problems, "audit.queue_size and audit.workers must be positive")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// YAML 渲染生效配置，密钥类字段被遮盖
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = masked
	}
	if out.Audit.RedisPassword != "" {
		out.Audit.RedisPassword = masked
	}
	if out.Audit.RedisURL != "" {
		out.Audit.RedisURL = masked
	}
	if u, err := url.Parse(out.Store.MongoURI); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), masked)
			out.Store.MongoURI = u.String()
		}
	}
	return yaml.Marshal(&out)
}

func parseRedisURL(s string) (addr, password string, db int, err error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", "", 0, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return "", "", 0, fmt.Errorf("scheme must be redis or rediss, got %q", u.Scheme)
	}
	addr = u.Host
	if addr == "" {
		return "", "", 0, fmt.Errorf("missing host in Redis URL")
	}
	if u.User != nil {
		password, _ = u.User.Password()
	}
	if len(u.Path) > 1 {
		db, err = strconv.Atoi(strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return "", "", 0, fmt.Errorf("invalid db index %q", u.Path)
		}
	}
	return addr, password, db, nil
}
