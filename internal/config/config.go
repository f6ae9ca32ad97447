package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Clicks    ClicksConfig
	Links     LinksConfig
	Log       LogConfig
}

type AppConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	SQLitePath  string
	AutoMigrate bool
	MaxConns    int32
	MinConns    int32
}

type CacheConfig struct {
	Driver string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

type AuthConfig struct {
	JWTSecret string
	// Required запрещает анонимные запросы к API (редирект остаётся открытым)
	Required bool
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type ClicksConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type LinksConfig struct {
	ReservedKeys    []string
	MetadataTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DefaultReservedKeys сегменты путей, которые заняты самим приложением
var DefaultReservedKeys = []string{"link", "links", "healthz", "metrics", "api", "static"}

// Load читает конфигурацию из окружения. Если задан envFile, переменные из него
// подгружаются заранее (уже выставленные переменные окружения не перезаписываются).
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.ShutdownTimeout = v.GetDuration("APP_SHUTDOWN_TIMEOUT")

	cfg.DB.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")
	cfg.DB.SQLitePath = v.GetString("SQLITE_PATH")
	cfg.DB.AutoMigrate = v.GetBool("DB_AUTO_MIGRATE")
	cfg.DB.MaxConns = v.GetInt32("DB_MAX_CONNS")
	cfg.DB.MinConns = v.GetInt32("DB_MIN_CONNS")

	cfg.Cache.Driver = strings.ToLower(v.GetString("CACHE_DRIVER"))
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")

	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.Required = v.GetBool("AUTH_REQUIRED")

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")

	cfg.Clicks.Workers = v.GetInt("CLICK_WORKERS")
	cfg.Clicks.QueueSize = v.GetInt("CLICK_QUEUE_SIZE")
	cfg.Clicks.Timeout = v.GetDuration("CLICK_TIMEOUT")

	cfg.Links.ReservedKeys = parseList(v.GetString("RESERVED_KEYS"))
	if len(cfg.Links.ReservedKeys) == 0 {
		cfg.Links.ReservedKeys = DefaultReservedKeys
	}
	cfg.Links.MetadataTimeout = v.GetDuration("METADATA_TIMEOUT")

	cfg.Log.Level = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.Log.Format = strings.ToLower(v.GetString("LOG_FORMAT"))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_SHUTDOWN_TIMEOUT", 5*time.Second)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "shortlink.db")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("AUTH_REQUIRED", false)
	v.SetDefault("CACHE_DRIVER", DriverRedis)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("CLICK_WORKERS", 3)
	v.SetDefault("CLICK_QUEUE_SIZE", 1000)
	v.SetDefault("CLICK_TIMEOUT", 5*time.Second)
	v.SetDefault("METADATA_TIMEOUT", 5*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func (c *Config) validate() error {
	if c.App.Port == "" {
		return errors.New("APP_PORT cannot be empty")
	}

	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return errors.New("DB_HOST and DB_NAME are required for postgres")
		}
		if c.DB.MaxConns <= 0 || c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
			return errors.New("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
		}
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	switch c.Cache.Driver {
	case DriverRedis:
		if c.Redis.PoolSize <= 0 {
			return errors.New("REDIS_POOL_SIZE must be positive")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER %q", c.Cache.Driver)
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return errors.New("AUTH_REQUIRED needs JWT_SECRET")
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize <= 0 {
		return errors.New("rate limit values must be positive")
	}
	if c.Clicks.Workers <= 0 || c.Clicks.QueueSize <= 0 {
		return errors.New("CLICK_WORKERS and CLICK_QUEUE_SIZE must be positive")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.Log.Format)
	}

	return nil
}

// PostgresURL строка подключения в формате URL (нужна и pgxpool, и golang-migrate)
func (c DBConfig) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// parseList разбирает список через запятую, пустые элементы отбрасываются
func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
