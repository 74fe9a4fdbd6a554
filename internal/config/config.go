package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	OTP       OTPConfig
	Email     EmailConfig
	Uploads   UploadsConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	WebSocket WebSocketConfig
	CORS      CORSConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	Mode            string   `mapstructure:"mode"`
	Addrs           []string `mapstructure:"addrs"`
	Addr            string   `mapstructure:"addr"`
	Password        string   `mapstructure:"password"`
	DB              int      `mapstructure:"db"`
	MasterName      string   `mapstructure:"master_name"`
	MaxRetries      int      `mapstructure:"max_retries"`
	MinRetryBackoff int      `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int      `mapstructure:"max_retry_backoff"` // мс
}

// JWTConfig содержит настройки access-токенов
type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	ExpirationHrs   int           `mapstructure:"expirationHrs"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// AuthConfig содержит настройки многошагового потока регистрации и сброса пароля
type AuthConfig struct {
	// StagedTokenSecret - ключ подписи промежуточных токенов (request -> verify -> complete)
	StagedTokenSecret string        `mapstructure:"staged_token_secret"`
	StagedTokenTTL    time.Duration `mapstructure:"staged_token_ttl"`
	// SingleUseTokens запрещает повторное использование подтвержденного токена
	SingleUseTokens bool `mapstructure:"single_use_tokens"`
}

// OTPConfig содержит настройки одноразовых кодов
type OTPConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// Store: "postgres" (таблица + фоновая очистка) или "redis" (нативный TTL)
	Store              string        `mapstructure:"store"`
	Pepper             string        `mapstructure:"pepper"`
	InvalidatePrevious bool          `mapstructure:"invalidate_previous"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

// EmailConfig содержит настройки отправки писем
type EmailConfig struct {
	// Provider: "resend" или "noop"
	Provider     string `mapstructure:"provider"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// UploadsConfig содержит настройки загрузки изображений
type UploadsConfig struct {
	Dir       string `mapstructure:"dir"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// RateLimitConfig содержит настройки ограничения частоты запросов к OTP эндпоинтам
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	MaxRequests       int           `mapstructure:"max_requests"`
	StrictMaxRequests int           `mapstructure:"strict_max_requests"`
	Window            time.Duration `mapstructure:"window"`
}

// WebSocketConfig содержит настройки ленты уведомлений
type WebSocketConfig struct {
	ClusterEnabled bool   `mapstructure:"cluster_enabled"`
	Channel        string `mapstructure:"channel"`
	SendBuffer     int    `mapstructure:"send_buffer"`
}

// CORSConfig содержит список разрешенных origin
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("jwt.expirationHrs", 1)
	vip.SetDefault("jwt.cleanup_interval", time.Hour)
	vip.SetDefault("auth.staged_token_ttl", 15*time.Minute)
	vip.SetDefault("auth.single_use_tokens", true)
	vip.SetDefault("otp.ttl", 5*time.Minute)
	vip.SetDefault("otp.store", "postgres")
	vip.SetDefault("otp.max_attempts", 5)
	vip.SetDefault("otp.sweep_interval", time.Minute)
	vip.SetDefault("email.provider", "noop")
	vip.SetDefault("uploads.dir", "uploads")
	vip.SetDefault("uploads.max_size_mb", 4)
	vip.SetDefault("rate_limit.enabled", true)
	vip.SetDefault("rate_limit.max_requests", 20)
	vip.SetDefault("rate_limit.strict_max_requests", 5)
	vip.SetDefault("rate_limit.window", time.Minute)
	vip.SetDefault("websocket.channel", "social:notifications")
	vip.SetDefault("websocket.send_buffer", 64)
	vip.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	// .env для локального запуска; в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err == nil {
		log.Printf("Переменные окружения загружены из .env")
	}

	vip := viper.New()

	setDefaults(vip)

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")

	vip.BindEnv("auth.staged_token_secret", "STAGED_TOKEN_SECRET")
	vip.BindEnv("auth.single_use_tokens", "AUTH_SINGLE_USE_TOKENS")

	vip.BindEnv("otp.store", "OTP_STORE")
	vip.BindEnv("otp.pepper", "OTP_PEPPER")
	vip.BindEnv("otp.invalidate_previous", "OTP_INVALIDATE_PREVIOUS")

	vip.BindEnv("email.provider", "EMAIL_PROVIDER")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	vip.BindEnv("uploads.dir", "UPLOADS_DIR")
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("websocket.cluster_enabled", "WEBSOCKET_CLUSTER_ENABLED")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл не обязателен: значения могут прийти из окружения
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("OTP Store: %s, TTL: %s", cfg.OTP.Store, cfg.OTP.TTL)
		log.Printf("Staged Token TTL: %s, single use: %t", cfg.Auth.StagedTokenTTL, cfg.Auth.SingleUseTokens)
		log.Printf("Email Provider: %s", cfg.Email.Provider)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required in config (check JWT_SECRET env var)")
	}
	if c.Auth.StagedTokenSecret == "" {
		return fmt.Errorf("staged token secret is required in config (check STAGED_TOKEN_SECRET env var)")
	}
	if c.Auth.StagedTokenSecret == c.JWT.Secret {
		return fmt.Errorf("staged token secret must differ from jwt secret")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	switch c.OTP.Store {
	case "postgres", "redis":
	default:
		return fmt.Errorf("unsupported otp store: %s", c.OTP.Store)
	}
	switch c.Email.Provider {
	case "noop":
	case "resend":
		if c.Email.ResendAPIKey == "" || c.Email.From == "" {
			return fmt.Errorf("resend provider requires resend_api_key and from (check RESEND_API_KEY, EMAIL_FROM env vars)")
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Email.Provider)
	}
	if c.OTP.TTL <= 0 || c.Auth.StagedTokenTTL <= 0 {
		return fmt.Errorf("otp.ttl and auth.staged_token_ttl must be positive")
	}
	return nil
}
