package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	MarketData   MarketDataConfig
	Risk         RiskConfig
	Stream       StreamConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	CloudWatch   CloudWatchConfig
	S3           S3Config
	Security     SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

// MarketDataConfig настраивает источник сырых значений индикаторов.
// Mode "static" отдает встроенный snapshot (для разработки и демо),
// "http" опрашивает внешний data provider.
type MarketDataConfig struct {
	Mode           string
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// RiskConfig настраивает политику скоринга
type RiskConfig struct {
	IndicatorsFile   string
	WatchIndicators  bool
	RunInterval      time.Duration
	TopWarnings      int
	HistoryRetention time.Duration
	// Границы risk level bands: [0,Caution) -> safe, [Caution,Warning) -> caution,
	// [Warning,Danger) -> warning, [Danger,100] -> danger
	BandCaution float64
	BandWarning float64
	BandDanger  float64
	// Веса категорий для overall score ("valuation=1,macro=1.2,...").
	// Пустая строка означает равные веса.
	CategoryWeights map[string]float64
}

type StreamConfig struct {
	UpdateInterval       time.Duration
	HeartbeatInterval    time.Duration
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	MaxReconnectAttempts int
	EventBufferSize      int
}

type NotificationConfig struct {
	Cooldown       time.Duration
	RequestTimeout time.Duration
	WebhookURLs    []string
}

// RateLimitConfig описывает именованные политики лимитирования
type RateLimitConfig struct {
	GlobalRPS     float64
	GlobalBurst   int
	APILimit      int
	APIWindow     time.Duration
	AdminLimit    int
	AdminWindow   time.Duration
	StreamLimit   int
	StreamWindow  time.Duration
	SweepInterval time.Duration
}

type CloudWatchConfig struct {
	MetricsEnabled    bool
	MetricsNamespace  string
	Region            string
	Endpoint          string
	AccessKeyID       string
	SecretAccessKey   string
	BufferSize        int
	FlushInterval     time.Duration
	StorageResolution int32
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	runInterval, err := parseDuration(getEnv("RISK_RUN_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RISK_RUN_INTERVAL: %w", err)
	}

	updateInterval, err := parseDuration(getEnv("STREAM_UPDATE_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_UPDATE_INTERVAL: %w", err)
	}

	heartbeatInterval, err := parseDuration(getEnv("STREAM_HEARTBEAT_INTERVAL", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_HEARTBEAT_INTERVAL: %w", err)
	}

	backoffBase, err := parseDuration(getEnv("STREAM_BACKOFF_BASE", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_BACKOFF_BASE: %w", err)
	}

	backoffCap, err := parseDuration(getEnv("STREAM_BACKOFF_CAP", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_BACKOFF_CAP: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnv("STREAM_MAX_RECONNECT_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_MAX_RECONNECT_ATTEMPTS: %w", err)
	}

	cooldown, err := parseDuration(getEnv("NOTIFICATION_COOLDOWN", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_COOLDOWN: %w", err)
	}

	notifyTimeout, err := parseDuration(getEnv("NOTIFICATION_REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_REQUEST_TIMEOUT: %w", err)
	}

	weights, err := parseWeights(getEnv("RISK_CATEGORY_WEIGHTS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid RISK_CATEGORY_WEIGHTS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // streaming endpoint требует отсутствия write timeout
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", true),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "riskanalyzer"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", 90*time.Second),
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		MarketData: MarketDataConfig{
			Mode:           getEnv("MARKETDATA_MODE", "static"),
			BaseURL:        getEnv("MARKETDATA_BASE_URL", ""),
			APIKey:         getEnv("MARKETDATA_API_KEY", ""),
			RequestTimeout: getEnvDuration("MARKETDATA_REQUEST_TIMEOUT", 10*time.Second),
		},
		Risk: RiskConfig{
			IndicatorsFile:   getEnv("RISK_INDICATORS_FILE", ""),
			WatchIndicators:  getEnvBool("RISK_INDICATORS_WATCH", false),
			RunInterval:      runInterval,
			TopWarnings:      getEnvInt("RISK_TOP_WARNINGS", 5),
			HistoryRetention: getEnvDuration("RISK_HISTORY_RETENTION", 30*24*time.Hour),
			BandCaution:      getEnvFloat("RISK_BAND_CAUTION", 30),
			BandWarning:      getEnvFloat("RISK_BAND_WARNING", 50),
			BandDanger:       getEnvFloat("RISK_BAND_DANGER", 70),
			CategoryWeights:  weights,
		},
		Stream: StreamConfig{
			UpdateInterval:       updateInterval,
			HeartbeatInterval:    heartbeatInterval,
			BackoffBase:          backoffBase,
			BackoffCap:           backoffCap,
			MaxReconnectAttempts: maxAttempts,
			EventBufferSize:      getEnvInt("STREAM_EVENT_BUFFER", 16),
		},
		Notification: NotificationConfig{
			Cooldown:       cooldown,
			RequestTimeout: notifyTimeout,
			WebhookURLs:    splitCSV(getEnv("NOTIFICATION_WEBHOOK_URLS", "")),
		},
		RateLimit: RateLimitConfig{
			GlobalRPS:     getEnvFloat("RATELIMIT_GLOBAL_RPS", 200),
			GlobalBurst:   getEnvInt("RATELIMIT_GLOBAL_BURST", 400),
			APILimit:      getEnvInt("RATELIMIT_API_LIMIT", 60),
			APIWindow:     getEnvDuration("RATELIMIT_API_WINDOW", time.Minute),
			AdminLimit:    getEnvInt("RATELIMIT_ADMIN_LIMIT", 20),
			AdminWindow:   getEnvDuration("RATELIMIT_ADMIN_WINDOW", time.Minute),
			StreamLimit:   getEnvInt("RATELIMIT_STREAM_LIMIT", 10),
			StreamWindow:  getEnvDuration("RATELIMIT_STREAM_WINDOW", 5*time.Minute),
			SweepInterval: getEnvDuration("RATELIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:    getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:  getEnv("CLOUDWATCH_METRICS_NAMESPACE", "RiskAnalyzer/Scores"),
			Region:            getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Endpoint:          getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:       getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey:   getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			BufferSize:        getEnvInt("CLOUDWATCH_METRICS_BUFFER_SIZE", 100),
			FlushInterval:     getEnvDuration("CLOUDWATCH_METRICS_FLUSH_INTERVAL", 10*time.Second),
			StorageResolution: int32(getEnvInt("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", 60)),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "risk-reports"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет инварианты конфигурации (fail fast при старте)
func (c *Config) validate() error {
	if c.Security.AuthEnabled && strings.TrimSpace(c.Security.AuthToken) == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if c.Stream.HeartbeatInterval >= c.Stream.UpdateInterval {
		return fmt.Errorf("STREAM_HEARTBEAT_INTERVAL must be shorter than STREAM_UPDATE_INTERVAL")
	}
	if c.Stream.BackoffBase <= 0 || c.Stream.BackoffCap < c.Stream.BackoffBase {
		return fmt.Errorf("stream backoff must satisfy 0 < base <= cap")
	}
	if c.Stream.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("STREAM_MAX_RECONNECT_ATTEMPTS must be positive")
	}
	if c.MarketData.Mode != "static" && c.MarketData.Mode != "http" {
		return fmt.Errorf("MARKETDATA_MODE must be \"static\" or \"http\"")
	}
	if c.MarketData.Mode == "http" && strings.TrimSpace(c.MarketData.BaseURL) == "" {
		return fmt.Errorf("MARKETDATA_BASE_URL is required when MARKETDATA_MODE=http")
	}
	if c.Notification.Cooldown <= 0 {
		return fmt.Errorf("NOTIFICATION_COOLDOWN must be positive")
	}
	if !(c.Risk.BandCaution < c.Risk.BandWarning && c.Risk.BandWarning < c.Risk.BandDanger) {
		return fmt.Errorf("risk bands must be strictly increasing: caution < warning < danger")
	}
	if c.Risk.TopWarnings <= 0 {
		return fmt.Errorf("RISK_TOP_WARNINGS must be positive")
	}
	for name, w := range c.Risk.CategoryWeights {
		if w <= 0 {
			return fmt.Errorf("category weight for %q must be positive", name)
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// parseWeights разбирает строку вида "valuation=1,macro=1.2" в map весов
func parseWeights(raw string) (map[string]float64, error) {
	weights := make(map[string]float64)
	if strings.TrimSpace(raw) == "" {
		return weights, nil
	}

	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		kv := strings.SplitN(trimmed, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed weight entry %q", trimmed)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed weight value in %q: %w", trimmed, err)
		}
		weights[strings.TrimSpace(kv[0])] = w
	}

	return weights, nil
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
