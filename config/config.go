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
	Env      string
	Server   ServerConfig
	Redis    RedisConfig
	LobbyAPI LobbyAPIConfig
	Roster   RosterConfig
	Draft    DraftConfig
	Queue    QueueConfig
	Access   AccessConfig
	JWT      JWTConfig
	Log      LogConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	GRpcPort     int
	HTTPPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

// LobbyAPIConfig points at the remote lobby/match service.
type LobbyAPIConfig struct {
	BaseURL       string
	Secret        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// RosterConfig points at the chat-platform member roster.
type RosterConfig struct {
	BaseURL  string
	BotToken string
	GuildID  string
	Timeout  time.Duration
}

type DraftConfig struct {
	PickTimeout        time.Duration
	PickOrder          string
	ExpiryScanInterval time.Duration
	RecordTTL          time.Duration
}

type QueueConfig struct {
	WorkerIdleTimeout time.Duration
	MailboxSize       int
}

type AccessConfig struct {
	SharedScope string
}

type KafkaConfig struct {
	Brokers              []string
	ProducerRetryMax     int
	ProducerRequiredAcks int
	Enabled              bool
	ConsumerGroupID      string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			GRpcPort:     getEnvAsInt("SERVER_GRPC_PORT", 50056),
			HTTPPort:     getEnvAsInt("SERVER_HTTP_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		LobbyAPI: LobbyAPIConfig{
			BaseURL:       getEnv("LOBBY_API_BASE_URL", "http://localhost:3000"),
			Secret:        getEnv("LOBBY_API_SECRET", ""),
			Timeout:       getEnvAsDuration("LOBBY_API_TIMEOUT", 10*time.Second),
			RetryAttempts: getEnvAsInt("LOBBY_API_RETRY_ATTEMPTS", 2),
			RetryDelay:    getEnvAsDuration("LOBBY_API_RETRY_DELAY", 250*time.Millisecond),
		},
		Roster: RosterConfig{
			BaseURL:  getEnv("ROSTER_BASE_URL", "https://discord.com/api/v10"),
			BotToken: getEnv("ROSTER_BOT_TOKEN", ""),
			GuildID:  getEnv("ROSTER_GUILD_ID", ""),
			Timeout:  getEnvAsDuration("ROSTER_TIMEOUT", 5*time.Second),
		},
		Draft: DraftConfig{
			PickTimeout:        getEnvAsDuration("DRAFT_PICK_TIMEOUT", 60*time.Second),
			PickOrder:          getEnv("DRAFT_PICK_ORDER", "alternate"),
			ExpiryScanInterval: getEnvAsDuration("DRAFT_EXPIRY_SCAN_INTERVAL", 1*time.Second),
			RecordTTL:          getEnvAsDuration("DRAFT_RECORD_TTL", 6*time.Hour),
		},
		Queue: QueueConfig{
			WorkerIdleTimeout: getEnvAsDuration("QUEUE_WORKER_IDLE_TIMEOUT", 5*time.Minute),
			MailboxSize:       getEnvAsInt("QUEUE_MAILBOX_SIZE", 32),
		},
		Access: AccessConfig{
			SharedScope: getEnv("ACCESS_SHARED_SCOPE", "guild"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "jwt-secret"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		Kafka: KafkaConfig{
			Brokers:              getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ProducerRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
			ProducerRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),
			Enabled:              getEnvAsBool("KAFKA_ENABLED", true),
			ConsumerGroupID:      getEnv("KAFKA_CONSUMER_GROUP_ID", "lobbydraft-service"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.GRpcPort <= 0 || c.Server.GRpcPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.GRpcPort)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.LobbyAPI.BaseURL == "" {
		return fmt.Errorf("lobby api base url is required")
	}

	if c.Draft.PickOrder != "alternate" && c.Draft.PickOrder != "snake" {
		return fmt.Errorf("invalid draft pick order: %q", c.Draft.PickOrder)
	}

	if c.Draft.PickTimeout <= 0 {
		return fmt.Errorf("draft pick timeout must be positive")
	}

	if c.Queue.MailboxSize <= 0 {
		return fmt.Errorf("queue mailbox size must be positive")
	}

	if c.Access.SharedScope == "" {
		return fmt.Errorf("access shared scope is required")
	}

	if c.JWT.Secret == "" || c.JWT.Secret == "jwt-secret" {
		if c.Env == "production" {
			return fmt.Errorf("JWT secret must be set in production")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	// Split by comma
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
