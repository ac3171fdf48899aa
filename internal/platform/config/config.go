package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string
	JWTSecret    string

	PostgresMaxOpenConns    int
	PostgresMaxIdleConns    int
	PostgresConnMaxLifetime time.Duration
	PostgresSlowQuery       time.Duration

	ClaimTimeout       time.Duration
	ReaperInterval     time.Duration
	OutboxPollInterval time.Duration
	BlockingBanTier    int
	Lists              []ListDefinition

	DiscordBotToken       string
	DiscordStaffChannelID string

	EnableAutoMigrate          bool
	EnableProviderCheck        bool
	EnableReaper               bool
	EnableNotificationConsumer bool
}

// ListDefinition is one ranked list as declared in the LISTS_CONFIG file.
type ListDefinition struct {
	ID                    string `yaml:"id"`
	RawFootageTopN        int    `yaml:"raw_footage_top_n"`
	RequireCompletionTime bool   `yaml:"require_completion_time"`
}

type listsFile struct {
	Lists []ListDefinition `yaml:"lists"`
}

// Load reads the environment, after merging a local .env file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "ranklist"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	claimTimeout, err := envDuration("CLAIM_TIMEOUT", 120*time.Minute)
	if err != nil {
		return Config{}, err
	}
	reaperInterval, err := envDuration("REAPER_INTERVAL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	banTier, err := envInt("BLOCKING_BAN_TIER", 2)
	if err != nil {
		return Config{}, err
	}
	lists, err := LoadLists(os.Getenv("LISTS_CONFIG"))
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := envInt("POSTGRES_MAX_OPEN_CONNS", 20)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := envInt("POSTGRES_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	connLifetime, err := envDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	slowQuery, err := envDuration("POSTGRES_SLOW_QUERY", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,
		JWTSecret:    os.Getenv("JWT_SECRET"),

		PostgresMaxOpenConns:    maxOpen,
		PostgresMaxIdleConns:    maxIdle,
		PostgresConnMaxLifetime: connLifetime,
		PostgresSlowQuery:       slowQuery,

		ClaimTimeout:       claimTimeout,
		ReaperInterval:     reaperInterval,
		OutboxPollInterval: pollInterval,
		BlockingBanTier:    banTier,
		Lists:              lists,

		DiscordBotToken:       strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
		DiscordStaffChannelID: strings.TrimSpace(os.Getenv("DISCORD_STAFF_CHANNEL_ID")),

		EnableAutoMigrate:          envBool("ENABLE_AUTO_MIGRATE", false),
		EnableProviderCheck:        envBool("ENABLE_PROVIDER_CHECK", false),
		EnableReaper:               envBool("ENABLE_REAPER", true),
		EnableNotificationConsumer: envBool("ENABLE_NOTIFICATION_CONSUMER", true),
	}, nil
}

// LoadLists parses a YAML list file. An empty path yields no lists so the
// caller can fall back to its built-in defaults.
func LoadLists(path string) ([]ListDefinition, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lists config: %w", err)
	}
	return ParseLists(raw)
}

func ParseLists(raw []byte) ([]ListDefinition, error) {
	var file listsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse lists config: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Lists))
	for i, list := range file.Lists {
		id := strings.ToLower(strings.TrimSpace(list.ID))
		if id == "" {
			return nil, fmt.Errorf("lists config: entry %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("lists config: duplicate list %q", id)
		}
		if list.RawFootageTopN < 0 {
			return nil, fmt.Errorf("lists config: %s raw_footage_top_n must not be negative", id)
		}
		seen[id] = struct{}{}
		file.Lists[i].ID = id
	}
	return file.Lists, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, raw)
	}
	return value, nil
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return value, nil
}
