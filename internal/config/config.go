package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the monitor service.
type Config struct {
	// Log level: debug, info, warn, error
	LogLevel string

	// HTTP listen address
	ListenAddr string

	// Path to the fleet YAML file. Empty means the built-in default fleet.
	FleetFile string

	Monitor MonitorConfig
	SMTP    SMTPConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
}

// MonitorConfig controls the periodic evaluation loop.
type MonitorConfig struct {
	// Interval between ticks
	TickInterval time.Duration

	// Minimum time between two alert emails for the same (machine, recipient)
	AlertCooldown time.Duration

	// Number of concurrent email send workers
	SendWorkers int
}

// SMTPConfig holds email delivery settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether email delivery is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// KafkaConfig holds settings for the analytics event export.
type KafkaConfig struct {
	// Brokers to connect to. Empty disables the export.
	Brokers []string
	Topic   string

	PoolSize     int
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks int
	MaxRetries   int
	RetryBackoff time.Duration
	Compression  string
}

// Enabled reports whether the Kafka export is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// RedisConfig holds settings for the recipient subscription store.
type RedisConfig struct {
	// Addr to connect to. Empty means the in-memory store.
	Addr     string
	Password string
	DB       int
}

// Default returns a sensible default config for local dev.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		ListenAddr: ":8080",
		Monitor: MonitorConfig{
			TickInterval:  60 * time.Second,
			AlertCooldown: 3 * time.Minute,
			SendWorkers:   4,
		},
		SMTP: SMTPConfig{
			Port:     587,
			FromName: "FleetMon",
		},
		Kafka: KafkaConfig{
			Topic:        "fleet-events",
			PoolSize:     2,
			BatchSize:    100,
			BatchTimeout: 100 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: 1,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			Compression:  "snappy",
		},
	}
}

// Load builds a Config from defaults overridden by environment variables.
func Load() *Config {
	cfg := Default()

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.FleetFile = getEnv("FLEET_FILE", cfg.FleetFile)

	cfg.Monitor.TickInterval = getEnvDuration("TICK_INTERVAL", cfg.Monitor.TickInterval)
	cfg.Monitor.AlertCooldown = getEnvDuration("ALERT_COOLDOWN", cfg.Monitor.AlertCooldown)
	cfg.Monitor.SendWorkers = getEnvInt("SEND_WORKERS", cfg.Monitor.SendWorkers)

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = getEnv("SMTP_USER", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = getEnv("SMTP_FROM_EMAIL", cfg.SMTP.From)
	cfg.SMTP.FromName = getEnv("SMTP_FROM_NAME", cfg.SMTP.FromName)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitCSV(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	return cfg
}

// FleetProfile is one machine entry in the fleet YAML file.
type FleetProfile struct {
	MachineID       string  `yaml:"machine_id"`
	Name            string  `yaml:"name"`
	Type            string  `yaml:"type"`
	Location        string  `yaml:"location"`
	BaseHealth      float64 `yaml:"base_health"`
	DegradationRate float64 `yaml:"degradation_rate"`
	Volatility      float64 `yaml:"volatility"`
}

// FleetFile is the top-level structure of the fleet YAML file.
type fleetFile struct {
	Machines []FleetProfile `yaml:"machines"`
}

// LoadFleet reads machine profiles from a YAML file.
func LoadFleet(path string) ([]FleetProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fleet file: %w", err)
	}
	defer f.Close()

	var ff fleetFile
	if err := yaml.NewDecoder(f).Decode(&ff); err != nil {
		return nil, fmt.Errorf("decode fleet file: %w", err)
	}
	if len(ff.Machines) == 0 {
		return nil, fmt.Errorf("fleet file %s declares no machines", path)
	}
	return ff.Machines, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
