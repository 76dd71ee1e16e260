package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Dispatch  DispatchConfig
	Reconcile ReconcileConfig
	Resend    ResendConfig
	Statuses  StatusConfig
	LogLevel  string
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type GatewayConfig struct {
	URL    string
	APIKey string
}

type DispatchConfig struct {
	UseDB           bool
	DefaultSender   string
	DefaultLifetime int
}

type ReconcileConfig struct {
	StaleAfterHours int
	Interval        time.Duration
	BatchSize       int
}

type ResendConfig struct {
	MinMinutes int
	MaxMinutes int
	MaxAttempt int
	Interval   time.Duration
	BatchSize  int
}

type StatusConfig struct {
	Labels     map[int]string
	ErrorLabel string
}

func defaultLabels() map[int]string {
	return map[int]string{
		0: "not yet dispatched",
		1: "delivered",
		2: "failed",
		3: "sent, awaiting delivery",
		4: "dispatched, awaiting gateway",
	}
}

func LoadAll() (*Config, error) {
	gatewayURL, err := requireEnv("GATEWAY_URL")
	if err != nil {
		return nil, err
	}

	useDB, err := getEnvBool("USE_DB", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Gateway: GatewayConfig{
			URL:    gatewayURL,
			APIKey: os.Getenv("GATEWAY_API_KEY"),
		},
		Dispatch: DispatchConfig{
			UseDB:         useDB,
			DefaultSender: getEnv("SENDER_DEFAULT", "Sender"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Dispatch.UseDB {
		cfg.Database.PostgresURL, err = requireEnv("POSTGRES_URL")
		if err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"SMS_LIFETIME", 0, &cfg.Dispatch.DefaultLifetime},
		{"IS_OLD_AFTER_HOURS", 360, &cfg.Reconcile.StaleAfterHours},
		{"RESEND_MIN_MINUTES", 4, &cfg.Resend.MinMinutes},
		{"RESEND_MAX_MINUTES", 7, &cfg.Resend.MaxMinutes},
		{"RESEND_MAX_ATTEMPT", 2, &cfg.Resend.MaxAttempt},
		{"SWEEP_BATCH_SIZE", 100, &cfg.Reconcile.BatchSize},
	}
	for _, it := range ints {
		v, err := getEnvInt(it.key, it.def)
		if err != nil {
			return nil, err
		}
		*it.dst = v
	}
	cfg.Resend.BatchSize = cfg.Reconcile.BatchSize

	statusInterval, err := getEnvInt("STATUS_SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	resendInterval, err := getEnvInt("RESEND_SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.Reconcile.Interval = time.Duration(statusInterval) * time.Second
	cfg.Resend.Interval = time.Duration(resendInterval) * time.Second

	cfg.Redis, err = loadRedisConfig()
	if err != nil {
		return nil, err
	}

	cfg.Statuses = loadStatusConfig()

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, nil
}

// loadStatusConfig builds the code->label table, letting individual
// labels be overridden via HUMAN_STATUS_<code>.
func loadStatusConfig() StatusConfig {
	labels := defaultLabels()
	for code := range labels {
		if v := os.Getenv(fmt.Sprintf("HUMAN_STATUS_%d", code)); v != "" {
			labels[code] = v
		}
	}
	return StatusConfig{
		Labels:     labels,
		ErrorLabel: getEnv("HUMAN_STATUS_ERROR", "status unknown"),
	}
}

func validate(cfg *Config) error {
	if cfg.Reconcile.BatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be > 0")
	}
	if cfg.Reconcile.Interval <= 0 {
		return fmt.Errorf("STATUS_SWEEP_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Resend.Interval <= 0 {
		return fmt.Errorf("RESEND_SWEEP_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Reconcile.StaleAfterHours <= 0 {
		return fmt.Errorf("IS_OLD_AFTER_HOURS must be > 0")
	}
	if cfg.Resend.MinMinutes < 0 || cfg.Resend.MaxMinutes <= cfg.Resend.MinMinutes {
		return fmt.Errorf("RESEND_MAX_MINUTES must be > RESEND_MIN_MINUTES >= 0")
	}
	if cfg.Resend.MaxAttempt < 0 {
		return fmt.Errorf("RESEND_MAX_ATTEMPT must be >= 0")
	}
	return nil
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for env %s: %s", key, v)
	}
	return b, nil
}
