package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tables struct {
	Menu      string
	Billing   string
	Inventory string
	Users     string
}

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StatsCacheTTLSeconds  int
	RabbitMQURL           string
	KitchenExchange       string
	AuthSecret            string
	AccessTokenTTLMinutes int
	PasswordScheme        string
	Location              *time.Location
	TaxRatePercent        float64
	ExposeInternalErrors  bool
	LogLevel              string
	Tables                Tables
	SeedBarPassword       string
	SeedKitchenPassword   string
	SeedAdminPassword     string
}

const (
	PasswordSchemeSHA256 = "sha256"
	PasswordSchemeBcrypt = "bcrypt"
)

// Load reads configuration from the environment. When CONFIG_FILE names a
// YAML file its keys (the same names as the environment variables) are used
// as fallbacks; a non-empty environment variable always wins.
func Load() (Config, error) {
	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	get := func(key string, fallback string) string {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
		if val, ok := file[key]; ok && val != "" {
			return val
		}
		return fallback
	}

	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))
	statsTTL, err := strconv.Atoi(get("STATS_CACHE_TTL_SECONDS", "30"))
	if err != nil || statsTTL < 0 {
		statsTTL = 30
	}
	tokenTTL, err := strconv.Atoi(get("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	taxRate, err := strconv.ParseFloat(get("TAX_RATE_PERCENT", "5"), 64)
	if err != nil || taxRate < 0 {
		return Config{}, fmt.Errorf("invalid TAX_RATE_PERCENT %q", get("TAX_RATE_PERCENT", "5"))
	}
	exposeErrors, err := strconv.ParseBool(get("EXPOSE_INTERNAL_ERRORS", "true"))
	if err != nil {
		exposeErrors = true
	}

	timezone := get("TIMEZONE", "Local")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", timezone, err)
	}

	scheme := strings.ToLower(get("PASSWORD_SCHEME", PasswordSchemeSHA256))
	if scheme != PasswordSchemeSHA256 && scheme != PasswordSchemeBcrypt {
		return Config{}, fmt.Errorf("invalid PASSWORD_SCHEME %q", scheme)
	}

	cfg := Config{
		Port:                  get("PORT", "5000"),
		AllowedOrigin:         get("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           get("DATABASE_URL", ""),
		RedisAddr:             get("REDIS_ADDR", ""),
		RedisPassword:         get("REDIS_PASSWORD", ""),
		RedisDB:               redisDB,
		StatsCacheTTLSeconds:  statsTTL,
		RabbitMQURL:           get("RABBITMQ_URL", ""),
		KitchenExchange:       get("KITCHEN_EXCHANGE", "kitchen_orders"),
		AuthSecret:            get("AUTH_SECRET", ""),
		AccessTokenTTLMinutes: tokenTTL,
		PasswordScheme:        scheme,
		Location:              location,
		TaxRatePercent:        taxRate,
		ExposeInternalErrors:  exposeErrors,
		LogLevel:              get("LOG_LEVEL", "info"),
		Tables: Tables{
			Menu:      get("MENU_TABLE", "jumjum_menu_items"),
			Billing:   get("BILLING_TABLE", "jumjum_bar_billing"),
			Inventory: get("INVENTORY_TABLE", "jumjum_kitchen_inventory"),
			Users:     get("USERS_TABLE", "jamjam_users"),
		},
		SeedBarPassword:     get("SEED_BAR_PASSWORD", ""),
		SeedKitchenPassword: get("SEED_KITCHEN_PASSWORD", ""),
		SeedAdminPassword:   get("SEED_ADMIN_PASSWORD", ""),
	}

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(doc))
	for key, val := range doc {
		if val == nil {
			continue
		}
		values[strings.ToUpper(key)] = strings.TrimSpace(fmt.Sprint(val))
	}
	return values, nil
}
