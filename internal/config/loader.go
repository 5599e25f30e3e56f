// Package config loads the service configuration from AGENDA_* environment
// variables and an optional agenda.yaml file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AGENDA"

// Config captures environment driven configuration values for the agenda service.
type Config struct {
	HTTPPort            int
	SQLiteDSN           string
	SessionTTL          time.Duration
	AdminLogin          string
	AdminPassword       string
	Timezone            string
	Location            *time.Location
	BookingHorizonDays  int
	PublicRatePerMinute int
	PublicRateBurst     int
	TrustProxy          bool
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	CacheTTL            time.Duration
	LogLevel            string
}

// UsesRedis reports whether the availability cache lives in Redis.
func (c Config) UsesRedis() bool {
	return c.RedisAddr != ""
}

// Options controls where Load looks for the configuration file.
type Options struct {
	ConfigName  string
	ConfigPaths []string
}

var defaults = map[string]any{
	"http_port":              8080,
	"sqlite_dsn":             "agenda.db",
	"session_ttl":            "24h",
	"admin_login":            "admin",
	"admin_password":         "",
	"timezone":               "America/Sao_Paulo",
	"booking_horizon_days":   30,
	"public_rate_per_minute": 30,
	"public_rate_burst":      10,
	"trust_proxy":            false,
	"redis_addr":             "",
	"redis_password":         "",
	"redis_db":               0,
	"cache_ttl":              "30s",
	"log_level":              "info",
}

// Load reads configuration from the environment and ./agenda.yaml or
// ./config/agenda.yaml when present.
func Load() (Config, error) {
	return LoadWithOptions(Options{})
}

// LoadWithOptions is Load with explicit file lookup settings. Missing and
// invalid values are reported together in a single error.
func LoadWithOptions(opts Options) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	name := opts.ConfigName
	if name == "" {
		name = "agenda"
	}
	paths := opts.ConfigPaths
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("falha ao ler arquivo de configuração: %w", err)
		}
	}

	p := parser{v: v}
	cfg := Config{
		HTTPPort:            p.positiveInt("http_port"),
		SQLiteDSN:           p.requiredString("sqlite_dsn"),
		SessionTTL:          p.positiveDuration("session_ttl"),
		AdminLogin:          strings.ToLower(p.requiredString("admin_login")),
		AdminPassword:       p.requiredString("admin_password"),
		Timezone:            strings.TrimSpace(v.GetString("timezone")),
		BookingHorizonDays:  p.positiveInt("booking_horizon_days"),
		PublicRatePerMinute: p.positiveInt("public_rate_per_minute"),
		PublicRateBurst:     p.positiveInt("public_rate_burst"),
		TrustProxy:          p.boolean("trust_proxy"),
		RedisAddr:           strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             p.nonNegativeInt("redis_db"),
		CacheTTL:            p.positiveDuration("cache_ttl"),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
	}

	if loc, err := time.LoadLocation(cfg.Timezone); err != nil || cfg.Timezone == "" {
		p.invalid = append(p.invalid, envName("timezone"))
	} else {
		cfg.Location = loc
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		p.invalid = append(p.invalid, envName("log_level"))
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

type parser struct {
	v       *viper.Viper
	missing []string
	invalid []string
}

func (p *parser) raw(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) requiredString(key string) string {
	value := p.raw(key)
	if value == "" {
		p.missing = append(p.missing, envName(key))
	}
	return value
}

func (p *parser) positiveInt(key string) int {
	value, err := strconv.Atoi(p.raw(key))
	if err != nil || value <= 0 {
		p.invalid = append(p.invalid, envName(key))
		return 0
	}
	return value
}

func (p *parser) nonNegativeInt(key string) int {
	value, err := strconv.Atoi(p.raw(key))
	if err != nil || value < 0 {
		p.invalid = append(p.invalid, envName(key))
		return 0
	}
	return value
}

func (p *parser) positiveDuration(key string) time.Duration {
	value, err := time.ParseDuration(p.raw(key))
	if err != nil || value <= 0 {
		p.invalid = append(p.invalid, envName(key))
		return 0
	}
	return value
}

func (p *parser) boolean(key string) bool {
	value, err := strconv.ParseBool(p.raw(key))
	if err != nil {
		p.invalid = append(p.invalid, envName(key))
		return false
	}
	return value
}

func (p *parser) err() error {
	var parts []string
	if len(p.missing) > 0 {
		parts = append(parts, "variáveis obrigatórias não definidas: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		parts = append(parts, "valores inválidos: "+strings.Join(p.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return errors.New(strings.Join(parts, "; "))
}
