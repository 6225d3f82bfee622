package config

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "WAVEMEET"

// Config captures environment driven configuration values for the wavemeet service.
type Config struct {
	HTTPPort   int
	SQLitePath string
	JWTSecret  string
	LogLevel   slog.Level

	PresenceTTL          time.Duration
	WaveTTL              time.Duration
	WaveDefaultThreshold int
	NearbyRadiusKm       float64
	NearbyLimit          int
	IncludeCreatorInChat bool

	ProfileCacheTTL  time.Duration
	ProfileCacheSize int
}

// Address returns the listen address for the HTTP server.
func (c Config) Address() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("sqlite_dsn", "data/wavemeet.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("presence_ttl", "2h")
	v.SetDefault("wave_ttl", "8h")
	v.SetDefault("wave_default_threshold", 3)
	v.SetDefault("nearby_radius_km", 5)
	v.SetDefault("nearby_limit", 20)
	v.SetDefault("include_creator_in_chat", false)
	v.SetDefault("profile_cache_ttl", "5m")
	v.SetDefault("profile_cache_size", 1024)
}

// Load parses configuration values from the current process environment.
// WAVEMEET_CONFIG_FILE optionally names a YAML/TOML/JSON file whose values sit
// between the defaults and the environment.
//
// All missing and invalid keys are reported together, missing first.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := strings.TrimSpace(v.GetString("config_file")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return parse(v)
}

func parse(v *viper.Viper) (Config, error) {
	var (
		cfg     Config
		missing []string
		invalid []string
	)
	key := func(name string) string { return EnvPrefix + "_" + strings.ToUpper(name) }

	intValue := func(name string, min, max int) int {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(name)))
		if err != nil || n < min || n > max {
			invalid = append(invalid, key(name))
			return 0
		}
		return n
	}
	durationValue := func(name string) time.Duration {
		d, err := time.ParseDuration(strings.TrimSpace(v.GetString(name)))
		if err != nil || d <= 0 {
			invalid = append(invalid, key(name))
			return 0
		}
		return d
	}

	cfg.HTTPPort = intValue("http_port", 1, 65535)

	if cfg.SQLitePath = strings.TrimSpace(v.GetString("sqlite_dsn")); cfg.SQLitePath == "" {
		invalid = append(invalid, key("sqlite_dsn"))
	}

	if cfg.JWTSecret = strings.TrimSpace(v.GetString("jwt_secret")); cfg.JWTSecret == "" {
		missing = append(missing, key("jwt_secret"))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v.GetString("log_level")))); err != nil {
		invalid = append(invalid, key("log_level"))
	}

	cfg.PresenceTTL = durationValue("presence_ttl")
	cfg.WaveTTL = durationValue("wave_ttl")
	if cfg.WaveTTL > 24*time.Hour {
		invalid = append(invalid, key("wave_ttl"))
	}
	cfg.WaveDefaultThreshold = intValue("wave_default_threshold", 2, 50)
	cfg.NearbyLimit = intValue("nearby_limit", 1, 100)

	radius, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("nearby_radius_km")), 64)
	if err != nil || radius <= 0 || radius > 50 {
		invalid = append(invalid, key("nearby_radius_km"))
	} else {
		cfg.NearbyRadiusKm = radius
	}

	include, err := strconv.ParseBool(strings.TrimSpace(v.GetString("include_creator_in_chat")))
	if err != nil {
		invalid = append(invalid, key("include_creator_in_chat"))
	} else {
		cfg.IncludeCreatorInChat = include
	}

	cfg.ProfileCacheTTL = durationValue("profile_cache_ttl")
	cfg.ProfileCacheSize = intValue("profile_cache_size", 1, 1<<20)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}
