package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/caremesh/calsync/pkg/constants"
)

// Config holds the application configuration, loaded from environment
// variables and .env files. There are no interactive arguments beyond
// logging control; the scheduler that invokes calsync owns the cadence.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool

	// workcal connection
	WorkBaseURL string
	WorkUser    string
	WorkToken   string

	// carecal connection
	CareBaseURL            string
	CareToken              string
	CarePlaceholderPatient string

	// Owner filtering: either a delimited list or a YAML file. The file
	// wins when both are set.
	Allowlist     string
	AllowlistFile string

	// Shared calendar variant: when a calendar name is configured, every
	// counterpart lands there instead of being resolved per owner.
	SharedCalendarUser string
	SharedCalendarName string

	// Window tuning; zero values fall back to the engine defaults.
	Lookback        time.Duration
	OccurringWindow time.Duration
	OrphanWindow    time.Duration

	// Lookup cache tuning
	CacheTTL  time.Duration
	CacheSize int

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration in order of precedence: command-line
// flags (handled by cobra), environment variables, .env files, defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	config := &Config{
		WorkBaseURL: viper.GetString("workcal_base_url"),
		WorkUser:    viper.GetString("workcal_user"),
		WorkToken:   viper.GetString("workcal_token"),

		CareBaseURL:            viper.GetString("carecal_base_url"),
		CareToken:              viper.GetString("carecal_token"),
		CarePlaceholderPatient: viper.GetString("carecal_placeholder_patient"),

		Allowlist:     viper.GetString("sync_allowlist"),
		AllowlistFile: viper.GetString("sync_allowlist_file"),

		SharedCalendarUser: viper.GetString("shared_calendar_user"),
		SharedCalendarName: viper.GetString("shared_calendar_name"),

		Lookback:        viper.GetDuration("sync_lookback"),
		OccurringWindow: viper.GetDuration("sync_occurring_window"),
		OrphanWindow:    viper.GetDuration("sync_orphan_window"),

		CacheTTL:  viper.GetDuration("cache_ttl"),
		CacheSize: viper.GetInt("cache_size"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.CacheTTL == 0 {
		config.CacheTTL = constants.DefaultCacheTTL
	}
	if config.CacheSize == 0 {
		config.CacheSize = constants.DefaultCacheSize
	}

	return config, nil
}

// loadEnvFiles loads .env files in order of precedence; .env.local
// overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
