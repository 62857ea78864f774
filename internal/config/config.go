package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Sonarr
	SonarrURL      string
	SonarrAPIKey   string
	SonarrRootPath string // Root folder checked for free space before searching

	// Radarr
	RadarrURL      string
	RadarrAPIKey   string
	RadarrRootPath string

	// Jellyfin (optional: enables identifier enrichment and movie reconciliation)
	JellyfinURL    string
	JellyfinAPIKey string

	// Resolution
	NameFallbackEnabled bool
	RequestTimeout      time.Duration

	// Missing item search
	SearchEnabled        bool
	SearchInterval       time.Duration
	SearchRunOnStartup   bool
	SearchDelay          time.Duration
	MinFreeSpaceGB       float64
	StalledDownloadAfter time.Duration

	// History
	HistoryRetention time.Duration

	// Server
	ServerPort string

	// Paths
	DatabaseFile  string // $CONFIG_DIR/deleterr.db
	ProtectedFile string // $CONFIG_DIR/protected.txt

	// Logging
	LogLevel  string
	LogFormat string
}

// JellyfinEnabled reports whether the Jellyfin capability is configured
func (c *Config) JellyfinEnabled() bool {
	return c.JellyfinURL != "" && c.JellyfinAPIKey != ""
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	// Setup viper FIRST to load .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Set defaults
	v.SetDefault("SONARR_ROOT_PATH", "/shows")
	v.SetDefault("RADARR_ROOT_PATH", "/movies")
	v.SetDefault("NAME_FALLBACK_ENABLED", false)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	v.SetDefault("SEARCH_ENABLED", true)
	v.SetDefault("SEARCH_INTERVAL_HOURS", 6)
	v.SetDefault("SEARCH_RUN_ON_STARTUP", true)
	v.SetDefault("SEARCH_DELAY_MINUTES", 5)
	v.SetDefault("MIN_FREE_SPACE_GB", 20)
	v.SetDefault("STALLED_DOWNLOAD_HOURS", 4)
	v.SetDefault("HISTORY_RETENTION_DAYS", 90)
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "deleterr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Sonarr
		SonarrURL:      v.GetString("SONARR_URL"),
		SonarrAPIKey:   v.GetString("SONARR_API_KEY"),
		SonarrRootPath: v.GetString("SONARR_ROOT_PATH"),

		// Radarr
		RadarrURL:      v.GetString("RADARR_URL"),
		RadarrAPIKey:   v.GetString("RADARR_API_KEY"),
		RadarrRootPath: v.GetString("RADARR_ROOT_PATH"),

		// Jellyfin
		JellyfinURL:    v.GetString("JELLYFIN_URL"),
		JellyfinAPIKey: v.GetString("JELLYFIN_API_KEY"),

		// Resolution
		NameFallbackEnabled: v.GetBool("NAME_FALLBACK_ENABLED"),
		RequestTimeout:      time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,

		// Missing item search
		SearchEnabled:        v.GetBool("SEARCH_ENABLED"),
		SearchInterval:       time.Duration(v.GetInt("SEARCH_INTERVAL_HOURS")) * time.Hour,
		SearchRunOnStartup:   v.GetBool("SEARCH_RUN_ON_STARTUP"),
		SearchDelay:          time.Duration(v.GetFloat64("SEARCH_DELAY_MINUTES") * float64(time.Minute)),
		MinFreeSpaceGB:       v.GetFloat64("MIN_FREE_SPACE_GB"),
		StalledDownloadAfter: time.Duration(v.GetFloat64("STALLED_DOWNLOAD_HOURS") * float64(time.Hour)),

		// History
		HistoryRetention: time.Duration(v.GetInt("HISTORY_RETENTION_DAYS")) * 24 * time.Hour,

		// Server
		ServerPort: v.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile:  filepath.Join(configDir, "deleterr.db"),
		ProtectedFile: filepath.Join(configDir, "protected.txt"),

		// Logging
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	// Validate required fields
	if config.SonarrURL == "" {
		return nil, fmt.Errorf("SONARR_URL is required")
	}
	if config.SonarrAPIKey == "" {
		return nil, fmt.Errorf("SONARR_API_KEY is required")
	}
	if config.RadarrURL == "" {
		return nil, fmt.Errorf("RADARR_URL is required")
	}
	if config.RadarrAPIKey == "" {
		return nil, fmt.Errorf("RADARR_API_KEY is required")
	}
	if (config.JellyfinURL == "") != (config.JellyfinAPIKey == "") {
		return nil, fmt.Errorf("JELLYFIN_URL and JELLYFIN_API_KEY must be set together")
	}
	if config.SearchEnabled && config.SearchInterval <= 0 {
		return nil, fmt.Errorf("SEARCH_INTERVAL_HOURS must be positive")
	}
	if config.SearchDelay < 0 {
		return nil, fmt.Errorf("SEARCH_DELAY_MINUTES must not be negative")
	}

	return config, nil
}
