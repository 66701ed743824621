package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Providers  Providers  `mapstructure:"providers"`
	AI         AI         `mapstructure:"ai"`
	Clustering Clustering `mapstructure:"clustering"`
	Database   Database   `mapstructure:"database"`
	Redis      Redis      `mapstructure:"redis"`
	Queue      Queue      `mapstructure:"queue"`
	Server     Server     `mapstructure:"server"`
	Votes      Votes      `mapstructure:"votes"`
	Admin      Admin      `mapstructure:"admin"`
}

// App holds general application configuration
type App struct {
	Debug    bool     `mapstructure:"debug"`
	LogLevel string   `mapstructure:"log_level"`
	DataDir  string   `mapstructure:"data_dir"`
	Queries  []string `mapstructure:"queries"` // Default aggregation queries
}

// Providers holds one API credential per news provider. An empty key
// disables that provider without error.
type Providers struct {
	NewsAPIOrgKey  string   `mapstructure:"newsapi_org_key"`
	GNewsKey       string   `mapstructure:"gnews_key"`
	NewsdataKey    string   `mapstructure:"newsdata_key"`
	ChainGPTKey    string   `mapstructure:"chaingpt_key"`
	EventRegKey    string   `mapstructure:"eventregistry_key"`
	RSSFeeds       []string `mapstructure:"rss_feeds"`
	MaxPerProvider int      `mapstructure:"max_per_provider"`
	Timeout        string   `mapstructure:"timeout"`
}

// AI holds generation endpoint configuration (OpenRouter-compatible)
type AI struct {
	APIKey      string   `mapstructure:"api_key"`
	BaseURL     string   `mapstructure:"base_url"`
	Models      []string `mapstructure:"models"`
	Temperature float64  `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	AppName     string   `mapstructure:"app_name"`
	Timeout     string   `mapstructure:"timeout"`
}

// Clustering holds similarity clustering parameters
type Clustering struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MaxClusters         int     `mapstructure:"max_clusters"`
	LookbackHours       int     `mapstructure:"lookback_hours"`
	MaxArticles         int     `mapstructure:"max_articles"`
}

// Database holds Postgres configuration
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
}

// Redis holds the queue/pub-sub broker configuration
type Redis struct {
	URL         string `mapstructure:"url"`
	QueuePrefix string `mapstructure:"queue_prefix"`
}

// Queue holds job retry policy
type Queue struct {
	Attempts     int    `mapstructure:"attempts"`
	BackoffDelay string `mapstructure:"backoff_delay"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string     `mapstructure:"host"`
	Port         int        `mapstructure:"port"`
	ReadTimeout  string     `mapstructure:"read_timeout"`
	WriteTimeout string     `mapstructure:"write_timeout"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Votes holds bias-vote store configuration
type Votes struct {
	MinStake float64 `mapstructure:"min_stake"`
}

// Admin holds the admin-session secret used by the refresh boundary
type Admin struct {
	SessionSecret string `mapstructure:"session_secret"`
	SessionTTL    string `mapstructure:"session_ttl"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file, and environment.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".duckwire")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration (used by tests).
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", "data")
	viper.SetDefault("app.queries", []string{
		"crypto OR blockchain OR bitcoin OR ethereum",
		"AI OR artificial intelligence OR machine learning",
		"web3 OR defi OR nft",
	})

	viper.SetDefault("providers.max_per_provider", 40)
	viper.SetDefault("providers.timeout", "30s")

	viper.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("ai.models", []string{
		"meta-llama/llama-3.1-8b-instruct:free",
		"mistralai/mistral-7b-instruct:free",
		"google/gemma-7b-it:free",
		"qwen/qwen-2-7b-instruct:free",
	})
	viper.SetDefault("ai.temperature", 0.2)
	viper.SetDefault("ai.max_tokens", 700)
	viper.SetDefault("ai.app_name", "DuckWire/Clustering")
	viper.SetDefault("ai.timeout", "60s")

	viper.SetDefault("clustering.similarity_threshold", 0.28)
	viper.SetDefault("clustering.max_clusters", 20)
	viper.SetDefault("clustering.lookback_hours", 24)
	viper.SetDefault("clustering.max_articles", 1000)

	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("redis.queue_prefix", "duckwire")

	viper.SetDefault("queue.attempts", 3)
	viper.SetDefault("queue.backoff_delay", "1s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("votes.min_stake", 20.0)

	viper.SetDefault("admin.session_ttl", "12h")
}

// bindEnvironmentVariables maps well-known environment variables onto keys
func bindEnvironmentVariables() {
	bindings := map[string]string{
		"providers.newsapi_org_key":   "NEWSAPI_ORG_KEY",
		"providers.gnews_key":         "GNEWS_API_KEY",
		"providers.newsdata_key":      "NEWSDATA_API_KEY",
		"providers.chaingpt_key":      "CHAINGPT_API_KEY",
		"providers.eventregistry_key": "NEWSAPI_AI_API_KEY",
		"ai.api_key":                  "OPENROUTER_API_KEY",
		"ai.base_url":                 "OPENROUTER_BASE_URL",
		"ai.app_name":                 "OPENROUTER_APP_NAME",
		"database.connection_string":  "DATABASE_URL",
		"redis.url":                   "REDIS_URL",
		"redis.queue_prefix":          "QUEUE_PREFIX",
		"admin.session_secret":        "ADMIN_COOKIE_SECRET",
	}
	for key, env := range bindings {
		_ = viper.BindEnv(key, env)
	}
}

// validateConfig performs sanity checks on loaded values
func validateConfig(config *Config) error {
	if config.Clustering.SimilarityThreshold <= 0 || config.Clustering.SimilarityThreshold > 1 {
		return fmt.Errorf("clustering.similarity_threshold must be in (0, 1], got %f", config.Clustering.SimilarityThreshold)
	}
	if config.Clustering.MaxClusters <= 0 {
		return fmt.Errorf("clustering.max_clusters must be positive, got %d", config.Clustering.MaxClusters)
	}
	if config.Queue.Attempts <= 0 {
		return fmt.Errorf("queue.attempts must be positive, got %d", config.Queue.Attempts)
	}
	if _, err := time.ParseDuration(config.Queue.BackoffDelay); err != nil {
		return fmt.Errorf("queue.backoff_delay is not a duration: %w", err)
	}
	return nil
}

// ParseDuration parses a duration string with a fallback default
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
