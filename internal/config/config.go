package config

import "os"

// AirtableConfig configures the Airtable API client
type AirtableConfig struct {
	APIKey  string
	BaseURL string
}

// IsEnabled reports whether an API key is configured; without one the
// server falls back to a logging no-op sink
func (c AirtableConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// Config holds all environment-driven settings
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string
	Airtable      AirtableConfig
}

// Load reads configuration from the environment with local defaults
func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "datagather"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:      getEnv("PORT", "8080"),
		Airtable: AirtableConfig{
			APIKey:  os.Getenv("AIRTABLE_API_KEY"),
			BaseURL: getEnv("AIRTABLE_BASE_URL", "https://api.airtable.com/v0"),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
