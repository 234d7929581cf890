package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/taskpick-api/internal/constants"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Identity resolution modes
const (
	AuthModeToken   = "token"
	AuthModeHeader  = "header"
	AuthModeSession = "session"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	StoreDriver  string
	SQLitePath   string
	DocumentPath string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string

	JWTSecret     string
	TokenTTL      time.Duration
	AuthMode      string
	SessionSecret string
	RedisHost     string
	RedisPort     string

	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIBaseURL       string
	AssistantTimeout    time.Duration
	AssistantMockDelay  time.Duration
	AssistantRatePerMin int
	APIRatePerMin       int

	PaginationMode string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver:  getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:   getEnv("SQLITE_PATH", "taskpick.db"),
		DocumentPath: getEnv("DOCUMENT_PATH", "data/db.json"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "3306"),
		DBUser:       getEnv("DB_USER", "taskuser"),
		DBPassword:   getEnv("DB_PASSWORD", "taskpassword"),
		DBName:       getEnv("DB_NAME", "taskpick"),

		JWTSecret:     getEnv("JWT_SECRET", "default-jwt-secret-change-me"),
		TokenTTL:      getDuration("TOKEN_TTL", constants.DefaultTokenTTL),
		AuthMode:      getEnv("AUTH_MODE", AuthModeToken),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),

		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		AssistantTimeout:    getDuration("ASSISTANT_TIMEOUT", constants.DefaultAssistantTimeout),
		AssistantMockDelay:  getDuration("ASSISTANT_MOCK_DELAY", 2*time.Second),
		AssistantRatePerMin: getInt("ASSISTANT_RATE_PER_MIN", 10),
		APIRatePerMin:       getInt("API_RATE_PER_MIN", 120),

		PaginationMode: getEnv("PAGINATION_MODE", constants.PaginationCumulative),
	}
}

// Validate rejects unsupported driver, auth and pagination settings.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMySQL, DriverPostgres, DriverFile:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthMode {
	case AuthModeToken, AuthModeHeader, AuthModeSession:
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}

	switch c.PaginationMode {
	case constants.PaginationCumulative, constants.PaginationWindow:
	default:
		return fmt.Errorf("unsupported PAGINATION_MODE %q", c.PaginationMode)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.AssistantRatePerMin <= 0 || c.APIRatePerMin <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

// UsesSQL reports whether the configured store is backed by gorm.
func (c *Config) UsesSQL() bool {
	return c.StoreDriver != DriverFile
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
