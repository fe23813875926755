package config

import "time"

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Game       GameConfig       `mapstructure:"game" validate:"required"`
	Task       TaskConfig       `mapstructure:"task" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig selects and tunes the progression store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	// URL is the PostgreSQL connection string.
	URL string `mapstructure:"url" validate:"required_if=Driver postgres"`
	// SQLitePath is the database file for the embedded backend.
	// ":memory:" keeps everything in process.
	SQLitePath      string        `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains bearer token settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// LLMConfig configures the Gemini provider. An empty key disables it and
// every LLM-backed call uses its fallback.
type LLMConfig struct {
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	Model        string        `mapstructure:"model" validate:"required"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`
}

// DictionaryConfig configures the HTTP definition provider.
type DictionaryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url" validate:"required_if=Enabled true,omitempty,url"`
}

// GameConfig tunes the progression engine.
type GameConfig struct {
	// ProviderTimeout bounds every external provider call.
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout" validate:"gt=0"`
	BattlePace         time.Duration `mapstructure:"battle_pace" validate:"gte=0"`
	MatchmakingTimeout time.Duration `mapstructure:"matchmaking_timeout" validate:"gt=0"`
	QuizLimit          int           `mapstructure:"quiz_limit" validate:"gt=0"`
}

// TaskConfig tunes the background task runner.
type TaskConfig struct {
	WorkerCount  int           `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize    int           `mapstructure:"queue_size" validate:"gt=0"`
	StuckTaskAge time.Duration `mapstructure:"stuck_task_age" validate:"gt=0"`
}
