// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Server   ServerConfig            `mapstructure:"server"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Router   RouterConfig            `mapstructure:"router"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string  `mapstructure:"address"`
	ReadTimeout     int     `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int     `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int     `mapstructure:"shutdown_timeout"` // milliseconds
	AdminToken      string  `mapstructure:"admin_token"`
	RateLimit       float64 `mapstructure:"rate_limit"` // requests per second on the route endpoint, 0 disables
	RateBurst       int     `mapstructure:"rate_burst"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
	CacheTTL      int  `mapstructure:"cache_ttl"`   // seconds, 0 disables caching
}

// Config source kinds for the routing vocabulary and spelling tables.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// RouterConfig holds the query routing pipeline settings.
type RouterConfig struct {
	RuleSet             string `mapstructure:"rule_set"`
	Source              string `mapstructure:"source"`
	ConfigDir           string `mapstructure:"config_dir"`
	ConfigTable         string `mapstructure:"config_table"`
	Watch               bool   `mapstructure:"watch"`
	WatchDebounce       int    `mapstructure:"watch_debounce"`  // milliseconds
	ReloadSchedule      string `mapstructure:"reload_schedule"` // 5-field cron, empty disables
	ClassifierModel     string `mapstructure:"classifier_model"`
	StripDisallowed     bool   `mapstructure:"strip_disallowed"`
	AllowUnicodeLetters bool   `mapstructure:"allow_unicode_letters"`
	ExtraAllowed        string `mapstructure:"extra_allowed"`
	IncludeDiagnostics  bool   `mapstructure:"include_diagnostics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
