package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`

	Phases      PhaseConfig       `mapstructure:"phases"`
	TradingLoop TradingLoopConfig `mapstructure:"trading_loop"`
	CEOReview   CEOReviewConfig   `mapstructure:"ceo_review"`
	Risk        RiskConfig        `mapstructure:"risk"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// ExecutorConfig points at the agent work executor: the hosted function that
// generates deliverable content and flips deliverables to "review".
type ExecutorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BrokerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PhaseConfig struct {
	// AdvanceCreatesChecklist makes AdvanceToNextPhase materialize the next
	// phase's deliverable checklist itself instead of relying on the caller
	// to activate it separately.
	AdvanceCreatesChecklist bool `mapstructure:"advance_creates_checklist"`
}

type TradingLoopConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	ProjectConcurrency int           `mapstructure:"project_concurrency"`
	MaxProjects        int           `mapstructure:"max_projects"`
}

type CEOReviewConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Model        string        `mapstructure:"model"`
	APIKeyEnv    string        `mapstructure:"api_key_env"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type RiskConfig struct {
	DefaultMaxDrawdownPct float64 `mapstructure:"default_max_drawdown_pct"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("executor.base_url", "http://localhost:9090")
	v.SetDefault("executor.timeout", "60s")
	v.SetDefault("broker.base_url", "http://localhost:9091")
	v.SetDefault("broker.timeout", "15s")
	v.SetDefault("gateway.base_url", "http://localhost:9092")
	v.SetDefault("gateway.timeout", "15s")
	v.SetDefault("phases.advance_creates_checklist", true)
	v.SetDefault("trading_loop.enabled", true)
	v.SetDefault("trading_loop.tick_interval", "30s")
	v.SetDefault("trading_loop.project_concurrency", 4)
	v.SetDefault("trading_loop.max_projects", 200)
	v.SetDefault("ceo_review.enabled", false)
	v.SetDefault("ceo_review.model", "gpt-4o-mini")
	v.SetDefault("ceo_review.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("ceo_review.scan_interval", "45s")
	v.SetDefault("ceo_review.batch_size", 10)
	v.SetDefault("risk.default_max_drawdown_pct", 20)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
