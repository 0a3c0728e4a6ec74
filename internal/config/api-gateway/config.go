package api_gateway_config

import (
	"time"

	"github.com/NordCoder/Tubely/internal/obs"
	"github.com/NordCoder/Tubely/internal/outbox"
	pg "github.com/NordCoder/Tubely/internal/repository/postgres"
	"github.com/NordCoder/Tubely/internal/repository/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type DB struct {
	Driver   string        `mapstructure:"driver"`
	Postgres pg.Config     `mapstructure:",squash"`
	SQLite   sqlite.Config `mapstructure:"sqlite"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type Auth struct {
	AccessSecret           string        `mapstructure:"access_secret"`
	RefreshSecret          string        `mapstructure:"refresh_secret"`
	AccessTTL              time.Duration `mapstructure:"access_ttl"`
	RefreshTTL             time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost             int           `mapstructure:"bcrypt_cost"`
	RevokeOnPasswordChange bool          `mapstructure:"revoke_on_password_change"`
	CookieDomain           string        `mapstructure:"cookie_domain"`
	CookiePath             string        `mapstructure:"cookie_path"`
	CookieSecure           bool          `mapstructure:"cookie_secure"`
}

type Kafka struct {
	Enable     bool     `mapstructure:"enable"`
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	Partitions int      `mapstructure:"partitions"`
}

type Config struct {
	App    App           `mapstructure:"app"`
	Server Server        `mapstructure:"server"`
	DB     DB            `mapstructure:"db"`
	Auth   Auth          `mapstructure:"auth"`
	Kafka  Kafka         `mapstructure:"kafka"`
	Outbox outbox.Config `mapstructure:"outbox"`
	OTEL   OTEL          `mapstructure:"otel"`
	Log    Log           `mapstructure:"log"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
