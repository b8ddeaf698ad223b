package config

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/listing-etl/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Data  DataConfig  `yaml:"data" mapstructure:"data"`
	Load  LoadConfig  `yaml:"load" mapstructure:"load"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and addresses the warehouse. DatabaseURL, when set,
// takes precedence over the individual connection fields.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres, mysql or sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Database    string `yaml:"database" mapstructure:"database"`
	SSLMode     string `yaml:"sslmode" mapstructure:"sslmode"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DataConfig locates the files exchanged with the extractor. Relative file
// names resolve against Dir.
type DataConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	StagingFile  string `yaml:"staging_file" mapstructure:"staging_file"`
	SnapshotFile string `yaml:"snapshot_file" mapstructure:"snapshot_file"`
	ColumnsFile  string `yaml:"columns_file" mapstructure:"columns_file"`
	RejectsFile  string `yaml:"rejects_file" mapstructure:"rejects_file"`
}

// LoadConfig tunes the per-row retry policy of warehouse loads.
type LoadConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can override it.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 0)
	v.SetDefault("store.user", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.database", "bonbanh_dw")
	v.SetDefault("store.sslmode", "disable")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.staging_file", "bonbanh_staging.csv")
	v.SetDefault("data.snapshot_file", "bonbanh_transform.csv")
	v.SetDefault("data.columns_file", "")
	v.SetDefault("data.rejects_file", "bonbanh_rejects.csv")
	v.SetDefault("load.max_attempts", 3)
	v.SetDefault("load.initial_backoff_ms", 200)
	v.SetDefault("load.max_backoff_ms", 5000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Path resolves a data file name against Dir. Empty names stay empty.
func (d DataConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// PoolConfig returns the connection pool sizing for the store.
func (s StoreConfig) PoolConfig() *store.PoolConfig {
	return &store.PoolConfig{MaxConns: s.MaxConns, MinConns: s.MinConns}
}

// DSN returns the connection string for the configured driver.
func (s StoreConfig) DSN() (string, error) {
	switch s.Driver {
	case "postgres":
		if s.DatabaseURL != "" {
			return s.DatabaseURL, nil
		}
		return s.postgresURL(), nil
	case "mysql":
		if s.DatabaseURL != "" {
			return s.DatabaseURL, nil
		}
		return s.mysqlDSN(), nil
	case "sqlite":
		if s.DatabaseURL != "" {
			return s.DatabaseURL, nil
		}
		if s.Database == "" {
			return "", eris.New("config: sqlite requires store.database")
		}
		return s.Database, nil
	default:
		return "", eris.Errorf("config: unknown store driver %q", s.Driver)
	}
}

func (s StoreConfig) postgresURL() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(port)),
		Path:   "/" + s.Database,
	}
	if s.User != "" {
		u.User = url.UserPassword(s.User, s.Password)
	}
	if s.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {s.SSLMode}}.Encode()
	}
	return u.String()
}

func (s StoreConfig) mysqlDSN() string {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = s.User
	mc.Passwd = s.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(s.Host, strconv.Itoa(port))
	mc.DBName = s.Database
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
