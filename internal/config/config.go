package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Database  DatabaseConfig `mapstructure:"database"`
	Frontend  FrontendConfig `mapstructure:"frontend"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
	JWTSecret string         `mapstructure:"jwt_secret"`
	LogLevel  string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite or memory
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// FrontendConfig is the site-wide frontend settings block.
type FrontendConfig struct {
	URL           string           `mapstructure:"url"`
	LoginRequired bool             `mapstructure:"login_required"`
	Brand         string           `mapstructure:"brand"`
	Logo          string           `mapstructure:"logo"`
	CSS           string           `mapstructure:"css"`
	Description   string           `mapstructure:"description"`
	LoginURL      string           `mapstructure:"login_url"`
	Registry      string           `mapstructure:"registry"`
	Accounts      bool             `mapstructure:"accounts"`
	InstalledApps []string         `mapstructure:"installed_apps"`
	ModelsPath    string           `mapstructure:"models_path"`
	Templates     string           `mapstructure:"templates"`
	Static        string           `mapstructure:"static"`
	Renderer      string           `mapstructure:"renderer"` // html or json
	Sidebar       []SidebarSection `mapstructure:"sidebar"`
}

// SidebarSection is one configured navigation group; entities are
// "module.EntityName" identifiers.
type SidebarSection struct {
	Group    string   `mapstructure:"group"`
	Entities []string `mapstructure:"entities"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		if d.Name == ":memory:" {
			return d.Name
		}
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "frontend")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("jwt_secret", "changeme-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("frontend.url", "/")
	v.SetDefault("frontend.login_required", false)
	v.SetDefault("frontend.brand", "Fast Frontend")
	v.SetDefault("frontend.logo", "")
	v.SetDefault("frontend.models_path", "./models.yaml")
	v.SetDefault("frontend.css", "css/custom.css")
	v.SetDefault("frontend.login_url", "/accounts/login/")
	v.SetDefault("frontend.registry", "default")
	v.SetDefault("frontend.accounts", true)
	v.SetDefault("frontend.installed_apps", []string{"app", "app2"})
	v.SetDefault("frontend.templates", "./templates")
	v.SetDefault("frontend.static", "./static")
	v.SetDefault("frontend.renderer", "html")
}

// Load reads app.yaml from the working directory (or two levels up) and
// overlays environment variables such as FRONTEND_BRAND.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")
	return load(v)
}

// LoadFile reads settings from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
