package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Auth     AuthConfig     `mapstructure:"auth"`
	NATS     NATSConfig     `mapstructure:"nats"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Migrate  bool   `mapstructure:"migrate"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// NATSConfig настройки публикации событий; пустой URL отключает публикацию
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// Load загружает .env, затем config.yaml и переопределяет значения из переменных окружения
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	return load(v)
}

// LoadFile загружает конфигурацию из указанного файла
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrate", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("auth.access_ttl", 30*time.Minute)
	v.SetDefault("auth.refresh_ttl", 24*time.Hour)
	v.SetDefault("nats.subject_prefix", "scouting")
}

// bindEnvVariables явно связывает переменные окружения с ключами конфига
func bindEnvVariables(v *viper.Viper) {
	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.migrate", "DB_MIGRATE")

	// Server
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.port", "SERVER_PORT")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")

	// Auth
	v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	v.BindEnv("auth.access_ttl", "AUTH_ACCESS_TTL")
	v.BindEnv("auth.refresh_ttl", "AUTH_REFRESH_TTL")

	// NATS
	v.BindEnv("nats.url", "NATS_URL")
	v.BindEnv("nats.subject_prefix", "NATS_SUBJECT_PREFIX")
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("auth token TTLs must be positive")
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}
	return nil
}

// GetDSN возвращает URL подключения к PostgreSQL; логин и пароль экранируются
func (c *DatabaseConfig) GetDSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	switch {
	case c.Password != "":
		dsn.User = url.UserPassword(c.User, c.Password)
	case c.User != "":
		dsn.User = url.User(c.User)
	}
	return dsn.String()
}

// GetAddress возвращает адрес для прослушивания, IPv6 хосты берутся в скобки
func (c *ServerConfig) GetAddress() string {
	return net.JoinHostPort(c.Host, c.Port)
}
