package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Generation   GenerationConfig   `mapstructure:"generation"`
	Image        ImageConfig        `mapstructure:"image"`
	Email        EmailConfig        `mapstructure:"email"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Library      LibraryConfig      `mapstructure:"library"`
}

type ServerConfig struct {
	Port          int      `mapstructure:"port" validate:"min=1,max=65535"`
	Mode          string   `mapstructure:"mode" validate:"oneof=debug release test"`
	TriggerSecret string   `mapstructure:"trigger_secret"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver. For postgres a
// full URL takes precedence over the individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		if c.URL != "" {
			return c.URL
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, sslMode)
	}
	return c.Path
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	ImageTTL time.Duration `mapstructure:"image_ttl"`
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket" validate:"required"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type GenerationConfig struct {
	Model      string        `mapstructure:"model" validate:"required"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Difficulty string        `mapstructure:"difficulty"`
}

type ImageConfig struct {
	Providers []ImageProviderConfig `mapstructure:"providers"`
	Timeout   time.Duration         `mapstructure:"timeout"`
}

type EmailConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from" validate:"required"`
}

type OrchestratorConfig struct {
	BatchSize            int           `mapstructure:"batch_size" validate:"min=1"`
	NewRecipesPercentage int           `mapstructure:"new_recipes_percentage" validate:"min=0,max=100"`
	ImageWorkers         int           `mapstructure:"image_workers" validate:"min=1"`
	Lease                time.Duration `mapstructure:"lease"`
	BonusBreakfasts      int           `mapstructure:"bonus_breakfasts" validate:"min=0"`
	BonusDesserts        int           `mapstructure:"bonus_desserts" validate:"min=0"`
}

type LibraryConfig struct {
	ImportWorkers   int `mapstructure:"import_workers"`
	ImportBatchSize int `mapstructure:"import_batch_size"`

	// Sources maps a source name to a directory holding recipes.jsonl.
	Sources map[string]string `mapstructure:"sources"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("server.trigger_secret", "CRON_SECRET")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")
	v.BindEnv("generation.api_key", "OPENAI_API_KEY")
	v.BindEnv("generation.base_url", "OPENAI_BASE_URL")
	v.BindEnv("generation.model", "RECIPE_MODEL")
	v.BindEnv("email.api_key", "EMAIL_API_KEY")
	v.BindEnv("email.from", "EMAIL_FROM")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Image.Providers) == 0 {
		cfg.Image.Providers = []ImageProviderConfig{{
			Name:      "openai",
			Provider:  "openai",
			Model:     "gpt-image-1",
			Size:      "1024x1024",
			APIKeyEnv: "OPENAI_API_KEY",
		}}
	}
	for i := range cfg.Image.Providers {
		cfg.Image.Providers[i].ResolveEnvVars()
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/mealplan.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.image_ttl", "720h")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "meal-plans")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.base_url", "https://api.openai.com/v1")
	v.SetDefault("generation.timeout", "90s")
	v.SetDefault("generation.difficulty", "easy")
	v.SetDefault("image.timeout", "120s")
	v.SetDefault("email.base_url", "https://api.resend.com")
	v.SetDefault("email.from", "Meal Plans <plans@example.com>")
	v.SetDefault("orchestrator.batch_size", 1)
	v.SetDefault("orchestrator.new_recipes_percentage", 30)
	v.SetDefault("orchestrator.image_workers", 1)
	v.SetDefault("orchestrator.lease", "10m")
	v.SetDefault("orchestrator.bonus_breakfasts", 7)
	v.SetDefault("orchestrator.bonus_desserts", 5)
	v.SetDefault("library.import_workers", 4)
	v.SetDefault("library.import_batch_size", 50)
}
