package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "TRIPPLANNER"

type Config struct {
	Server       ServerConfig   `mapstructure:"server"`
	Log          LogConfig      `mapstructure:"log"`
	LLM          LLMConfig      `mapstructure:"llm"`
	Gateway      GatewayConfig  `mapstructure:"gateway"`
	Pipeline     PipelineConfig `mapstructure:"pipeline"`
	Store        StoreConfig    `mapstructure:"store"`
	ProfilesPath string         `mapstructure:"profiles_path"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider" validate:"oneof=openai gemini mock"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key" validate:"required_if=Provider openai"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	// Project and Location select Vertex AI for the gemini provider.
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
}

type GatewayConfig struct {
	Name        string        `mapstructure:"name"`
	Command     string        `mapstructure:"command" validate:"required_without=Endpoint"`
	Args        []string      `mapstructure:"args"`
	Endpoint    string        `mapstructure:"endpoint" validate:"omitempty,url"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0"`
	BackoffBase time.Duration `mapstructure:"backoff_base" validate:"gt=0"`
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
}

type PipelineConfig struct {
	TurnTimeout   time.Duration `mapstructure:"turn_timeout" validate:"gt=0"`
	SearchTimeout time.Duration `mapstructure:"search_timeout" validate:"gt=0"`
	MaxTripDays   int           `mapstructure:"max_trip_days" validate:"gt=0"`
}

type StoreConfig struct {
	Backend   string          `mapstructure:"backend" validate:"oneof=memory file firestore s3"`
	Path      string          `mapstructure:"path" validate:"required_if=Backend file"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	S3        S3Config        `mapstructure:"s3"`
}

type FirestoreConfig struct {
	Project    string `mapstructure:"project"`
	Collection string `mapstructure:"collection"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.project", "")
	v.SetDefault("llm.location", "")

	v.SetDefault("gateway.name", "enuygun")
	v.SetDefault("gateway.command", "npx")
	v.SetDefault("gateway.args", []string{"-y", "mcp-remote", "https://mcp.enuygun.com/mcp"})
	v.SetDefault("gateway.endpoint", "")
	v.SetDefault("gateway.max_retries", 2)
	v.SetDefault("gateway.backoff_base", 2*time.Second)
	v.SetDefault("gateway.call_timeout", 60*time.Second)

	v.SetDefault("pipeline.turn_timeout", 90*time.Second)
	v.SetDefault("pipeline.search_timeout", 2*time.Minute)
	v.SetDefault("pipeline.max_trip_days", 30)

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "data/db.json")
	v.SetDefault("store.firestore.project", "")
	v.SetDefault("store.firestore.collection", "chats")
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.prefix", "chats")
	v.SetDefault("store.s3.region", "us-east-1")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.access_key_id", "")
	v.SetDefault("store.s3.secret_access_key", "")
	v.SetDefault("store.s3.use_path_style", false)

	v.SetDefault("profiles_path", "")
}

// New returns a viper instance with defaults and environment bindings. The
// caller may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY")
	return v
}

// Load reads the optional config file at path on top of v and validates the
// result.
func Load(v *viper.Viper, path string) (Config, error) {
	var cfg Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Store.Backend {
	case "firestore":
		if c.Store.Firestore.Project == "" {
			return errors.New("invalid config: store.firestore.project is required for the firestore backend")
		}
	case "s3":
		if c.Store.S3.Bucket == "" {
			return errors.New("invalid config: store.s3.bucket is required for the s3 backend")
		}
	}
	if c.LLM.Provider == "gemini" && c.LLM.APIKey == "" && c.LLM.Project == "" {
		return errors.New("invalid config: llm.api_key or llm.project is required for the gemini provider")
	}
	return nil
}
