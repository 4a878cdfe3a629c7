package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env         string `mapstructure:"env"`
	Port        int    `mapstructure:"port"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type MongoConf struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type StoreConf struct {
	Driver string `mapstructure:"driver"` // mongo | memory
}

type JWTConf struct {
	Secret     string        `mapstructure:"secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	ResetTTL   time.Duration `mapstructure:"reset_ttl"`
}

type OTPConf struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type SecurityConf struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type SMTPConf struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type MediaConf struct {
	Driver       string `mapstructure:"driver"` // s3 | local
	MaxFileBytes int64  `mapstructure:"max_file_bytes"`
}

type S3Conf struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type LocalConf struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConf struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// Config is built once in main and handed to every component that needs it.
type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongo"`
	Store     StoreConf     `mapstructure:"store"`
	JWT       JWTConf       `mapstructure:"jwt"`
	OTP       OTPConf       `mapstructure:"otp"`
	Security  SecurityConf  `mapstructure:"security"`
	SMTP      SMTPConf      `mapstructure:"smtp"`
	Media     MediaConf     `mapstructure:"media"`
	S3        S3Conf        `mapstructure:"s3"`
	Local     LocalConf     `mapstructure:"local"`
	Redis     RedisConf     `mapstructure:"redis"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.frontend_url", "http://localhost:5173")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "car_portal")
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.session_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.reset_ttl", time.Hour)
	v.SetDefault("otp.ttl", 10*time.Minute)
	v.SetDefault("security.bcrypt_cost", 10)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", "Car Portal")
	v.SetDefault("media.driver", "local")
	v.SetDefault("media.max_file_bytes", 200<<20)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("local.dir", "uploads")
	v.SetDefault("local.base_url", "/uploads")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.limit", 20)
	v.SetDefault("ratelimit.window", time.Minute)
}

// Load reads .env, then the optional config file at path, then environment
// variables. MONGO_URI overrides mongo.uri, JWT_SECRET overrides jwt.secret
// and so on.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Store.Driver {
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Media.Driver {
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 media driver")
		}
	case "local":
	default:
		return fmt.Errorf("unknown media driver %q", c.Media.Driver)
	}
	if c.JWT.SessionTTL <= 0 || c.JWT.ResetTTL <= 0 || c.OTP.TTL <= 0 {
		return errors.New("token and otp lifetimes must be positive")
	}
	return nil
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
