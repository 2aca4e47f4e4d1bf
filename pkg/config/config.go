package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// STOREFRONT_MONGODB_URI overrides mongodb.uri.
const EnvPrefix = "STOREFRONT"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Auth    AuthConfig    `mapstructure:"auth"`
	PayPal  PayPalConfig  `mapstructure:"paypal"`
	Mailgun MailgunConfig `mapstructure:"mailgun"`
	Events  EventsConfig  `mapstructure:"events"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Orders  OrdersConfig  `mapstructure:"orders"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type GRPCConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

func (c GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

// Enabled reports whether service registration should be attempted.
func (c EtcdConfig) Enabled() bool {
	return len(c.Endpoints) > 0
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI                string        `mapstructure:"uri"`
	Database           string        `mapstructure:"database"`
	OrdersCollection   string        `mapstructure:"orders_collection"`
	ProductsCollection string        `mapstructure:"products_collection"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type PayPalConfig struct {
	ClientID string `mapstructure:"client_id"`
	Secret   string `mapstructure:"secret"`
	Live     bool   `mapstructure:"live"`
	Currency string `mapstructure:"currency"`
	// Verify turns processor-side verification of payment confirmations on.
	Verify bool `mapstructure:"verify"`
}

type MailgunConfig struct {
	Domain string `mapstructure:"domain"`
	APIKey string `mapstructure:"api_key"`
	From   string `mapstructure:"from"`
}

type EventsConfig struct {
	Driver      string        `mapstructure:"driver"` // redis, sqs
	RedisKey    string        `mapstructure:"redis_key"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	SQSQueueURL string        `mapstructure:"sqs_queue_url"`
	AWSRegion   string        `mapstructure:"aws_region"`
}

type NotifyConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	DedupeTTL   time.Duration `mapstructure:"dedupe_ttl"`
}

type OrdersConfig struct {
	RequirePaymentBeforeDelivery bool `mapstructure:"require_payment_before_delivery"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "storefront")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50052)
	v.SetDefault("grpc.check_interval", "15s")

	v.SetDefault("etcd.endpoints", []string{})
	v.SetDefault("etcd.dial_timeout", "5s")
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.cache_ttl", "30m")

	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.username", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "storefront")
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.max_open_conns", 25)

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "storefront")
	v.SetDefault("mongodb.orders_collection", "orders")
	v.SetDefault("mongodb.products_collection", "products")
	v.SetDefault("mongodb.connect_timeout", "10s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("paypal.client_id", "")
	v.SetDefault("paypal.secret", "")
	v.SetDefault("paypal.live", false)
	v.SetDefault("paypal.currency", "USD")
	v.SetDefault("paypal.verify", true)

	v.SetDefault("mailgun.domain", "")
	v.SetDefault("mailgun.api_key", "")
	v.SetDefault("mailgun.from", "Storefront <storefront@mg.example.com>")

	v.SetDefault("events.driver", "redis")
	v.SetDefault("events.redis_key", "events:orders")
	v.SetDefault("events.poll_timeout", "5s")
	v.SetDefault("events.sqs_queue_url", "")
	v.SetDefault("events.aws_region", "us-west-2")

	v.SetDefault("notify.max_attempts", 5)
	v.SetDefault("notify.base_delay", "2s")
	v.SetDefault("notify.max_delay", "5m")
	v.SetDefault("notify.send_timeout", "10s")
	v.SetDefault("notify.dedupe_ttl", "168h")

	v.SetDefault("orders.require_payment_before_delivery", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads configuration from configPath (skipped when empty) layered over
// defaults, with STOREFRONT_* environment variables taking precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	switch c.Events.Driver {
	case "redis":
	case "sqs":
		if c.Events.SQSQueueURL == "" {
			return errors.New("events.sqs_queue_url must be set for the sqs driver")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	if c.Notify.MaxAttempts < 1 {
		return errors.New("notify.max_attempts must be at least 1")
	}
	if c.Notify.MaxDelay < c.Notify.BaseDelay {
		return errors.New("notify.max_delay must not be below notify.base_delay")
	}
	return nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}
