package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
		File   string `koanf:"file"`
	} `koanf:"log"`

	Marketplace struct {
		BaseURL string        `koanf:"base_url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"marketplace"`

	Redis struct {
		Addr           string        `koanf:"addr"`
		Password       string        `koanf:"password"`
		DB             int           `koanf:"db"`
		CartTTL        time.Duration `koanf:"cart_ttl"`
		SessionTTL     time.Duration `koanf:"session_ttl"`
		IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
	} `koanf:"redis"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		OrderTopic  string   `koanf:"order_topic"`
		EventsTopic string   `koanf:"events_topic"`
		GroupID     string   `koanf:"group_id"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret  string `koanf:"jwt_secret"`
		CookieName string `koanf:"cookie_name"`
	} `koanf:"security"`

	RateLimit struct {
		DefaultRPS    float64 `koanf:"default_rps"`
		DefaultBurst  int     `koanf:"default_burst"`
		CheckoutRPS   float64 `koanf:"checkout_rps"`
		CheckoutBurst int     `koanf:"checkout_burst"`
	} `koanf:"ratelimit"`
}

// Load reads .env (if any), then configs/base.yaml, then configs/<env>.yaml,
// then STOREFRONT_ variables. Nested keys use "__", e.g. STOREFRONT_REDIS__ADDR.
func Load(pathDir, envName string) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// optional for local runs
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "go-storefront"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":3000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Security.CookieName == "" {
		c.Security.CookieName = "access_token"
	}
	if c.Redis.CartTTL == 0 {
		c.Redis.CartTTL = 5 * time.Minute
	}
	if c.Redis.SessionTTL == 0 {
		c.Redis.SessionTTL = 24 * time.Hour
	}
	if c.Redis.IdempotencyTTL == 0 {
		c.Redis.IdempotencyTTL = 24 * time.Hour
	}
	if c.Kafka.OrderTopic == "" {
		c.Kafka.OrderTopic = "order.events"
	}
	if c.Kafka.EventsTopic == "" {
		c.Kafka.EventsTopic = "storefront.events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "storefront-cart-consumer"
	}
	if c.RateLimit.DefaultRPS == 0 {
		c.RateLimit.DefaultRPS = 5
		c.RateLimit.DefaultBurst = 10
	}
	if c.RateLimit.CheckoutRPS == 0 {
		c.RateLimit.CheckoutRPS = 1
		c.RateLimit.CheckoutBurst = 5
	}
}

func (c Config) Validate() error {
	if c.Marketplace.BaseURL == "" {
		return fmt.Errorf("marketplace.base_url required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	return nil
}

// RedisEnabled is false for local runs; memory stores are used instead.
func (c Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
