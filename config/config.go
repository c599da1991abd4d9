package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/joripage/exposure-gate/pkg/admission"
	"github.com/joripage/exposure-gate/pkg/audit"
	postgres_wrapper "github.com/joripage/exposure-gate/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/exposure-gate/pkg/infra/redis"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	LogLevel    string                           `yaml:"log_level"`
	Admission   AdmissionConfig                  `yaml:"admission"`
	Fix         FixConfig                        `yaml:"fix"`
	HTTP        HTTPConfig                       `yaml:"http"`
	Audit       AuditConfig                      `yaml:"audit"`
	AuditDB     *postgres_wrapper.PostgresConfig `yaml:"audit_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
}

type AdmissionConfig struct {
	ExposureLimit  decimal.Decimal `yaml:"exposure_limit"`
	MaxQuantity    int64           `yaml:"max_quantity"`
	MaxPrice       decimal.Decimal `yaml:"max_price"`
	PriceTick      decimal.Decimal `yaml:"price_tick"`
	AllowedSymbols []string        `yaml:"allowed_symbols"`
}

type FixConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SettingsFile string `yaml:"settings_file"`
	// DispatchMode is one of inline, queue, shard.
	DispatchMode string `yaml:"dispatch_mode"`
	NumShards    int    `yaml:"num_shards"`
	QueueSize    int    `yaml:"queue_size"`
}

type HTTPConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	OrderIDPrefix  string   `yaml:"order_id_prefix"`
}

type AuditConfig struct {
	// Sink is one of none, kafka, nats, redis.
	Sink      string                  `yaml:"sink"`
	QueueSize int                     `yaml:"queue_size"`
	Kafka     audit.KafkaConfig       `yaml:"kafka"`
	Nats      audit.NatsConfig        `yaml:"nats"`
	Redis     audit.RedisStreamConfig `yaml:"redis"`
	Durable   string                  `yaml:"durable"`
}

// Default returns a config that runs the gate with the documented limits and no
// external dependencies.
func Default() *AppConfig {
	def := admission.DefaultConfig()
	return &AppConfig{
		ServiceName: "exposure-gate",
		LogLevel:    "info",
		Admission: AdmissionConfig{
			ExposureLimit: def.ExposureLimit,
			MaxQuantity:   def.MaxQuantity,
			MaxPrice:      def.MaxPrice,
			PriceTick:     def.PriceTick,
		},
		Fix: FixConfig{
			Enabled:      true,
			SettingsFile: "./config/fixserver.cfg",
			DispatchMode: "inline",
			NumShards:    16,
			QueueSize:    100_000,
		},
		HTTP: HTTPConfig{
			Enabled:       true,
			Addr:          ":8080",
			OrderIDPrefix: "ORD",
		},
		Audit: AuditConfig{
			Sink:      audit.SinkNone,
			QueueSize: 65_536,
			Nats: audit.NatsConfig{
				Stream:  "ADMISSIONS",
				Subject: "ADMISSIONS.events",
			},
			Durable: "admission_worker",
		},
	}
}

// AdmissionSettings converts the yaml section into the service config.
func (c *AppConfig) AdmissionSettings() admission.Config {
	return admission.Config{
		ExposureLimit:  c.Admission.ExposureLimit,
		MaxQuantity:    c.Admission.MaxQuantity,
		MaxPrice:       c.Admission.MaxPrice,
		PriceTick:      c.Admission.PriceTick,
		AllowedSymbols: c.Admission.AllowedSymbols,
	}
}

// Load load config from file and environment variables. A .env file in the
// working directory, when present, is loaded into the environment first.
func Load(filePath string) (*AppConfig, error) {
	_ = godotenv.Load()

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	cfg := Default()
	if len(filePath) == 0 {
		zap.S().Debug("no config file given, using defaults")
		return cfg, nil
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}

	if err := Parse(configBytes, cfg); err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)
	return cfg, nil
}

// Parse expands ${VAR} references and decodes yaml over cfg.
func Parse(data []byte, cfg *AppConfig) error {
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

func (c *AppConfig) Validate() error {
	switch c.Fix.DispatchMode {
	case "", "inline", "queue", "shard":
	default:
		return fmt.Errorf("fix.dispatch_mode %q is not one of inline, queue, shard", c.Fix.DispatchMode)
	}

	switch c.Audit.Sink {
	case "", audit.SinkNone, audit.SinkKafka, audit.SinkNats, audit.SinkRedis:
	default:
		return fmt.Errorf("audit.sink %q is not one of none, kafka, nats, redis", c.Audit.Sink)
	}
	if c.Audit.Sink == audit.SinkRedis && c.Redis == nil {
		return fmt.Errorf("audit.sink redis needs a redis section")
	}

	if c.Admission.ExposureLimit.IsNegative() || c.Admission.MaxPrice.IsNegative() {
		return fmt.Errorf("admission limits must not be negative")
	}
	return nil
}
