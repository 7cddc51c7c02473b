package bootstrap

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by both services. Values come from an
// optional yaml file, with environment variables taking precedence, the same
// resolution order every service in this system uses.
type Config struct {
	HTTPAddr       string `yaml:"http_addr"`
	MySQLDSN       string `yaml:"mysql_dsn"`
	KafkaBrokers   string `yaml:"kafka_brokers"`
	RedisAddr      string `yaml:"redis_addr"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
	KitchenBaseURL string `yaml:"kitchen_base_url"`
}

// LoadConfig reads path when it exists (path may be ""), then applies env
// overrides and defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", withDefault(cfg.HTTPAddr, ":8080"))
	cfg.MySQLDSN = getEnv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.KafkaBrokers = getEnv("KAFKA_BROKERS", withDefault(cfg.KafkaBrokers, "localhost:9092"))
	cfg.RedisAddr = getEnv("REDIS_ADDR", withDefault(cfg.RedisAddr, "localhost:6379"))
	cfg.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", withDefault(cfg.JaegerEndpoint, "http://localhost:14268/api/traces"))
	cfg.KitchenBaseURL = getEnv("KITCHEN_BASE_URL", withDefault(cfg.KitchenBaseURL, "http://localhost:8082"))
	return cfg, nil
}

// Brokers splits the comma-separated broker list.
func (c Config) Brokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func withDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
