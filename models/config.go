package models

import "time"

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	DB           DBConfig           `yaml:"database"`
	Replica      DBConfig           `yaml:"replica"`
	Auth         AuthConfig         `yaml:"auth"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Registry     RegistryConfig     `yaml:"service_registry"`
}

type ServerConfig struct {
	Host          string        `yaml:"host"`
	Port          string        `yaml:"port"`
	HostName      string        `yaml:"host_name"`
	LogFile       string        `yaml:"log_file"`
	AllowedOrigin string        `yaml:"allowed_origin"`
	ShutdownDelay time.Duration `yaml:"shutdown_delay"`
}

type DBConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"-"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AuthConfig struct {
	Secret     []byte `yaml:"-"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

type RateLimitingConfig struct {
	RedisAddrs []string        `yaml:"redis_addrs"`
	Password   string          `yaml:"-"`
	PoolSize   int             `yaml:"pool_size"`
	Rules      map[string]Rule `yaml:"rules"`
}

type Rule struct {
	Limit      int `yaml:"limit"`       // bucket size
	RefillRate int `yaml:"refill_rate"` // requests/s
}

type RegistryConfig struct {
	Endpoints []string `yaml:"endpoints"`
	Prefix    string   `yaml:"prefix"`
	LeaseTTL  int64    `yaml:"lease_ttl"`
}

// Enabled reports whether a redis deployment was configured.
func (c RateLimitingConfig) Enabled() bool {
	return len(c.RedisAddrs) > 0
}

func (c RegistryConfig) Enabled() bool {
	return len(c.Endpoints) > 0
}
