package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Razorpay   RazorpayConfig   `yaml:"razorpay"`
	Mail       MailConfig       `yaml:"mail"`
}

// HTTPServerConfig holds the http server settings.
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig holds the connection settings, password comes from env only.
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig holds token settings, secret from env only.
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// RazorpayConfig holds the payment gateway credentials. The key secret signs
// client payment confirmations, the webhook secret authenticates webhook
// envelopes; both are read-only after startup.
type RazorpayConfig struct {
	KeyID         string `yaml:"key_id" env:"RAZORPAY_KEY_ID" env-required:"true"`
	KeySecret     string `yaml:"-" env:"RAZORPAY_KEY_SECRET" env-required:"true"`
	WebhookSecret string `yaml:"-" env:"RAZORPAY_WEBHOOK_SECRET" env-required:"true"`
}

// MailConfig holds the transactional email (Brevo) settings.
type MailConfig struct {
	BaseURL     string        `yaml:"base_url" env-default:"https://api.brevo.com"`
	APIKey      string        `yaml:"-" env:"BREVO_API_KEY" env-required:"true"`
	SenderName  string        `yaml:"sender_name" env-default:"Kashvi Jewels"`
	SenderEmail string        `yaml:"sender_email" env-required:"true"`
	OpsEmail    string        `yaml:"ops_email" env-required:"true"` // internal copy of order-created mail
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
}

// MustLoad panics if the configuration cannot be loaded.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
