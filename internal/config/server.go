package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey    string `env:"ADMIN_API_KEY"`
	TreasuryAPIKey string `env:"TREASURY_API_KEY"`
	TreasurySeed   string `env:"TREASURY_SEED" envDefault:"dev"`

	VerifyBaseURL   string `env:"VERIFY_BASE_URL"`
	VerifyAPIKey    string `env:"VERIFY_API_KEY"`
	VerifyTimeoutMS int    `env:"VERIFY_TIMEOUT_MS" envDefault:"5000"`

	NotifyWebhookURL  string `env:"NOTIFY_WEBHOOK_URL"`
	NotifySecret      string `env:"NOTIFY_SECRET"`
	NotifyWorkers     int    `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyRetryMax    int    `env:"NOTIFY_RETRY_MAX" envDefault:"3"`
	NotifyRetryBaseMS int    `env:"NOTIFY_RETRY_BASE_MS" envDefault:"500"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
