package config

import "github.com/caarlos0/env/v11"

// LogConfig shapes the process-wide zerolog output. Settlement and sweep
// paths log every money movement, so production deployments usually cap the
// file and keep sampling off to preserve the audit trail.
type LogConfig struct {
	Level     string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty    bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleN   int    `env:"LOG_SAMPLE_N" envDefault:"0"`
	FilePath  string `env:"LOG_FILE_PATH"`
	FileMaxMB int    `env:"LOG_FILE_MAX_MB" envDefault:"64"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
