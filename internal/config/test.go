package config

import "github.com/caarlos0/env/v11"

// TestConfig points the Postgres-backed suites at a disposable database.
// Each test carves out its own schema there; a missing DSN is the signal to
// skip rather than fail.
type TestConfig struct {
	PostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
