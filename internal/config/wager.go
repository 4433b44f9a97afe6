package config

import "github.com/caarlos0/env/v11"

// WagerConfig carries the tunables of the wager lifecycle. Deadlines are
// stored on the wager rows themselves; these are the values stamped on
// transitions.
type WagerConfig struct {
	PlatformFee        string `env:"PLATFORM_FEE" envDefault:"0.03"`
	MinStake           string `env:"MIN_STAKE" envDefault:"0.001"`
	ReadyTimeoutMins   int    `env:"READY_TIMEOUT_MINUTES" envDefault:"15"`
	ConfirmTimeoutMins int    `env:"CONFIRM_TIMEOUT_MINUTES" envDefault:"30"`
	QuickConfirmMins   int    `env:"QUICK_CONFIRM_MINUTES" envDefault:"5"`

	SweepIntervalSecs int `env:"SWEEP_INTERVAL_SECONDS" envDefault:"60"`

	CreateScore      int `env:"REPUTATION_CREATE_SCORE" envDefault:"50"`
	ParticipateScore int `env:"REPUTATION_PARTICIPATE_SCORE" envDefault:"25"`
}

func LoadWager() (WagerConfig, error) {
	var cfg WagerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
