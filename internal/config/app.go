package config

type AppConfig struct {
	Server ServerConfig
	Wager  WagerConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	wagerCfg, err := LoadWager()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Wager:  wagerCfg,
		Log:    logCfg,
	}, nil
}
