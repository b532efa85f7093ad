package config

import "time"

type Config interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetDataFolder() string
	GetRequestTimeout() time.Duration
	GetEnv() string
	AllowLegacyTokens() bool
	ClearOnServerError() bool
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
