package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	appNameVar      = "APP_NAME"
	apiBaseURLVar   = "MYGLOBYX_API_URL"
	dataFolderVar   = "MYGLOBYX_DATA_FOLDER"
	timeoutVar      = "MYGLOBYX_TIMEOUT_SECONDS"
	legacyTokensVar = "MYGLOBYX_ALLOW_LEGACY_TOKENS"
	clearOn5xxVar   = "MYGLOBYX_CLEAR_ON_SERVER_ERROR"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MyGlobyx")
}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://127.0.0.1:4000")
}

func (EnvVars) GetDataFolder() string {
	if folder := os.Getenv(dataFolderVar); folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.myglobyx"
	}
	return filepath.Join(home, ".myglobyx")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	seconds, err := strconv.Atoi(GetEnv(timeoutVar, "10"))
	if err != nil || seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// AllowLegacyTokens keeps the pre-JWT mx_token compatibility path on
// unless explicitly disabled.
func (EnvVars) AllowLegacyTokens() bool {
	return GetEnv(legacyTokensVar, "true") != "false"
}

// ClearOnServerError makes guards destroy stored tokens on unexpected 5xx
// responses. Off unless explicitly enabled.
func (EnvVars) ClearOnServerError() bool {
	return GetEnv(clearOn5xxVar, "false") == "true"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
