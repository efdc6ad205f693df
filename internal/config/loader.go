package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const configPathEnv = "MARKETWATCH_CONFIG_PATH"

// GetConfigPath determines the configuration file path.
// Priority:
// 1. -config command-line flag
// 2. MARKETWATCH_CONFIG_PATH environment variable
// 3. config.yaml / config.json in the current working directory
// 4. config.yaml / config.json in the executable's directory
func GetConfigPath(configFilePathFlag string) string {
	if configFilePathFlag != "" {
		if fileExists(configFilePathFlag) {
			return configFilePathFlag
		}
		return ""
	}

	if envPath := os.Getenv(configPathEnv); envPath != "" && fileExists(envPath) {
		return envPath
	}

	var locations []string
	cwd, errCwd := os.Getwd()
	if errCwd == nil {
		locations = append(locations, cwd)
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		if errCwd != nil || exeDir != cwd {
			locations = append(locations, exeDir)
		}
	}

	for _, loc := range locations {
		for _, file := range []string{"config.yaml", "config.yml", "config.json"} {
			path := filepath.Join(loc, file)
			if fileExists(path) {
				return path
			}
		}
	}
	return ""
}

// ApplyEnvOverrides lets deployments override the handful of settings that
// usually differ per environment without shipping a config file.
func ApplyEnvOverrides(cfg *GlobalConfig) {
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.StorageConfig.SQLitePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.StorageConfig.PostgresURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.StorageConfig.RedisURL = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.StorageConfig.Driver = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogConfig.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogConfig.LogFormat = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ServerConfig.Port = port
		}
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.NotificationConfig.Discord.WebhookURL = v
	}
	if v := os.Getenv("SEARCH_BEARER_TOKEN"); v != "" {
		cfg.SearchConfig.BearerToken = v
	}
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
