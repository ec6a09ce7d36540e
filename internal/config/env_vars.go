package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelEnvVar = "LOG_LEVEL"

	EnvDev = "DEV"
)

type EnvVars struct {
	src *source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.src.get(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.src.get(appNameVar, "Go Session Server")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.get(envVar, EnvDev))
}

// GetLogLevel returns the configured zerolog level name, empty when unset.
func (e EnvVars) GetLogLevel() string {
	return e.src.get(logLevelEnvVar, "")
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s *source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if s != nil {
		if value, ok := s.file[strings.ToLower(key)]; ok && value != "" {
			return value
		}
	}
	return defaultValue
}

func (s *source) getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}

func (s *source) getBool(key string, defaultValue bool) bool {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return b
}

func (s *source) getInt(key string, defaultValue int) int {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return i
}

func (s *source) getFloat(key string, defaultValue float64) float64 {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// GetEnv returns the environment value of envVar or defaultValue when unset.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
