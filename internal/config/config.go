package config

import (
	"fmt"
	"os"
)

// configFileEnvVar names a TOML file whose keys overlay the defaults.
const configFileEnvVar = "CONFIG_FILE"

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	SecurityConfig
	StorageConfig
	IdentityConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Security
	Storage
	Identity
}

// New reads configuration from the environment, overlaid on the TOML file
// named by CONFIG_FILE when it is set.
func New() (Config, error) {
	return Load(os.Getenv(configFileEnvVar))
}

// Load reads configuration from the environment, overlaid on the TOML file at
// path. An empty path skips the file.
func Load(path string) (Config, error) {
	src := &source{}
	if path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("[config Load] %w", err)
		}
		src.file = values
	}
	return fromSource(src), nil
}

func fromSource(src *source) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{src: src},
		Cors:     Cors{src: src},
		Session:  Session{src: src},
		Security: Security{src: src},
		Storage:  Storage{src: src},
		Identity: Identity{src: src},
	}
}

// Validate rejects configurations the session engine cannot run with safely.
func (c mainConfig) Validate() error {
	if c.GetAccessTokenTTL() <= 0 || c.GetRefreshTokenTTL() <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.GetAccessTokenTTL() >= c.GetRefreshTokenTTL() {
		return fmt.Errorf("access token TTL (%s) must be shorter than refresh token TTL (%s)",
			c.GetAccessTokenTTL(), c.GetRefreshTokenTTL())
	}
	if c.GetEnv() != EnvDev && c.GetSigningKey() == "" && c.GetSigningKeyFile() == "" {
		return fmt.Errorf("%s or %s is required outside %s", signingKeyVar, signingKeyFileVar, EnvDev)
	}
	if c.GetAccessCookieName() == c.GetRefreshCookieName() {
		return fmt.Errorf("access and refresh cookies must have different names")
	}
	switch c.GetLedgerBackend() {
	case BackendMemory, BackendRedis:
	case BackendPostgres, BackendSQLite:
		if c.GetDatabaseDSN() == "" {
			return fmt.Errorf("%s is required for ledger backend %q", databaseDSNVar, c.GetLedgerBackend())
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.GetLedgerBackend())
	}
	switch c.GetUserStore() {
	case BackendMemory, BackendPostgres, BackendSQLite:
	case UserStoreOIDC:
		if c.GetOIDCIssuer() == "" || c.GetOIDCClientID() == "" {
			return fmt.Errorf("%s and %s are required for the oidc user store", oidcIssuerVar, oidcClientIDVar)
		}
	default:
		return fmt.Errorf("unknown user store %q", c.GetUserStore())
	}
	return nil
}
