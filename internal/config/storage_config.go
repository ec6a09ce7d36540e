package config

import "time"

const (
	ledgerBackendVar       = "LEDGER_BACKEND"
	ledgerSweepIntervalVar = "LEDGER_SWEEP_INTERVAL"
	redisAddrVar           = "REDIS_ADDR"
	redisPasswordVar       = "REDIS_PASSWORD"
	redisDBVar             = "REDIS_DB"
	redisPrefixVar         = "REDIS_PREFIX"
	databaseDSNVar         = "DATABASE_DSN"

	userStoreVar         = "USER_STORE"
	oidcIssuerVar        = "OIDC_ISSUER"
	oidcClientIDVar      = "OIDC_CLIENT_ID"
	oidcClientSecretVar  = "OIDC_CLIENT_SECRET"
	bootstrapLoginVar    = "BOOTSTRAP_LOGIN"
	bootstrapPasswordVar = "BOOTSTRAP_PASSWORD"
)

// Storage backends shared by the ledger and the user store.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	UserStoreOIDC = "oidc"
)

type StorageConfig interface {
	GetLedgerBackend() string
	GetLedgerSweepInterval() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetDatabaseDSN() string
}

type IdentityConfig interface {
	GetUserStore() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetBootstrapLogin() string
	GetBootstrapPassword() string
}

type Storage struct {
	src *source
}

var _ StorageConfig = Storage{}

func (s Storage) GetLedgerBackend() string {
	return s.src.get(ledgerBackendVar, BackendMemory)
}

func (s Storage) GetLedgerSweepInterval() time.Duration {
	return s.src.getDuration(ledgerSweepIntervalVar, 10*time.Minute)
}

func (s Storage) GetRedisAddr() string {
	return s.src.get(redisAddrVar, "localhost:6379")
}

func (s Storage) GetRedisPassword() string {
	return s.src.get(redisPasswordVar, "")
}

func (s Storage) GetRedisDB() int {
	return s.src.getInt(redisDBVar, 0)
}

func (s Storage) GetRedisPrefix() string {
	return s.src.get(redisPrefixVar, "ledger")
}

// GetDatabaseDSN is a pgx DSN for postgres or a file path for sqlite.
func (s Storage) GetDatabaseDSN() string {
	return s.src.get(databaseDSNVar, "")
}

type Identity struct {
	src *source
}

var _ IdentityConfig = Identity{}

func (i Identity) GetUserStore() string {
	return i.src.get(userStoreVar, BackendMemory)
}

func (i Identity) GetOIDCIssuer() string {
	return i.src.get(oidcIssuerVar, "")
}

func (i Identity) GetOIDCClientID() string {
	return i.src.get(oidcClientIDVar, "")
}

func (i Identity) GetOIDCClientSecret() string {
	return i.src.get(oidcClientSecretVar, "")
}

func (i Identity) GetBootstrapLogin() string {
	return i.src.get(bootstrapLoginVar, "")
}

func (i Identity) GetBootstrapPassword() string {
	return i.src.get(bootstrapPasswordVar, "")
}
