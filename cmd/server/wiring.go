package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/server"
	"github.com/jrsteele09/go-session-server/storage/sqlstore"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/token/ledger"
	"github.com/jrsteele09/go-session-server/users"
	fakeuserrepo "github.com/jrsteele09/go-session-server/users/repofake"
	"github.com/jrsteele09/go-session-server/users/upstream"
)

const connectTimeout = 5 * time.Second

// app holds the assembled server and the resources it owns.
type app struct {
	server  *server.Server
	sweeper *ledger.Sweeper
	db      *sqlstore.DB
	checks  []func(context.Context) error
	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to release resource")
		}
	}
}

func (a *app) healthy(ctx context.Context) error {
	for _, check := range a.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func build(ctx context.Context, c config.Config) (*app, error) {
	a := &app{}
	if err := a.assemble(ctx, c); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) assemble(ctx context.Context, c config.Config) error {
	signer, err := newSigner(c)
	if err != nil {
		return err
	}
	codec, err := token.NewCodec(signer,
		token.WithTTLs(c.GetAccessTokenTTL(), c.GetRefreshTokenTTL()),
		token.WithIssuer(c.GetIssuer()))
	if err != nil {
		return fmt.Errorf("[build] codec: %w", err)
	}

	l, err := a.newLedger(ctx, c)
	if err != nil {
		return err
	}
	repo, verifier, err := a.newIdentity(ctx, c)
	if err != nil {
		return err
	}

	service, err := auth.NewSessionService(auth.Repos{
		Credentials: verifier,
		Users:       repo,
		Ledger:      l,
	}, codec,
		auth.WithRevokeOnLogout(c.GetRevokeOnLogout()),
		auth.WithSubjectCheck(c.GetCheckSubjectOnRefresh()),
		auth.WithReplayCascade(c.GetRevokeSubjectOnReplay()),
	)
	if err != nil {
		return fmt.Errorf("[build] session service: %w", err)
	}

	options := []server.Option{server.WithHealthCheck(a.healthy)}
	if p, ok := signer.(token.JWKSProvider); ok {
		options = append(options, server.WithJWKSProvider(p))
	}
	a.server, err = server.New(c, service, options...)
	if err != nil {
		return err
	}

	if s, ok := l.(ledger.Sweepable); ok {
		a.sweeper = ledger.NewSweeper(s, c.GetLedgerSweepInterval())
	}
	return nil
}

func newSigner(c config.Config) (token.Signer, error) {
	signer, err := token.NewSigner(c.GetSigningKey(), c.GetSigningKeyFile(), c.GetSigningKeyID())
	if err == nil {
		return signer, nil
	}
	if c.GetEnv() != config.EnvDev || c.GetSigningKey() != "" || c.GetSigningKeyFile() != "" {
		return nil, fmt.Errorf("[build] signer: %w", err)
	}

	log.Warn().Msg("No signing key configured, using an ephemeral HMAC key; sessions will not survive a restart")
	return token.GenerateHMACSigner()
}

func (a *app) newLedger(ctx context.Context, c config.Config) (ledger.Ledger, error) {
	switch backend := c.GetLedgerBackend(); backend {
	case config.BackendMemory:
		return ledger.NewMemoryLedger(), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		a.closers = append(a.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("[build] redis %s: %w", c.GetRedisAddr(), err)
		}
		a.checks = append(a.checks, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Ledger on redis")
		return ledger.NewRedisLedger(client, c.GetRedisPrefix()), nil

	case config.BackendPostgres, config.BackendSQLite:
		db, err := a.openDB(ctx, sqlstore.Dialect(backend), c.GetDatabaseDSN())
		if err != nil {
			return nil, err
		}
		return sqlstore.NewLedger(db), nil

	default:
		return nil, fmt.Errorf("[build] unknown ledger backend %q", backend)
	}
}

func (a *app) newIdentity(ctx context.Context, c config.Config) (users.UserRepo, users.CredentialVerifier, error) {
	var repo users.UserRepo

	switch store := c.GetUserStore(); store {
	case config.BackendMemory, config.UserStoreOIDC:
		repo = fakeuserrepo.NewFakeUserRepo()
	case config.BackendPostgres, config.BackendSQLite:
		db, err := a.openDB(ctx, sqlstore.Dialect(store), c.GetDatabaseDSN())
		if err != nil {
			return nil, nil, err
		}
		repo = sqlstore.NewUserRepo(db)
	default:
		return nil, nil, fmt.Errorf("[build] unknown user store %q", store)
	}

	if c.GetUserStore() == config.UserStoreOIDC {
		if c.GetBootstrapLogin() != "" {
			log.Warn().Msg("Bootstrap user ignored with the oidc user store")
		}
		discoverCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		verifier, err := upstream.New(discoverCtx, upstream.Config{
			Issuer:       c.GetOIDCIssuer(),
			ClientID:     c.GetOIDCClientID(),
			ClientSecret: c.GetOIDCClientSecret(),
		}, upstream.WithUserRepo(repo))
		if err != nil {
			return nil, nil, fmt.Errorf("[build] %w", err)
		}
		log.Info().Str("issuer", c.GetOIDCIssuer()).Msg("Credentials verified upstream")
		return repo, verifier, nil
	}

	if login := c.GetBootstrapLogin(); login != "" {
		user, created, err := users.Bootstrap(ctx, repo, login, c.GetBootstrapPassword())
		if err != nil {
			return nil, nil, fmt.Errorf("[build] bootstrap user: %w", err)
		}
		log.Info().Str("login", user.Login).Bool("created", created).Msg("Bootstrap user ready")
	}

	verifier, err := users.NewPasswordVerifier(repo)
	if err != nil {
		return nil, nil, fmt.Errorf("[build] %w", err)
	}
	return repo, verifier, nil
}

// openDB opens and migrates the SQL database once. The ledger and the user
// store share it, so both must use the same dialect.
func (a *app) openDB(ctx context.Context, dialect sqlstore.Dialect, dsn string) (*sqlstore.DB, error) {
	if a.db != nil {
		if a.db.Dialect() != dialect {
			return nil, errors.New("[build] ledger and user store must use the same SQL backend")
		}
		return a.db, nil
	}

	if dsn == "" {
		return nil, fmt.Errorf("[build] a database DSN is required for %s", dialect)
	}

	openCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	db, err := sqlstore.Open(openCtx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("[build] %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("[build] %w", err)
	}
	a.checks = append(a.checks, db.PingContext)
	a.db = db
	log.Info().Str("dialect", string(dialect)).Msg("SQL storage ready")
	return db, nil
}
