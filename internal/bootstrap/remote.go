package bootstrap

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mkpublisher/showcase/config"
	"github.com/mkpublisher/showcase/internal/auth/middleware"
	"github.com/mkpublisher/showcase/internal/remote"
	"github.com/mkpublisher/showcase/internal/remote/memory"
	"github.com/mkpublisher/showcase/internal/remote/postgres"
	"github.com/mkpublisher/showcase/internal/remote/supabase"
)

// NewBackend selects the remote implementation from cfg. With postgres tables
// the pool must be open; auth and the insert channel still use Supabase.
func NewBackend(cfg config.RemoteConfig, db *pgxpool.Pool, log logrus.FieldLogger) (remote.Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory backend; data is lost on restart")
		return memory.New().Remote(), nil
	case config.DriverSupabase:
	default:
		return remote.Backend{}, fmt.Errorf("unknown remote driver %q", cfg.Driver)
	}

	client, err := supabase.NewClient(supabase.Options{
		URL:       cfg.URL,
		AnonKey:   cfg.AnonKey,
		RateLimit: rate.Limit(cfg.RateLimit),
		RateBurst: cfg.RateBurst,
		Logger:    log,
	})
	if err != nil {
		return remote.Backend{}, err
	}
	b := client.Backend()

	if cfg.Tables == config.TablesPostgres {
		if db == nil {
			return remote.Backend{}, fmt.Errorf("postgres tables need an open database")
		}
		tables := postgres.NewTables(db)
		b.Projects = tables.Projects()
		b.Profiles = tables.Profiles()
	}
	return b, nil
}

// NewVerifier checks bearer tokens locally when the JWT secret is known and
// asks the auth service otherwise.
func NewVerifier(cfg config.RemoteConfig, b remote.Backend) (middleware.Verifier, error) {
	if cfg.JWTSecret != "" {
		return middleware.NewJWTVerifier(cfg.JWTSecret)
	}
	return middleware.RemoteVerifier{Auth: b.Auth}, nil
}
