// Package bootstrap wires configuration into running infrastructure: the
// logger, the session store and, for the postgres backend, the database
// pool with its migrations.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/tgwire/tgwire/core/config"
	coredatabase "github.com/tgwire/tgwire/core/database"
	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram/state"
)

// Options control the bootstrap pipeline. The function fields default to
// the real implementations and exist for tests.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes the infrastructure built by Run. DB is nil for the memory
// backend.
type Result struct {
	DB    *sqlx.DB
	Store state.Store
}

// Run initializes the logger and builds the session store the configuration
// asks for.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	ttl := time.Duration(opts.Config.Store.TTLSeconds) * time.Second

	switch opts.Config.Store.Backend {
	case coreconfig.StorePostgres:
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(opts.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(opts.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}

		return &Result{DB: db, Store: state.NewPostgresStore(db, ttl)}, nil

	default:
		store := state.NewMemoryStore(state.MemoryOptions{
			TTL:      ttl,
			Capacity: opts.Config.Store.Capacity,
		})
		return &Result{Store: store}, nil
	}
}
