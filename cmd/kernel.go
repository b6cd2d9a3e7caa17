package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/nextlevelbuilder/orgkernel/internal/agentconfig"
	"github.com/nextlevelbuilder/orgkernel/internal/lifecycle"
	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
	"github.com/nextlevelbuilder/orgkernel/internal/registry"
	"github.com/nextlevelbuilder/orgkernel/internal/schedule"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
	"github.com/nextlevelbuilder/orgkernel/internal/store/pg"
	"github.com/nextlevelbuilder/orgkernel/internal/store/sqlite"
	"github.com/nextlevelbuilder/orgkernel/internal/tasks"
)

var (
	sqlitePath  string
	postgresDSN string
	baseDir     string
)

// kernel composes every component a CLI subcommand needs, opened fresh per
// invocation (§4 as a whole — there is no long-lived daemon in this
// surface, only a thin command shell over the store/lifecycle layers).
type kernel struct {
	db       *sql.DB
	stores   *store.Stores
	paths    *pathresolver.Resolver
	cfg      *agentconfig.Service
	registry *registry.Registry
	tasks    *tasks.Engine
	orch     *lifecycle.Orchestrator
	checker  *schedule.Checker
}

func (k *kernel) Close() {
	if k.db != nil {
		_ = k.db.Close()
	}
}

// resolveDSN picks the Postgres DSN from the flag or the environment, used
// by both the migrate subcommands and openKernel.
func resolveDSN() string {
	if postgresDSN != "" {
		return postgresDSN
	}
	return os.Getenv("ORGKERNEL_POSTGRES_DSN")
}

// openKernel opens the configured backend and wires every component on top
// of it. Postgres wins when a DSN is available; otherwise it falls back to
// the embedded SQLite file at sqlitePath, mirroring the managed/standalone
// split already built into internal/store/pg and internal/store/sqlite.
func openKernel() (*kernel, error) {
	var db *sql.DB
	var err error

	if dsn := resolveDSN(); dsn != "" {
		db, err = pg.OpenDB(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	} else {
		path := sqlitePath
		if path == "" {
			path = os.Getenv("ORGKERNEL_SQLITE_PATH")
		}
		if path == "" {
			path = "orgkernel.db"
		}
		db, err = sqlite.OpenDB(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
	}

	var stores *store.Stores
	if resolveDSN() != "" {
		stores = pg.NewStores(db)
	} else {
		stores = sqlite.NewStores(db)
	}

	dir := baseDir
	if dir == "" {
		dir = os.Getenv("ORGKERNEL_DATA_DIR")
	}
	if dir == "" {
		dir = "./data"
	}
	paths := pathresolver.New(dir)
	cfgSvc := agentconfig.NewService(paths)

	return &kernel{
		db:       db,
		stores:   stores,
		paths:    paths,
		cfg:      cfgSvc,
		registry: registry.New(stores.Agents, stores.Audit),
		tasks:    tasks.NewEngine(stores.Tasks, stores.Agents, stores.Audit),
		orch:     lifecycle.New(stores.Agents, stores.Tasks, stores.Messages, stores.Audit, cfgSvc, paths),
		checker:  schedule.NewChecker(stores.Schedules, stores.Tasks),
	}, nil
}
