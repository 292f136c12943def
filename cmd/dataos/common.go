package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/slokhande/dataos/internal/cache"
	"github.com/slokhande/dataos/internal/config"
	"github.com/slokhande/dataos/internal/db"
	"github.com/slokhande/dataos/internal/engine"
	"github.com/slokhande/dataos/internal/events"
	"github.com/slokhande/dataos/internal/jobs"
	"github.com/slokhande/dataos/internal/metrics"
	"github.com/slokhande/dataos/internal/planner"
	"github.com/slokhande/dataos/internal/registry"
	"github.com/slokhande/dataos/internal/router"
	"github.com/slokhande/dataos/internal/runtime"
	"github.com/slokhande/dataos/internal/vfs"
)

// kernel is the fully wired system behind every command.
type kernel struct {
	cfg      config.Config
	db       *sql.DB
	engine   *engine.SQLite
	bus      *events.Bus
	files    *vfs.Store
	router   *router.Router
	metrics  *metrics.Service
	registry *registry.Registry
	runtime  *runtime.Runtime
	jobs     *jobs.Store
	queue    *jobs.Queue
	planner  planner.Planner
}

func openKernel(ctx context.Context) (*kernel, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	handle, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.Open(cfg.Engine.Path)
	if err != nil {
		_ = handle.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = eng.Close()
		_ = handle.Close()
	}

	bus := events.NewBus()
	files := vfs.NewStore(handle, bus)
	if err := files.Bootstrap(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	r := router.New(eng, cache.NewStore(handle), cfg.CacheTTL())
	svc, err := metrics.NewService(r, cfg.Metrics.Path)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	reg := registry.New()
	registry.Bootstrap(reg)
	rt := runtime.New(reg, r, eng, files, svc, bus)

	store := jobs.NewStore(handle)
	queue := jobs.NewQueue(store, rt, bus)
	if err := queue.Recover(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	return &kernel{
		cfg:      cfg,
		db:       handle,
		engine:   eng,
		bus:      bus,
		files:    files,
		router:   r,
		metrics:  svc,
		registry: reg,
		runtime:  rt,
		jobs:     store,
		queue:    queue,
		planner:  buildPlanner(ctx, cfg, reg, svc),
	}, cleanup, nil
}

func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		candidate := filepath.Join(".dataos", "config.json")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	return config.Load(path)
}

// buildPlanner prefers the oracle when configured, degrading to the keyword
// planner when it cannot be constructed.
func buildPlanner(ctx context.Context, cfg config.Config, reg *registry.Registry, svc *metrics.Service) planner.Planner {
	if !cfg.Oracle.Enabled {
		return planner.Keyword{}
	}
	apiKey := cfg.Oracle.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	oracle, err := planner.NewOracle(ctx, apiKey, cfg.Oracle.Model, cfg.OracleTimeout(), reg, svc)
	if err != nil {
		log.Warn().Err(err).Msg("oracle planner unavailable, using keyword planner")
		return planner.Keyword{}
	}
	return planner.Fallback{Primary: oracle, Fallback: planner.Keyword{}}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
