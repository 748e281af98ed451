package cmd

import (
	"time"

	"mangascout/internal/buildinfo"
	"mangascout/internal/config"
	"mangascout/internal/domain"
	"mangascout/internal/download"
	"mangascout/internal/engine"
	"mangascout/internal/logger"
	"mangascout/internal/registry"
	"mangascout/internal/sharedhttp"
	"mangascout/internal/source"
	"mangascout/internal/store"

	"github.com/pkg/errors"
)

// app holds everything a command needs after startup.
type app struct {
	cfg    *config.AppConfig
	log    logger.Logger
	engine *engine.Engine
	store  *store.Store
}

// newApp reads the config, sets up logging and wires the engine. progress
// may be nil. overrides run on the loaded config, flags use them.
func newApp(progress engine.ProgressFunc, overrides ...func(*domain.Config)) (*app, error) {
	// read config
	cfg := config.New(configPath, buildinfo.Version)
	for _, o := range overrides {
		o(cfg.Config)
	}

	// init new logger
	log := logger.New(cfg.Config)

	if err := cfg.UpdateConfig(); err != nil {
		log.Error().Err(err).Msgf("error updating config")
	}

	// init dynamic config
	cfg.DynamicReload(log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	defs, err := source.Definitions()
	if err != nil {
		return nil, err
	}
	defs = source.ApplyOverrides(defs, cfg.Config.Sources)

	zl := log.Zerolog()
	reg := registry.New(defs, source.Open, zl)

	images := sharedhttp.NewClient(domain.AdapterConfig{
		Name:    "images",
		Timeout: time.Duration(cfg.Config.ImageTimeout) * time.Second,
		Retries: 3,
	}, sharedhttp.WithLogger(zl))
	dl := download.New(images, zl, download.WithWorkers(cfg.Config.ImageWorkers))

	a := &app{cfg: cfg, log: log}

	var st domain.Store
	if cfg.Config.DatabasePath != "" {
		a.store, err = store.Open(cfg.Config.DatabasePath)
		if err != nil {
			return nil, errors.Wrap(err, "could not open database")
		}
		st = a.store
	}

	a.engine = engine.New(reg, dl, st, zl, engine.Options{
		SearchPages:    cfg.Config.SearchPages,
		NamingTemplate: cfg.Config.NamingTemplate,
		ArchiveFormat:  cfg.Config.ArchiveFormat,
		Progress:       progress,
	})

	return a, nil
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("error closing database")
	}
}
