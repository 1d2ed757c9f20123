package cli

import (
	"github.com/roach88/datastore/internal/config"
	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/dictionary"
	"github.com/roach88/datastore/internal/postimport"
	"github.com/roach88/datastore/internal/query"
	"github.com/roach88/datastore/internal/translate"
)

// environment is the configured store and its collaborators, shared by
// every command that touches the database.
type environment struct {
	cfg   *config.Config
	store *datastore.Store
}

// openEnvironment loads configuration and opens the store. Failures are
// written through f and returned as ExitCommandError.
func openEnvironment(opts *RootOptions, f *OutputFormatter) (*environment, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, f.Fail(ErrCodeConfig, ExitCommandError, "failed to load config", err)
	}
	f.VerboseLog("Using %s database %s", cfg.Database.Driver, cfg.Database.DSN)

	store, err := datastore.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.StoreOptions())
	if err != nil {
		return nil, f.Fail(ErrCodeDatabase, ExitCommandError, "failed to open database", err)
	}
	return &environment{cfg: cfg, store: store}, nil
}

func (e *environment) Close() error {
	return e.store.Close()
}

// queryService builds the query executor with the configured limits.
func (e *environment) queryService() *query.Service {
	return query.NewService(e.store, translate.New(e.cfg.TranslateOptions()))
}

// registry loads the dictionary directory in reference mode. Other modes
// get an empty registry.
func (e *environment) registry() (*dictionary.Registry, error) {
	registry := dictionary.NewRegistry()
	if e.cfg.Options().DictionaryMode != dictionary.ModeReference {
		return registry, nil
	}
	if err := registry.LoadDir(e.cfg.Dictionary.Dir); err != nil {
		return nil, err
	}
	return registry, nil
}

// pipeline assembles the post-import processors in run order.
func (e *environment) pipeline(opts ...postimport.PipelineOption) (*postimport.Pipeline, error) {
	o := e.cfg.Options()
	registry, err := e.registry()
	if err != nil {
		return nil, err
	}
	enforcer := dictionary.NewEnforcer(dictionary.NewDiscovery(o.DictionaryMode, registry), e.store)

	return postimport.NewPipeline(
		postimport.Config{DropOnError: o.DropOnPostImportError},
		[]postimport.Processor{enforcer},
		postimport.DropperFunc(e.store.DropResource),
		e.store,
		opts...,
	), nil
}
