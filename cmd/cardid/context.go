package main

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/cardid/cardid-server/internal/cache"
	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/metadata/pokemontcg"
	"github.com/cardid/cardid-server/internal/resolver"
	"github.com/cardid/cardid-server/internal/search"
	"github.com/cardid/cardid-server/internal/service"
	"github.com/cardid/cardid-server/internal/store/sqlite"
)

// commandContext lazily opens the catalog components a command needs and
// closes whatever was opened once the command finishes.
type commandContext struct {
	envFile      string
	dataDir      string
	dbPath       string
	indexPath    string
	matchingFile string
	logLevel     string
	offline      bool

	logOut io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     *logger.Logger

	store  *sqlite.Store
	index  *search.NameIndex
	cache  *cache.LookupCache
	remote *pokemontcg.Client
}

func newCommandContext() *commandContext {
	return &commandContext{logOut: os.Stderr}
}

// configArgs translates the CLI flags into config.Load arguments. Unset
// flags are left to the environment and the defaults.
func (c *commandContext) configArgs() []string {
	var args []string
	add := func(name, value string) {
		if value != "" {
			args = append(args, "-"+name, value)
		}
	}
	add("env-file", c.envFile)
	add("data-dir", c.dataDir)
	add("db", c.dbPath)
	add("index-path", c.indexPath)
	add("matching-file", c.matchingFile)
	add("log-level", c.logLevel)
	if c.offline {
		add("remote", "false")
	}
	return append(args, "-watch", "false")
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(c.configArgs())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger.New(logger.Config{
			Writer:      c.logOut,
			Environment: cfg.App.Environment,
			Level:       logger.ParseLevel(cfg.Logger.Level),
		})
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*sqlite.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := sqlite.Open(cfg.Catalog.DatabasePath, c.logger.Component("store"))
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

func (c *commandContext) openIndex() (*search.NameIndex, error) {
	if c.index != nil {
		return c.index, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	index, err := search.NewNameIndex(search.Options{
		DataPath: cfg.Catalog.IndexPath,
		Logger:   c.logger.Component("search"),
	})
	if err != nil {
		return nil, err
	}
	c.index = index
	return index, nil
}

// openCache returns an in-memory cache. Cached results only live for one
// command, which still dedupes remote calls within a batch.
func (c *commandContext) openCache() (*cache.LookupCache, error) {
	if c.cache != nil {
		return c.cache, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	lc, err := cache.New(cache.Options{
		FailureTTL: cfg.Cache.FailureTTL,
		SearchTTL:  cfg.Cache.SearchTTL,
		Logger:     c.logger.Component("cache"),
	})
	if err != nil {
		return nil, err
	}
	c.cache = lc
	return lc, nil
}

// remoteClient returns nil when the remote catalog is disabled.
func (c *commandContext) remoteClient() (*pokemontcg.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Remote.Enabled {
		return nil, nil
	}
	if c.remote != nil {
		return c.remote, nil
	}
	lc, err := c.openCache()
	if err != nil {
		return nil, err
	}
	c.remote = pokemontcg.New(pokemontcg.Options{
		BaseURL:           cfg.Remote.BaseURL,
		APIKey:            cfg.Remote.APIKey,
		Timeout:           cfg.Remote.Timeout,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		Burst:             cfg.Remote.Burst,
		Cache:             lc,
		Logger:            c.logger.Component("pokemontcg"),
	})
	return c.remote, nil
}

func (c *commandContext) newResolver() (*resolver.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	index, err := c.openIndex()
	if err != nil {
		return nil, err
	}
	lc, err := c.openCache()
	if err != nil {
		return nil, err
	}
	remote, err := c.remoteClient()
	if err != nil {
		return nil, err
	}

	opts := []resolver.Option{
		resolver.WithSettings(cfg.Matching.Settings),
		resolver.WithCache(lc),
		resolver.WithNameSuggester(index),
		resolver.WithLogger(c.logger.Component("resolver")),
	}
	if remote != nil {
		opts = append(opts, resolver.WithRemote(remote))
	}
	return resolver.New(store, opts...), nil
}

func (c *commandContext) newCatalogService() (*service.CatalogService, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	index, err := c.openIndex()
	if err != nil {
		return nil, err
	}
	opts := service.CatalogOptions{
		Index:       index,
		FuzzyRadius: cfg.Matching.Settings.Thresholds.FuzzyRadius,
		Logger:      c.logger.Component("catalog"),
	}
	remote, err := c.remoteClient()
	if err != nil {
		return nil, err
	}
	if remote != nil {
		opts.Remote = remote
	}
	return service.NewCatalogService(store, opts), nil
}

// Close releases everything the command opened.
func (c *commandContext) Close() error {
	var errs []error
	if c.remote != nil {
		c.remote.Close()
		c.remote = nil
	}
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
		c.cache = nil
	}
	if c.index != nil {
		errs = append(errs, c.index.Close())
		c.index = nil
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
