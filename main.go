package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deechtejoao/tuifeed/cache"
	"github.com/deechtejoao/tuifeed/config"
	"github.com/deechtejoao/tuifeed/fetcher"
	"github.com/deechtejoao/tuifeed/logger"
	"github.com/deechtejoao/tuifeed/merge"
	"github.com/deechtejoao/tuifeed/opml"
)

func main() {
	var cfgPath string
	var opmlPath string
	var cleanCache bool
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.StringVar(&opmlPath, "p", "", "import feeds from an OPML file and exit")
	flag.BoolVar(&cleanCache, "clean", false, "remove all cache entries")
	flag.Parse()

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			log.Fatalf("failed to write default config with %s", err)
		}
	} else if err != nil {
		log.Fatalf("failed to read config with %s", err)
	}

	if err := logger.Init(logger.Config{
		Level:      conf.Log.Level,
		File:       conf.Log.File,
		MaxSize:    conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAgeDays,
	}); err != nil {
		log.Fatalf("failed to initialize logger with %s", err)
	}
	defer logger.Sync()

	// OPML import mode
	if opmlPath != "" {
		if err := importOPML(opmlPath, conf.FeedsPath); err != nil {
			log.Fatalf("failed to import OPML with %s", err)
		}
		return
	}

	store, err := cache.New(conf.CachePath)
	if err != nil {
		log.Fatalf("failed to initialize cache at '%s' with %s", conf.CachePath, err)
	}
	defer store.Close()

	// Handle -clean flag
	if cleanCache {
		if err := store.Clear(); err != nil {
			log.Fatalf("failed to clear cache with %s", err)
		}
		logger.Infof("cache cleared")
		return
	}

	if stats, err := store.Stats(); err != nil {
		logger.Warnf("failed to get cache stats with %v", err)
	} else {
		logger.Infof("cache initialized with %d entries", stats.Entries)
	}

	specs, err := config.ReadFeeds(conf.FeedsPath)
	if err != nil {
		log.Fatalf("failed to read feed list at '%s' with %s", conf.FeedsPath, err)
	}
	if len(specs) == 0 {
		log.Fatalf("no feeds configured in '%s'", conf.FeedsPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter := fetcher.NewAdapter(conf.MaxAge())
	f := fetcher.New(store, adapter, fetcher.Options{
		Workers:        conf.Workers,
		RequestTimeout: conf.RequestTimeout(),
		RunTimeout:     conf.RunTimeout(),
		CacheTTL:       conf.CacheTTL(),
		Retries:        conf.Retries,
		UserAgent:      conf.UserAgent,
	})

	results := f.FetchAll(ctx, specs)
	timeline := merge.Timeline(results)

	for _, it := range timeline {
		marker := ""
		if it.Stale {
			marker = " [stale]"
		}
		fmt.Printf("%s | %s%s\n\t%s\n", it.Source, it.Title, marker, it.Link)
	}

	errs := merge.Errors(results)
	if len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		logger.Warnf("several feeds failed: %s", errors.Join(joined...))
	}
	logger.Infof("run finished: %d feeds, %d items, %d errors", len(specs), len(timeline), len(errs))
}

// importOPML merges the document's feeds into the persisted feed list,
// URL-keyed so repeated imports stay idempotent.
func importOPML(opmlPath, feedsPath string) error {
	data, err := os.ReadFile(opmlPath)
	if err != nil {
		return fmt.Errorf("failed to read OPML file at '%s' with %w", opmlPath, err)
	}

	imported, err := opml.Parse(data)
	if err != nil {
		return err
	}
	if len(imported) == 0 {
		return errors.New("no valid feeds inside OPML")
	}

	existing, err := config.ReadFeeds(feedsPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	merged := config.MergeFeeds(existing, imported)
	if err := config.WriteFeeds(feedsPath, merged); err != nil {
		return err
	}

	logger.Infof("imported %d feeds (%d total) into %s", len(imported), len(merged), feedsPath)
	return nil
}
