package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parsely/gosolr/internal/config"
	"github.com/parsely/gosolr/internal/util"
	"github.com/parsely/gosolr/solr"

	"github.com/robfig/cron/v3"
)

func main() {
	configPath := flag.String("config", "solrload.yaml", "path to configuration file")
	once := flag.Bool("once", false, "run one load pass and exit (ignore schedule)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	util.SetupLogger(cfg.Logging.Level)

	slog.Info("solrload starting",
		"solr", cfg.Solr.URL,
		"update_format", cfg.Solr.UpdateFormat,
		"batch_size", cfg.Batch.Size,
		"auto_commit", cfg.Batch.AutoCommit,
		"files", cfg.Loader.Files,
	)

	httpClient, err := util.NewHTTPClient(cfg.Solr.TLSConfig)
	if err != nil {
		slog.Error("failed to create HTTP client", "error", err)
		os.Exit(1)
	}

	format := solr.UpdateXML
	if cfg.Solr.UpdateFormat == "json" {
		format = solr.UpdateJSON
	}

	client, err := solr.New(cfg.Solr.URL,
		solr.WithHTTPClient(httpClient),
		solr.WithTimeout(time.Duration(cfg.Solr.TimeoutSeconds)*time.Second),
		solr.WithBasicAuth(cfg.Solr.Username, cfg.Solr.Password),
		solr.WithUpdateFormat(format),
	)
	if err != nil {
		slog.Error("failed to create solr client", "error", err)
		os.Exit(1)
	}

	if *once || cfg.Loader.Schedule == "" {
		if err := loadAll(context.Background(), client, cfg); err != nil {
			slog.Error("load failed", "error", err)
			os.Exit(1)
		}
		slog.Info("load completed, exiting")
		return
	}

	// Run on a cron schedule.
	c := cron.New()
	_, err = c.AddFunc(cfg.Loader.Schedule, func() {
		slog.Info("scheduled load starting")
		if err := loadAll(context.Background(), client, cfg); err != nil {
			slog.Error("scheduled load failed", "error", err)
			return
		}
		slog.Info("scheduled load completed")
	})
	if err != nil {
		slog.Error("invalid cron schedule", "schedule", cfg.Loader.Schedule, "error", err)
		os.Exit(1)
	}

	c.Start()
	slog.Info("load scheduler started", "schedule", cfg.Loader.Schedule)

	// Wait for shutdown signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down...")
	ctx := c.Stop()
	<-ctx.Done()
	slog.Info("solrload stopped")
}

// loadAll indexes every NDJSON file matched by the configured globs.
func loadAll(ctx context.Context, client *solr.Client, cfg *config.Config) error {
	files, err := util.ExpandGlobs(cfg.Loader.Files)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Info("no files matched, nothing to load", "globs", cfg.Loader.Files)
		return nil
	}

	for _, path := range files {
		start := time.Now()
		n, err := loadFile(ctx, client, cfg, path)
		if err != nil {
			slog.Error("failed to load file", "file", path, "error", err)
			continue
		}
		slog.Info("loaded file",
			"file", path,
			"documents", n,
			"elapsed", time.Since(start).Round(time.Millisecond).String(),
		)
	}

	if cfg.Loader.CommitAtEnd {
		if err := client.Commit(ctx); err != nil {
			return fmt.Errorf("final commit: %w", err)
		}
	}
	return nil
}

// loadFile streams one NDJSON file through a batch adder. Returns the
// number of documents submitted.
func loadFile(ctx context.Context, client *solr.Client, cfg *config.Config, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	count := 0
	err = solr.RunBatch(ctx, client, func(b *solr.BatchAdder) error {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}
			var doc solr.Document
			if err := json.Unmarshal(raw, &doc); err != nil {
				slog.Warn("skipping malformed line", "file", path, "line", line, "error", err)
				continue
			}
			if failed := b.AddOne(ctx, doc); len(failed) > 0 {
				slog.Warn("documents failed during flush", "file", path, "failed", len(failed))
			}
			count++
		}
		return scanner.Err()
	}, solr.WithBatchSize(cfg.Batch.Size), solr.WithAutoCommit(cfg.Batch.AutoCommit))

	return count, err
}
