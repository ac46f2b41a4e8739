// Package main is the entry point for the multisearch server, a personal
// search-aggregation backend that proxies autocomplete engines and remembers
// per-user query history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZhanXPX/glance-multisearch/internal/config"
	"github.com/ZhanXPX/glance-multisearch/internal/history"
	"github.com/ZhanXPX/glance-multisearch/internal/logging"
	"github.com/ZhanXPX/glance-multisearch/internal/server"
	"github.com/ZhanXPX/glance-multisearch/internal/store"
	"github.com/ZhanXPX/glance-multisearch/internal/suggest"
)

var version = "0.1.0"

func main() {
	var (
		cfgPath string
		port    int
		dataDir string
	)

	rootCmd := &cobra.Command{
		Use:   "multisearch",
		Short: "Personal search aggregation backend",
		Long: `Multisearch stores per-user query history and proxies as-you-type
suggestion requests to Google, Bing, DuckDuckGo and Baidu, merging remote
suggestions with locally remembered queries.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.multisearch/config.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath, port, dataDir)
		},
	}
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "", "history data directory (overrides config)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("multisearch %s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cfgPath string, port int, dataDir string) error {
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dataDir != "" {
		cfg.Server.DataDir = dataDir
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	// A store that cannot be created or parsed is fatal: serving requests
	// without working persistence would silently drop user history.
	st, err := store.Open(cfg.StorePath(), time.Duration(cfg.Store.FlushDelayMS)*time.Millisecond, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open history store")
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("final store flush failed")
		}
	}()
	log.Info().Str("path", st.Path()).Msg("history store loaded")

	hist := history.NewService(st, log)
	registry := suggest.NewRegistry(time.Duration(cfg.Suggest.TimeoutMS) * time.Millisecond)
	agg := suggest.NewAggregator(registry, hist, log)

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		PublicDir:       publicDir(cfg),
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second,
	}, hist, agg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return err
	}
	log.Info().Msg("shut down cleanly")
	return nil
}

// publicDir resolves the static site directory: explicit config wins, else a
// ./public directory next to the working directory is used when present.
func publicDir(cfg *config.Config) string {
	if cfg.Server.PublicDir != "" {
		return cfg.Server.PublicDir
	}
	if info, err := os.Stat(filepath.Join(".", "public")); err == nil && info.IsDir() {
		return filepath.Join(".", "public")
	}
	return ""
}
