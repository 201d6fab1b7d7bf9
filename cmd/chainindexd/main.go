// Package main provides chainindexd, a chain-following UTXO index daemon.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lay2dev/chainindex/internal/config"
	"github.com/lay2dev/chainindex/internal/follower"
	"github.com/lay2dev/chainindex/internal/rpc"
	"github.com/lay2dev/chainindex/internal/store"
	"github.com/lay2dev/chainindex/internal/supervisor"
	"github.com/lay2dev/chainindex/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.chainindex", "Data directory")
		configFile  = flag.String("config", "", "Config file path; only its directory is used and the file read there is config.yaml (default: <data-dir>/config.yaml)")
		rpcURL      = flag.String("rpc-url", "", "Node JSON-RPC URL, overrides config")
		driver      = flag.String("driver", "", "Store driver: sqlite or postgres, overrides config")
		dsn         = flag.String("dsn", "", "Postgres DSN, overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("chainindexd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadConfig(filepath.Dir(*configFile))
	} else {
		cfg, err = config.LoadConfig(*dataDir)
	}
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *rpcURL != "" {
		cfg.RPC.URL = *rpcURL
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}
	cfg.Store.DataDir = *dataDir
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	configPath := config.ConfigPath(*dataDir)
	if *configFile != "" {
		configPath = config.ConfigPath(filepath.Dir(*configFile))
	}
	log.Info("config loaded", "path", configPath)

	st, err := store.New(&store.Config{
		Driver:  store.Driver(cfg.Store.Driver),
		DataDir: cfg.Store.DataDir,
		DSN:     cfg.Store.DSN,
	})
	if err != nil {
		log.Fatal("failed to open store", "error", err)
	}
	defer st.Close()
	log.Info("store opened", "driver", st.Driver())

	client := rpc.NewClient(cfg.RPC.URL, time.Duration(cfg.RPC.TimeoutSeconds)*time.Second)

	newBlockLog := log.Component("follower")
	f := follower.New(st, client, follower.Config{
		PollInterval:  time.Duration(cfg.Follower.PollIntervalSeconds) * time.Second,
		KeepNum:       cfg.Follower.KeepNum,
		PruneInterval: cfg.Follower.PruneInterval,
	}, func(block *rpc.Block) {
		newBlockLog.Debug("block appended", "number", block.Header.Number, "hash", block.Header.Hash)
	})

	sup := supervisor.New(f, supervisor.Config{
		LivenessCheckInterval: time.Duration(cfg.Supervisor.LivenessCheckIntervalSeconds) * time.Second,
	})
	sup.StartForever()
	log.Info("chainindexd started", "rpc", cfg.RPC.URL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down...")

	sup.Stop()
	f.Stop()

	log.Info("goodbye")
}
