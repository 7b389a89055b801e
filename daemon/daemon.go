// Package daemon starts a ledger node from a validated configuration and
// keeps it running until the process is signalled.
package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitmark-inc/logger"

	"voting-ledger/api"
	"voting-ledger/configuration"
	"voting-ledger/fault"
	"voting-ledger/service"
	"voting-ledger/storage"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Options locates the sources a running node re-reads
type Options struct {
	ConfigFile string
	EnvFile    string
	Version    string
}

// Initialise creates the data and log directories and starts logging.
// Pair with Finalise.
func Initialise(config *configuration.Configuration) error {
	if err := os.MkdirAll(config.DataDirectory, 0700); err != nil {
		return err
	}
	if err := os.MkdirAll(config.Logging.Directory, 0700); err != nil {
		return err
	}
	if err := logger.Initialise(config.Logging); err != nil {
		return err
	}
	return fault.Initialise()
}

func Finalise() {
	fault.Finalise()
	logger.Finalise()
}

// OpenLedger opens the configured store and builds the voting service over
// it, creating the genesis block on first use
func OpenLedger(config *configuration.Configuration) (*service.VotingService, error) {
	store, err := storage.Open(config.StorageOptions())
	if err != nil {
		return nil, err
	}

	votingService, err := service.NewVotingService(store, service.Config{
		Difficulty:           config.Difficulty,
		CredentialIterations: config.CredentialIterations,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return votingService, nil
}

// Run serves the API until SIGINT or SIGTERM, then shuts down in reverse
// start order
func Run(config *configuration.Configuration, options Options) error {
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", options.Version)

	interval, err := config.AutoMine()
	if err != nil {
		return err
	}

	votingService, err := OpenLedger(config)
	if fault.IsErrIntegrity(err) {
		fault.Panicf("stored chain failed validation: %s", err)
	}
	if err != nil {
		return err
	}
	defer votingService.Close()

	adminKey := api.NewAdminKey(config.AdminAPIKey)
	server := api.NewServer(votingService, api.Options{
		AdminKey:  adminKey,
		VoteRate:  config.RateLimit.VotesPerSecond,
		VoteBurst: config.RateLimit.VoteBurst,
		MineRate:  config.RateLimit.MinesPerSecond,
		MineBurst: config.RateLimit.MineBurst,
	})

	if options.ConfigFile != "" {
		watcher, err := configuration.NewWatcher(options.ConfigFile, options.EnvFile, config, adminKey.Set)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if interval > 0 {
		autoMiner := service.NewAutoMiner(votingService, interval)
		autoMiner.Start()
		defer autoMiner.Stop()
	}

	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverChan := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", httpServer.Addr)
		serverChan <- httpServer.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serverChan:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %s", err)
			return err
		}
	case sig := <-sigChan:
		log.Infof("received signal: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %s", err)
	}
	return nil
}
