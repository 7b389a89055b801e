// Command api runs the ledger API configured only from the environment and
// an optional .env file, for container deployments without a config file
package main

import (
	"github.com/bitmark-inc/exitwithstatus"

	"voting-ledger/configuration"
	"voting-ledger/daemon"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	config, err := configuration.Load("", configuration.DefaultEnvFile)
	if err != nil {
		exitwithstatus.Message("api: configuration error: %s", err)
	}
	if err := config.Validate(); err != nil {
		exitwithstatus.Message("api: configuration error: %s", err)
	}

	if err := daemon.Initialise(config); err != nil {
		exitwithstatus.Message("api: logger setup failed with error: %s", err)
	}
	defer daemon.Finalise()

	if err := daemon.Run(config, daemon.Options{EnvFile: configuration.DefaultEnvFile, Version: version}); err != nil {
		exitwithstatus.Message("api: %s", err)
	}
}
