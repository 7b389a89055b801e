package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/urfave/cli"

	"voting-ledger/configuration"
	"voting-ledger/daemon"
	"voting-ledger/fault"
)

type metadata struct {
	config     *configuration.Configuration
	configFile string
	envFile    string
	e          io.Writer
	w          io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	app := cli.NewApp()
	app.Name = "ledgerd"
	app.Usage = "proof-of-work voting ledger"
	app.Version = version

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config-file, c",
			Value: "",
			Usage: " Lua configuration `FILE`",
		},
		cli.StringFlag{
			Name:  "env-file, e",
			Value: configuration.DefaultEnvFile,
			Usage: " environment `FILE` loaded before the process environment",
		},
		cli.IntFlag{
			Name:  "port, p",
			Usage: " HTTP listen `PORT`",
		},
		cli.StringFlag{
			Name:  "data-directory, d",
			Usage: " storage `DIR`",
		},
		cli.StringFlag{
			Name:  "database",
			Usage: " storage backend `TYPE` [json|leveldb|sqlite|postgres]",
		},
		cli.StringFlag{
			Name:  "database-url",
			Usage: " postgres connection `URL`",
		},
		cli.IntFlag{
			Name:  "difficulty",
			Usage: " proof of work `ZEROS`, leading hex zeros of a valid proof",
		},
		cli.StringFlag{
			Name:  "auto-mine",
			Usage: " seal pending votes every `INTERVAL`, 0 to disable",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the ledger HTTP API (default)",
			Action: runServe,
		},
		{
			Name:   "verify",
			Usage:  "check every stored block links to its predecessor",
			Action: runVerify,
		},
		{
			Name:   "init-db",
			Usage:  "create the storage and the genesis block",
			Action: runInitDB,
		},
	}
	app.Action = runServe

	app.Before = func(c *cli.Context) error {
		command := c.Args().Get(0)
		if command == "help" || command == "h" {
			return nil
		}

		configFile := c.String("config-file")
		envFile := c.String("env-file")

		config, err := configuration.Load(configFile, envFile)
		if err != nil {
			return err
		}
		applyFlags(c, config)

		// only serving needs the admin key
		offline := command == "verify" || command == "init-db"
		err = config.Validate()
		if err != nil && !(offline && err == fault.ErrMissingAdminKey) {
			return err
		}

		if err := daemon.Initialise(config); err != nil {
			return fmt.Errorf("logger setup failed with error: %s", err)
		}

		c.App.Metadata["config"] = &metadata{
			config:     config,
			configFile: configFile,
			envFile:    envFile,
			e:          c.App.ErrWriter,
			w:          c.App.Writer,
		}
		return nil
	}

	app.After = func(c *cli.Context) error {
		if _, ok := c.App.Metadata["config"].(*metadata); ok {
			daemon.Finalise()
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		exitwithstatus.Message("%s: %s", app.Name, err)
	}
}

// command line flags override every other source
func applyFlags(c *cli.Context, config *configuration.Configuration) {
	if c.IsSet("port") {
		config.Port = c.Int("port")
	}
	if c.IsSet("data-directory") {
		config.DataDirectory = c.String("data-directory")
	}
	if c.IsSet("database") {
		config.Database.Type = c.String("database")
	}
	if c.IsSet("database-url") {
		config.Database.URL = c.String("database-url")
	}
	if c.IsSet("difficulty") {
		config.Difficulty = c.Int("difficulty")
	}
	if c.IsSet("auto-mine") {
		config.AutoMineInterval = c.String("auto-mine")
	}
}
