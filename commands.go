package main

import (
	"fmt"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/gookit/color"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli"

	"voting-ledger/daemon"
	"voting-ledger/fault"
	"voting-ledger/models"
	"voting-ledger/storage"
)

func runServe(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	return daemon.Run(m.config, daemon.Options{
		ConfigFile: m.configFile,
		EnvFile:    m.envFile,
		Version:    version,
	})
}

// runVerify reads the stored chain without building a ledger over it, so
// a damaged chain can still be inspected
func runVerify(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	store, err := storage.Open(m.config.StorageOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	blocks, err := store.LoadChain()
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return fault.ErrEmptyChain
	}

	fmt.Fprintf(m.w, "verifying %d blocks at difficulty %d\n", len(blocks), m.config.Difficulty)
	bar := progressbar.Default(int64(len(blocks)))

	firstInvalid := -1
	var reason error
	if err := models.ValidateGenesis(blocks[0]); err != nil {
		firstInvalid = 0
		reason = err
	}
	bar.Add(1)

	for i := 1; i < len(blocks) && firstInvalid < 0; i++ {
		if err := models.ValidateLink(blocks[i-1], blocks[i], m.config.Difficulty); err != nil {
			firstInvalid = i
			reason = err
		}
		bar.Add(1)
	}
	fmt.Fprintln(m.w)

	if firstInvalid >= 0 {
		color.Printf("<error>INVALID</>\tblock %d: %s\n", firstInvalid, reason)
		daemon.Finalise()
		exitwithstatus.Exit(1)
	}

	color.Printf("<suc>OK</>\t%d blocks, tip %s\n", len(blocks), blocks[len(blocks)-1].Hash())
	return nil
}

func runInitDB(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	votingService, err := daemon.OpenLedger(m.config)
	if err != nil {
		return err
	}

	status := votingService.Status()

	// a store that cannot flush the genesis block is unusable
	fault.PanicIfError("close store", votingService.Close())

	color.Printf("<suc>OK</>\t%s storage ready in %s: %d blocks, %d pending\n",
		m.config.Database.Type, m.config.DataDirectory, status.ChainLength, status.Pending)
	return nil
}
