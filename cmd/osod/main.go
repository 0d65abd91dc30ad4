// osod is the oso consensus node daemon. It boots a node from a TOML
// genesis file and keeps it available until interrupted; the network driver
// that feeds proposals and votes attaches through the node's engine.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/jbino85/techgnosis/log"
	"github.com/jbino85/techgnosis/node"
	"github.com/jbino85/techgnosis/osodb"
	"github.com/jbino85/techgnosis/params"
)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "path to the TOML genesis/config file",
		Required: true,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "logging verbosity (0=crit .. 5=trace)",
		Value: int(log.LvlInfo),
	}
)

func main() {
	app := &cli.App{
		Name:   "osod",
		Usage:  "oso consensus node",
		Flags:  []cli.Flag{configFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log.SetVerbosity(log.Lvl(ctx.Int(verbosityFlag.Name)))

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	council, err := councilFrom(cfg)
	if err != nil {
		return err
	}

	threshold := cfg.Threshold
	if threshold == 0 && len(council) == params.StandardValidatorCount {
		threshold = params.StandardThreshold
	}

	var opts []node.Option
	if cfg.DataDir != "" {
		store, err := osodb.Open(filepath.Join(cfg.DataDir, "chain"))
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, node.WithArchive(store))
	}

	n, err := node.New(cfg.NodeID, council, threshold, opts...)
	if err != nil {
		return err
	}
	log.Info("node started",
		"id", n.ID(),
		"validators", n.ValidatorSet().Len(),
		"threshold", n.ValidatorSet().Threshold(),
		"height", n.BlockHeight(),
	)
	if proposer := n.Engine().ProposerAt(0); proposer.Address == n.ID() {
		log.Info("this node proposes round 0")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("node stopped", "height", n.BlockHeight(), "root", n.StateRoot())
	return nil
}
