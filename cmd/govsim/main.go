package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/govrealm/govchain/build"
)

var log = logging.Logger("govsim")

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Warnf("%+v", err)
		os.Exit(1)
		return
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "govsim",
		Usage:   "Governance token custody simulator",
		Version: build.UserVersion(),
		Commands: []*cli.Command{
			initCmd,
			configCmd,
			selectorCmd,
			genesisCmd,
			withdrawCmd,
			inspectCmd,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "repo",
				EnvVars: []string{"GOVSIM_PATH"},
				Value:   "~/.govsim",
			},
			&cli.StringFlag{
				Name:    "config",
				EnvVars: []string{"GOVSIM_CONFIG"},
				Usage:   "config file to use instead of <repo>/config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Before: func(cctx *cli.Context) error {
			return logging.SetLogLevel("govsim", cctx.String("log-level"))
		},
	}
}
