// Command xhcictl inspects xHCI host controllers on a Linux host and runs
// the driver against an emulated controller.
//
//	xhcictl scan                  list xHCI functions and their BAR0
//	xhcictl simulate --text hi    type through an emulated keyboard
package main

import (
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v2"

	"github.com/ardnew/softxhci/pkg"
)

const version = "v0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "xhcictl"
	app.Version = version
	app.Usage = "inspect xHCI controllers and exercise the driver against an emulator"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "warn",
			EnvVars: []string{"XHCICTL_LOG_LEVEL"},
			Usage:   "minimum log level (debug, info, warn, error)",
		},
		&cli.BoolFlag{
			Name:    "json",
			EnvVars: []string{"XHCICTL_LOG_JSON"},
			Usage:   "write logs as JSON",
		},
	}
	app.Before = setupLogging
	app.Commands = []*cli.Command{
		scanCommand(),
		simulateCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		pkg.LogErr(pkg.ComponentTool, "xhcictl failed", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("log level %q: %w", c.String("log-level"), err)
	}
	pkg.SetLogLevel(level)
	if c.Bool("json") {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	} else {
		pkg.SetLogFormat(pkg.LogFormatText)
	}
	return nil
}
