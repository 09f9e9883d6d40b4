// Command blobctl inspects blob layouts and exercises the copy paths of the
// tensorblob runtime.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const version = "v0.1.0-dev"

func newApp() *cli.App {
	app := &cli.App{
		Name:    "blobctl",
		Usage:   "Inspect blob layouts and verify blob copies",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "", Usage: "Set log level (panic, fatal, error, warn, info, debug, trace), overrides the config file", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "config", Value: "", TakesFile: true, Usage: "JSON config file", EnvVars: []string{"BLOBCTL_CONFIG"}},
		},
		Before: setup,
	}

	app.Commands = []*cli.Command{
		{
			Name:   "layout",
			Usage:  "Print the header and body layout of a blob",
			Flags:  layoutFlags(),
			Action: layoutAction,
		},
		{
			Name:  "selftest",
			Usage: "Copy a populated register across placements and verify the result",
			Flags: append(layoutFlags(),
				&cli.StringFlag{Name: "device", Value: "CUDA:0", Usage: "Placement of the destination register, e.g. CPU, CUDA:1, WebGPU"},
				&cli.StringFlag{Name: "layout", Value: "contiguous", Usage: "Register layout (contiguous, separated)"},
				&cli.StringFlag{Name: "allocator", Value: "heap", Usage: "Register allocator (heap, mmap)"},
				&cli.BoolFlag{Name: "metrics", Value: false, Usage: "Print collected metrics after the run"},
			),
			Action: selftestAction,
		},
		{
			Name:  "version",
			Usage: "Print the version",
			Action: func(c *cli.Context) error {
				_, err := fmt.Fprintf(c.App.Writer, "blobctl %s\n", version)
				return err
			},
		},
	}

	return app
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
