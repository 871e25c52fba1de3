package main

import (
	"fmt"
	"os"

	"github.com/danmuck/voxctl/internal/logging"
	"github.com/urfave/cli"
)

func main() {
	logging.ConfigureRuntime()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "jurisctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "jurisctl"
	app.Usage = "inspect, build and test voxel server jurisdictions"
	mapFlags := []cli.Flag{
		cli.StringFlag{Name: "file, f", Usage: "jurisdiction INI file"},
		cli.StringFlag{Name: "root, r", Usage: "root octal code as hex", Value: "00"},
		cli.StringFlag{Name: "ends, e", Usage: "comma separated end node codes as hex"},
		cli.StringFlag{Name: "type, t", Usage: "node type", Value: "voxel-server"},
	}
	app.Commands = []cli.Command{
		cli.Command{
			Name:   "show",
			Usage:  "Print a jurisdiction",
			Flags:  mapFlags,
			Action: showCommand,
		},
		cli.Command{
			Name:  "classify",
			Usage: "Classify an octal code as ABOVE, WITHIN or BELOW",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "code, c", Usage: "octal code to classify, as hex"},
				cli.IntFlag{Name: "child", Usage: "child index 0-7 of code, -1 for the code itself", Value: -1},
			}, mapFlags...),
			Action: classifyCommand,
		},
		cli.Command{
			Name:  "pack",
			Usage: "Encode a jurisdiction packet",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "sender, s", Usage: "sender node id (random when empty)"},
				cli.StringFlag{Name: "out, o", Usage: "write raw bytes here instead of hex to stdout"},
			}, mapFlags...),
			Action: packCommand,
		},
		cli.Command{
			Name:  "unpack",
			Usage: "Decode a jurisdiction packet",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "in, i", Usage: "file holding raw packet bytes"},
				cli.StringFlag{Name: "hex", Usage: "packet bytes as hex"},
			},
			Action: unpackCommand,
		},
		cli.Command{
			Name:  "write",
			Usage: "Save a jurisdiction as an INI file",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "out, o", Usage: "destination INI file"},
			}, mapFlags...),
			Action: writeCommand,
		},
	}
	return app
}
