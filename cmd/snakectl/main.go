// Command snakectl works with snake game configurations offline.
//
//	snakectl validate [dir]      check every *.json preset in dir (default: configs)
//	snakectl analyze [dir]       print board statistics for every preset
//	snakectl simulate --config configs/classic.json --seed 7 --keys left@3,up --ticks 50
//
// simulate runs the engine without a server, so the same seed and keys always
// print the same game.
package main

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultConfigDir = "configs"

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "snakectl",
		Usage: "validate, analyze and replay snake game configurations",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check preset files for invalid or unplayable settings",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
			{
				Name:      "analyze",
				Usage:     "print board statistics for every preset",
				ArgsUsage: "[dir]",
				Action:    runAnalyze,
			},
			{
				Name:  "simulate",
				Usage: "play a preset with scripted keys and print the result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Value:   defaultConfigDir + "/classic.json",
						Usage:   "preset file to play",
					},
					&cli.IntFlag{
						Name:  "seed",
						Value: 1,
						Usage: "food placement seed",
					},
					&cli.StringFlag{
						Name:    "keys",
						Aliases: []string{"k"},
						Usage:   "comma separated keys, each optionally pinned to a tick: left@3,up,ArrowRight@10",
					},
					&cli.IntFlag{
						Name:    "ticks",
						Aliases: []string{"n"},
						Value:   100,
						Usage:   "ticks to run",
					},
					&cli.BoolFlag{
						Name:  "board",
						Value: true,
						Usage: "print the final board",
					},
				},
				Action: runSimulate,
			},
		},
	}
}

func dirArg(cmd *cli.Command) string {
	if dir := cmd.Args().First(); dir != "" {
		return dir
	}
	return defaultConfigDir
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
