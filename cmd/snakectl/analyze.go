package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/snake-engine/game/engine"
)

type stats struct {
	playable int // cells the snake may occupy
	walls    int
	snake    int // starting length after clamping
	free     int // playable cells not covered by the starting snake
	maxScore int // score when the snake fills the board
}

// boardStats summarizes a board; config must already have its defaults
func boardStats(config *engine.GameConfig) stats {
	s := stats{
		playable: config.Width * config.Height,
		snake:    len(engine.InitialSnake(config)),
	}
	if config.Walls {
		s.playable = (config.Width - 2) * (config.Height - 2)
		s.walls = config.Width*config.Height - s.playable
	}
	s.free = s.playable - s.snake
	s.maxScore = s.free * config.ScoreIncrement
	return s
}

// farthestFood is the largest Manhattan distance between two playable cells
func farthestFood(config *engine.GameConfig) int {
	if !config.Walls {
		return (config.Width - 1) + (config.Height - 1)
	}
	return (config.Width - 3) + (config.Height - 3)
}

func analyzeConfig(w io.Writer, path string) error {
	raw, err := readConfig(path)
	if err != nil {
		return err
	}
	if err := engine.ValidateGameConfig(raw); err != nil {
		return err
	}
	config := raw.WithDefaults()
	s := boardStats(config)

	fmt.Fprintf(w, "Name: %s\n", config.Name)
	if config.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", config.Description)
	}
	fmt.Fprintf(w, "Board: %d x %d (%d playable, %d wall cells)\n", config.Width, config.Height, s.playable, s.walls)
	if config.Walls {
		fmt.Fprintln(w, "Edges: walled, leaving the board costs a life")
	} else {
		fmt.Fprintln(w, "Edges: open, leaving the board costs a life")
	}
	fmt.Fprintf(w, "Snake: length %d heading %s\n", s.snake, config.InitialDirection)
	fmt.Fprintf(w, "Lives: %d\n", config.InitialLives)
	fmt.Fprintf(w, "Speed: one move every %d tick(s)\n", config.TicksPerMove)
	fmt.Fprintf(w, "Food to fill the board: %d (max score %d at %d per food)\n", s.free, s.maxScore, config.ScoreIncrement)
	fmt.Fprintf(w, "Autostart: %s\n", config.Autostart)
	if config.Seed != 0 {
		fmt.Fprintf(w, "Seed: %d (food positions are fixed)\n", config.Seed)
	}

	fmt.Fprintf(w, "Worst-case ticks to reach food on an empty board: %d\n", farthestFood(config)*config.TicksPerMove)
	return nil
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	w := output(cmd)
	files, err := presetFiles(dirArg(cmd))
	if err != nil {
		return err
	}

	for _, file := range files {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", file)
		if err := analyzeConfig(w, file); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
	return nil
}
