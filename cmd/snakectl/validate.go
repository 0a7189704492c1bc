package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/snake-engine/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Notes contains informational messages; otherwise Errors
// holds what was found wrong.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// readConfig parses a preset file without applying defaults
func readConfig(path string) (*engine.GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &config, nil
}

// validateConfig loads a preset and checks that it builds a playable game
func validateConfig(path string) ValidationResult {
	result := ValidationResult{File: filepath.Base(path), Valid: true}
	fail := func(format string, args ...any) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	config, err := readConfig(path)
	if err != nil {
		fail("%v", err)
		return result
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		var cfgErr *engine.ConfigError
		if errors.As(err, &cfgErr) {
			fail("%s: %s", cfgErr.Field, cfgErr.Reason)
		} else {
			fail("%v", err)
		}
		return result
	}

	if config.Name == "" {
		fail("name is required")
	} else if id := strings.TrimSuffix(result.File, ".json"); !strings.EqualFold(config.Name, id) {
		result.Notes = append(result.Notes, fmt.Sprintf("name %q differs from file name %q", config.Name, id))
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		fail("engine rejected config: %v", err)
		return result
	}

	effective := eng.GetConfig()
	stats := boardStats(effective)
	if got, want := len(eng.Snake()), effective.InitialLength; got < want {
		result.Notes = append(result.Notes, fmt.Sprintf("initial_length %d clamped to %d by the board", want, got))
	}
	if stats.free < 1 {
		fail("no free cell for food at the start")
	}
	if _, ok := eng.Food(); !ok && stats.free > 0 {
		fail("food was not placed on a %d-cell board", stats.playable)
	}

	result.Notes = append(result.Notes,
		fmt.Sprintf("✓ Board: %dx%d, %d playable cells, walls=%t", effective.Width, effective.Height, stats.playable, effective.Walls),
		fmt.Sprintf("✓ Lives: %d, ticks per move: %d, autostart: %s", effective.InitialLives, effective.TicksPerMove, effective.Autostart),
	)
	return result
}

// presetFiles lists the *.json files of dir in name order
func presetFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding config files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	w := output(cmd)
	files, err := presetFiles(dirArg(cmd))
	if err != nil {
		return err
	}

	invalid := 0
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			invalid++
			for _, e := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+e)
			}
		}
		for _, note := range result.Notes {
			fmt.Fprintln(w, "  "+note)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if invalid > 0 {
		return fmt.Errorf("%d of %d configurations have errors", invalid, len(files))
	}
	fmt.Fprintln(w, "✅ All configurations are valid!")
	return nil
}
