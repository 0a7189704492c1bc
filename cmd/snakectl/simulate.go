package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/snake-engine/game/engine"
)

// scriptedKey is a key code pressed right before the given tick (1-based)
type scriptedKey struct {
	code string
	tick int
}

// parseKeys reads "left@3,up,ArrowRight@10". A key without a tick is pressed
// one tick after the previous key, or before the first tick if it leads.
func parseKeys(spec string) ([]scriptedKey, error) {
	var keys []scriptedKey
	last := 0
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		code, at, pinned := strings.Cut(part, "@")
		if _, ok := engine.ParseDirection(code); !ok {
			return nil, fmt.Errorf("unknown key %q", code)
		}

		tick := last + 1
		if pinned {
			n, err := strconv.Atoi(at)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid tick in %q", part)
			}
			if n < last {
				return nil, fmt.Errorf("key %q is pinned before the previous key", part)
			}
			tick = n
		}
		keys = append(keys, scriptedKey{code: code, tick: tick})
		last = tick
	}
	return keys, nil
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	w := output(cmd)

	config, err := readConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := engine.ValidateGameConfig(config); err != nil {
		return err
	}
	config.Seed = uint64(cmd.Int("seed"))

	keys, err := parseKeys(cmd.String("keys"))
	if err != nil {
		return err
	}
	ticks := int(cmd.Int("ticks"))
	if ticks < 0 {
		return fmt.Errorf("ticks must not be negative")
	}

	var records []engine.NotificationRecord
	eng, err := engine.NewEngine(config, engine.WithNotificationHandler(func(n engine.Notification) {
		records = append(records, engine.Record(n))
	}))
	if err != nil {
		return err
	}
	eng.Start()

	executed := 0
	for tick := 1; tick <= ticks; tick++ {
		for len(keys) > 0 && keys[0].tick == tick {
			eng.KeyPressCode(keys[0].code)
			keys = keys[1:]
		}
		if eng.Tick() == engine.GameOver {
			executed = tick
			break
		}
		executed = tick
	}

	state := eng.GetState()
	fmt.Fprintf(w, "Config: %s (seed %d)\n", config.Name, config.Seed)
	for _, record := range records {
		fmt.Fprintln(w, record.String())
	}
	fmt.Fprintf(w, "Ticks: %d of %d\n", executed, ticks)
	fmt.Fprintf(w, "Score: %d, lives: %d, length: %d, food eaten: %d\n", state.Score, state.Lives, state.Length(), state.FoodEaten)
	fmt.Fprintf(w, "State: %s\n", state.RunState)
	if cmd.Bool("board") {
		fmt.Fprintln(w, eng.BoardSnapshot().String())
	}
	return nil
}
