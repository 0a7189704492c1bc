package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/snake-engine/game/engine"
)

const validPreset = `{
  "name": "small",
  "width": 5,
  "height": 5,
  "initial_lives": 2,
  "walls": true
}`

func writePreset(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	return path
}

// run executes snakectl with args and returns what it printed
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"snakectl"}, args...))
	return out.String(), err
}

func TestValidateConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		body    string
		valid   bool
		errWant string
	}{
		{"valid", "small.json", validPreset, true, ""},
		{"malformed json", "broken.json", `{"name": `, false, "invalid JSON"},
		{"bad width", "wide.json", `{"name":"wide","width":0,"height":5,"initial_lives":1}`, false, "width"},
		{"bad autostart", "auto.json", `{"name":"auto","width":5,"height":5,"initial_lives":1,"autostart":"later"}`, false, "autostart"},
		{"missing name", "anon.json", `{"width":5,"height":5,"initial_lives":1}`, false, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateConfig(writePreset(t, dir, tt.file, tt.body))
			if result.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (errors: %v)", result.Valid, tt.valid, result.Errors)
			}
			if tt.errWant != "" && !strings.Contains(strings.Join(result.Errors, "; "), tt.errWant) {
				t.Errorf("Errors %v should mention %q", result.Errors, tt.errWant)
			}
		})
	}

	t.Run("name differs from file", func(t *testing.T) {
		result := validateConfig(writePreset(t, dir, "other.json", validPreset))
		if !result.Valid {
			t.Fatalf("Expected valid result, got %v", result.Errors)
		}
		if !strings.Contains(strings.Join(result.Notes, "; "), "differs from file name") {
			t.Errorf("Expected a name note, got %v", result.Notes)
		}
	})
}

func TestBoardStats(t *testing.T) {
	walled := (&engine.GameConfig{Width: 5, Height: 5, InitialLives: 1, Walls: true}).WithDefaults()
	s := boardStats(walled)
	if s.playable != 9 || s.walls != 16 {
		t.Errorf("walled 5x5: playable=%d walls=%d, want 9 and 16", s.playable, s.walls)
	}
	if s.free != s.playable-s.snake {
		t.Errorf("free = %d, want %d", s.free, s.playable-s.snake)
	}
	if s.maxScore != s.free*engine.DefaultScoreStep {
		t.Errorf("maxScore = %d, want %d", s.maxScore, s.free*engine.DefaultScoreStep)
	}

	open := (&engine.GameConfig{Width: 6, Height: 4, InitialLives: 1}).WithDefaults()
	if s := boardStats(open); s.playable != 24 || s.walls != 0 {
		t.Errorf("open 6x4: playable=%d walls=%d, want 24 and 0", s.playable, s.walls)
	}
	if got := farthestFood(open); got != 8 {
		t.Errorf("farthestFood(open 6x4) = %d, want 8", got)
	}
	if got := farthestFood(walled); got != 4 {
		t.Errorf("farthestFood(walled 5x5) = %d, want 4", got)
	}
}

func TestValidateCommand(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		dir := t.TempDir()
		writePreset(t, dir, "small.json", validPreset)

		out, err := run(t, "validate", dir)
		if err != nil {
			t.Fatalf("validate failed: %v\n%s", err, out)
		}
		if !strings.Contains(out, "All configurations are valid") {
			t.Errorf("Unexpected output:\n%s", out)
		}
	})

	t.Run("one invalid", func(t *testing.T) {
		dir := t.TempDir()
		writePreset(t, dir, "small.json", validPreset)
		writePreset(t, dir, "zero.json", `{"name":"zero","width":5,"height":5,"initial_lives":0}`)

		out, err := run(t, "validate", dir)
		if err == nil || !strings.Contains(err.Error(), "1 of 2") {
			t.Fatalf("Expected 1 of 2 error, got %v", err)
		}
		if !strings.Contains(out, "INVALID") || !strings.Contains(out, "initial_lives") {
			t.Errorf("Unexpected output:\n%s", out)
		}
	})

	t.Run("empty dir", func(t *testing.T) {
		if _, err := run(t, "validate", t.TempDir()); err == nil {
			t.Error("Expected error for a directory without presets")
		}
	})
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "small.json", validPreset)
	writePreset(t, dir, "broken.json", `{`)

	out, err := run(t, "analyze", dir)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	for _, want := range []string{
		"=== Analyzing",
		"Name: small",
		"Board: 5 x 5 (9 playable, 16 wall cells)",
		"Edges: walled",
		"Error: invalid JSON",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := parseKeys("left@3, up ,ArrowRight@10,d")
	if err != nil {
		t.Fatalf("parseKeys() error = %v", err)
	}
	want := []scriptedKey{{"left", 3}, {"up", 4}, {"ArrowRight", 10}, {"d", 11}}
	if len(keys) != len(want) {
		t.Fatalf("Got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %+v, want %+v", i, keys[i], want[i])
		}
	}

	if keys, err := parseKeys(""); err != nil || len(keys) != 0 {
		t.Errorf("parseKeys(\"\") = %v, %v; want empty", keys, err)
	}

	for _, bad := range []string{"jump", "left@0", "left@x", "up@5,down@2"} {
		if _, err := parseKeys(bad); err == nil {
			t.Errorf("parseKeys(%q) should fail", bad)
		}
	}
}

func TestSimulateCommand(t *testing.T) {
	dir := t.TempDir()
	path := writePreset(t, dir, "small.json", validPreset)

	args := []string{"simulate", "--config", path, "--seed", "7", "--keys", "right@1,up@2", "--ticks", "30"}
	first, err := run(t, args...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	second, err := run(t, args...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if first != second {
		t.Errorf("Same seed and keys should print the same game:\n%s\n---\n%s", first, second)
	}

	for _, want := range []string{"Config: small (seed 7)", "Score:", "State:"} {
		if !strings.Contains(first, want) {
			t.Errorf("Output missing %q:\n%s", want, first)
		}
	}

	t.Run("no board", func(t *testing.T) {
		out, err := run(t, "simulate", "--config", path, "--ticks", "1", "--board=false")
		if err != nil {
			t.Fatalf("simulate failed: %v", err)
		}
		if strings.Contains(out, "#") {
			t.Errorf("Board should not be printed:\n%s", out)
		}
	})

	t.Run("bad keys", func(t *testing.T) {
		if _, err := run(t, "simulate", "--config", path, "--keys", "jump"); err == nil {
			t.Error("Expected error for an unknown key")
		}
	})

	t.Run("missing config", func(t *testing.T) {
		if _, err := run(t, "simulate", "--config", filepath.Join(dir, "nope.json")); err == nil {
			t.Error("Expected error for a missing preset")
		}
	})
}
