package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func createValidConfig() *GameConfig {
	return &GameConfig{
		Name:         "test",
		Description:  "Config for validation tests",
		Width:        10,
		Height:       8,
		InitialLives: 3,
	}
}

func TestValidateGameConfig_ValidConfig(t *testing.T) {
	if err := ValidateGameConfig(createValidConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidateGameConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *GameConfig)
		field  string
	}{
		{"zero width", func(c *GameConfig) { c.Width = 0 }, "width"},
		{"negative height", func(c *GameConfig) { c.Height = -1 }, "height"},
		{"too wide", func(c *GameConfig) { c.Width = MaxBoardSize + 1 }, "width"},
		{"zero lives", func(c *GameConfig) { c.InitialLives = 0 }, "initial_lives"},
		{"too many lives", func(c *GameConfig) { c.InitialLives = MaxLives + 1 }, "initial_lives"},
		{"walls on tiny board", func(c *GameConfig) { c.Walls = true; c.Width = 2 }, "walls"},
		{"negative length", func(c *GameConfig) { c.InitialLength = -2 }, "initial_length"},
		{"bad direction", func(c *GameConfig) { c.InitialDirection = "north" }, "initial_direction"},
		{"negative score step", func(c *GameConfig) { c.ScoreIncrement = -1 }, "score_increment"},
		{"huge tick divisor", func(c *GameConfig) { c.TicksPerMove = MaxTicksPerMove + 1 }, "ticks_per_move"},
		{"bad autostart", func(c *GameConfig) { c.Autostart = "never" }, "autostart"},
		{"food message without score", func(c *GameConfig) { c.Messages.Food = "Yum" }, "messages.food"},
		{"game over message without score", func(c *GameConfig) { c.Messages.GameOver = "Bye" }, "messages.game_over"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := createValidConfig()
			test.mutate(config)

			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected error to wrap ErrInvalidConfig, got %v", err)
			}
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if configErr.Field != test.field {
				t.Errorf("Expected field %s, got %s", test.field, configErr.Field)
			}
		})
	}
}

func TestValidateGameConfig_Nil(t *testing.T) {
	if err := ValidateGameConfig(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for nil config, got %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	config := createValidConfig()
	filled := config.WithDefaults()

	if filled == config {
		t.Fatal("Expected WithDefaults to return a copy")
	}
	if config.InitialLength != 0 {
		t.Error("WithDefaults modified the original config")
	}
	if filled.InitialLength != DefaultInitialLength {
		t.Errorf("Expected initial length %d, got %d", DefaultInitialLength, filled.InitialLength)
	}
	if filled.InitialDirection != Down {
		t.Errorf("Expected initial direction down, got %s", filled.InitialDirection)
	}
	if filled.ScoreIncrement != 1 || filled.TicksPerMove != 1 {
		t.Errorf("Unexpected defaults: %+v", filled)
	}
	if filled.Autostart != AutostartFirstKey {
		t.Errorf("Expected first_key autostart, got %s", filled.Autostart)
	}
	if filled.Messages.Food == "" || filled.Messages.GameOver == "" {
		t.Error("Expected default messages")
	}
}

func TestInitialSnake(t *testing.T) {
	tests := []struct {
		name     string
		config   *GameConfig
		expected []Position
	}{
		{
			name:     "default trails upward from centre",
			config:   &GameConfig{Width: 10, Height: 10, InitialLives: 1},
			expected: []Position{{X: 5, Y: 5}, {X: 5, Y: 4}, {X: 5, Y: 3}},
		},
		{
			name:     "moving right trails left",
			config:   &GameConfig{Width: 10, Height: 10, InitialLives: 1, InitialDirection: Right, InitialLength: 4},
			expected: []Position{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}, {X: 2, Y: 5}},
		},
		{
			name:     "clamped to board",
			config:   &GameConfig{Width: 3, Height: 3, InitialLives: 1, InitialLength: 10},
			expected: []Position{{X: 1, Y: 1}, {X: 1, Y: 0}},
		},
		{
			name:     "clamped inside walls",
			config:   &GameConfig{Width: 5, Height: 5, InitialLives: 1, InitialLength: 10, Walls: true},
			expected: []Position{{X: 2, Y: 2}, {X: 2, Y: 1}},
		},
		{
			name:     "single cell board",
			config:   &GameConfig{Width: 1, Height: 1, InitialLives: 1},
			expected: []Position{{X: 0, Y: 0}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			snake := InitialSnake(test.config)
			if len(snake) != len(test.expected) {
				t.Fatalf("Expected %v, got %v", test.expected, snake)
			}
			for i := range snake {
				if snake[i] != test.expected[i] {
					t.Errorf("Segment %d: expected %v, got %v", i, test.expected[i], snake[i])
				}
			}
		})
	}
}

func TestInitGameStateFromConfig(t *testing.T) {
	config := createValidConfig()
	state := InitGameStateFromConfig(config)

	if state.Width != 10 || state.Height != 8 {
		t.Errorf("Expected 10x8 board, got %dx%d", state.Width, state.Height)
	}
	if state.Lives != 3 || state.Score != 0 {
		t.Errorf("Expected 3 lives and score 0, got %d and %d", state.Lives, state.Score)
	}
	if state.RunState != NotStarted {
		t.Errorf("Expected not_started, got %s", state.RunState)
	}
	if state.ConfigName != "test" {
		t.Errorf("Expected config name test, got %s", state.ConfigName)
	}

	config.Autostart = AutostartConstruction
	if InitGameStateFromConfig(config).RunState != Running {
		t.Error("Expected construction autostart to produce a running state")
	}
}

func TestLoadGameConfig(t *testing.T) {
	dir := t.TempDir()

	valid := `{"name":"file","description":"from disk","width":7,"height":9,"initial_lives":2,"walls":true}`
	validPath := filepath.Join(dir, "file.json")
	if err := os.WriteFile(validPath, []byte(valid), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadGameConfig(validPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.Width != 7 || config.Height != 9 || !config.Walls {
		t.Errorf("Unexpected config: %+v", config)
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadGameConfig(filepath.Join(dir, "missing.json")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte("{"), 0644)
		if _, err := LoadGameConfig(path); err == nil {
			t.Error("Expected parse error")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		os.WriteFile(path, []byte(`{"name":"x","width":0,"height":5,"initial_lives":1}`), 0644)
		if _, err := LoadGameConfig(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("CONFIG_DIR override", func(t *testing.T) {
		t.Setenv("CONFIG_DIR", dir)
		config, err := LoadGameConfig("configs/file.json")
		if err != nil {
			t.Fatalf("Expected CONFIG_DIR lookup to succeed: %v", err)
		}
		if config.Name != "file" {
			t.Errorf("Expected config file, got %s", config.Name)
		}
	})
}
