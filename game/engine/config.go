package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidConfig is wrapped by every ConfigError
var ErrInvalidConfig = errors.New("invalid game config")

// ConfigError reports a configuration field that cannot produce a playable game
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config validation: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DefaultConfig returns the configuration used by New
func DefaultConfig(width, height, initialLives int) *GameConfig {
	config := &GameConfig{
		Name:         "default",
		Description:  "Open board without walls",
		Width:        width,
		Height:       height,
		InitialLives: initialLives,
	}
	return config.WithDefaults()
}

// WithDefaults returns a copy of the config with optional fields filled in
func (c *GameConfig) WithDefaults() *GameConfig {
	out := *c
	if out.InitialLength == 0 {
		out.InitialLength = DefaultInitialLength
	}
	if out.InitialDirection == "" {
		out.InitialDirection = Down
	}
	if out.ScoreIncrement == 0 {
		out.ScoreIncrement = DefaultScoreStep
	}
	if out.TicksPerMove == 0 {
		out.TicksPerMove = 1
	}
	if out.Autostart == "" {
		out.Autostart = AutostartFirstKey
	}
	if out.Messages.Welcome == "" {
		out.Messages.Welcome = "Press an arrow key to start."
	}
	if out.Messages.Food == "" {
		out.Messages.Food = "Yum! Score: %d"
	}
	if out.Messages.LifeLost == "" {
		out.Messages.LifeLost = "Ouch! %d lives left."
	}
	if out.Messages.GameOver == "" {
		out.Messages.GameOver = "Game over! Final score: %d"
	}
	return &out
}

// ValidateGameConfig validates a game configuration for correctness and playability.
// Zero values of optional fields are accepted; they are filled by WithDefaults.
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return &ConfigError{Field: "config", Reason: "is required"}
	}

	// Validate board size
	if config.Width < MinBoardSize || config.Width > MaxBoardSize {
		return configErrorf("width", "must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, config.Width)
	}
	if config.Height < MinBoardSize || config.Height > MaxBoardSize {
		return configErrorf("height", "must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, config.Height)
	}
	if config.Walls && (config.Width < 3 || config.Height < 3) {
		return configErrorf("walls", "need a board of at least 3x3, got %dx%d", config.Width, config.Height)
	}

	// Validate lives
	if config.InitialLives < MinLives || config.InitialLives > MaxLives {
		return configErrorf("initial_lives", "must be between %d and %d, got %d", MinLives, MaxLives, config.InitialLives)
	}

	// Validate optional rules
	if config.InitialLength < 0 {
		return configErrorf("initial_length", "must not be negative, got %d", config.InitialLength)
	}
	if config.InitialDirection != "" && !config.InitialDirection.Valid() {
		return configErrorf("initial_direction", "must be one of up, down, left, right, got %q", config.InitialDirection)
	}
	if config.ScoreIncrement < 0 {
		return configErrorf("score_increment", "must not be negative, got %d", config.ScoreIncrement)
	}
	if config.TicksPerMove < 0 || config.TicksPerMove > MaxTicksPerMove {
		return configErrorf("ticks_per_move", "must be between 1 and %d, got %d", MaxTicksPerMove, config.TicksPerMove)
	}
	switch config.Autostart {
	case "", AutostartFirstKey, AutostartConstruction:
	default:
		return configErrorf("autostart", "must be %q or %q, got %q", AutostartFirstKey, AutostartConstruction, config.Autostart)
	}

	// Validate format strings
	if config.Messages.Food != "" && !strings.Contains(config.Messages.Food, "%d") {
		return configErrorf("messages.food", "must contain %%d for score")
	}
	if config.Messages.LifeLost != "" && !strings.Contains(config.Messages.LifeLost, "%d") {
		return configErrorf("messages.life_lost", "must contain %%d for lives")
	}
	if config.Messages.GameOver != "" && !strings.Contains(config.Messages.GameOver, "%d") {
		return configErrorf("messages.game_over", "must contain %%d for score")
	}

	return nil
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// InitialSnake places the starting snake: head at the board centre, body
// trailing away from the starting direction. The length is clamped so every
// segment lies on a playable cell.
func InitialSnake(config *GameConfig) []Position {
	config = config.WithDefaults()
	minX, minY, maxX, maxY := playableBounds(config)

	head := Position{X: config.Width / 2, Y: config.Height / 2}
	dx, dy := config.InitialDirection.Delta()

	snake := []Position{head}
	for i := 1; i < config.InitialLength; i++ {
		next := head.Add(-dx*i, -dy*i)
		if next.X < minX || next.X > maxX || next.Y < minY || next.Y > maxY {
			break
		}
		snake = append(snake, next)
	}
	return snake
}

// InitGameStateFromConfig creates a new game state using the provided configuration.
// Food is not placed; the engine does that with its random source.
func InitGameStateFromConfig(config *GameConfig) *GameState {
	config = config.WithDefaults()

	runState := NotStarted
	if config.Autostart == AutostartConstruction {
		runState = Running
	}

	return &GameState{
		Width:            config.Width,
		Height:           config.Height,
		Snake:            InitialSnake(config),
		Direction:        config.InitialDirection,
		PendingDirection: config.InitialDirection,
		Score:            0,
		Lives:            config.InitialLives,
		RunState:         runState,
		Message:          config.Messages.Welcome,
		ConfigName:       config.Name,
		Seed:             config.Seed,
	}
}

// playableBounds returns the inclusive range of cells the snake may occupy
func playableBounds(config *GameConfig) (minX, minY, maxX, maxY int) {
	minX, minY, maxX, maxY = 0, 0, config.Width-1, config.Height-1
	if config.Walls {
		minX, minY, maxX, maxY = 1, 1, config.Width-2, config.Height-2
	}
	return minX, minY, maxX, maxY
}
