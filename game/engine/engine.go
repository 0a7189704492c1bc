package engine

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Driving the game
	Tick() RunState
	KeyPress(direction Direction)
	KeyPressCode(code string) bool
	Start() bool

	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	RunState() RunState
	IsRunning() bool
	IsGameOver() bool
	Score() int
	Lives() int

	// Board and snake
	BoardSnapshot() Board
	Snake() []Position
	Head() Position
	Food() (Position, bool)
	Direction() Direction

	// Configuration
	GetConfig() *GameConfig

	// Notifications
	SetNotificationHandler(handler NotificationHandler)
}

// Option configures a GameEngine at construction
type Option func(*GameEngine)

// WithNotificationHandler registers the handler that receives notifications
func WithNotificationHandler(handler NotificationHandler) Option {
	return func(e *GameEngine) {
		e.handler = handler
	}
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state   *GameState
	config  *GameConfig
	source  *rand.PCGSource
	rng     *rand.Rand
	handler NotificationHandler
}

// New creates an engine with the default rules for a width x height board
func New(width, height, initialLives int) (*GameEngine, error) {
	return NewEngine(DefaultConfig(width, height, initialLives))
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	engine := &GameEngine{
		config: config.WithDefaults(),
		source: &rand.PCGSource{},
	}
	engine.source.Seed(engine.config.Seed)
	engine.rng = rand.New(engine.source)
	for _, opt := range opts {
		opt(engine)
	}

	engine.state = InitGameStateFromConfig(engine.config)
	engine.placeFood()

	return engine, nil
}

// GetState returns a copy of the current game state, including the food
// generator position.
func (e *GameEngine) GetState() *GameState {
	state := e.state.Clone()
	if rng, err := e.source.MarshalBinary(); err == nil {
		state.RNG = rng
	}
	return state
}

// SetState replaces the game state (used for persistence loading). The state
// must fit the engine's board and hold a well-formed snake.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := e.validateState(state); err != nil {
		return err
	}

	next := state.Clone()
	if len(next.RNG) > 0 {
		if err := e.source.UnmarshalBinary(next.RNG); err != nil {
			return fmt.Errorf("restore food generator: %w", err)
		}
	} else if next.Seed != e.state.Seed {
		e.source.Seed(next.Seed)
	}
	next.RNG = nil
	e.state = next

	// A live game with a free cell always has food
	if e.state.Food == nil && e.state.RunState != GameOver {
		e.placeFood()
	}
	return nil
}

// Reset starts a fresh game with the same configuration. The food generator
// is not reseeded, so consecutive games see different food.
func (e *GameEngine) Reset() *GameState {
	seed := e.state.Seed
	e.state = InitGameStateFromConfig(e.config)
	e.state.Seed = seed
	e.placeFood()
	return e.GetState()
}

// Start moves a NotStarted game into Running
func (e *GameEngine) Start() bool {
	if e.state.RunState != NotStarted {
		return false
	}
	e.state.RunState = Running
	e.state.Message = ""
	return true
}

// RunState returns the run status
func (e *GameEngine) RunState() RunState {
	return e.state.RunState
}

// IsRunning reports whether the host should keep ticking
func (e *GameEngine) IsRunning() bool {
	return e.state.RunState == Running
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.RunState == GameOver
}

// Score returns the current score
func (e *GameEngine) Score() int {
	return e.state.Score
}

// Lives returns the remaining lives
func (e *GameEngine) Lives() int {
	return e.state.Lives
}

// Snake returns a copy of the snake, head first
func (e *GameEngine) Snake() []Position {
	return append([]Position(nil), e.state.Snake...)
}

// Head returns the head position
func (e *GameEngine) Head() Position {
	return e.state.Snake[0]
}

// Food returns the food position; false when the board has no free cell
func (e *GameEngine) Food() (Position, bool) {
	if e.state.Food == nil {
		return Position{}, false
	}
	return *e.state.Food, true
}

// Direction returns the heading of the last move
func (e *GameEngine) Direction() Direction {
	return e.state.Direction
}

// GetConfig returns the effective configuration, defaults included
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetNotificationHandler replaces the notification handler; nil disables it
func (e *GameEngine) SetNotificationHandler(handler NotificationHandler) {
	e.handler = handler
}

// BulkTick runs up to n ticks and stops early once the game is no longer running
func (e *GameEngine) BulkTick(n int) int {
	executed := 0
	for i := 0; i < n; i++ {
		if !e.IsRunning() {
			break
		}
		e.Tick()
		executed++
	}
	return executed
}

func (e *GameEngine) notify(n Notification) {
	if e.handler != nil {
		e.handler(n)
	}
}

func (e *GameEngine) validateState(state *GameState) error {
	if state.Width != e.config.Width || state.Height != e.config.Height {
		return fmt.Errorf("state board %dx%d does not match config %dx%d",
			state.Width, state.Height, e.config.Width, e.config.Height)
	}
	if len(state.Snake) == 0 {
		return fmt.Errorf("state snake cannot be empty")
	}
	switch state.RunState {
	case NotStarted, Running, GameOver:
	default:
		return fmt.Errorf("state run_state %q is invalid", state.RunState)
	}
	if !state.Direction.Valid() {
		return fmt.Errorf("state direction %q is invalid", state.Direction)
	}
	if state.PendingDirection != "" && !state.PendingDirection.Valid() {
		return fmt.Errorf("state pending_direction %q is invalid", state.PendingDirection)
	}
	if state.Lives < 0 || state.Score < 0 {
		return fmt.Errorf("state lives and score must not be negative")
	}

	seen := make(map[Position]bool, len(state.Snake))
	for i, p := range state.Snake {
		if !e.playable(p) {
			return fmt.Errorf("state snake segment %d at (%d,%d) is off the playable board", i, p.X, p.Y)
		}
		if seen[p] {
			return fmt.Errorf("state snake overlaps itself at (%d,%d)", p.X, p.Y)
		}
		seen[p] = true
		if i > 0 && ManhattanDistance(p, state.Snake[i-1]) != 1 {
			return fmt.Errorf("state snake segments %d and %d are not adjacent", i-1, i)
		}
	}
	if state.Food != nil {
		if !e.playable(*state.Food) {
			return fmt.Errorf("state food at (%d,%d) is off the playable board", state.Food.X, state.Food.Y)
		}
		if seen[*state.Food] {
			return fmt.Errorf("state food at (%d,%d) lies on the snake", state.Food.X, state.Food.Y)
		}
	}
	return nil
}
