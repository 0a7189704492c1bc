package engine

// CellKind represents what occupies a board cell
type CellKind string

const (
	Empty CellKind = "empty"
	Body  CellKind = "body"
	Head  CellKind = "head"
	Food  CellKind = "food"
	Wall  CellKind = "wall"

	// Validation constants
	MinBoardSize         = 1
	MaxBoardSize         = 200
	MinLives             = 1
	MaxLives             = 99
	MaxTicksPerMove      = 60
	MaxBulkTicks         = 500
	DefaultInitialLength = 3
	DefaultScoreStep     = 1
	WebSocketBufferSize  = 256
)

// RunState is the engine's run status
type RunState string

const (
	NotStarted RunState = "not_started"
	Running    RunState = "running"
	GameOver   RunState = "game_over"
)

// AutostartPolicy decides when a new game leaves NotStarted
type AutostartPolicy string

const (
	// AutostartFirstKey starts the game on the first accepted key press.
	AutostartFirstKey AutostartPolicy = "first_key"
	// AutostartConstruction starts the game as soon as it is built or reset.
	AutostartConstruction AutostartPolicy = "construction"
)

// CollisionCause describes what the snake ran into
type CollisionCause string

const (
	CauseWall CollisionCause = "wall"
	CauseSelf CollisionCause = "self"
)

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position moved by dx, dy
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Width            int             `json:"width"`
	Height           int             `json:"height"`
	InitialLives     int             `json:"initial_lives"`
	InitialLength    int             `json:"initial_length,omitempty"`
	InitialDirection Direction       `json:"initial_direction,omitempty"`
	ScoreIncrement   int             `json:"score_increment,omitempty"`
	TicksPerMove     int             `json:"ticks_per_move,omitempty"`
	Walls            bool            `json:"walls"`
	Autostart        AutostartPolicy `json:"autostart,omitempty"`
	Seed             uint64          `json:"seed,omitempty"`
	Messages         struct {
		Welcome  string `json:"welcome,omitempty"`
		Food     string `json:"food,omitempty"`
		LifeLost string `json:"life_lost,omitempty"`
		GameOver string `json:"game_over,omitempty"`
	} `json:"messages"`
}

// GameState represents the complete game state
type GameState struct {
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	Snake            []Position `json:"snake"` // head first
	Direction        Direction  `json:"direction"`
	PendingDirection Direction  `json:"pending_direction"`
	Food             *Position  `json:"food,omitempty"` // nil when no free cell is left
	Score            int        `json:"score"`
	Lives            int        `json:"lives"`
	RunState         RunState   `json:"run_state"`
	Message          string     `json:"message"`
	ConfigName       string     `json:"config_name"`

	// Counters since the last reset
	TickCount uint64 `json:"tick_count"`
	Moves     int    `json:"moves"`
	FoodEaten int    `json:"food_eaten"`
	Deaths    int    `json:"deaths"`

	CrashPoint *Position      `json:"crash_point,omitempty"`
	LastCause  CollisionCause `json:"last_cause,omitempty"`

	// Seed and RNG hold the food generator so a restored game continues the
	// same sequence.
	Seed uint64 `json:"seed"`
	RNG  []byte `json:"rng,omitempty"`
}

// Length returns the snake length
func (gs *GameState) Length() int {
	return len(gs.Snake)
}

// Head returns the head position
func (gs *GameState) Head() Position {
	if len(gs.Snake) == 0 {
		return Position{}
	}
	return gs.Snake[0]
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Snake = append([]Position(nil), gs.Snake...)
	if gs.Food != nil {
		food := *gs.Food
		c.Food = &food
	}
	if gs.CrashPoint != nil {
		crash := *gs.CrashPoint
		c.CrashPoint = &crash
	}
	c.RNG = append([]byte(nil), gs.RNG...)
	return &c
}
