package service

import (
	"sync"
	"time"

	"github.com/wricardo/snake-engine/game/engine"
)

// MaxEventHistory caps the notifications kept per session
const MaxEventHistory = 1000

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Events         []engine.NotificationRecord

	mu sync.Mutex
}

// Lock serializes access to the session's engine
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendEvents adds records to the history, dropping the oldest past MaxEventHistory
func (s *Session) AppendEvents(records ...engine.NotificationRecord) {
	s.Events = append(s.Events, records...)
	if overflow := len(s.Events) - MaxEventHistory; overflow > 0 {
		s.Events = append([]engine.NotificationRecord(nil), s.Events[overflow:]...)
	}
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigID       string             `json:"config_id"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// CreateSessionRequest selects a preset and optional overrides. Zero values
// keep the preset's setting; a zero Seed asks for a random one.
type CreateSessionRequest struct {
	ConfigID  string `json:"config_id"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Lives     int    `json:"lives,omitempty"`
	Seed      uint64 `json:"seed,omitempty"`
	Autostart string `json:"autostart,omitempty"`
}

// InputResult contains the result of a key press
type InputResult struct {
	Accepted  bool              `json:"accepted"`
	Key       string            `json:"key"`
	Direction engine.Direction  `json:"direction,omitempty"`
	Started   bool              `json:"started"`
	RunState  engine.RunState   `json:"run_state"`
	GameState *engine.GameState `json:"game_state"`
}

// TickResult contains the result of one or more ticks
type TickResult struct {
	SessionID      string                      `json:"session_id"`
	TicksRequested int                         `json:"ticks_requested"`
	TicksExecuted  int                         `json:"ticks_executed"`
	Truncated      bool                        `json:"truncated,omitempty"`
	StoppedReason  string                      `json:"stopped_reason,omitempty"` // not_started|game_over
	RunState       engine.RunState             `json:"run_state"`
	Score          int                         `json:"score"`
	ScoreDelta     int                         `json:"score_delta"`
	Lives          int                         `json:"lives"`
	Notifications  []engine.NotificationRecord `json:"notifications"`
	GameState      *engine.GameState           `json:"game_state"`
	Board          []string                    `json:"board"`
}

// BoardView is a rendered board for clients that do not draw the state themselves
type BoardView struct {
	SessionID string              `json:"session_id"`
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
	Rows      []string            `json:"rows"`
	Cells     [][]engine.CellKind `json:"cells"`
	Legend    map[string]string   `json:"legend"`
	RunState  engine.RunState     `json:"run_state"`
	Score     int                 `json:"score"`
	Lives     int                 `json:"lives"`
}

// BoardLegend explains the characters in BoardView.Rows
var BoardLegend = map[string]string{
	"@": "head",
	"o": "body",
	"*": "food",
	"#": "wall",
	".": "empty",
}

// HistoryOptions configures notification history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Kind  string `json:"kind"`  // optional filter: score_changed|life_lost|game_over
}

// EventsResponse contains paginated notification history
type EventsResponse struct {
	Events      []engine.NotificationRecord `json:"events"`
	TotalEvents int                         `json:"total_events"`
	Page        int                         `json:"page"`
	PageSize    int                         `json:"page_size"`
	TotalPages  int                         `json:"total_pages"`
	HasNext     bool                        `json:"has_next"`
	HasPrevious bool                        `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for session creation
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	InitialLives int    `json:"initial_lives"`
	Walls        bool   `json:"walls"`
	TicksPerMove int    `json:"ticks_per_move"`
}

// ScoreEntry is one finished game on the leaderboard
type ScoreEntry struct {
	SessionID  string    `json:"session_id"`
	ConfigID   string    `json:"config_id"`
	Score      int       `json:"score"`
	FoodEaten  int       `json:"food_eaten"`
	Moves      int       `json:"moves"`
	Ticks      uint64    `json:"ticks"`
	Deaths     int       `json:"deaths"`
	RecordedAt time.Time `json:"recorded_at"`
}
