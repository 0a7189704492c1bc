package service

import (
	"context"
	"errors"

	"github.com/wricardo/snake-engine/game/engine"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTickCount  = errors.New("invalid tick count")
	ErrLeaderboardAbsent = errors.New("leaderboard not configured")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListActiveSessions(ctx context.Context) ([]string, error)

	// Game Operations
	KeyPress(ctx context.Context, sessionID, key string) (*InputResult, error)
	Tick(ctx context.Context, sessionID string, ticks int) (*TickResult, error)
	Start(ctx context.Context, sessionID string) (*engine.GameState, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetBoard(ctx context.Context, sessionID string) (*BoardView, error)
	GetEvents(ctx context.Context, sessionID string, opts HistoryOptions) (*EventsResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Leaderboard
	Leaderboard(ctx context.Context, limit int) ([]ScoreEntry, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// ScoreRecorder stores finished games
type ScoreRecorder interface {
	Record(ctx context.Context, entry ScoreEntry) error
	Top(ctx context.Context, limit int) ([]ScoreEntry, error)
}
