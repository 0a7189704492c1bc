package session

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/wricardo/snake-engine/game/engine"
	"github.com/wricardo/snake-engine/game/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session. Config holds the
// effective configuration so sessions created with overrides restore as they
// were; ConfigID is only consulted for records that lack it.
type PersistedSessionData struct {
	ID             string                      `json:"id"`
	ConfigID       string                      `json:"config_id"`
	Config         *engine.GameConfig          `json:"config,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	LastAccessedAt time.Time                   `json:"last_accessed_at"`
	GameState      *engine.GameState           `json:"game_state"`
	Events         []engine.NotificationRecord `json:"events,omitempty"`
}

// encodeSession serializes a session; the caller holds the session lock
func encodeSession(session *service.Session, indent bool) ([]byte, error) {
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if session.Engine == nil {
		return nil, fmt.Errorf("session %s has no engine", session.ID)
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigID:       session.ConfigID,
		Config:         session.Config,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
		Events:         session.Events,
	}

	var (
		out []byte
		err error
	)
	if indent {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}
	return out, nil
}

// decodeSession rebuilds a session and its engine from stored bytes
func decodeSession(raw []byte, configs service.ConfigManager) (*service.Session, error) {
	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", data.ID)
	}

	gameConfig := data.Config
	if gameConfig == nil {
		if configs == nil {
			return nil, fmt.Errorf("session %s has no config and no config manager is set", data.ID)
		}
		loaded, err := configs.LoadConfig(data.ConfigID)
		if err != nil {
			return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigID, err)
		}
		gameConfig = loaded
	}

	gameEngine, err := engine.NewEngine(gameConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := gameEngine.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigID,
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
		Events:         data.Events,
	}, nil
}
