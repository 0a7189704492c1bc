package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/snake-engine/game/config"
	"github.com/wricardo/snake-engine/game/engine"
	"github.com/wricardo/snake-engine/game/service"
	"github.com/wricardo/snake-engine/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc      func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error)
	GetSessionFunc         func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc       func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc      func(ctx context.Context, sessionID string) error
	ListActiveSessionsFunc func(ctx context.Context) ([]string, error)

	// Game Operations
	KeyPressFunc func(ctx context.Context, sessionID, key string) (*service.InputResult, error)
	TickFunc     func(ctx context.Context, sessionID string, ticks int) (*service.TickResult, error)
	StartFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)
	ResetFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetBoardFunc     func(ctx context.Context, sessionID string) (*service.BoardView, error)
	GetEventsFunc    func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.EventsResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, cfg *engine.GameConfig) error

	LeaderboardFunc func(ctx context.Context, limit int) ([]service.ScoreEntry, error)
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, req)
	}
	return &service.SessionInfo{
		ID:        "ab12",
		ConfigID:  req.ConfigID,
		CreatedAt: time.Now(),
		GameState: &engine.GameState{},
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:        sessionID,
		ConfigID:  "classic",
		CreatedAt: time.Now(),
		GameState: &engine.GameState{},
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) ListActiveSessions(ctx context.Context) ([]string, error) {
	if m.ListActiveSessionsFunc != nil {
		return m.ListActiveSessionsFunc(ctx)
	}
	return nil, nil
}

// Game Operations
func (m *MockGameService) KeyPress(ctx context.Context, sessionID, key string) (*service.InputResult, error) {
	if m.KeyPressFunc != nil {
		return m.KeyPressFunc(ctx, sessionID, key)
	}
	return &service.InputResult{Key: key, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Tick(ctx context.Context, sessionID string, ticks int) (*service.TickResult, error) {
	if m.TickFunc != nil {
		return m.TickFunc(ctx, sessionID, ticks)
	}
	return &service.TickResult{SessionID: sessionID, TicksRequested: ticks, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Start(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, sessionID)
	}
	return &engine.GameState{RunState: engine.Running}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

// Game State
func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetBoard(ctx context.Context, sessionID string) (*service.BoardView, error) {
	if m.GetBoardFunc != nil {
		return m.GetBoardFunc(ctx, sessionID)
	}
	return &service.BoardView{SessionID: sessionID, Width: 3, Height: 2, Rows: []string{"...", ".@*"}}, nil
}

func (m *MockGameService) GetEvents(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.EventsResponse, error) {
	if m.GetEventsFunc != nil {
		return m.GetEventsFunc(ctx, sessionID, opts)
	}
	return &service.EventsResponse{
		Events:     []engine.NotificationRecord{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

// Configuration
func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{
		Name:        configName,
		Description: "Test config",
	}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, cfg *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, cfg)
	}
	return nil
}

func (m *MockGameService) Leaderboard(ctx context.Context, limit int) ([]service.ScoreEntry, error) {
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(ctx, limit)
	}
	return []service.ScoreEntry{}, nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body any) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(t *testing.T, mockService *MockGameService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	server := setupTestServer(t, mockService)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					if req.ConfigID != "" {
						t.Errorf("Expected empty config ID, got %s", req.ConfigID)
					}
					return &service.SessionInfo{ID: "ab12", ConfigID: "classic"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with overrides",
			requestBody: map[string]any{"config_id": "open", "width": 9, "lives": 5, "seed": 77},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					if req.ConfigID != "open" || req.Width != 9 || req.Lives != 5 || req.Seed != 77 {
						t.Errorf("Unexpected request %+v", req)
					}
					return &service.SessionInfo{ID: "cd34", ConfigID: req.ConfigID}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config",
			requestBody: map[string]any{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found: %w", config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "Invalid override",
			requestBody: map[string]any{"width": 500},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return nil, &engine.ConfigError{Field: "width", Reason: "must be between 1 and 200, got 500"}
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(t, mockService, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func(ctx context.Context) ([]*service.SessionInfo, error) {
		return []*service.SessionInfo{
			{ID: "old1", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Hour), GameState: &engine.GameState{Score: 7}},
			{ID: "new1", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now, GameState: &engine.GameState{Score: 2}},
			{ID: "mid1", CreatedAt: now.Add(-90 * time.Minute), LastAccessedAt: now.Add(-30 * time.Minute), GameState: &engine.GameState{Score: 4}},
		}, nil
	}

	tests := []struct {
		name      string
		query     string
		wantOrder []string
		wantTotal int
	}{
		{"default sorts by access, newest first", "", []string{"new1", "mid1", "old1"}, 3},
		{"created ascending", "?sort=created&order=asc", []string{"old1", "mid1", "new1"}, 3},
		{"score", "?sort=score", []string{"old1", "mid1", "new1"}, 3},
		{"limit", "?limit=2", []string{"new1", "mid1"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, &MockGameService{ListSessionsFunc: sessions}, httptest.NewRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Total != tt.wantTotal || resp.Count != len(tt.wantOrder) {
				t.Errorf("count/total = %d/%d, want %d/%d", resp.Count, resp.Total, len(tt.wantOrder), tt.wantTotal)
			}
			for i, id := range tt.wantOrder {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Errorf("sessions[%d] mismatch, want %s", i, id)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	missing := func(ctx context.Context, id string) (*service.SessionInfo, error) {
		return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, id)
	}

	t.Run("get existing", func(t *testing.T) {
		w := serve(t, &MockGameService{}, httptest.NewRequest("GET", "/api/sessions/ab12", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp service.SessionInfo
		parseResponse(t, w, &resp)
		if resp.ID != "ab12" {
			t.Errorf("Expected ID ab12, got %s", resp.ID)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		w := serve(t, &MockGameService{GetSessionFunc: missing}, httptest.NewRequest("GET", "/api/sessions/zzzz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		var deleted string
		mock := &MockGameService{DeleteSessionFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		}}
		w := serve(t, mock, httptest.NewRequest("DELETE", "/api/sessions/ab12", nil))
		if w.Code != http.StatusOK || deleted != "ab12" {
			t.Errorf("status %d, deleted %q", w.Code, deleted)
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		mock := &MockGameService{DeleteSessionFunc: func(ctx context.Context, id string) error {
			return service.ErrSessionNotFound
		}}
		w := serve(t, mock, httptest.NewRequest("DELETE", "/api/sessions/zzzz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

// Game Operation Tests

func TestKey(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name: "accepted key",
			body: map[string]string{"key": "ArrowLeft"},
			setupMock: func(m *MockGameService) {
				m.KeyPressFunc = func(ctx context.Context, id, key string) (*service.InputResult, error) {
					if id != "ab12" || key != "ArrowLeft" {
						t.Errorf("KeyPress(%s, %s)", id, key)
					}
					return &service.InputResult{Accepted: true, Key: key, Direction: engine.Left, Started: true,
						RunState: engine.Running, GameState: &engine.GameState{RunState: engine.Running}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing key",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown session",
			body: map[string]string{"key": "w"},
			setupMock: func(m *MockGameService) {
				m.KeyPressFunc = func(ctx context.Context, id, key string) (*service.InputResult, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}
			w := serve(t, mock, makeRequest("POST", "/api/sessions/ab12/key", tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestTick(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           any
		wantTicks      int
		tickErr        error
		expectedStatus int
	}{
		{"empty body ticks once", "/api/sessions/ab12/tick", nil, 1, nil, http.StatusOK},
		{"body count", "/api/sessions/ab12/tick", map[string]int{"ticks": 25}, 25, nil, http.StatusOK},
		{"query count", "/api/sessions/ab12/tick?ticks=7", nil, 7, nil, http.StatusOK},
		{"bad query", "/api/sessions/ab12/tick?ticks=many", nil, 0, nil, http.StatusBadRequest},
		{"invalid count", "/api/sessions/ab12/tick", map[string]int{"ticks": 0}, 0, service.ErrInvalidTickCount, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int
			mock := &MockGameService{TickFunc: func(ctx context.Context, id string, ticks int) (*service.TickResult, error) {
				got = ticks
				if tt.tickErr != nil {
					return nil, fmt.Errorf("%w: got %d", tt.tickErr, ticks)
				}
				return &service.TickResult{SessionID: id, TicksRequested: ticks, TicksExecuted: ticks,
					RunState: engine.Running, GameState: &engine.GameState{}}, nil
			}}

			w := serve(t, mock, makeRequest("POST", tt.path, tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				if got != tt.wantTicks {
					t.Errorf("Tick called with %d, want %d", got, tt.wantTicks)
				}
				var resp service.TickResult
				parseResponse(t, w, &resp)
				if resp.TicksExecuted != tt.wantTicks {
					t.Errorf("ticks_executed = %d, want %d", resp.TicksExecuted, tt.wantTicks)
				}
			}
		})
	}
}

func TestStartAndReset(t *testing.T) {
	w := serve(t, &MockGameService{}, makeRequest("POST", "/api/sessions/ab12/start", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected status 200, got %d", w.Code)
	}
	var state engine.GameState
	parseResponse(t, w, &state)
	if state.RunState != engine.Running {
		t.Errorf("start: run_state = %s, want running", state.RunState)
	}

	w = serve(t, &MockGameService{}, makeRequest("POST", "/api/sessions/ab12/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("reset: expected status 200, got %d", w.Code)
	}
	var resp map[string]any
	parseResponse(t, w, &resp)
	if resp["message"] != "Game reset successfully" || resp["state"] == nil {
		t.Errorf("reset: unexpected response %v", resp)
	}

	missing := &MockGameService{ResetFunc: func(ctx context.Context, id string) (*engine.GameState, error) {
		return nil, service.ErrSessionNotFound
	}}
	if w := serve(t, missing, makeRequest("POST", "/api/sessions/zz/reset", nil)); w.Code != http.StatusNotFound {
		t.Errorf("reset missing: expected 404, got %d", w.Code)
	}
}

func TestGetBoard(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		w := serve(t, &MockGameService{}, httptest.NewRequest("GET", "/api/sessions/ab12/board", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var board service.BoardView
		parseResponse(t, w, &board)
		if board.Width != 3 || len(board.Rows) != 2 {
			t.Errorf("Unexpected board %+v", board)
		}
	})

	t.Run("text", func(t *testing.T) {
		w := serve(t, &MockGameService{}, httptest.NewRequest("GET", "/api/sessions/ab12/board?format=text", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("Content-Type = %s", ct)
		}
		if w.Body.String() != "...\n.@*\n" {
			t.Errorf("Body = %q", w.Body.String())
		}
	})
}

func TestGetEvents(t *testing.T) {
	var got service.HistoryOptions
	mock := &MockGameService{GetEventsFunc: func(ctx context.Context, id string, opts service.HistoryOptions) (*service.EventsResponse, error) {
		got = opts
		return &service.EventsResponse{Events: []engine.NotificationRecord{}, Page: opts.Page, PageSize: opts.Limit}, nil
	}}

	t.Run("defaults", func(t *testing.T) {
		w := serve(t, mock, httptest.NewRequest("GET", "/api/sessions/ab12/events", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if got.Page != 1 || got.Limit != 20 || got.Order != "desc" || got.Kind != "" {
			t.Errorf("Unexpected options %+v", got)
		}
	})

	t.Run("query", func(t *testing.T) {
		serve(t, mock, httptest.NewRequest("GET", "/api/sessions/ab12/events?page=2&limit=5&order=asc&kind=life_lost", nil))
		if got.Page != 2 || got.Limit != 5 || got.Order != "asc" || got.Kind != "life_lost" {
			t.Errorf("Unexpected options %+v", got)
		}
	})
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		mock := &MockGameService{ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Name: "Classic", Width: 11, Height: 21}}, nil
		}}
		w := serve(t, mock, httptest.NewRequest("GET", "/api/configs", nil))
		var configs []*service.ConfigInfo
		parseResponse(t, w, &configs)
		if len(configs) != 1 || configs[0].ConfigID != "classic" {
			t.Errorf("Unexpected configs %+v", configs)
		}
	})

	t.Run("get strips extension", func(t *testing.T) {
		var asked string
		mock := &MockGameService{LoadConfigFunc: func(ctx context.Context, name string) (*engine.GameConfig, error) {
			asked = name
			return &engine.GameConfig{Name: "Open"}, nil
		}}
		w := serve(t, mock, httptest.NewRequest("GET", "/api/configs/open.json", nil))
		if w.Code != http.StatusOK || asked != "open" {
			t.Errorf("status %d, asked %q", w.Code, asked)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		mock := &MockGameService{LoadConfigFunc: func(ctx context.Context, name string) (*engine.GameConfig, error) {
			return nil, config.ErrConfigNotFound
		}}
		w := serve(t, mock, httptest.NewRequest("GET", "/api/configs/nope", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("create", func(t *testing.T) {
		var savedID string
		var saved *engine.GameConfig
		mock := &MockGameService{SaveConfigFunc: func(ctx context.Context, id string, cfg *engine.GameConfig) error {
			savedID, saved = id, cfg
			return nil
		}}
		body := map[string]any{"config_id": "mine", "name": "Mine", "width": 10, "height": 12, "initial_lives": 2}
		w := serve(t, mock, makeRequest("POST", "/api/configs", body))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if savedID != "mine" || saved == nil || saved.Width != 10 || saved.InitialLives != 2 {
			t.Errorf("Saved %q %+v", savedID, saved)
		}
	})

	t.Run("create without name", func(t *testing.T) {
		w := serve(t, &MockGameService{}, makeRequest("POST", "/api/configs", map[string]any{"width": 10}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("create invalid", func(t *testing.T) {
		mock := &MockGameService{SaveConfigFunc: func(ctx context.Context, id string, cfg *engine.GameConfig) error {
			return fmt.Errorf("%w: %v", config.ErrInvalidConfig, "width out of range")
		}}
		w := serve(t, mock, makeRequest("POST", "/api/configs", map[string]any{"name": "Bad"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestLeaderboard(t *testing.T) {
	t.Run("entries", func(t *testing.T) {
		var asked int
		mock := &MockGameService{LeaderboardFunc: func(ctx context.Context, limit int) ([]service.ScoreEntry, error) {
			asked = limit
			return []service.ScoreEntry{{SessionID: "ab12", Score: 9}}, nil
		}}
		w := serve(t, mock, httptest.NewRequest("GET", "/api/leaderboard?limit=3", nil))
		if w.Code != http.StatusOK || asked != 3 {
			t.Fatalf("status %d, limit %d", w.Code, asked)
		}
		var resp struct {
			Count   int                  `json:"count"`
			Entries []service.ScoreEntry `json:"entries"`
		}
		parseResponse(t, w, &resp)
		if resp.Count != 1 || resp.Entries[0].Score != 9 {
			t.Errorf("Unexpected leaderboard %+v", resp)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		mock := &MockGameService{LeaderboardFunc: func(ctx context.Context, limit int) ([]service.ScoreEntry, error) {
			return nil, service.ErrLeaderboardAbsent
		}}
		w := serve(t, mock, httptest.NewRequest("GET", "/api/leaderboard", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestUnifiedSessions(t *testing.T) {
	list := func(ctx context.Context) ([]*service.SessionInfo, error) {
		return []*service.SessionInfo{
			{ID: "aaaa", ConfigID: "classic", GameState: &engine.GameState{Score: 1, RunState: engine.Running}},
			{ID: "bbbb", ConfigID: "open", GameState: &engine.GameState{Score: 5, RunState: engine.GameOver}},
			{ID: "cccc", ConfigID: "classic", GameState: &engine.GameState{Score: 3, RunState: engine.Running}},
		}, nil
	}

	byID := func(ctx context.Context, id string) (*service.SessionInfo, error) {
		switch id {
		case "ab12":
			return &service.SessionInfo{ID: id, GameState: &engine.GameState{Score: 1}}, nil
		case "cd34":
			return &service.SessionInfo{ID: id, GameState: &engine.GameState{Score: 8, RunState: engine.Running}}, nil
		}
		return nil, service.ErrSessionNotFound
	}

	tests := []struct {
		name        string
		query       string
		mock        *MockGameService
		wantIDs     []string
		wantRunning int
	}{
		{"all sessions by score", "", &MockGameService{ListSessionsFunc: list}, []string{"bbbb", "cccc", "aaaa"}, 2},
		{"filter by config", "?configId=classic", &MockGameService{ListSessionsFunc: list}, []string{"cccc", "aaaa"}, 2},
		{"explicit ids skip blanks and misses", "?sessionIds=ab12,,cd34,gone", &MockGameService{GetSessionFunc: byID}, []string{"cd34", "ab12"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.mock, httptest.NewRequest("GET", "/api/sessions/unified"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			var resp struct {
				Count    int              `json:"count"`
				Running  int              `json:"running"`
				Sessions []map[string]any `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Count != len(tt.wantIDs) {
				t.Fatalf("count = %d, want %d", resp.Count, len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if resp.Sessions[i]["session_id"] != id {
					t.Errorf("sessions[%d] = %v, want %s", i, resp.Sessions[i]["session_id"], id)
				}
			}
			if resp.Running != tt.wantRunning {
				t.Errorf("running = %d, want %d", resp.Running, tt.wantRunning)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	w := serve(t, &MockGameService{}, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}

	w = serve(t, &MockGameService{}, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", config.ErrConfigNotFound), http.StatusNotFound},
		{service.ErrLeaderboardAbsent, http.StatusNotFound},
		{&engine.ConfigError{Field: "width", Reason: "bad"}, http.StatusBadRequest},
		{config.ErrInvalidConfig, http.StatusBadRequest},
		{service.ErrInvalidTickCount, http.StatusBadRequest},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Valid session",
			queryParams:    "?session=ab12",
			expectedStatus: http.StatusSwitchingProtocols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			if tt.expectedStatus == http.StatusSwitchingProtocols {
				req.Header.Set("Upgrade", "websocket")
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
				req.Header.Set("Sec-WebSocket-Version", "13")
			}

			server.handleWebSocket(w, req)

			// httptest.ResponseRecorder is not an http.Hijacker, so the upgrade
			// itself fails with 500 once the handler lets it through
			if tt.expectedStatus == http.StatusSwitchingProtocols {
				if w.Code == http.StatusInternalServerError {
					return
				}
			}

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}

	t.Run("Hub disabled", func(t *testing.T) {
		server := NewServer(&MockGameService{}, nil)
		w := httptest.NewRecorder()
		server.handleWebSocket(w, httptest.NewRequest("GET", "/ws?session=ab12", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", w.Code)
		}
	})
}
