package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/snake-engine/game/engine"
	"github.com/wricardo/snake-engine/game/metrics"
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScoreRecorder stores every finished game in recorder
func WithScoreRecorder(recorder ScoreRecorder) Option {
	return func(s *gameServiceImpl) {
		s.scores = recorder
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	scores   ScoreRecorder
	logger   *zap.Logger

	// mu guards session creation and removal; engine calls lock the session itself
	mu sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var base *engine.GameConfig
	var err error
	configID := req.ConfigID
	if configID != "" {
		base, err = s.configs.LoadConfig(configID)
		if err != nil {
			return nil, s.configLoadError(configID, err)
		}
	} else {
		base = s.configs.GetDefault()
		configID = s.getConfigID(base.Name)
	}

	config := *base
	if req.Width > 0 {
		config.Width = req.Width
	}
	if req.Height > 0 {
		config.Height = req.Height
	}
	if req.Lives > 0 {
		config.InitialLives = req.Lives
	}
	if req.Autostart != "" {
		config.Autostart = engine.AutostartPolicy(req.Autostart)
	}
	if req.Seed != 0 {
		config.Seed = req.Seed
	}
	if config.Seed == 0 {
		config.Seed = randomSeed()
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", configID, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	metrics.SetActiveSessions(len(s.sessions.List()))

	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("config", configID),
		zap.Int("width", config.Width),
		zap.Int("height", config.Height),
		zap.Uint64("seed", config.Seed))

	sess.Lock()
	defer sess.Unlock()
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	sessions := s.sessions.List()
	s.mu.RUnlock()

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.sessionInfo(sess))
		sess.Unlock()
	}

	return result, nil
}

// ListActiveSessions returns the IDs of sessions whose game is running
func (s *gameServiceImpl) ListActiveSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	sessions := s.sessions.List()
	s.mu.RUnlock()

	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		sess.Lock()
		running := sess.Engine.IsRunning()
		sess.Unlock()
		if running {
			ids = append(ids, sess.ID)
		}
	}
	return ids, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	metrics.SetActiveSessions(len(s.sessions.List()))
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// KeyPress forwards a raw key code to the session's engine
func (s *gameServiceImpl) KeyPress(ctx context.Context, sessionID, key string) (*InputResult, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)

	before := sess.Engine.RunState()
	result := &InputResult{Key: key}
	if direction, ok := engine.ParseDirection(key); ok && before != engine.GameOver {
		sess.Engine.KeyPress(direction)
		result.Accepted = true
		result.Direction = direction
		metrics.ObserveKeyPress(sess.ConfigID)
	}
	result.RunState = sess.Engine.RunState()
	result.Started = before == engine.NotStarted && result.RunState == engine.Running
	result.GameState = sess.Engine.GetState()

	if result.Started {
		s.logger.Debug("game started", zap.String("session", sess.ID))
		s.save(sess)
	}
	return result, nil
}

// Tick advances a session by 1..MaxBulkTicks ticks, stopping early when the game is not running
func (s *gameServiceImpl) Tick(ctx context.Context, sessionID string, ticks int) (*TickResult, error) {
	if ticks < 1 {
		return nil, fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidTickCount, ticks)
	}

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	result := &TickResult{
		SessionID:      sess.ID,
		TicksRequested: ticks,
		Notifications:  []engine.NotificationRecord{},
	}
	if ticks > engine.MaxBulkTicks {
		result.Truncated = true
		ticks = engine.MaxBulkTicks
	}

	var emitted []engine.Notification
	sess.Engine.SetNotificationHandler(func(n engine.Notification) {
		emitted = append(emitted, n)
	})
	defer sess.Engine.SetNotificationHandler(nil)

	startScore := sess.Engine.Score()
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			break
		}
		if !sess.Engine.IsRunning() {
			break
		}
		sess.Engine.Tick()
		result.TicksExecuted++
	}

	switch sess.Engine.RunState() {
	case engine.NotStarted:
		result.StoppedReason = "not_started"
	case engine.GameOver:
		result.StoppedReason = "game_over"
	}

	for _, n := range emitted {
		result.Notifications = append(result.Notifications, engine.Record(n))
		metrics.ObserveNotification(sess.ConfigID, n)
		s.logNotification(sess, n)
		if over, ok := n.(engine.GameEnded); ok {
			s.recordScore(ctx, sess, over)
		}
	}
	sess.AppendEvents(result.Notifications...)
	metrics.ObserveTicks(sess.ConfigID, result.TicksExecuted)

	result.RunState = sess.Engine.RunState()
	result.Score = sess.Engine.Score()
	result.ScoreDelta = result.Score - startScore
	result.Lives = sess.Engine.Lives()
	result.GameState = sess.Engine.GetState()
	result.Board = sess.Engine.BoardSnapshot().Rows()

	// Save only when a tick emitted notifications or ran in bulk
	if result.TicksExecuted > 0 && (len(emitted) > 0 || ticks > 1) {
		s.save(sess)
	}

	return result, nil
}

// Start begins a game that is waiting for its first key
func (s *gameServiceImpl) Start(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)
	if sess.Engine.Start() {
		s.save(sess)
	}
	return sess.Engine.GetState(), nil
}

// Reset starts a fresh game in the session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)
	state := sess.Engine.Reset()
	s.logger.Info("game reset", zap.String("session", sess.ID))
	s.save(sess)
	return state, nil
}

// GetGameState returns the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetBoard renders the session's board
func (s *gameServiceImpl) GetBoard(ctx context.Context, sessionID string) (*BoardView, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	board := sess.Engine.BoardSnapshot()
	return &BoardView{
		SessionID: sess.ID,
		Width:     board.Width,
		Height:    board.Height,
		Rows:      board.Rows(),
		Cells:     board.Cells,
		Legend:    BoardLegend,
		RunState:  sess.Engine.RunState(),
		Score:     sess.Engine.Score(),
		Lives:     sess.Engine.Lives(),
	}, nil
}

// GetEvents returns paginated notification history
func (s *gameServiceImpl) GetEvents(ctx context.Context, sessionID string, opts HistoryOptions) (*EventsResponse, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	history := make([]engine.NotificationRecord, 0, len(sess.Events))
	for _, record := range sess.Events {
		if opts.Kind == "" || string(record.Kind) == opts.Kind {
			history = append(history, record)
		}
	}
	sess.Unlock()

	// Set defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "desc" {
		opts.Order = "asc"
	}

	total := len(history)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	events := []engine.NotificationRecord{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				events = append(events, history[i])
			}
		} else {
			events = append(events, history[start:end]...)
		}
	}

	return &EventsResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// Leaderboard returns the best finished games
func (s *gameServiceImpl) Leaderboard(ctx context.Context, limit int) ([]ScoreEntry, error) {
	if s.scores == nil {
		return nil, ErrLeaderboardAbsent
	}
	if limit < 1 {
		limit = 10
	}
	return s.scores.Top(ctx, limit)
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return sess, nil
}

// sessionInfo builds the DTO; the caller holds the session lock
func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigID:       sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// save persists the session; the caller holds the session lock
func (s *gameServiceImpl) save(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (s *gameServiceImpl) recordScore(ctx context.Context, sess *Session, over engine.GameEnded) {
	if s.scores == nil {
		return
	}
	state := sess.Engine.GetState()
	entry := ScoreEntry{
		SessionID:  sess.ID,
		ConfigID:   sess.ConfigID,
		Score:      over.Score,
		FoodEaten:  state.FoodEaten,
		Moves:      state.Moves,
		Ticks:      state.TickCount,
		Deaths:     state.Deaths,
		RecordedAt: time.Now(),
	}
	if err := s.scores.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record score", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (s *gameServiceImpl) logNotification(sess *Session, n engine.Notification) {
	switch v := n.(type) {
	case engine.ScoreChanged:
		s.logger.Debug("food eaten", zap.String("session", sess.ID), zap.Int("score", v.Score))
	case engine.LifeLost:
		s.logger.Info("life lost",
			zap.String("session", sess.ID),
			zap.String("cause", string(v.Cause)),
			zap.Int("lives", v.Lives))
	case engine.GameEnded:
		s.logger.Info("game over", zap.String("session", sess.ID), zap.Int("score", v.Score))
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// configLoadError provides a helpful error message with available options
func (s *gameServiceImpl) configLoadError(configID string, err error) error {
	if !strings.Contains(err.Error(), "configuration not found") {
		return fmt.Errorf("failed to load config %s: %w", configID, err)
	}
	availableConfigs, listErr := s.configs.ListConfigs()
	if listErr == nil && len(availableConfigs) > 0 {
		var configIDs []string
		for _, cfg := range availableConfigs {
			configIDs = append(configIDs, cfg.ConfigID)
		}
		return fmt.Errorf("config '%s' not found. Available configs: %v: %w", configID, configIDs, err)
	}
	return fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configID, err)
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	seed := binary.LittleEndian.Uint64(b[:])
	if seed == 0 {
		seed = 1
	}
	return seed
}
