// Package service provides the business logic layer for the snake game server.
//
// The service package implements:
//   - Multi-session game management
//   - Key input and tick processing
//   - Notification history per session
//   - Leaderboard recording of finished games
//   - Session lifecycle management
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// ScoreRecorder stores final scores when a game ends.
//
// Architecture:
//
// The service layer sits between the transports (HTTP/WebSocket/MCP), the
// server-side tick driver and the game engine. Every engine call happens
// while the owning session is locked, so an engine is never used from two
// goroutines at once even though different sessions tick in parallel.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs", logger)
//	gameService := service.NewGameService(sessionMgr, configMgr, service.WithLogger(logger))
//
//	// Create a new session
//	info, err := gameService.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "classic"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Steer and advance the game
//	gameService.KeyPress(ctx, info.ID, "ArrowLeft")
//	result, err := gameService.Tick(ctx, info.ID, 1)
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs and maintain independent
// game state. A session created without a seed gets a random one, stored with
// its config, so every game can be replayed.
package service
