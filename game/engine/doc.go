// Package engine provides the core game logic for the snake game.
//
// The engine package implements the game mechanics including:
//   - Tick-driven snake movement on a fixed grid
//   - Wall and self collision detection with a lives system
//   - Food placement from a seeded random source
//   - Score and life notifications for the host
//   - Game state snapshots and validated restore
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState represents the current game state,
// while GameConfig defines board size, lives and rules loaded from JSON files.
// Notification is a closed set of variants (ScoreChanged, LifeLost, GameEnded)
// pushed to an optional handler while a tick runs.
//
// Usage:
//
//	gameEngine, err := engine.New(20, 20, 3)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.KeyPress(engine.Right)
//	for gameEngine.Tick() == engine.Running {
//		fmt.Println(gameEngine.BoardSnapshot())
//	}
//
// Game Rules:
//
// The host calls Tick on a fixed cadence and KeyPress whenever input arrives.
// Only the last key pressed between two ticks counts, and a key that would
// turn the snake back onto its own neck is ignored. Eating food grows the
// snake and raises the score. Hitting a wall or the snake's own body costs a
// life and puts the snake back at its starting position; losing the last life
// ends the game and freezes the state.
//
// A GameEngine is not safe for concurrent use. Hosts that share one between
// goroutines must serialize access.
package engine
