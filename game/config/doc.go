// Package config provides configuration management for the snake game.
//
// The config package handles:
//   - Loading game presets from JSON files
//   - Configuration validation through the engine
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Presets are stored as JSON files in the configs directory. Each preset
// defines the board size, starting lives, initial snake length and heading,
// the tick divisor, whether the board has a wall ring, the autostart policy,
// an optional fixed seed and the messages shown for food, deaths and game over.
//
// Available Configurations:
//
//   - classic: 11x21 board with walls and 3 lives
//   - open: 16x16 board without walls
//   - arena: 24x24 walled board with 5 lives
//   - tiny: 5x5 board with a single life
//   - replay: fixed seed that starts at once, for reproducible runs
//
// Usage:
//
//	manager, err := config.NewManager("configs", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("arena")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
package config
