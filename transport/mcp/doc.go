// Package mcp exposes the snake game to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON answer is rendered as text for the agent.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: state plus the rendered board
//   - key_press: steer, optionally followed by a number of ticks
//   - tick: advance a session
//   - start_game, reset_game
//   - events: paginated notification history
//   - list_configs, leaderboard, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// The stdio transport owns stdout, so callers must log to stderr.
package mcp
