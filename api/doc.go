// Package api provides the HTTP REST API for snake game sessions.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session from a preset plus overrides
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Several sessions at once (?sessionIds=a,b or ?configId=x)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - GET /api/sessions/{id}/board - Rendered board (?format=text for plain rows)
//   - POST /api/sessions/{id}/key - Apply a key press: {"key": "ArrowUp"}
//   - POST /api/sessions/{id}/tick - Advance the game: {"ticks": 10} or ?ticks=10
//   - POST /api/sessions/{id}/start - Start a game that waits for its first key
//   - POST /api/sessions/{id}/reset - Start over with the same config
//   - GET /api/sessions/{id}/events - Notification history (?page&limit&order&kind)
//
// Configuration:
//   - GET /api/configs - List presets
//   - GET /api/configs/{name} - Get one preset
//   - POST /api/configs - Save a preset
//
// Other:
//   - GET /api/leaderboard - Best finished games (?limit=N)
//   - GET /health - Liveness
//   - GET /metrics - Prometheus metrics
//   - GET /ws?session=<id> - WebSocket updates for a session
//
// Errors are returned as JSON with a status code derived from the service
// error: unknown sessions and configs give 404, invalid configs and tick
// counts give 400.
//
//	{"error": "session not found: ab12"}
package api
