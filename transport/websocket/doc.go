// Package websocket pushes snake game updates to browsers and accepts key
// presses over the same connection.
//
// Clients connect to /ws?session=<id> and are grouped by session. The hub
// sends three kinds of messages, each a JSON object with an "event" field:
//
//	state_update   the game state after a tick, with the tick result in "data"
//	notification   one engine notification (score_changed, life_lost, game_over)
//	input          the answer to the client's own key message
//
// A client steers by sending {"type":"key","key":"ArrowUp"}. Keys are passed
// to the hub's InputHandler, normally the game service's KeyPress.
//
// The hub runs as a single event loop. Broadcasts never block the caller;
// a client whose buffer is full is disconnected.
package websocket
