package mcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/snake-engine/game/engine"
	"github.com/wricardo/snake-engine/game/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Snake Engine",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Snake Engine - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Steer the snake (@ is the head, o the body) to eat food (*). Each food grows
the snake and raises the score. Running into a wall (#), or into the snake
itself, costs a life. The game ends when no lives are left.

The game only moves when it is ticked. A server started with a tick interval
advances running games on its own; otherwise call tick yourself.

AVAILABLE TOOLS:
- create_session: Create a new game session
- list_sessions / get_session: Inspect sessions
- game_state: Current state with the rendered board
- key_press: Steer (up/down/left/right, WASD, arrow key codes) - requires intent
- tick: Advance the game by N ticks - requires intent
- start_game / reset_game: Control the run
- events: Past notifications (score changes, lost lives, game over)
- list_configs: Available presets
- leaderboard: Best finished games
- game_instructions: Full rules

NOTE: The 'intent' parameter on key_press/tick serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session from a preset, with optional overrides",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "Preset to use (optional, defaults to classic)",
				},
				"width": map[string]any{
					"type":        "integer",
					"description": "Board width override",
				},
				"height": map[string]any{
					"type":        "integer",
					"description": "Board height override",
				},
				"lives": map[string]any{
					"type":        "integer",
					"description": "Starting lives override",
				},
				"seed": map[string]any{
					"type":        "integer",
					"description": "Food placement seed; the same seed and inputs replay the same game",
				},
				"autostart": map[string]any{
					"type":        "string",
					"enum":        []string{string(engine.AutostartFirstKey), string(engine.AutostartConstruction)},
					"description": "When the game starts running",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state and rendered board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "key_press",
		Description: "Steer the snake. The heading takes effect on the next move; reversing onto the body is ignored.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"key": map[string]any{
					"type":        "string",
					"description": "up, down, left, right, a WASD letter or an arrow key code such as ArrowUp",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of why you are turning (serves as a rubber duck to help explain your reasoning)",
				},
				"ticks": map[string]any{
					"type":        "integer",
					"description": "Ticks to advance after the key press (optional)",
				},
			},
			Required: []string{"session_id", "key"},
		},
	}, c.handleKeyPress)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: fmt.Sprintf("Advance the game by up to %d ticks. Stops early on game over.", engine.MaxBulkTicks),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"ticks": map[string]any{
					"type":        "integer",
					"description": "Number of ticks (default 1)",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of what you expect to happen (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start a game that is waiting for its first key",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to its initial state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "events",
		Description: "Get notification history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Items per page",
				},
				"kind": map[string]any{
					"type": "string",
					"enum": []string{
						string(engine.KindScoreChanged),
						string(engine.KindLifeLost),
						string(engine.KindGameOver),
					},
					"description": "Only return this kind of notification",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEvents)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Best finished games, highest score first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Number of entries (default 10)",
				},
			},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// intArg reads a numeric argument; JSON numbers arrive as float64
func intArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req := service.CreateSessionRequest{
		Width:  intArg(args, "width", 0),
		Height: intArg(args, "height", 0),
		Lives:  intArg(args, "lives", 0),
	}
	req.ConfigID, _ = args["config_id"].(string)
	req.Autostart, _ = args["autostart"].(string)
	if seed := intArg(args, "seed", 0); seed > 0 {
		req.Seed = uint64(seed)
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", req, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigID)
	if session.GameState != nil {
		result += formatGameState(session.GameState, nil)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		line := fmt.Sprintf("- %s (Config: %s, Created: %s", s.ID, s.ConfigID, s.CreatedAt.Format("15:04:05"))
		if s.GameState != nil {
			line += fmt.Sprintf(", %s, Score: %d", s.GameState.RunState, s.GameState.Score)
		}
		result += line + ")\n"
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var board service.BoardView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/board"), nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state, board.Rows)), nil
}

func (c *Client) handleKeyPress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	key, _ := args["key"].(string)
	intent, _ := args["intent"].(string)
	ticks := intArg(args, "ticks", 0)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	var input service.InputResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/key"), map[string]string{"key": key}, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := formatInputResult(&input)
	if ticks > 0 {
		var tick service.TickResult
		if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tick"), map[string]int{"ticks": ticks}, &tick); err != nil {
			return mcp.NewToolResultError(response + "\nTick failed: " + err.Error()), nil
		}
		response += "\n" + formatTickResult(&tick)
	}

	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	ticks := intArg(args, "ticks", 1)
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	var result service.TickResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tick"), map[string]int{"ticks": ticks}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTickResult(&result)), nil
}

func (c *Client) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/start"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state, nil)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := response.Message + "\n"
	if response.State != nil {
		result += formatGameState(response.State, nil)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)

	query := url.Values{}
	query.Set("page", fmt.Sprint(intArg(args, "page", 1)))
	query.Set("limit", fmt.Sprint(intArg(args, "limit", 20)))
	if kind, _ := args["kind"].(string); kind != "" {
		query.Set("kind", kind)
	}

	var events service.EventsResponse
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/events?"+query.Encode()), nil, &events); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEvents(&events)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Available Configurations (%d):\n\n", len(configs))
	for _, cfg := range configs {
		walls := "open edges"
		if cfg.Walls {
			walls = "walled"
		}
		result += fmt.Sprintf("- %s: %s (%dx%d, %d lives, %s)\n  %s\n",
			cfg.ConfigID, cfg.Name, cfg.Width, cfg.Height, cfg.InitialLives, walls, cfg.Description)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(request.GetArguments(), "limit", 10)

	var response struct {
		Count   int                  `json:"count"`
		Entries []service.ScoreEntry `json:"entries"`
	}
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/leaderboard?limit=%d", limit), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No finished games yet."), nil
	}

	result := fmt.Sprintf("Leaderboard (%d):\n\n", response.Count)
	for i, e := range response.Entries {
		result += fmt.Sprintf("%2d. %5d  %s (%s) food %d, moves %d, deaths %d\n",
			i+1, e.Score, e.SessionID, e.ConfigID, e.FoodEaten, e.Moves, e.Deaths)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Snake - Complete Instructions

GAME OBJECTIVE:
Eat as much food as possible before running out of lives.

BOARD LEGEND:
  @ - snake head
  o - snake body
  * - food
  # - wall (only on walled presets)
  . - empty cell

Coordinates are (x, y) with (0, 0) in the top-left corner. y grows downwards.

MOVEMENT:
- The snake moves one cell per move in its current heading.
- key_press changes the heading for the NEXT move only. Several keys between
  two moves: the last one wins.
- Turning straight back onto the body is ignored while the snake is longer
  than one cell.
- Leaving the board costs a life, with or without walls. Walls only shrink
  the playable area by the border ring.
- On presets with ticks_per_move > 1 the snake only moves every Nth tick.

FOOD:
- Eating food grows the snake by one cell and adds the preset's score step.
- New food appears on a random free cell. The session seed makes this
  reproducible: the same seed and inputs always produce the same game.

LIVES:
- Hitting a wall or the body costs a life and restarts the snake at the
  starting position. Score and food eaten are kept.
- When the last life is lost the game is over. reset_game starts again.

RUNNING THE GAME:
- New games wait in not_started. Depending on the preset the first key
  starts them, or start_game does.
- Games only advance when ticked. Use tick with the number of ticks you want,
  or key_press with ticks to steer and move in one call.
- tick stops early when the game ends.

STRATEGY TIPS:
- Read the board row by row and locate @ and * before turning.
- Plan turns one move ahead; a key press only affects the next move.
- Avoid boxing yourself in as the snake grows. Follow the edges on open boards.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast Accessed: %s\n",
		session.ID, session.ConfigID,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState, nil)
	}
	return result
}

func formatRunState(state engine.RunState) string {
	switch state {
	case engine.NotStarted:
		return "⏸ NOT STARTED"
	case engine.GameOver:
		return "💀 GAME OVER"
	default:
		return "▶ RUNNING"
	}
}

func formatGameState(state *engine.GameState, rows []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status: %s\n", formatRunState(state.RunState))
	fmt.Fprintf(&b, "Score: %d | Lives: %d | Length: %d\n", state.Score, state.Lives, len(state.Snake))
	if len(state.Snake) > 0 {
		head := state.Snake[0]
		fmt.Fprintf(&b, "Head: (%d,%d) heading %s", head.X, head.Y, state.Direction)
		if state.PendingDirection != "" && state.PendingDirection != state.Direction {
			fmt.Fprintf(&b, ", turning %s", state.PendingDirection)
		}
		b.WriteString("\n")
	}
	if state.Food != nil {
		fmt.Fprintf(&b, "Food: (%d,%d)\n", state.Food.X, state.Food.Y)
	} else {
		b.WriteString("Food: none (board full)\n")
	}
	fmt.Fprintf(&b, "Ticks: %d | Moves: %d | Food eaten: %d\n", state.TickCount, state.Moves, state.FoodEaten)
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	if len(rows) > 0 {
		b.WriteString("\nBoard:\n")
		for _, row := range rows {
			b.WriteString(row)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatInputResult(result *service.InputResult) string {
	var b strings.Builder
	if result.Accepted {
		fmt.Fprintf(&b, "✓ Key %q accepted, next move %s\n", result.Key, result.Direction)
	} else {
		fmt.Fprintf(&b, "✗ Key %q ignored\n", result.Key)
	}
	if result.Started {
		b.WriteString("Game started.\n")
	}
	if result.GameState != nil {
		b.WriteString(formatGameState(result.GameState, nil))
	}
	return b.String()
}

func formatTickResult(result *service.TickResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ticks: %d/%d executed", result.TicksExecuted, result.TicksRequested)
	if result.Truncated {
		fmt.Fprintf(&b, " (capped at %d)", engine.MaxBulkTicks)
	}
	b.WriteString("\n")
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}
	fmt.Fprintf(&b, "Status: %s\n", formatRunState(result.RunState))
	fmt.Fprintf(&b, "Score: %d (%+d) | Lives: %d\n", result.Score, result.ScoreDelta, result.Lives)

	if len(result.Notifications) > 0 {
		b.WriteString("\nNotifications:\n")
		for _, n := range result.Notifications {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	if len(result.Board) > 0 {
		b.WriteString("\nBoard:\n")
		for _, row := range result.Board {
			b.WriteString(row)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatEvents(events *service.EventsResponse) string {
	if events.TotalEvents == 0 {
		return "No notifications yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Notifications (page %d/%d, %d total):\n\n", events.Page, events.TotalPages, events.TotalEvents)
	for _, e := range events.Events {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	if events.HasNext {
		fmt.Fprintf(&b, "\nMore on page %d.\n", events.Page+1)
	}
	return b.String()
}
