// Command snake-engine starts the snake game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config and session storage, the tick driver,
// logging, version output, and optional ngrok tunneling for easy external
// access during development. Every flag can also be set from the environment
// or a .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/server"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/snake-engine/api"
	"github.com/wricardo/snake-engine/game/config"
	"github.com/wricardo/snake-engine/game/driver"
	"github.com/wricardo/snake-engine/game/leaderboard"
	"github.com/wricardo/snake-engine/game/service"
	"github.com/wricardo/snake-engine/game/session"
	"github.com/wricardo/snake-engine/logging"
	"github.com/wricardo/snake-engine/transport/mcp"
	"github.com/wricardo/snake-engine/transport/websocket"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Version information
const (
	Version = "1.0.0"
	AppName = "Snake Engine Server"
)

// A .env file only fills variables that are not already set. It is loaded
// during variable initialization so the flag defaults below can see it.
var dotenvErr = godotenv.Load()

// Configuration flags control how the server starts and which services are enabled.
var (
	port          = flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	host          = flag.String("host", envOr("HOST", "localhost"), "HTTP server host")
	configDir     = flag.String("config-dir", envOr("CONFIG_DIR", "configs"), "Directory containing game configurations")
	sessionsDir   = flag.String("sessions-dir", envOr("SESSIONS_DIR", "sessions"), "Directory for session files (ignored with -redis-addr)")
	redisAddr     = flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for session storage (optional)")
	redisPassword = flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	redisDB       = flag.Int("redis-db", envInt("REDIS_DB", 0), "Redis database")
	sessionTTL    = flag.Duration("session-ttl", envDuration("SESSION_TTL", 24*time.Hour), "Idle time after which sessions are removed")
	leaderboardDB = flag.String("leaderboard", envOr("LEADERBOARD_PATH", "data/leaderboard.db"), "SQLite leaderboard file (empty disables it)")
	tickInterval  = flag.Duration("tick-interval", envDuration("TICK_INTERVAL", 0), "Advance running games on this interval (0 leaves ticking to clients)")
	tickWorkers   = flag.Int("tick-workers", envInt("TICK_WORKERS", driver.DefaultWorkers), "Sessions ticked in parallel by the driver")
	logLevel      = flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logDir        = flag.String("log-dir", envOr("LOG_DIR", "logs"), "Directory for log files")
	logFile       = flag.Bool("log-file", os.Getenv("LOG_FILE") == "true", "Also write rotated log files")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	version       = flag.Bool("version", false, "Show version information")
	ngrokEnabled  = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth     = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain   = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                           # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -tick-interval 150ms      # Advance running games automatically\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -redis-addr localhost:6379 # Keep sessions in Redis\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                 # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	// Determine mode from command
	args := flag.Args()
	mode := "server" // default
	if len(args) > 0 {
		mode = args[0]
	}

	logger := newLogger(mode)
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", mode))
	if dotenvErr != nil && !os.IsNotExist(dotenvErr) {
		logger.Warn("error loading .env file", zap.Error(dotenvErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeServices(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer app.Close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = runStdioMCPWithInternalServer(ctx, app)

	case "server", "http":
		err = runHTTPServer(ctx, app)

	default:
		logger.Fatal("unknown mode, use 'server' (default) or 'stdio-mcp'", zap.String("mode", mode))
	}

	if err != nil {
		logger.Error("stopped with error", zap.Error(err))
		app.Close()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// newLogger builds the process logger. The stdio transport owns stdout, so
// MCP modes log to stderr.
func newLogger(mode string) *zap.Logger {
	level := *logLevel
	if *debug {
		level = "debug"
	}

	cfg := logging.Config{
		Level: level,
		App:   "snake",
		Dir:   *logDir,
		File:  *logFile,
	}
	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		cfg.Console = os.Stderr
	}
	return logging.New(cfg)
}

// App holds the long-lived services shared by both modes
type App struct {
	Logger      *zap.Logger
	Configs     *config.Manager
	Sessions    *session.Manager
	Persistence session.SessionPersistence
	Scores      *leaderboard.Store
	Service     service.GameService

	closers []func() error
	closed  bool
}

// Close saves sessions and releases storage; calling it twice is a no-op
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true

	if err := a.Sessions.SaveAllSessions(); err != nil {
		a.Logger.Warn("failed to save sessions on shutdown", zap.Error(err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("failed to close resource", zap.Error(err))
		}
	}
}

// initializeServices wires config, session storage, leaderboard and the game service.
func initializeServices(ctx context.Context, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(*configDir, logger.Named("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	app := &App{Logger: logger, Configs: configManager}

	persistence, err := newPersistence(ctx, app)
	if err != nil {
		app.closeResources()
		return nil, err
	}
	app.Persistence = persistence

	app.Sessions = session.NewManagerWithPersistence(persistence, session.WithLogger(logger.Named("session")))

	// Load persisted sessions on startup
	if err := app.Sessions.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	opts := []service.Option{service.WithLogger(logger.Named("service"))}
	if *leaderboardDB != "" {
		store, err := leaderboard.Open(*leaderboardDB)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("failed to open leaderboard: %w", err)
		}
		app.Scores = store
		app.closers = append(app.closers, store.Close)
		opts = append(opts, service.WithScoreRecorder(store))
	}

	app.Service = service.NewGameService(app.Sessions, configManager, opts...)

	logger.Info("services ready",
		zap.Int("sessions", app.Sessions.Count()),
		zap.Bool("leaderboard", app.Scores != nil),
		zap.Bool("redis", *redisAddr != ""))
	return app, nil
}

func (a *App) closeResources() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newPersistence picks Redis when an address is configured, files otherwise
func newPersistence(ctx context.Context, app *App) (session.SessionPersistence, error) {
	if *redisAddr == "" {
		persistence, err := session.NewFilePersistence(*sessionsDir, app.Configs)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		return persistence, nil
	}

	client, err := session.NewRedisClient(ctx, *redisAddr, *redisPassword, *redisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.closers = append(app.closers, client.Close)

	return session.NewRedisPersistence(client, app.Configs, session.RedisOptions{TTL: *sessionTTL}), nil
}

// runBackground starts the routines shared by both modes on g
func runBackground(ctx context.Context, g *errgroup.Group, app *App, hub *websocket.Hub) error {
	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		sessionCleanupRoutine(ctx, app.Sessions, *sessionTTL, app.Logger)
		return nil
	})

	g.Go(func() error {
		storageSyncRoutine(ctx, app.Sessions, app.Persistence, app.Logger)
		return nil
	})

	if *tickInterval > 0 {
		d, err := driver.New(*tickInterval, app.Service, hub, *tickWorkers, app.Logger.Named("driver"))
		if err != nil {
			return fmt.Errorf("failed to create tick driver: %w", err)
		}
		app.Logger.Info("tick driver enabled", zap.Duration("interval", *tickInterval), zap.Int("workers", *tickWorkers))
		g.Go(func() error {
			return d.Run(ctx)
		})
	}
	return nil
}

func newHub(app *App) *websocket.Hub {
	return websocket.NewHub(
		websocket.WithInputHandler(app.Service.KeyPress),
		websocket.WithLogger(app.Logger.Named("ws")),
	)
}

// mcpHandler serves single JSON-RPC messages for the /mcp endpoint
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, app *App) error {
	logger := app.Logger
	g, ctx := errgroup.WithContext(ctx)

	hub := newHub(app)
	if err := runBackground(ctx, g, app, hub); err != nil {
		return err
	}

	apiServer := api.NewServer(app.Service, hub, api.WithLogger(logger.Named("api")))

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	// Create main router that combines API and MCP
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	if ngrokRequested() {
		g.Go(func() error {
			runNgrok(ctx, mainRouter, logger.Named("ngrok"))
			return nil
		})
	}

	return g.Wait()
}

// ngrokRequested checks the flag first, then NGROK_ENABLED
func ngrokRequested() bool {
	if *ngrokEnabled {
		return true
	}
	envEnabled := os.Getenv("NGROK_ENABLED")
	return envEnabled == "true" || envEnabled == "1"
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged and never stop the local server.
func runNgrok(ctx context.Context, handler http.Handler, logger *zap.Logger) {
	// Get auth token from flag or environment (support both naming conventions)
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Warn("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("ws", ngrokURL+"/ws?session=<session_id>"),
		zap.String("mcp", ngrokURL+"/mcp"))

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the provided retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge time.Duration, logger *zap.Logger) {
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// storageSyncRoutine periodically drops in-memory sessions whose stored copy
// is gone, whether the file was deleted or the Redis key expired.
func storageSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) {
	if persistence == nil {
		return
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithStorage(manager, persistence, logger); pruned > 0 {
				logger.Info("storage sync pruned orphaned sessions", zap.Int("pruned", pruned))
			}
		}
	}
}

func syncWithStorage(manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			logger.Debug("pruned session from memory", zap.String("session", sess.ID))
		}
	}
	return pruned
}

// apiReachable reports whether a snake API answers at baseURL
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API on the configured port; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, app *App) error {
	logger := app.Logger
	g, ctx := errgroup.WithContext(ctx)

	externalURL := fmt.Sprintf("http://%s:%d", *host, *port)
	baseURL := externalURL

	if apiReachable(externalURL) {
		logger.Info("external API server found, using it for MCP", zap.String("url", externalURL))
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		hub := newHub(app)
		if err := runBackground(ctx, g, app, hub); err != nil {
			listener.Close()
			return err
		}

		httpServer := &http.Server{
			Handler: api.NewServer(app.Service, hub, api.WithLogger(logger.Named("api"))),
		}

		g.Go(func() error {
			logger.Info("internal HTTP server for MCP stdio", zap.String("addr", listener.Addr().String()))
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("internal HTTP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	mcpClient := mcp.NewClient(baseURL)

	g.Go(func() error {
		logger.Info("MCP stdio server ready", zap.String("api", baseURL))
		stdio := server.NewStdioServer(mcpClient.GetMCPServer())
		err := stdio.Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server error: %w", err)
		}
		// stdin closed: the MCP host went away, stop everything else
		return context.Canceled
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
