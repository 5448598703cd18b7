package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/deepchat/server/api"
	"github.com/deepchat/server/chat"
	"github.com/deepchat/server/config"
	"github.com/deepchat/server/logger"
	"github.com/deepchat/server/middleware"
	"github.com/deepchat/server/session"
	"github.com/deepchat/server/startup"
	"github.com/deepchat/server/telemetry"
	"github.com/deepchat/server/upstream"
	"github.com/deepchat/server/watch"
	"github.com/deepchat/server/ws"
	"github.com/spf13/cobra"
)

const (
	defaultPort     = 8765
	shutdownTimeout = 10 * time.Second
)

var (
	port           int
	devMode        bool
	allowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Start the HTTP server exposing the chat WebSocket (/ws/chat), the JSON-RPC
WebSocket (/ws/rpc) and the REST API (/api/...).

The port is taken from --port, then SERVER_PORT, then 8765. Development mode
(--dev or DEV_MODE=true) skips WebSocket origin checks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "server port (env SERVER_PORT, default 8765)")
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "enable development mode")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origin", nil, "additional WebSocket origin patterns, e.g. chat.example.com")
	rootCmd.AddCommand(serveCmd)
}

func resolvePort() (int, error) {
	if port != 0 {
		return port, nil
	}
	if env := os.Getenv("SERVER_PORT"); env != "" {
		p, err := strconv.Atoi(env)
		if err != nil {
			return 0, fmt.Errorf("invalid SERVER_PORT %q: %w", env, err)
		}
		return p, nil
	}
	return defaultPort, nil
}

// serverDeps are the components shared by the HTTP and WebSocket surfaces.
type serverDeps struct {
	store          session.Store
	configs        *config.Store
	relay          *chat.Relay
	sessionList    *watch.SessionListWatcher
	configWatcher  *watch.ConfigWatcher
	devMode        bool
	originPatterns []string
}

func newHandler(deps serverDeps) http.Handler {
	mux := http.NewServeMux()

	api.RegisterRoot(mux, version)
	api.NewConfigHandler(deps.configs).Register(mux)
	api.NewSessionHandler(deps.store).Register(mux)

	mux.Handle("GET /ws/chat", ws.NewHandler(deps.relay, deps.devMode, deps.originPatterns))
	mux.Handle("GET /ws/rpc", ws.NewRPCHandler(deps.store, deps.configs, deps.sessionList, deps.configWatcher, deps.devMode, deps.originPatterns))

	return middleware.CORS()(mux)
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dir, err := resolveDataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	listenPort, err := resolvePort()
	if err != nil {
		return err
	}
	dev := devMode || os.Getenv("DEV_MODE") == "true"

	closeLog, err := logger.Init(logger.Config{DataDir: dir, DevMode: dev, Verbose: verbose})
	if err != nil {
		return err
	}
	defer closeLog()

	providers, err := telemetry.Init(ctx, telemetry.Config{DataDir: dir, Version: version})
	if err != nil {
		return err
	}
	turnMetrics, err := telemetry.NewTurnMetrics(providers.Meter)
	if err != nil {
		return err
	}

	sessionStore, err := session.NewFileStore(filepath.Join(dir, historyFileName))
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	configStore := config.NewStore(filepath.Join(dir, configFileName))

	sessionList := watch.NewSessionListWatcher(sessionStore)
	if err := sessionList.Start(); err != nil {
		return fmt.Errorf("failed to start session list watcher: %w", err)
	}
	configWatcher := watch.NewConfigWatcher(configStore)
	if err := configWatcher.Start(); err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}

	client := upstream.NewHTTPClient(upstream.WithTracer(providers.Tracer))
	relay := chat.NewRelay(sessionStore, client, configStore, chat.WithRecorder(turnMetrics))

	handler := newHandler(serverDeps{
		store:          sessionStore,
		configs:        configStore,
		relay:          relay,
		sessionList:    sessionList,
		configWatcher:  configWatcher,
		devMode:        dev,
		originPatterns: slices.Concat(ws.DefaultOriginPatterns, allowedOrigins),
	})

	// Hijacked WebSocket connections outlive srv.Shutdown; cancelling the
	// base context ends their turns before the store is closed.
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(listenPort),
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return connCtx },
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sigCtx.Done()

		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		cancelConns()

		configWatcher.Stop()
		sessionList.Stop()
		if err := sessionStore.Close(); err != nil {
			slog.Error("failed to flush sessions", "error", err)
		}
		providers.Shutdown(shutdownCtx)
	}()

	startup.PrintBanner(os.Stdout, startup.BannerOptions{
		Version:  version,
		LocalURL: "http://localhost:" + strconv.Itoa(listenPort),
		DataDir:  dir,
		DevMode:  dev,
		NoAPIKey: configStore.Get().APIKey() == "",
	})
	startup.PrintFooter(os.Stdout)

	slog.Info("server starting", "port", listenPort, "dataDir", dir, "devMode", dev)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		<-shutdownDone
		return fmt.Errorf("server error: %w", err)
	}
	<-shutdownDone
	slog.Info("server stopped")
	return nil
}
