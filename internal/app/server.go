package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sghaffari/chatrelay/api/ws"
	"github.com/sghaffari/chatrelay/config"
	"github.com/sghaffari/chatrelay/internal/presence"
	"github.com/sghaffari/chatrelay/internal/registry"
	"github.com/sghaffari/chatrelay/internal/store"
	"github.com/sghaffari/chatrelay/pkg/logger"
	"github.com/sghaffari/chatrelay/service"
)

// App represents the main application structure holding all dependencies
type App struct {
	cfg        config.Config
	logger     logger.Logger
	registry   *registry.Registry
	relay      service.RelayService
	presence   *presence.Tracker
	httpServer *http.Server
	rootCtx    context.Context
	cancel     context.CancelFunc
}

// NewApp initializes and connects all application dependencies
func NewApp(cfg config.Config) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, rootCancel := context.WithCancel(rootCtx)

	log := logger.FromContext(rootCtx).WithModule("app")
	log.Infof("Initializing application components...")

	storeClient := store.NewClient(cfg.StoreURL, cfg.StoreAPIKey, cfg.StoreTimeout())

	// Presence is optional; without Redis the tracker stays nil and every
	// call on it is a no-op.
	var tracker *presence.Tracker
	if cfg.RedisURL != "" {
		var err error
		tracker, err = presence.NewTracker(rootCtx, cfg.RedisURL, baseLogger.WithModule("presence"))
		if err != nil {
			rootCancel()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	rooms := registry.New()
	relay := service.NewRelayService(storeClient, rooms, baseLogger.WithModule("relay"), cfg.StoreTimeout())

	httpServer := createHTTPServer(rootCtx, cfg.Port, rooms, relay, tracker)

	app := &App{
		cfg:        cfg,
		logger:     log,
		registry:   rooms,
		relay:      relay,
		presence:   tracker,
		httpServer: httpServer,
		rootCtx:    rootCtx,
		cancel:     rootCancel,
	}

	log.Infof("Application initialized successfully")
	return app, nil
}

func createHTTPServer(ctx context.Context, port int, rooms *registry.Registry, relay service.RelayService, tracker *presence.Tracker) *http.Server {
	wsConfig := ws.WSConfig{
		Registry: rooms,
		Relay:    relay,
		Presence: tracker,
		RootCtx:  ctx,
	}

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: ws.SetupWebSocketRoutes(wsConfig),
	}
}

// Start runs the application and handles graceful shutdown on signal
func (a *App) Start() error {
	log := a.logger.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
	})

	log.Infof("Starting relay server")
	log.Infof("Local:   ws://localhost:%d/ws", a.cfg.Port)
	for _, addr := range externalAddrs() {
		log.Infof("Network: ws://%s:%d/ws", addr, a.cfg.Port)
	}

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatalf("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.WithFields(map[string]interface{}{
		"signal": sig.String(),
	}).Warnf("Received shutdown signal")

	return a.Stop()
}

// Stop gracefully shuts down the server and closes all connections
func (a *App) Stop() error {
	log := a.logger.WithFields(map[string]interface{}{
		"shutdown_timeout": "5s",
	})

	log.Infof("Initiating graceful shutdown")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Errorf("HTTP server shutdown error")
	}

	if a.presence != nil {
		log.Infof("Closing Redis connection")
		if err := a.presence.Close(); err != nil {
			log.Errorf("Redis close error: %v", err)
		}
	}

	log.Infof("Shutdown completed successfully")
	return nil
}

// externalAddrs lists the non-loopback IPv4 addresses of the host, printed at
// startup so clients on the same network know where to connect.
func externalAddrs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var addrs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range ifaceAddrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				addrs = append(addrs, ip4.String())
			}
		}
	}
	return addrs
}
