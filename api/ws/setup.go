package ws

import (
	"context"
	"net/http"

	"github.com/sghaffari/chatrelay/internal/presence"
	"github.com/sghaffari/chatrelay/internal/registry"
	"github.com/sghaffari/chatrelay/pkg/logger"
	"github.com/sghaffari/chatrelay/service"
)

type WSConfig struct {
	Registry *registry.Registry
	Relay    service.RelayService
	Presence *presence.Tracker
	RootCtx  context.Context
}

func SetupWebSocketRoutes(cfg WSConfig) http.Handler {
	mux := http.NewServeMux()
	log := logger.FromContext(cfg.RootCtx).WithModule("websocket")
	mux.HandleFunc("/ws", HandleWebSocket(cfg.Registry, cfg.Relay, cfg.Presence, log))
	return mux
}
