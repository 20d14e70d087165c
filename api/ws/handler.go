package ws

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"

	"github.com/sghaffari/chatrelay/internal/presence"
	"github.com/sghaffari/chatrelay/internal/registry"
	"github.com/sghaffari/chatrelay/internal/websocket"
	"github.com/sghaffari/chatrelay/pkg/logger"
	"github.com/sghaffari/chatrelay/service"
)

// Any origin is accepted. Fine for trusted or demo deployments only.
var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func HandleWebSocket(
	reg *registry.Registry,
	relay service.RelayService,
	pres *presence.Tracker,
	logg logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Errorf("upgrade error: %v", err)
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		remote := websocket.ClientAddr(r.Header.Get("X-Forwarded-For"), conn.RemoteAddr().String())
		session := websocket.NewSession(uuid.NewString(), conn, reg, relay, pres, remote, logg)

		// The request context dies when this handler returns, so presence
		// updates use a background context.
		pres.Connect(context.Background(), session.ID())
		logg.Infof("new connection %s from %s", session.ID(), remote)

		go session.ReadPump()
		go session.WritePump()
	}
}
