package wshandler

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type walletService interface {
	Wallet(ctx context.Context, userID string) (domain.Wallet, error)
	Watch(userID string, fn func(wallet domain.Wallet, exists bool)) func()
}

type walletEvent struct {
	Wallet *domain.Wallet `json:"wallet,omitempty"`
	Exists bool           `json:"exists"`
}

type WSHandler struct {
	walletService walletService
}

func New(svc walletService) *WSHandler {
	return &WSHandler{walletService: svc}
}

// Wallet upgrades the connection and streams every change of the user's
// wallet until the client disconnects. The first message is the current
// state; later messages arrive in write order.
func (h WSHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("error upgrading websocket", logger.String("user_id", userID), logger.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Log.Warn("error closing websocket", logger.Error(err))
		}
	}()

	// The subscription callback fires synchronously on the writer's
	// goroutine; events go through a channel so the network write never
	// blocks a store write.
	events := make(chan walletEvent, 32)
	unsubscribe := h.walletService.Watch(userID, func(wallet domain.Wallet, exists bool) {
		event := walletEvent{Exists: exists}
		if exists {
			event.Wallet = &wallet
		}
		select {
		case events <- event:
		default:
			logger.Log.Warn("wallet event dropped, slow websocket client", logger.String("user_id", userID))
		}
	})
	defer unsubscribe()

	wallet, err := h.walletService.Wallet(r.Context(), userID)
	if err == nil {
		if err := conn.WriteJSON(walletEvent{Wallet: &wallet, Exists: true}); err != nil {
			logger.Log.Warn("error writing initial wallet state", logger.String("user_id", userID), logger.Error(err))
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-events:
			if err := conn.WriteJSON(event); err != nil {
				logger.Log.Warn("error writing wallet event", logger.String("user_id", userID), logger.Error(err))
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
