package handlers

import (
	"net/http"
	"time"

	"auction-marketplace/internal/domain"
	ws "auction-marketplace/internal/infrastructure/websocket"
	"auction-marketplace/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced at the gateway
	},
}

// WatchHandler upgrades a watcher to a websocket and ties its lifetime to
// the auction watch registry. Served by the stream service behind a
// gorilla/mux route with an {auctionID} variable.
type WatchHandler struct {
	auctions domain.AuctionRepository
	registry domain.WatchRegistry
	log      logger.Logger
}

func NewWatchHandler(auctions domain.AuctionRepository, registry domain.WatchRegistry, log logger.Logger) *WatchHandler {
	return &WatchHandler{
		auctions: auctions,
		registry: registry,
		log:      log,
	}
}

func (h *WatchHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionID"]

	auction, err := h.auctions.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.log.Error("Watch request for unknown auction", "auction_id", auctionID, "error", err)
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}
	if auction.Status.Terminal() {
		http.Error(w, "auction has already ended", http.StatusGone)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	watcher := ws.NewConnection(conn, userID)
	h.registry.Subscribe(auctionID, userID, watcher)

	go h.readLoop(watcher, conn, userID, auctionID)
}

// readLoop drains client frames until the peer goes away, answering pings so
// intermediaries keep the connection alive. Bids are placed over the REST
// API, not the socket.
func (h *WatchHandler) readLoop(watcher *ws.Connection, conn *websocket.Conn, userID, auctionID string) {
	defer func() {
		h.registry.Unsubscribe(auctionID, userID)
		watcher.Close()
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("Watcher disconnected", "user_id", userID, "auction_id", auctionID, "error", err)
			return
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			if err := watcher.Send(map[string]string{"type": "pong"}); err != nil {
				return
			}
		}
	}
}
