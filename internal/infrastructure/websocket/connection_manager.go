package websocket

import (
	"sync"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// ConnectionManager is the per-process registry of which connections are
// watching which auction. Lifecycle is tied to the connection: handlers
// subscribe on open and unsubscribe on close.
type ConnectionManager struct {
	watchers map[string]map[string]domain.AuctionConnection // auctionID -> userID -> connection
	mutex    sync.RWMutex
	log      logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		watchers: make(map[string]map[string]domain.AuctionConnection),
		log:      log,
	}
}

func (cm *ConnectionManager) Subscribe(auctionID, userID string, conn domain.AuctionConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.watchers[auctionID] == nil {
		cm.watchers[auctionID] = make(map[string]domain.AuctionConnection)
	}
	cm.watchers[auctionID][userID] = conn

	cm.log.Info("Watcher subscribed", "user_id", userID, "auction_id", auctionID)
}

func (cm *ConnectionManager) Unsubscribe(auctionID, userID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if conns, exists := cm.watchers[auctionID]; exists {
		delete(conns, userID)
		if len(conns) == 0 {
			delete(cm.watchers, auctionID)
		}
	}

	cm.log.Info("Watcher unsubscribed", "user_id", userID, "auction_id", auctionID)
}

func (cm *ConnectionManager) Broadcast(auctionID string, message interface{}) error {
	cm.mutex.RLock()
	conns := make([]domain.AuctionConnection, 0, len(cm.watchers[auctionID]))
	for _, conn := range cm.watchers[auctionID] {
		conns = append(conns, conn)
	}
	cm.mutex.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(message); err != nil {
			// Keep going; a single dead connection must not starve the rest.
			cm.log.Error("Failed to send to watcher", "user_id", conn.UserID(),
				"auction_id", auctionID, "error", err)
		}
	}
	return nil
}

// CloseAuction closes and drops every connection watching a finished auction.
func (cm *ConnectionManager) CloseAuction(auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for userID, conn := range cm.watchers[auctionID] {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close watcher connection", "user_id", userID,
				"auction_id", auctionID, "error", err)
		}
	}
	delete(cm.watchers, auctionID)

	cm.log.Info("Watchers closed for auction", "auction_id", auctionID)
	return nil
}
