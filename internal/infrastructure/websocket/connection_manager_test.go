package websocket

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Fatal(msg string, keysAndValues ...interface{}) {}

type fakeConn struct {
	mu       sync.Mutex
	userID   string
	received []interface{}
	closed   bool
	sendErr  error
}

func (c *fakeConn) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, message)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) UserID() string { return c.userID }

func TestBroadcastReachesOnlyThatAuctionsWatchers(t *testing.T) {
	cm := NewConnectionManager(nopLogger{})

	alice := &fakeConn{userID: "alice"}
	bob := &fakeConn{userID: "bob"}
	carol := &fakeConn{userID: "carol"}

	cm.Subscribe("auction-1", "alice", alice)
	cm.Subscribe("auction-1", "bob", bob)
	cm.Subscribe("auction-2", "carol", carol)

	require.NoError(t, cm.Broadcast("auction-1", "update"))

	assert.Len(t, alice.received, 1)
	assert.Len(t, bob.received, 1)
	assert.Empty(t, carol.received)
}

func TestBroadcastSurvivesDeadConnection(t *testing.T) {
	cm := NewConnectionManager(nopLogger{})

	dead := &fakeConn{userID: "alice", sendErr: errors.New("broken pipe")}
	live := &fakeConn{userID: "bob"}

	cm.Subscribe("auction-1", "alice", dead)
	cm.Subscribe("auction-1", "bob", live)

	require.NoError(t, cm.Broadcast("auction-1", "update"))
	assert.Len(t, live.received, 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	cm := NewConnectionManager(nopLogger{})

	alice := &fakeConn{userID: "alice"}
	cm.Subscribe("auction-1", "alice", alice)
	cm.Unsubscribe("auction-1", "alice")

	require.NoError(t, cm.Broadcast("auction-1", "update"))
	assert.Empty(t, alice.received)
}

func TestCloseAuctionClosesAllWatchers(t *testing.T) {
	cm := NewConnectionManager(nopLogger{})

	alice := &fakeConn{userID: "alice"}
	bob := &fakeConn{userID: "bob"}
	cm.Subscribe("auction-1", "alice", alice)
	cm.Subscribe("auction-1", "bob", bob)

	require.NoError(t, cm.CloseAuction("auction-1"))
	assert.True(t, alice.closed)
	assert.True(t, bob.closed)

	// The auction's watcher set is gone; a late broadcast is a no-op.
	require.NoError(t, cm.Broadcast("auction-1", "late"))
	assert.Len(t, alice.received, 0)
}
