package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensor/pkg/contracts/domain"
	"licensor/pkg/contracts/events"
)

type fakeConnection struct {
	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func (f *fakeConnection) ReadMessage() (int, []byte, error) {
	select {} // block forever, pumps are not exercised in these tests
}

func (f *fakeConnection) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConnection) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConnection) SetReadLimit(int64)                  {}
func (f *fakeConnection) SetReadDeadline(time.Time) error     { return nil }
func (f *fakeConnection) SetWriteDeadline(time.Time) error    { return nil }
func (f *fakeConnection) SetPongHandler(func(string) error)   {}
func (f *fakeConnection) RemoteAddr() string                  { return "127.0.0.1:12345" }

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func registerTestClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := NewClientWithConnection(hub, &fakeConnection{}, nil)
	hub.Register(client)

	require.Eventually(t, func() bool {
		return hub.ClientCount() >= 1
	}, time.Second, 5*time.Millisecond)
	return client
}

func waitForMessage(t *testing.T, client *Client, msgType string) map[string]any {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case raw := <-client.send:
			var msg map[string]any
			require.NoError(t, json.Unmarshal(raw, &msg))
			if msg["type"] == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %q message received", msgType)
		}
	}
}

func TestHubRegistersClient(t *testing.T) {
	hub := newRunningHub(t)
	client := registerTestClient(t, hub)

	msg := waitForMessage(t, client, string(events.MessageTypeConnection))
	data, ok := msg["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connected", data["status"])
	assert.Equal(t, client.id, data["client_id"])
}

func TestHubPublishValidationFansOut(t *testing.T) {
	hub := newRunningHub(t)

	first := registerTestClient(t, hub)
	second := NewClientWithConnection(hub, &fakeConnection{}, nil)
	hub.Register(second)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, time.Second, 5*time.Millisecond)

	hub.PublishValidation(domain.ValidationLog{
		ID:         "log-1",
		Event:      domain.EventValidation,
		LicenseKey: "LIC-TEST",
		Identity:   "111222333",
		Outcome:    domain.OutcomeFailure,
		Reason:     domain.ReasonExpired,
	})

	for _, client := range []*Client{first, second} {
		msg := waitForMessage(t, client, string(events.MessageTypeValidation))
		data, ok := msg["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "LIC-TEST", data["licenseKey"])
		assert.Equal(t, string(domain.ReasonExpired), data["reason"])
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := newRunningHub(t)
	client := registerTestClient(t, hub)

	hub.unregister <- client
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)

	// Drain remaining messages until the channel is closed.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

// blockingConnection keeps ReadMessage pending until released, so a real
// read pump can be driven across a hub shutdown.
type blockingConnection struct {
	fakeConnection
	release chan struct{}
	once    sync.Once
}

func newBlockingConnection() *blockingConnection {
	return &blockingConnection{release: make(chan struct{})}
}

func (b *blockingConnection) ReadMessage() (int, []byte, error) {
	<-b.release
	return 0, nil, errors.New("connection closed")
}

func (b *blockingConnection) unblock() {
	b.once.Do(func() { close(b.release) })
}

func TestHubStopTearsDownClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()

	conn := newBlockingConnection()
	client := NewClientWithConnection(hub, conn, nil)
	hub.Register(client)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	pumpDone := make(chan struct{})
	go func() {
		client.ReadPump()
		close(pumpDone)
	}()

	hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())

	// The run loop closed the send channel before Stop returned.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing after shutdown must not reach a closed channel.
	assert.NotPanics(t, func() {
		hub.PublishValidation(domain.ValidationLog{ID: "log-after-stop"})
	})

	// A read pump ending after shutdown unregisters without blocking.
	conn.unblock()
	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		t.Fatal("read pump did not exit after shutdown")
	}
}

func TestHubStopIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	hub.Stop()
	hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubMetrics(t *testing.T) {
	hub := newRunningHub(t)
	registerTestClient(t, hub)

	metrics := hub.GetHubMetrics()
	assert.Equal(t, 1, metrics["active_clients"])
	assert.EqualValues(t, 1, metrics["total_connections"])
}
