package chathub_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"fadechat/backend/internal/chathub"
	"fadechat/backend/internal/models"
)

type MockClient struct {
	connID      string
	userID      string
	RecvChannel chan models.Event
}

func newMockClient(connID, userID string) *MockClient {
	return &MockClient{
		connID:      connID,
		userID:      userID,
		RecvChannel: make(chan models.Event, 16),
	}
}

func (c *MockClient) GetConnectionID() string { return c.connID }

func (c *MockClient) GetUserID() string { return c.userID }

func (c *MockClient) GetSendChannel() chan<- models.Event { return c.RecvChannel }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	// Not needed for testing
}

// drainEvents empties the client's receive buffer.
func (c *MockClient) drainEvents() []models.Event {
	var events []models.Event
	for {
		select {
		case ev := <-c.RecvChannel:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func timeout(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(time.Second)
}

// Helper to create a hub backed by the given mock, with logging discarded.
func createTestHub(storage *MockStorage) *chathub.Hub {
	return chathub.NewHub(storage, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
