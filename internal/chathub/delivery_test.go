package chathub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fadechat/backend/internal/chathub"
	"fadechat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// chatPair wires two clients into a hub and a shared chat.
func chatPair(hub *chathub.Hub, chatID int) (a, b *MockClient) {
	a = newMockClient("conn_A", "user_A")
	b = newMockClient("conn_B", "user_B")
	for _, c := range []*MockClient{a, b} {
		hub.Dispatcher.Register(c)
		hub.Presence.Join(c.GetConnectionID(), c.GetUserID())
		hub.Groups.JoinGroup(c.GetConnectionID(), chatID)
	}
	return a, b
}

func TestSendMessageFanoutAndPersist(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	clientA, clientB := chatPair(hub, 7)

	storageMock.On("StagePending", mock.Anything, mock.AnythingOfType("*models.ChatMessage")).Return(nil)
	storageMock.On("GetPending", mock.Anything, "g1").Return(nil, nil)
	storageMock.On("SaveMessage", mock.Anything, mock.MatchedBy(func(m *models.ChatMessage) bool {
		return m.Guid == "g1" && m.Body == "hi" && m.SenderID == "user_A" && m.State == models.StateSent
	})).Return(nil).Once()
	storageMock.On("UpdateChatSummary", mock.Anything, 7, "user_A", "hi").Return(nil).Once()
	storageMock.On("EvictPending", mock.Anything, "g1").Return(nil).Once()

	err := hub.Delivery.SendMessage(context.Background(), "conn_A", models.ChatMessage{
		Guid: "g1", ChatID: 7, Body: "hi",
	})
	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond) // let the persistence goroutine finish

	events := clientB.drainEvents()
	if assert.Len(t, events, 1) {
		assert.Equal(t, models.EventReceiveMessage, events[0].Event)
		msg := events[0].Data.(models.ChatMessage)
		assert.Equal(t, "g1", msg.Guid)
		assert.Equal(t, models.StateSent, msg.State)
	}
	assert.Empty(t, clientA.drainEvents(), "sender must not receive its own message")
	storageMock.AssertExpectations(t)
}

func TestSendMessageUnauthenticatedSilentlyDropped(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)

	anon := newMockClient("conn_anon", "")
	hub.Dispatcher.Register(anon)
	hub.Groups.JoinGroup("conn_anon", 7)
	peer := newMockClient("conn_B", "user_B")
	hub.Dispatcher.Register(peer)
	hub.Presence.Join("conn_B", "user_B")
	hub.Groups.JoinGroup("conn_B", 7)

	err := hub.Delivery.SendMessage(context.Background(), "conn_anon", models.ChatMessage{
		Guid: "g1", ChatID: 7, Body: "hi",
	})

	assert.NoError(t, err, "missing identity is a silent no-op, not an error")
	assert.Empty(t, peer.drainEvents())
	storageMock.AssertNotCalled(t, "StagePending", mock.Anything, mock.Anything)
}

func TestSendMessageEmptyBodyRejected(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	_, clientB := chatPair(hub, 7)

	err := hub.Delivery.SendMessage(context.Background(), "conn_A", models.ChatMessage{
		Guid: "g1", ChatID: 7, Body: "   ",
	})

	assert.NoError(t, err)
	assert.Empty(t, clientB.drainEvents())
	storageMock.AssertNotCalled(t, "StagePending", mock.Anything, mock.Anything)
}

// TestSendMessagePersistFailureKeepsCache: a failed durable write must leave
// the staged entry in place for reconciliation, flagged as errored.
func TestSendMessagePersistFailureKeepsCache(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	chatPair(hub, 7)

	storageMock.On("StagePending", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("GetPending", mock.Anything, "g1").Return(nil, nil)
	storageMock.On("SaveMessage", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := hub.Delivery.SendMessage(context.Background(), "conn_A", models.ChatMessage{
		Guid: "g1", ChatID: 7, Body: "hi",
	})
	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	storageMock.AssertNotCalled(t, "EvictPending", mock.Anything, mock.Anything)
	storageMock.AssertNotCalled(t, "UpdateChatSummary", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	storageMock.AssertCalled(t, "StagePending", mock.Anything, mock.MatchedBy(func(m *models.ChatMessage) bool {
		return m.Guid == "g1" && m.State == models.StateError
	}))
}

func TestMarkReceivedIdempotent(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	clientA, _ := chatPair(hub, 7)

	stored := &models.ChatMessage{Guid: "g1", ChatID: 7, SenderID: "user_A", Body: "hi", State: models.StateSent}
	storageMock.On("GetPending", mock.Anything, "g1").Return(nil, nil)
	storageMock.On("FindMessageByGuid", mock.Anything, "g1").Return(stored, nil)
	storageMock.On("UpdateMessageState", mock.Anything, "g1", models.StateReceived).Return(nil)

	err := hub.Delivery.MarkReceived(context.Background(), "conn_B", 7, "g1")
	assert.NoError(t, err)
	err = hub.Delivery.MarkReceived(context.Background(), "conn_B", 7, "g1")
	assert.NoError(t, err)

	// One durable state write, but the confirmation is re-emitted both times
	// so a reconnecting sender can catch up.
	storageMock.AssertNumberOfCalls(t, "UpdateMessageState", 1)
	events := clientA.drainEvents()
	if assert.Len(t, events, 2) {
		for _, ev := range events {
			assert.Equal(t, models.EventMessageReceived, ev.Event)
			assert.Equal(t, models.StateReceived, ev.Data.(models.ChatMessage).State)
		}
	}
}

// TestMarkReceivedNeverRegresses: a Read message stays Read.
func TestMarkReceivedNeverRegresses(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	clientA, _ := chatPair(hub, 7)

	stored := &models.ChatMessage{Guid: "g1", ChatID: 7, SenderID: "user_A", Body: "hi", State: models.StateRead}
	storageMock.On("GetPending", mock.Anything, "g1").Return(nil, nil)
	storageMock.On("FindMessageByGuid", mock.Anything, "g1").Return(stored, nil)

	err := hub.Delivery.MarkReceived(context.Background(), "conn_B", 7, "g1")
	assert.NoError(t, err)

	storageMock.AssertNotCalled(t, "UpdateMessageState", mock.Anything, mock.Anything, mock.Anything)
	events := clientA.drainEvents()
	if assert.Len(t, events, 1) {
		assert.Equal(t, models.StateRead, events[0].Data.(models.ChatMessage).State)
	}
}

func TestMarkUnknownGuidSilentNoop(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	clientA, _ := chatPair(hub, 7)

	storageMock.On("GetPending", mock.Anything, "ghost").Return(nil, nil)
	storageMock.On("FindMessageByGuid", mock.Anything, "ghost").Return(nil, nil)

	err := hub.Delivery.MarkRead(context.Background(), "conn_B", 7, "ghost")

	assert.NoError(t, err, "unknown guid is tolerated, not surfaced")
	assert.Empty(t, clientA.drainEvents())
	storageMock.AssertNotCalled(t, "UpdateMessageState", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkUnauthenticatedSilentNoop(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)

	anon := newMockClient("conn_anon", "")
	hub.Dispatcher.Register(anon)
	hub.Groups.JoinGroup("conn_anon", 7)

	err := hub.Delivery.MarkReceived(context.Background(), "conn_anon", 7, "g1")

	assert.NoError(t, err)
	storageMock.AssertNotCalled(t, "GetPending", mock.Anything, mock.Anything)
}

// TestMarkResolvesFromPendingCache: a guid not yet persisted is resolved from
// the staged entry, and the staged copy is advanced in place.
func TestMarkResolvesFromPendingCache(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	clientA, _ := chatPair(hub, 7)

	staged := &models.ChatMessage{Guid: "g1", ChatID: 7, SenderID: "user_A", Body: "hi", State: models.StateSent}
	storageMock.On("GetPending", mock.Anything, "g1").Return(staged, nil)
	storageMock.On("UpdateMessageState", mock.Anything, "g1", models.StateReceived).Return(nil).Once()
	storageMock.On("StagePending", mock.Anything, mock.MatchedBy(func(m *models.ChatMessage) bool {
		return m.Guid == "g1" && m.State == models.StateReceived
	})).Return(nil).Once()

	err := hub.Delivery.MarkReceived(context.Background(), "conn_B", 7, "g1")

	assert.NoError(t, err)
	storageMock.AssertNotCalled(t, "FindMessageByGuid", mock.Anything, mock.Anything)
	storageMock.AssertExpectations(t)
	assert.Len(t, clientA.drainEvents(), 1)
}

// TestMarkDuringPersistReachesDurableStore: a MarkRead landing while the
// durable write is still in flight hits zero rows and advances only the
// staged copy. The persist goroutine must catch the row up from the staged
// state before evicting, so the store never ends behind a committed,
// fanned-out confirmation.
func TestMarkDuringPersistReachesDurableStore(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	clientA, clientB := chatPair(hub, 7)

	shared := &models.ChatMessage{Guid: "g1", ChatID: 7, SenderID: "user_A", Body: "hi", State: models.StateSent}
	saveEntered := make(chan struct{})
	releaseSave := make(chan struct{})

	storageMock.On("StagePending", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("GetPending", mock.Anything, "g1").Return(shared, nil)
	storageMock.On("SaveMessage", mock.Anything, mock.MatchedBy(func(m *models.ChatMessage) bool {
		return m.Guid == "g1" && m.State == models.StateSent
	})).Run(func(mock.Arguments) {
		close(saveEntered)
		<-releaseSave
	}).Return(nil).Once()
	storageMock.On("UpdateChatSummary", mock.Anything, 7, "user_A", "hi").Return(nil).Once()
	storageMock.On("UpdateMessageState", mock.Anything, "g1", models.StateRead).Return(nil).Twice()
	storageMock.On("RecountUnread", mock.Anything, 7, "user_B").Return(nil).Once()
	storageMock.On("EvictPending", mock.Anything, "g1").Return(nil).Once()

	err := hub.Delivery.SendMessage(context.Background(), "conn_A", models.ChatMessage{
		Guid: "g1", ChatID: 7, Body: "hi",
	})
	assert.NoError(t, err)

	select {
	case <-saveEntered:
	case <-timeout(t):
		t.Fatal("persist goroutine never reached the durable write")
	}

	// The mark completes, with its confirmation fanned out, while the initial
	// write is still blocked on the database.
	assert.NoError(t, hub.Delivery.MarkRead(context.Background(), "conn_B", 7, "g1"))
	close(releaseSave)
	hub.Delivery.Wait()

	// One state write from the mark (zero rows at that point), one catch-up
	// write after the row exists; only then is the entry evicted.
	storageMock.AssertExpectations(t)
	assert.Len(t, clientB.drainEvents(), 1)
	confirmations := clientA.drainEvents()
	if assert.Len(t, confirmations, 1) {
		assert.Equal(t, models.EventMessageRead, confirmations[0].Event)
		assert.Equal(t, models.StateRead, confirmations[0].Data.(models.ChatMessage).State)
	}
}

// TestDeliveryLifecycle walks the full Sent -> Received -> Read exchange
// between two members of chat 7 and checks ordering at the sender.
func TestDeliveryLifecycle(t *testing.T) {
	storageMock := new(MockStorage)
	hub := createTestHub(storageMock)
	clientA, clientB := chatPair(hub, 7)

	stored := &models.ChatMessage{Guid: "g1", ChatID: 7, SenderID: "user_A", Body: "hi", State: models.StateSent}

	storageMock.On("StagePending", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("GetPending", mock.Anything, "g1").Return(nil, nil)
	storageMock.On("SaveMessage", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("UpdateChatSummary", mock.Anything, 7, "user_A", "hi").Return(nil)
	storageMock.On("EvictPending", mock.Anything, "g1").Return(nil)
	storageMock.On("FindMessageByGuid", mock.Anything, "g1").Return(stored, nil)
	storageMock.On("UpdateMessageState", mock.Anything, "g1", models.StateReceived).Return(nil).Once()
	storageMock.On("UpdateMessageState", mock.Anything, "g1", models.StateRead).Return(nil).Once()
	storageMock.On("RecountUnread", mock.Anything, 7, "user_B").Return(nil).Once()

	err := hub.Delivery.SendMessage(context.Background(), "conn_A", models.ChatMessage{
		Guid: "g1", ChatID: 7, Body: "hi",
	})
	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	received := clientB.drainEvents()
	if assert.Len(t, received, 1) {
		assert.Equal(t, models.EventReceiveMessage, received[0].Event)
		assert.Equal(t, "g1", received[0].Data.(models.ChatMessage).Guid)
	}

	assert.NoError(t, hub.Delivery.MarkReceived(context.Background(), "conn_B", 7, "g1"))
	assert.NoError(t, hub.Delivery.MarkRead(context.Background(), "conn_B", 7, "g1"))

	confirmations := clientA.drainEvents()
	if assert.Len(t, confirmations, 2) {
		assert.Equal(t, models.EventMessageReceived, confirmations[0].Event)
		assert.Equal(t, models.StateReceived, confirmations[0].Data.(models.ChatMessage).State)
		assert.Equal(t, models.EventMessageRead, confirmations[1].Event)
		assert.Equal(t, models.StateRead, confirmations[1].Data.(models.ChatMessage).State)
	}
	assert.Equal(t, models.StateRead, stored.State, "durable store ends at Read")
	storageMock.AssertExpectations(t)
}
