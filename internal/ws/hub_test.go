package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhive/studyroom-server/internal/service"
)

// Hub tests run without redis: events are delivered locally.

func receive(t *testing.T, conn *Connection) Message {
	t.Helper()
	select {
	case data := <-conn.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatal("no message queued on connection")
		return Message{}
	}
}

func TestHub_PublishReachesRoomSubscribers(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	alice := hub.NewConnection(1)
	ben := hub.NewConnection(2)
	outsider := hub.NewConnection(3)

	hub.Subscribe(alice, 9)
	hub.Subscribe(ben, 9)
	hub.Subscribe(outsider, 12)

	err := hub.BroadcastMembers(context.Background(), 9, []service.StudyingMember{
		{UserID: 1, Username: "ana", ElapsedSeconds: 5},
	})
	require.NoError(t, err)

	for _, conn := range []*Connection{alice, ben} {
		msg := receive(t, conn)
		assert.Equal(t, EventUpdateMembers, msg.Type)

		var payload MembersPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, int64(9), payload.RoomID)
		require.Len(t, payload.Members, 1)
		assert.Equal(t, int64(5), payload.Members[0].ElapsedSeconds)
	}

	assert.Empty(t, outsider.send)
}

func TestHub_BroadcastRemoval(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := hub.NewConnection(1)
	hub.Subscribe(conn, 9)

	require.NoError(t, hub.BroadcastRemoval(context.Background(), 9, 2))

	msg := receive(t, conn)
	assert.Equal(t, EventRemoveMember, msg.Type)

	var payload RemovePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, int64(9), payload.RoomID)
	assert.Equal(t, int64(2), payload.UserID)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := hub.NewConnection(1)
	hub.Subscribe(conn, 9)
	hub.Unsubscribe(conn, 9)

	require.NoError(t, hub.BroadcastMembers(context.Background(), 9, nil))
	assert.Empty(t, conn.send)
	assert.Equal(t, 0, hub.SubscriberCount(9))
}

func TestHub_DisconnectDropsAllRoomsAndClosesSend(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := hub.NewConnection(1)
	hub.Subscribe(conn, 9)
	hub.Subscribe(conn, 12)

	hub.Disconnect(conn)

	assert.Equal(t, 0, hub.SubscriberCount(9))
	assert.Equal(t, 0, hub.SubscriberCount(12))

	_, open := <-conn.send
	assert.False(t, open)

	// A second disconnect must not panic on the closed channel.
	hub.Disconnect(conn)
}

func TestHub_SlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := hub.NewConnection(1)
	hub.Subscribe(conn, 9)

	for i := 0; i < sendBufferSize+10; i++ {
		require.NoError(t, hub.BroadcastRemoval(context.Background(), 9, int64(i)))
	}

	assert.Len(t, conn.send, sendBufferSize)
}

func TestHub_SendToSingleConnection(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	alice := hub.NewConnection(1)
	ben := hub.NewConnection(2)
	hub.Subscribe(alice, 9)
	hub.Subscribe(ben, 9)

	msg, err := newMessage(EventError, ErrorPayload{Message: "nope"})
	require.NoError(t, err)
	hub.SendTo(alice, msg)

	got := receive(t, alice)
	assert.Equal(t, EventError, got.Type)
	assert.Empty(t, ben.send)
}

func TestHub_CloseClosesEveryConnectionOnce(t *testing.T) {
	hub := NewHub(nil)

	conn := hub.NewConnection(1)
	hub.Subscribe(conn, 9)
	hub.Subscribe(conn, 12)

	hub.Close()

	_, open := <-conn.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount(9))
}
