package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/service"
)

// Dispatcher routes inbound connection events to the timer lifecycle and
// room membership services, then pushes the resulting state change to the
// room so observers never wait for the next broadcast tick.
type Dispatcher struct {
	timers *service.TimerService
	rooms  *service.RoomService
	hub    *Hub
}

func NewDispatcher(timers *service.TimerService, rooms *service.RoomService, hub *Hub) *Dispatcher {
	return &Dispatcher{
		timers: timers,
		rooms:  rooms,
		hub:    hub,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, conn *Connection, msg Message) {
	// Commands without an authenticated user are dropped, never surfaced.
	if conn.UserID == 0 {
		return
	}

	var cmd CommandPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			log.Debug().Err(err).Str("event", string(msg.Type)).Msg("malformed command payload")
			return
		}
	}
	if cmd.RoomID == 0 {
		log.Debug().Str("event", string(msg.Type)).Msg("command missing room id")
		return
	}

	switch msg.Type {
	case EventJoin:
		d.handleJoin(ctx, conn, cmd.RoomID)
	case EventStartTimer:
		d.handleStart(ctx, conn, cmd.RoomID)
	case EventPauseTimer:
		d.handlePause(ctx, conn, cmd.RoomID)
	case EventStopTimer:
		d.handleStop(ctx, conn, cmd.RoomID)
	case EventResetTimer:
		d.handleReset(ctx, conn, cmd.RoomID)
	case EventLeaveRoom:
		d.handleLeave(ctx, conn, cmd.RoomID)
	default:
		log.Debug().Str("event", string(msg.Type)).Msg("unknown event type")
	}
}

func (d *Dispatcher) handleJoin(ctx context.Context, conn *Connection, roomID int64) {
	d.hub.Subscribe(conn, roomID)

	members, err := d.timers.RoomSnapshot(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to build join snapshot")
		d.sendError(conn, "Failed to load studying members")
		return
	}

	msg, err := newMessage(EventUpdateMembers, MembersPayload{RoomID: roomID, Members: members})
	if err != nil {
		return
	}
	d.hub.SendTo(conn, msg)
}

func (d *Dispatcher) handleStart(ctx context.Context, conn *Connection, roomID int64) {
	if err := d.timers.Start(ctx, conn.UserID, roomID); err != nil {
		log.Error().Err(err).Int64("userId", conn.UserID).Int64("roomId", roomID).Msg("start timer failed")
		d.sendError(conn, "Failed to start timer")
		return
	}
	d.broadcastMembers(ctx, roomID)
}

func (d *Dispatcher) handlePause(ctx context.Context, conn *Connection, roomID int64) {
	if err := d.timers.Pause(ctx, conn.UserID, roomID); err != nil {
		log.Error().Err(err).Int64("userId", conn.UserID).Int64("roomId", roomID).Msg("pause timer failed")
		d.sendError(conn, "Failed to pause timer")
		return
	}
	d.broadcastMembers(ctx, roomID)
}

func (d *Dispatcher) handleStop(ctx context.Context, conn *Connection, roomID int64) {
	if err := d.timers.Stop(ctx, conn.UserID, roomID); err != nil {
		log.Error().Err(err).Int64("userId", conn.UserID).Int64("roomId", roomID).Msg("stop timer failed")
		d.sendError(conn, "Failed to stop timer")
		return
	}
	if err := d.hub.BroadcastRemoval(ctx, roomID, conn.UserID); err != nil {
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to broadcast member removal")
	}
}

func (d *Dispatcher) handleReset(ctx context.Context, conn *Connection, roomID int64) {
	err := d.timers.Reset(ctx, conn.UserID, roomID)
	if err != nil {
		log.Error().Err(err).Int64("userId", conn.UserID).Int64("roomId", roomID).Msg("reset timer failed")
		d.sendError(conn, "Failed to reset timer")
	}

	// Reset guarantees the live view drops the user, store trouble or not.
	if err := d.hub.BroadcastRemoval(ctx, roomID, conn.UserID); err != nil {
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to broadcast member removal")
	}
}

func (d *Dispatcher) handleLeave(ctx context.Context, conn *Connection, roomID int64) {
	// Leaving drops membership and the subscription. A running timer keeps
	// going until the user explicitly stops or resets it.
	if err := d.rooms.Leave(ctx, conn.UserID, roomID); err != nil {
		log.Error().Err(err).Int64("userId", conn.UserID).Int64("roomId", roomID).Msg("leave room failed")
		d.sendError(conn, "Failed to leave room")
		return
	}

	if err := d.hub.BroadcastRemoval(ctx, roomID, conn.UserID); err != nil {
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to broadcast member removal")
	}
	d.hub.Unsubscribe(conn, roomID)
}

func (d *Dispatcher) broadcastMembers(ctx context.Context, roomID int64) {
	members, err := d.timers.LiveMembers(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to snapshot studying members")
		return
	}
	if err := d.hub.BroadcastMembers(ctx, roomID, members); err != nil {
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to broadcast studying members")
	}
}

func (d *Dispatcher) sendError(conn *Connection, message string) {
	msg, err := newMessage(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	d.hub.SendTo(conn, msg)
}
