package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) broadcastRooms() {
	o.Transport.BroadcastAll(core.Event{Type: event.RoomsList, Data: o.Rooms.List()})
}

func (o *Orchestrator) createRoom(ctx context.Context, conn domain.ConnID, c *event.CreateRoomCommand) error {
	room, err := o.Rooms.Create(c.Name, c.Description, c.UID)
	if err != nil {
		return err
	}
	o.persist("save room", o.Gateway.SaveRoom(ctx, room))

	o.Transport.JoinGroup(conn, core.RoomGroup(room.ID))
	if s, ok := o.Rooms.Summary(room.ID); ok {
		o.Transport.BroadcastAll(core.Event{Type: event.RoomCreated, Data: roomCreatedPayload{
			Room:    s,
			Message: fmt.Sprintf("Room %s created successfully!", room.Name),
		}})
	}
	o.broadcastRooms()
	return nil
}

func (o *Orchestrator) joinRoom(ctx context.Context, conn domain.ConnID, c *event.JoinRoomCommand) error {
	room, err := o.Rooms.Join(c.RoomID, c.UID)
	if err != nil {
		return err
	}
	o.persist("save room", o.Gateway.SaveRoom(ctx, room))

	group := core.RoomGroup(room.ID)
	o.Transport.JoinGroup(conn, group)
	o.Transport.SendGroup(group, core.Event{Type: event.RoomJoined, Data: roomMemberPayload{
		RoomID: room.ID,
		UID:    c.UID,
		Users:  room.MemberIDs(),
	}})
	o.send(conn, event.RoomMessages, roomMessagesPayload{RoomID: room.ID, Messages: room.Messages})
	o.broadcastRooms()
	return nil
}

func (o *Orchestrator) leaveRoom(ctx context.Context, conn domain.ConnID, c *event.LeaveRoomCommand) error {
	room, err := o.Rooms.Leave(c.RoomID, c.UID)
	if err != nil {
		return err
	}
	o.persist("save room", o.Gateway.SaveRoom(ctx, room))

	group := core.RoomGroup(room.ID)
	o.Transport.SendGroup(group, core.Event{Type: event.RoomLeft, Data: roomMemberPayload{
		RoomID: room.ID,
		UID:    c.UID,
		Users:  room.MemberIDs(),
	}})
	o.Transport.LeaveGroup(conn, group)
	o.broadcastRooms()
	return nil
}

func (o *Orchestrator) closeRoom(ctx context.Context, c *event.CloseRoomCommand) error {
	room, err := o.Rooms.Close(c.RoomID, c.UID)
	if err != nil {
		return err
	}
	if dropped := o.Messages.DiscardRoom(room.ID); len(dropped) > 0 {
		o.files.forget(dropped)
		log.Info().Str("module", "orch").Str("room_id", string(room.ID)).Int("transfers", len(dropped)).Msg("discarded transfers of closed room")
	}
	o.persist("delete room", o.Gateway.DeleteRoom(ctx, room.ID))

	group := core.RoomGroup(room.ID)
	o.Transport.SendGroup(group, core.Event{Type: event.RoomClosed, Data: roomClosedPayload{RoomID: room.ID}})
	o.Transport.DropGroup(group)
	o.broadcastRooms()
	return nil
}

// sendMessage fans the message out to the room. A sender outside the room
// is not in its group and gets its copy directly.
func (o *Orchestrator) sendMessage(ctx context.Context, conn domain.ConnID, c *event.SendMessageCommand) error {
	msg, err := o.Messages.Append(c.RoomID, c.UID, c.Message)
	if err != nil {
		return err
	}
	o.persist("save message", o.Gateway.SaveMessage(ctx, msg))

	ev := core.Event{Type: event.NewMessage, Data: newMessagePayload{
		RoomID:  c.RoomID,
		Message: msg,
	}}
	o.Transport.SendGroup(core.RoomGroup(c.RoomID), ev)
	if !o.Rooms.IsMember(c.RoomID, c.UID) {
		o.Transport.Send(conn, ev)
	}
	return nil
}

func (o *Orchestrator) getMessages(conn domain.ConnID, c *event.GetMessagesCommand) error {
	msgs, err := o.Rooms.History(c.RoomID)
	if err != nil {
		return err
	}
	o.send(conn, event.RoomMessages, roomMessagesPayload{RoomID: c.RoomID, Messages: msgs})
	return nil
}
