package orch

import (
	"context"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) register(ctx context.Context, conn domain.ConnID, c *event.RegisterCommand) error {
	res, err := o.Directory.Register(c.UID, c.DisplayName, conn)
	if err != nil {
		return err
	}
	user := res.User

	if res.Created || c.DisplayName != "" {
		o.persist("save user", o.Gateway.SaveUser(ctx, user))
	} else {
		o.persist("update user status", o.Gateway.UpdateUserStatus(ctx, user.UID, user.Status, user.Timestamp))
	}

	if res.PrevConn != "" {
		o.unsubscribe(res.PrevConn, user.UID)
	}
	if ev := res.Evicted; ev != nil {
		o.unsubscribe(conn, ev.UID)
		o.persist("update user status", o.Gateway.UpdateUserStatus(ctx, ev.UID, ev.Status, ev.Timestamp))
		o.Transport.BroadcastExcept(conn, core.Event{Type: event.UserUpdated, Data: *ev})
	}
	o.subscribe(conn, user.UID)

	o.send(conn, event.UsersList, o.Directory.List())
	o.send(conn, event.RoomsList, o.Rooms.List())
	o.send(conn, event.QuizzesList, o.Quizzes.List())

	name := event.UserUpdated
	if res.Created {
		name = event.UserJoined
	}
	o.Transport.BroadcastExcept(conn, core.Event{Type: name, Data: user})

	log.Info().Str("module", "orch").Str("uid", string(user.UID)).Str("conn", string(conn)).Msg("register")
	return nil
}

// subscribe puts conn back into the groups uid belongs to, so a reconnect
// keeps receiving room and quiz traffic.
func (o *Orchestrator) subscribe(conn domain.ConnID, uid domain.UserID) {
	for _, id := range o.Rooms.RoomsOf(uid) {
		o.Transport.JoinGroup(conn, core.RoomGroup(id))
	}
	for _, id := range o.Quizzes.ActiveOf(uid) {
		o.Transport.JoinGroup(conn, core.QuizGroup(id))
	}
}

func (o *Orchestrator) unsubscribe(conn domain.ConnID, uid domain.UserID) {
	for _, id := range o.Rooms.RoomsOf(uid) {
		o.Transport.LeaveGroup(conn, core.RoomGroup(id))
	}
	for _, id := range o.Quizzes.ActiveOf(uid) {
		o.Transport.LeaveGroup(conn, core.QuizGroup(id))
	}
}

func (o *Orchestrator) whoAmI(conn domain.ConnID) error {
	user, ok := o.Directory.ByConn(conn)
	if !ok {
		return domain.ErrNotRegistered
	}
	o.send(conn, event.WhoAmIReply, whoAmIPayload{
		User:    user,
		Rooms:   o.Rooms.RoomsOf(user.UID),
		Quizzes: o.Quizzes.ActiveOf(user.UID),
	})
	return nil
}
