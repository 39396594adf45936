package app

import (
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

func newRooms(t *testing.T) (*Directory, *RoomRegistry, *testClock) {
	t.Helper()
	clock := newTestClock()
	d := NewDirectory(clock.Now)
	return d, NewRoomRegistry(d, clock.Now), clock
}

func TestRoomRegistry_Create(t *testing.T) {
	t.Run("should fill defaults and make the host a member", func(t *testing.T) {
		req := require.New(t)
		d, rooms, clock := newRooms(t)
		register(d, "alice", "c1")

		room, err := rooms.Create("", "", "alice")

		req.NoError(err)
		req.NotEmpty(room.ID)
		req.Equal("Room "+string(room.ID), room.Name)
		req.Equal(defaultRoomDescription, room.Description)
		req.Equal(domain.RoomAvatarURL(room.Name), room.PhotoURL)
		req.Equal(domain.UserID("alice"), room.Host)
		req.True(room.HasMember("alice"))
		req.Equal(clock.Now(), room.CreatedAt)
		req.Nil(room.LastMessage)
	})

	t.Run("should reject an unknown host", func(t *testing.T) {
		_, rooms, _ := newRooms(t)
		_, err := rooms.Create("general", "", "ghost")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestRoomRegistry_Membership(t *testing.T) {
	t.Run("should make join idempotent", func(t *testing.T) {
		req := require.New(t)
		d, rooms, clock := newRooms(t)
		register(d, "alice", "c1")
		register(d, "bob", "c2")
		room, err := rooms.Create("general", "chat", "alice")
		req.NoError(err)

		// When
		first, err := rooms.Join(room.ID, "bob")
		req.NoError(err)
		clock.Advance(time.Minute)
		second, err := rooms.Join(room.ID, "bob")
		req.NoError(err)

		// Then
		req.Len(second.Members, 2)
		req.Equal(first.Members["bob"].JoinedAt, second.Members["bob"].JoinedAt)
		req.Equal(clock.Now(), second.Members["bob"].LastActiveAt)
		req.Equal(first.LastModified, second.LastModified)
		req.Equal([]domain.UserID{"alice", "bob"}, second.MemberIDs())
	})

	t.Run("should refuse to join while the host is offline", func(t *testing.T) {
		req := require.New(t)
		d, rooms, _ := newRooms(t)
		register(d, "alice", "c1")
		register(d, "bob", "c2")
		room, err := rooms.Create("general", "", "alice")
		req.NoError(err)
		d.MarkOffline("c1")

		_, err = rooms.Join(room.ID, "bob")
		req.ErrorIs(err, domain.ErrHostOffline)

		// the host itself can always come back
		_, err = rooms.Join(room.ID, "alice")
		req.NoError(err)
	})

	t.Run("should report missing rooms and users", func(t *testing.T) {
		req := require.New(t)
		d, rooms, _ := newRooms(t)
		register(d, "alice", "c1")
		room, err := rooms.Create("general", "", "alice")
		req.NoError(err)

		_, err = rooms.Join("nope", "alice")
		req.ErrorIs(err, domain.ErrRoomNotFound)
		_, err = rooms.Join(room.ID, "ghost")
		req.ErrorIs(err, domain.ErrUserNotFound)
	})

	t.Run("should only let members leave", func(t *testing.T) {
		req := require.New(t)
		d, rooms, _ := newRooms(t)
		register(d, "alice", "c1")
		register(d, "bob", "c2")
		room, err := rooms.Create("general", "", "alice")
		req.NoError(err)

		_, err = rooms.Leave(room.ID, "bob")
		req.ErrorIs(err, domain.ErrNotMember)

		_, err = rooms.Join(room.ID, "bob")
		req.NoError(err)
		left, err := rooms.Leave(room.ID, "bob")
		req.NoError(err)
		req.False(left.HasMember("bob"))
		req.Equal([]domain.RoomID{room.ID}, rooms.RoomsOf("alice"))
		req.Empty(rooms.RoomsOf("bob"))
	})
}

func TestRoomRegistry_Close(t *testing.T) {
	req := require.New(t)
	d, rooms, _ := newRooms(t)
	register(d, "alice", "c1")
	register(d, "bob", "c2")
	room, err := rooms.Create("general", "", "alice")
	req.NoError(err)
	_, err = rooms.Join(room.ID, "bob")
	req.NoError(err)

	// When a member who is not the host tries to close
	_, err = rooms.Close(room.ID, "bob")

	// Then
	req.ErrorIs(err, domain.ErrNotHost)
	req.ErrorIs(err, domain.ErrForbidden)
	_, ok := rooms.Get(room.ID)
	req.True(ok)

	// When the host closes
	closed, err := rooms.Close(room.ID, "alice")

	// Then the room is gone for everybody
	req.NoError(err)
	req.Len(closed.Members, 2)
	_, ok = rooms.Get(room.ID)
	req.False(ok)
	_, err = rooms.Join(room.ID, "bob")
	req.ErrorIs(err, domain.ErrRoomNotFound)
	_, err = rooms.History(room.ID)
	req.ErrorIs(err, domain.ErrRoomNotFound)
	_, err = rooms.Close(room.ID, "alice")
	req.ErrorIs(err, domain.ErrRoomNotFound)
	req.Empty(rooms.List())
}

func TestRoomRegistry_MessagesAndSummary(t *testing.T) {
	req := require.New(t)
	d, rooms, clock := newRooms(t)
	register(d, "alice", "c1")
	room, err := rooms.Create("general", "", "alice")
	req.NoError(err)

	var seq domain.MessageID
	next := func() domain.MessageID { seq++; return seq }

	// When
	for _, body := range []string{"one", "two"} {
		clock.Advance(time.Second)
		_, err := rooms.AppendMessage(room.ID, domain.Message{
			Type: domain.MessageText, Sender: "alice", Message: body, Timestamp: clock.Now(),
		}, next)
		req.NoError(err)
	}

	// Then
	history, err := rooms.History(room.ID)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal(domain.MessageID(1), history[0].ID)
	req.Equal("two", history[1].Message)
	req.Equal(room.ID, history[1].RoomID)

	summary, ok := rooms.Summary(room.ID)
	req.True(ok)
	req.Equal(2, summary.MessageCount)
	req.NotNil(summary.LastMessage)
	req.Equal("two", summary.LastMessage.Message)
	req.Equal(clock.Now(), summary.LastModified)
	req.Equal([]domain.UserID{"alice"}, summary.Users)

	// When the last message is updated in place
	updated, err := rooms.UpdateMessage(room.ID, 2, func(m *domain.Message) { m.Message = "edited" })
	req.NoError(err)
	req.Equal("edited", updated.Message)
	summary, _ = rooms.Summary(room.ID)
	req.Equal("edited", summary.LastMessage.Message)

	_, err = rooms.UpdateMessage(room.ID, 99, func(*domain.Message) {})
	req.ErrorIs(err, domain.ErrTransferNotFound)
	_, err = rooms.AppendMessage("nope", domain.Message{}, next)
	req.ErrorIs(err, domain.ErrRoomNotFound)
}

func TestRoomRegistry_History_ReturnsCopies(t *testing.T) {
	req := require.New(t)
	d, rooms, _ := newRooms(t)
	register(d, "alice", "c1")
	room, _ := rooms.Create("general", "", "alice")
	_, err := rooms.AppendMessage(room.ID, domain.Message{
		Type: domain.MessageFile, Sender: "alice", File: &domain.FileMeta{FileID: "f1", Name: "a.txt"},
	}, func() domain.MessageID { return 1 })
	req.NoError(err)

	history, _ := rooms.History(room.ID)
	history[0].File.Name = "mutated"

	again, _ := rooms.History(room.ID)
	req.Equal("a.txt", again[0].File.Name)
}

func TestRoomRegistry_List_OldestFirst(t *testing.T) {
	req := require.New(t)
	d, rooms, clock := newRooms(t)
	register(d, "alice", "c1")

	first, _ := rooms.Create("first", "", "alice")
	clock.Advance(time.Second)
	second, _ := rooms.Create("second", "", "alice")

	list := rooms.List()
	req.Len(list, 2)
	req.Equal(first.ID, list[0].ID)
	req.Equal(second.ID, list[1].ID)
}

func TestRoomRegistry_Restore(t *testing.T) {
	req := require.New(t)
	_, rooms, clock := newRooms(t)
	t0 := clock.Now()

	// Given a persisted room whose log came back out of order and whose row
	// predates its latest message
	rooms.Restore([]domain.Room{{
		ID:           "r1",
		Name:         "general",
		Host:         "alice",
		LastModified: t0,
		Messages: []domain.Message{
			{ID: 30, RoomID: "r1", Message: "c", Timestamp: t0.Add(time.Hour)},
			{ID: 10, RoomID: "r1", Message: "a", Timestamp: t0.Add(time.Minute)},
			{ID: 20, RoomID: "r1", Message: "b", Timestamp: t0.Add(2 * time.Minute)},
		},
	}, {
		ID:           "r2",
		Name:         "quiet",
		Host:         "alice",
		LastModified: t0.Add(3 * time.Hour),
		Messages:     []domain.Message{{ID: 5, RoomID: "r2", Message: "old", Timestamp: t0}},
	}})

	// Then
	history, err := rooms.History("r1")
	req.NoError(err)
	req.Equal([]string{"a", "b", "c"}, []string{history[0].Message, history[1].Message, history[2].Message})
	summary, ok := rooms.Summary("r1")
	req.True(ok)
	req.Equal(domain.MessageID(30), summary.LastMessage.ID)
	req.Equal(summary.LastMessage.Timestamp, summary.LastModified)
	req.Equal(t0.Add(time.Hour), summary.LastModified)
	req.Empty(summary.Users)

	quiet, ok := rooms.Summary("r2")
	req.True(ok)
	req.Equal(t0.Add(3*time.Hour), quiet.LastModified)
	req.Equal(domain.MessageID(30), rooms.MaxMessageID())
}
