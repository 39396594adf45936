package app

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const defaultRoomDescription = "This is room description!"

// UserResolver is the slice of the directory the registries depend on.
type UserResolver interface {
	Exists(uid domain.UserID) bool
	Online(uid domain.UserID) bool
}

// RoomSummary is the rooms-list view of a room: metadata, live membership
// and a summary of its log.
type RoomSummary struct {
	ID           domain.RoomID   `json:"id"`
	PhotoURL     string          `json:"photoURL"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Host         domain.UserID   `json:"host"`
	CreatedAt    time.Time       `json:"createdDate"`
	LastModified time.Time       `json:"lastModified"`
	LastMessage  *domain.Message `json:"lastMessage"`
	Users        []domain.UserID `json:"users"`
	MessageCount int             `json:"messageCount"`
}

type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
	users UserResolver
	now   func() time.Time
}

func NewRoomRegistry(users UserResolver, now func() time.Time) *RoomRegistry {
	if now == nil {
		now = time.Now
	}
	return &RoomRegistry{
		rooms: make(map[domain.RoomID]*domain.Room),
		users: users,
		now:   now,
	}
}

// Create opens a room hosted by host, who becomes its first member.
func (r *RoomRegistry) Create(name, description string, host domain.UserID) (domain.Room, error) {
	if !r.users.Exists(host) {
		return domain.Room{}, domain.ErrUserNotFound
	}
	id := domain.RoomID(uuid.NewString())
	if name == "" {
		name = fmt.Sprintf("Room %s", id)
	}
	if description == "" {
		description = defaultRoomDescription
	}
	now := r.now()
	room := &domain.Room{
		ID:           id,
		PhotoURL:     domain.RoomAvatarURL(name),
		Name:         name,
		Description:  description,
		Host:         host,
		CreatedAt:    now,
		LastModified: now,
		Members: map[domain.UserID]domain.Member{
			host: {JoinedAt: now, LastActiveAt: now},
		},
	}

	r.mu.Lock()
	r.rooms[id] = room
	snap := room.Clone()
	r.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Str("host", string(host)).Msg("room created")
	return snap, nil
}

// Join adds uid to the room. Joining again only refreshes LastActiveAt.
func (r *RoomRegistry) Join(id domain.RoomID, uid domain.UserID) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if !r.users.Exists(uid) {
		return domain.Room{}, domain.ErrUserNotFound
	}
	if room.Host != uid && !r.users.Online(room.Host) {
		return domain.Room{}, domain.ErrHostOffline
	}

	now := r.now()
	if m, ok := room.Members[uid]; ok {
		m.LastActiveAt = now
		room.Members[uid] = m
	} else {
		room.Members[uid] = domain.Member{JoinedAt: now, LastActiveAt: now}
		room.LastModified = now
		log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Str("uid", string(uid)).Msg("member joined")
	}
	return room.Clone(), nil
}

func (r *RoomRegistry) Leave(id domain.RoomID, uid domain.UserID) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if !room.HasMember(uid) {
		return domain.Room{}, domain.ErrNotMember
	}
	delete(room.Members, uid)
	room.LastModified = r.now()

	log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Str("uid", string(uid)).Msg("member left")
	return room.Clone(), nil
}

// Close destroys the room with its membership and log. Host only.
func (r *RoomRegistry) Close(id domain.RoomID, uid domain.UserID) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if room.Host != uid {
		return domain.Room{}, domain.ErrNotHost
	}
	delete(r.rooms, id)

	log.Info().Str("module", "app.rooms").Str("room_id", string(id)).Msg("room closed")
	return room.Clone(), nil
}

func (r *RoomRegistry) Get(id domain.RoomID) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	return room.Clone(), true
}

// List returns room summaries, oldest room first.
func (r *RoomRegistry) List() []RoomSummary {
	r.mu.RLock()
	out := make([]RoomSummary, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, summarize(room))
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b RoomSummary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *RoomRegistry) Summary(id domain.RoomID) (RoomSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return RoomSummary{}, false
	}
	return summarize(room), true
}

func summarize(room *domain.Room) RoomSummary {
	s := RoomSummary{
		ID:           room.ID,
		PhotoURL:     room.PhotoURL,
		Name:         room.Name,
		Description:  room.Description,
		Host:         room.Host,
		CreatedAt:    room.CreatedAt,
		LastModified: room.LastModified,
		Users:        room.MemberIDs(),
		MessageCount: len(room.Messages),
	}
	if room.LastMessage != nil {
		last := room.LastMessage.Clone()
		s.LastMessage = &last
	}
	return s
}

// History returns the room log in append order.
func (r *RoomRegistry) History(id domain.RoomID) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return lo.Map(room.Messages, func(m domain.Message, _ int) domain.Message { return m.Clone() }), nil
}

func (r *RoomRegistry) IsMember(id domain.RoomID, uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return ok && room.HasMember(uid)
}

// RoomsOf lists the rooms uid is a member of.
func (r *RoomRegistry) RoomsOf(uid domain.UserID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.RoomID
	for id, room := range r.rooms {
		if room.HasMember(uid) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// AppendMessage numbers msg with nextID and appends it to the room log,
// refreshing the room's derived fields. Numbering and append happen under
// the registry lock so the log stays ordered by id.
func (r *RoomRegistry) AppendMessage(id domain.RoomID, msg domain.Message, nextID func() domain.MessageID) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return domain.Message{}, domain.ErrRoomNotFound
	}
	msg.ID = nextID()
	msg.RoomID = id
	room.Messages = append(room.Messages, msg)
	last := msg.Clone()
	room.LastMessage = &last
	room.LastModified = msg.Timestamp
	if m, ok := room.Members[msg.Sender]; ok {
		m.LastActiveAt = msg.Timestamp
		room.Members[msg.Sender] = m
	}
	return msg.Clone(), nil
}

// UpdateMessage applies fn to one message of the room log.
func (r *RoomRegistry) UpdateMessage(id domain.RoomID, msgID domain.MessageID, fn func(*domain.Message)) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return domain.Message{}, domain.ErrRoomNotFound
	}
	i := slices.IndexFunc(room.Messages, func(m domain.Message) bool { return m.ID == msgID })
	if i < 0 {
		return domain.Message{}, domain.ErrTransferNotFound
	}
	fn(&room.Messages[i])
	if room.LastMessage != nil && room.LastMessage.ID == msgID {
		last := room.Messages[i].Clone()
		room.LastMessage = &last
	}
	return room.Messages[i].Clone(), nil
}

// Restore loads persisted rooms together with their logs.
func (r *RoomRegistry) Restore(rooms []domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range rooms {
		room := room.Clone()
		if room.Members == nil {
			room.Members = make(map[domain.UserID]domain.Member)
		}
		slices.SortStableFunc(room.Messages, func(a, b domain.Message) int { return cmp.Compare(a.ID, b.ID) })
		if n := len(room.Messages); n > 0 {
			last := room.Messages[n-1].Clone()
			room.LastMessage = &last
			if last.Timestamp.After(room.LastModified) {
				room.LastModified = last.Timestamp
			}
		}
		r.rooms[room.ID] = &room
	}
	log.Info().Str("module", "app.rooms").Int("rooms", len(rooms)).Msg("restored")
}

// MaxMessageID is the highest message id held in any room log.
func (r *RoomRegistry) MaxMessageID() domain.MessageID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var top domain.MessageID
	for _, room := range r.rooms {
		for _, m := range room.Messages {
			top = max(top, m.ID)
		}
	}
	return top
}
