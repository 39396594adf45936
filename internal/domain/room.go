package domain

import (
	"cmp"
	"maps"
	"slices"
	"time"
)

type RoomID string

// Member represents user's participation meta for a room.
type Member struct {
	JoinedAt     time.Time `json:"joinedAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

type Room struct {
	ID           RoomID            `json:"id"`
	PhotoURL     string            `json:"photoURL"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Host         UserID            `json:"host"`
	CreatedAt    time.Time         `json:"createdDate"`
	LastModified time.Time         `json:"lastModified"`
	LastMessage  *Message          `json:"lastMessage"`
	Messages     []Message         `json:"messages,omitempty"`
	Members      map[UserID]Member `json:"members"`
}

func (r *Room) HasMember(uid UserID) bool {
	_, ok := r.Members[uid]
	return ok
}

// MemberIDs returns member uids in join order.
func (r *Room) MemberIDs() []UserID {
	ids := slices.Collect(maps.Keys(r.Members))
	slices.SortFunc(ids, func(a, b UserID) int {
		if c := r.Members[a].JoinedAt.Compare(r.Members[b].JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

// Clone deep-copies the mutable parts so snapshots can leave the lock.
func (r *Room) Clone() Room {
	out := *r
	out.Members = maps.Clone(r.Members)
	if out.Members == nil {
		out.Members = make(map[UserID]Member)
	}
	out.Messages = slices.Clone(r.Messages)
	for i := range out.Messages {
		out.Messages[i] = out.Messages[i].Clone()
	}
	if r.LastMessage != nil {
		last := r.LastMessage.Clone()
		out.LastMessage = &last
	}
	return out
}
