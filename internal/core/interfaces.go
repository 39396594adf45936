package core

import "github.com/dkeye/Huddle/internal/domain"

// Frame is a raw encoded payload ready for the wire.
type Frame []byte

// Event is the outbound envelope: {"type": "...", "data": {...}}.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Group names a scoped broadcast audience (a room or a quiz).
type Group string

func RoomGroup(id domain.RoomID) Group { return Group("room:" + string(id)) }

func QuizGroup(id domain.QuizID) Group { return Group("quiz:" + string(id)) }

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Transport is the delivery primitive the coordinator fans out through.
// Every send is fire-and-forget; a connection that cannot keep up is
// handled by the transport itself.
type Transport interface {
	// Has reports whether conn is a live connection.
	Has(conn domain.ConnID) bool
	Send(to domain.ConnID, ev Event)
	BroadcastExcept(except domain.ConnID, ev Event)
	BroadcastAll(ev Event)
	SendGroup(group Group, ev Event)
	JoinGroup(conn domain.ConnID, group Group)
	LeaveGroup(conn domain.ConnID, group Group)
	DropGroup(group Group)
}
