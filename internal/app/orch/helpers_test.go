package orch

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/event"
	"github.com/dkeye/Huddle/internal/mocks"
	"go.uber.org/mock/gomock"
)

// fakeTransport delivers synchronously into per-connection inboxes and
// tracks group membership like the websocket hub does.
type fakeTransport struct {
	mu     sync.Mutex
	conns  map[domain.ConnID]bool
	groups map[core.Group]map[domain.ConnID]bool
	inbox  map[domain.ConnID][]core.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		conns:  make(map[domain.ConnID]bool),
		groups: make(map[core.Group]map[domain.ConnID]bool),
		inbox:  make(map[domain.ConnID][]core.Event),
	}
}

func (f *fakeTransport) connect(id domain.ConnID) {
	f.mu.Lock()
	f.conns[id] = true
	f.mu.Unlock()
}

func (f *fakeTransport) disconnect(id domain.ConnID) {
	f.mu.Lock()
	delete(f.conns, id)
	for _, members := range f.groups {
		delete(members, id)
	}
	f.mu.Unlock()
}

func (f *fakeTransport) Has(conn domain.ConnID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[conn]
}

func (f *fakeTransport) Send(to domain.ConnID, ev core.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conns[to] {
		f.inbox[to] = append(f.inbox[to], ev)
	}
}

func (f *fakeTransport) BroadcastExcept(except domain.ConnID, ev core.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.conns {
		if c != except {
			f.inbox[c] = append(f.inbox[c], ev)
		}
	}
}

func (f *fakeTransport) BroadcastAll(ev core.Event) {
	f.BroadcastExcept("", ev)
}

func (f *fakeTransport) SendGroup(group core.Group, ev core.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.groups[group] {
		f.inbox[c] = append(f.inbox[c], ev)
	}
}

func (f *fakeTransport) JoinGroup(conn domain.ConnID, group core.Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.conns[conn] {
		return
	}
	if f.groups[group] == nil {
		f.groups[group] = make(map[domain.ConnID]bool)
	}
	f.groups[group][conn] = true
}

func (f *fakeTransport) LeaveGroup(conn domain.ConnID, group core.Group) {
	f.mu.Lock()
	delete(f.groups[group], conn)
	f.mu.Unlock()
}

func (f *fakeTransport) DropGroup(group core.Group) {
	f.mu.Lock()
	delete(f.groups, group)
	f.mu.Unlock()
}

func (f *fakeTransport) inGroup(conn domain.ConnID, group core.Group) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups[group][conn]
}

func (f *fakeTransport) types(conn domain.ConnID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.inbox[conn]))
	for _, ev := range f.inbox[conn] {
		out = append(out, ev.Type)
	}
	return out
}

func countOf(names []string, name string) int {
	n := 0
	for _, got := range names {
		if got == name {
			n++
		}
	}
	return n
}

// last returns the most recent event of the given type delivered to conn.
func (f *fakeTransport) last(conn domain.ConnID, name string) (core.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	evs := f.inbox[conn]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == name {
			return evs[i], true
		}
	}
	return core.Event{}, false
}

func (f *fakeTransport) received(conn domain.ConnID, name string) bool {
	return slices.Contains(f.types(conn), name)
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	f.inbox = make(map[domain.ConnID][]core.Event)
	f.mu.Unlock()
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	ctx   context.Context
	o     *Orchestrator
	tr    *fakeTransport
	gw    *mocks.MockGateway
	clock *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	tr := newFakeTransport()
	clock := &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return &harness{
		ctx:   context.Background(),
		o:     New(tr, gw, clock.Now),
		tr:    tr,
		gw:    gw,
		clock: clock,
	}
}

// allowPersistence accepts any durable write. Register specific
// expectations before calling it: gomock matches in declaration order.
func (h *harness) allowPersistence() {
	h.gw.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.gw.EXPECT().UpdateUserStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.gw.EXPECT().SaveRoom(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.gw.EXPECT().DeleteRoom(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.gw.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.gw.EXPECT().SaveQuizAndAnswers(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (h *harness) dispatch(conn domain.ConnID, cmd event.Command) {
	h.o.Dispatch(h.ctx, conn, cmd)
}

func (h *harness) join(conn domain.ConnID, uid domain.UserID) {
	h.tr.connect(conn)
	h.o.Connect(conn)
	h.dispatch(conn, &event.RegisterCommand{UID: uid, DisplayName: string(uid)})
}

func (h *harness) leave(conn domain.ConnID) {
	h.tr.disconnect(conn)
	h.o.Disconnect(h.ctx, conn)
}

func (h *harness) lastError(conn domain.ConnID) string {
	ev, ok := h.tr.last(conn, event.Error)
	if !ok {
		return ""
	}
	return ev.Data.(errorPayload).Message
}

func (h *harness) createRoom(conn domain.ConnID, uid domain.UserID, name string) domain.RoomID {
	h.dispatch(conn, &event.CreateRoomCommand{Name: name, UID: uid})
	ev, ok := h.tr.last(conn, event.RoomCreated)
	if !ok {
		panic("room-created not delivered")
	}
	return ev.Data.(roomCreatedPayload).Room.ID
}
