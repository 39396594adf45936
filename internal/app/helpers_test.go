package app

import (
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
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

type sentEvent struct {
	to domain.ConnID
	ev core.Event
}

// recordingTransport keeps direct sends; the relay never fans out.
type recordingTransport struct {
	mu   sync.Mutex
	live map[domain.ConnID]bool
	sent []sentEvent
}

func newRecordingTransport(live ...domain.ConnID) *recordingTransport {
	t := &recordingTransport{live: make(map[domain.ConnID]bool)}
	for _, c := range live {
		t.live[c] = true
	}
	return t
}

func (t *recordingTransport) Has(conn domain.ConnID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live[conn]
}

func (t *recordingTransport) Send(to domain.ConnID, ev core.Event) {
	t.mu.Lock()
	t.sent = append(t.sent, sentEvent{to: to, ev: ev})
	t.mu.Unlock()
}

func (t *recordingTransport) BroadcastExcept(domain.ConnID, core.Event) {}
func (t *recordingTransport) BroadcastAll(core.Event)                   {}
func (t *recordingTransport) SendGroup(core.Group, core.Event)          {}
func (t *recordingTransport) JoinGroup(domain.ConnID, core.Group)       {}
func (t *recordingTransport) LeaveGroup(domain.ConnID, core.Group)      {}
func (t *recordingTransport) DropGroup(core.Group)                      {}

func (t *recordingTransport) Sent() []sentEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentEvent(nil), t.sent...)
}

// register is a test shortcut that fails loudly.
func register(d *Directory, uid domain.UserID, conn domain.ConnID) domain.User {
	res, err := d.Register(uid, string(uid), conn)
	if err != nil {
		panic(err)
	}
	return res.User
}
