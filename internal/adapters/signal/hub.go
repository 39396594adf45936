package signal

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type hubConn struct {
	sc    core.SignalConnection
	drops atomic.Int32
}

// Hub is the websocket implementation of core.Transport: live connections
// plus named groups of them.
type Hub struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]*hubConn
	groups map[core.Group]map[domain.ConnID]struct{}
	policy app.Policy
}

func NewHub(policy app.Policy) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:  make(map[domain.ConnID]*hubConn),
		groups: make(map[core.Group]map[domain.ConnID]struct{}),
		policy: policy,
	}
}

func (h *Hub) Add(id domain.ConnID, sc core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = &hubConn{sc: sc}
	log.Debug().Str("module", "signal.hub").Str("conn", string(id)).Int("conns", len(h.conns)).Msg("added")
}

// Remove forgets id and drops it from every group.
func (h *Hub) Remove(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	for g, members := range h.groups {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, g)
		}
	}
	log.Debug().Str("module", "signal.hub").Str("conn", string(id)).Int("conns", len(h.conns)).Msg("removed")
}

func (h *Hub) Has(id domain.ConnID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[id]
	return ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Send(to domain.ConnID, ev core.Event) {
	f, ok := encode(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	c, found := h.conns[to]
	h.mu.RUnlock()
	if !found {
		return
	}
	h.deliver(to, c, f)
}

func (h *Hub) BroadcastExcept(except domain.ConnID, ev core.Event) {
	h.fanout(ev, func(id domain.ConnID) bool { return id != except }, nil)
}

func (h *Hub) BroadcastAll(ev core.Event) {
	h.fanout(ev, func(domain.ConnID) bool { return true }, nil)
}

func (h *Hub) SendGroup(group core.Group, ev core.Event) {
	h.fanout(ev, nil, &group)
}

func (h *Hub) JoinGroup(conn domain.ConnID, group core.Group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		h.groups[group] = members
	}
	members[conn] = struct{}{}
}

func (h *Hub) LeaveGroup(conn domain.ConnID, group core.Group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

func (h *Hub) DropGroup(group core.Group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, group)
}

// InGroup reports whether conn is subscribed to group.
func (h *Hub) InGroup(conn domain.ConnID, group core.Group) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.groups[group][conn]
	return ok
}

type target struct {
	id domain.ConnID
	c  *hubConn
}

// fanout snapshots the audience under the read lock and sends outside it.
func (h *Hub) fanout(ev core.Event, keep func(domain.ConnID) bool, group *core.Group) {
	f, ok := encode(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	var targets []target
	if group != nil {
		for id := range h.groups[*group] {
			if c, ok := h.conns[id]; ok {
				targets = append(targets, target{id, c})
			}
		}
	} else {
		targets = make([]target, 0, len(h.conns))
		for id, c := range h.conns {
			if keep(id) {
				targets = append(targets, target{id, c})
			}
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		h.deliver(t.id, t.c, f)
	}
}

func (h *Hub) deliver(id domain.ConnID, c *hubConn, f core.Frame) {
	err := c.sc.TrySend(f)
	if err == nil {
		c.drops.Store(0)
		return
	}
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	drops := int(c.drops.Add(1))
	switch h.policy.OnBackPressure(id, drops) {
	case app.KickConn:
		log.Warn().Str("module", "signal.hub").Str("conn", string(id)).Int("drops", drops).Msg("slow consumer, kicking")
		c.sc.Close()
	case app.DropFrame, app.NoAction:
		log.Debug().Str("module", "signal.hub").Str("conn", string(id)).Int("drops", drops).Msg("frame dropped")
	}
}

func encode(ev core.Event) (core.Frame, bool) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", ev.Type).Msg("encode")
		return nil, false
	}
	return b, true
}
