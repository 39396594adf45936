package app

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registration is the outcome of Directory.Register.
type Registration struct {
	User    domain.User
	Created bool
	// PrevConn is the connection the user held before this registration,
	// empty when none or when it is the same connection.
	PrevConn domain.ConnID
	// Evicted is a different user that held this connection until now.
	Evicted *domain.User
}

// Directory maps stable user ids to their current connection and back.
type Directory struct {
	mu     sync.RWMutex
	users  map[domain.UserID]*domain.User
	byConn map[domain.ConnID]domain.UserID
	now    func() time.Time
}

func NewDirectory(now func() time.Time) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{
		users:  make(map[domain.UserID]*domain.User),
		byConn: make(map[domain.ConnID]domain.UserID),
		now:    now,
	}
}

// Register binds conn to uid, creating the user on first sight.
// Last registration wins: a previous connection of the same user loses its
// reverse entry, and a different user holding conn is marked offline.
func (d *Directory) Register(uid domain.UserID, displayName string, conn domain.ConnID) (Registration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var res Registration

	u, ok := d.users[uid]
	if ok {
		if displayName != "" {
			if err := u.SetDisplayName(displayName); err != nil {
				return Registration{}, err
			}
		}
	} else {
		if displayName == "" {
			displayName = string(uid)
		}
		nu, err := domain.NewUser(uid, displayName, conn, now)
		if err != nil {
			return Registration{}, err
		}
		u = nu
		d.users[uid] = u
		res.Created = true
	}

	if owner, held := d.byConn[conn]; held && owner != uid {
		if other, ok := d.users[owner]; ok && other.ConnID == conn {
			other.Status = domain.StatusOffline
			other.ConnID = ""
			other.Timestamp = now
			snap := *other
			res.Evicted = &snap
		}
	}
	if u.ConnID != "" && u.ConnID != conn {
		delete(d.byConn, u.ConnID)
		res.PrevConn = u.ConnID
	}

	u.Status = domain.StatusOnline
	u.Timestamp = now
	u.ConnID = conn
	d.byConn[conn] = uid
	res.User = *u

	log.Info().
		Str("module", "app.directory").
		Str("uid", string(uid)).
		Str("conn", string(conn)).
		Bool("created", res.Created).
		Msg("registered")
	return res, nil
}

// MarkOffline releases conn. It reports false when conn maps to no user or
// the user has since registered on another connection; in both cases the
// user's status is left alone. A second call for the same conn is a no-op.
func (d *Directory) MarkOffline(conn domain.ConnID) (domain.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	uid, ok := d.byConn[conn]
	if !ok {
		return domain.User{}, false
	}
	delete(d.byConn, conn)

	u, ok := d.users[uid]
	if !ok || u.ConnID != conn {
		return domain.User{}, false
	}
	u.Status = domain.StatusOffline
	u.ConnID = ""
	u.Timestamp = d.now()

	log.Info().Str("module", "app.directory").Str("uid", string(uid)).Str("conn", string(conn)).Msg("offline")
	return *u, true
}

func (d *Directory) ByUID(uid domain.UserID) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[uid]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

func (d *Directory) ByConn(conn domain.ConnID) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	uid, ok := d.byConn[conn]
	if !ok {
		return domain.User{}, false
	}
	u, ok := d.users[uid]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

// ConnOf resolves an online user to its live connection.
func (d *Directory) ConnOf(uid domain.UserID) (domain.ConnID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[uid]
	if !ok || !u.Online() || u.ConnID == "" {
		return "", false
	}
	return u.ConnID, true
}

func (d *Directory) Exists(uid domain.UserID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[uid]
	return ok
}

func (d *Directory) Online(uid domain.UserID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[uid]
	return ok && u.Online()
}

// List returns every known user ordered by uid.
func (d *Directory) List() []domain.User {
	d.mu.RLock()
	out := make([]domain.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, *u)
	}
	d.mu.RUnlock()
	slices.SortFunc(out, func(a, b domain.User) int { return cmp.Compare(a.UID, b.UID) })
	return out
}

// Restore loads persisted users. Nobody is connected at start-up, so every
// user comes back offline.
func (d *Directory) Restore(users []domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range users {
		u.Status = domain.StatusOffline
		u.ConnID = ""
		if u.PhotoURL == "" {
			u.PhotoURL = domain.AvatarURL(u.UID)
		}
		d.users[u.UID] = &u
	}
	log.Info().Str("module", "app.directory").Int("users", len(users)).Msg("restored")
}
