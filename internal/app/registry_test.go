package app

import (
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestDirectory_Register(t *testing.T) {
	t.Run("should create an online user on first registration", func(t *testing.T) {
		req := require.New(t)
		clock := newTestClock()
		d := NewDirectory(clock.Now)

		// When
		res, err := d.Register("alice", "Alice", "c1")

		// Then
		req.NoError(err)
		req.True(res.Created)
		req.Empty(res.PrevConn)
		req.Nil(res.Evicted)
		req.Equal(domain.StatusOnline, res.User.Status)
		req.Equal("Alice", res.User.DisplayName)
		req.Equal(domain.AvatarURL("alice"), res.User.PhotoURL)
		req.Equal(clock.Now(), res.User.Timestamp)

		u, ok := d.ByConn("c1")
		req.True(ok)
		req.Equal(domain.UserID("alice"), u.UID)
	})

	t.Run("should default the display name to the uid", func(t *testing.T) {
		req := require.New(t)
		d := NewDirectory(nil)

		res, err := d.Register("bob", "", "c1")

		req.NoError(err)
		req.Equal("bob", res.User.DisplayName)
	})

	t.Run("should reject a display name that is too long", func(t *testing.T) {
		req := require.New(t)
		d := NewDirectory(nil)

		_, err := d.Register("bob", strings.Repeat("x", domain.MaxUsernameLen+1), "c1")

		req.ErrorIs(err, domain.ErrUsernameTooLong)
		req.ErrorIs(err, domain.ErrValidation)
		req.False(d.Exists("bob"))
	})

	t.Run("should move a returning user to the new connection", func(t *testing.T) {
		req := require.New(t)
		clock := newTestClock()
		d := NewDirectory(clock.Now)

		// Given
		register(d, "alice", "c1")
		mustMarkOffline(t, d, "c1")
		clock.Advance(5 * time.Second)

		// When
		res, err := d.Register("alice", "", "c2")

		// Then
		req.NoError(err)
		req.False(res.Created)
		req.Empty(res.PrevConn)
		req.Equal("alice", res.User.DisplayName)
		req.Equal(domain.StatusOnline, res.User.Status)
		req.Equal(clock.Now(), res.User.Timestamp)
		conn, ok := d.ConnOf("alice")
		req.True(ok)
		req.Equal(domain.ConnID("c2"), conn)
	})

	t.Run("should detach the previous connection when the user registers twice", func(t *testing.T) {
		req := require.New(t)
		d := NewDirectory(nil)
		register(d, "alice", "c1")

		res, err := d.Register("alice", "Alice 2", "c2")

		req.NoError(err)
		req.Equal(domain.ConnID("c1"), res.PrevConn)
		req.Equal("Alice 2", res.User.DisplayName)
		_, ok := d.ByConn("c1")
		req.False(ok)

		// the stale connection closing later must not take the user offline
		_, ok = d.MarkOffline("c1")
		req.False(ok)
		req.True(d.Online("alice"))
	})

	t.Run("should evict another user holding the same connection", func(t *testing.T) {
		req := require.New(t)
		d := NewDirectory(nil)
		register(d, "alice", "c1")

		res, err := d.Register("bob", "Bob", "c1")

		req.NoError(err)
		req.NotNil(res.Evicted)
		req.Equal(domain.UserID("alice"), res.Evicted.UID)
		req.Equal(domain.StatusOffline, res.Evicted.Status)
		req.False(d.Online("alice"))
		u, ok := d.ByConn("c1")
		req.True(ok)
		req.Equal(domain.UserID("bob"), u.UID)
	})
}

func mustMarkOffline(t *testing.T, d *Directory, conn domain.ConnID) domain.User {
	t.Helper()
	u, ok := d.MarkOffline(conn)
	require.True(t, ok)
	return u
}

func TestDirectory_MarkOffline(t *testing.T) {
	t.Run("should take the user offline exactly once", func(t *testing.T) {
		req := require.New(t)
		clock := newTestClock()
		d := NewDirectory(clock.Now)
		register(d, "alice", "c1")
		clock.Advance(5 * time.Second)

		u, ok := d.MarkOffline("c1")
		req.True(ok)
		req.Equal(domain.StatusOffline, u.Status)
		req.Empty(u.ConnID)
		req.Equal(clock.Now(), u.Timestamp)

		_, ok = d.MarkOffline("c1")
		req.False(ok)
		_, ok = d.ConnOf("alice")
		req.False(ok)
		req.True(d.Exists("alice"))
	})

	t.Run("should ignore unknown connections", func(t *testing.T) {
		_, ok := NewDirectory(nil).MarkOffline("nope")
		require.False(t, ok)
	})
}

func TestDirectory_ListAndRestore(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(nil)

	// Given
	d.Restore([]domain.User{
		{UID: "carol", DisplayName: "Carol", Status: domain.StatusOnline, ConnID: "old"},
		{UID: "alice", DisplayName: "Alice", Status: domain.StatusOnline, PhotoURL: "custom"},
	})

	// When
	users := d.List()

	// Then
	req.Len(users, 2)
	req.Equal(domain.UserID("alice"), users[0].UID)
	req.Equal(domain.UserID("carol"), users[1].UID)
	for _, u := range users {
		req.Equal(domain.StatusOffline, u.Status)
		req.Empty(u.ConnID)
	}
	req.Equal("custom", users[0].PhotoURL)
	req.Equal(domain.AvatarURL("carol"), users[1].PhotoURL)
	_, ok := d.ByConn("old")
	req.False(ok)
}
