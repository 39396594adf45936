// Package domain contains entity without logic, just meta-data
package domain

import (
	"fmt"
	"net/url"
	"time"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 64
)

type (
	UserID string
	// ConnID is the transport-issued address of one live socket.
	ConnID string
	Status string
)

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

type User struct {
	UID         UserID    `json:"uid"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Status      Status    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	ConnID      ConnID    `json:"socketId,omitempty"`
}

// NewUser builds a fresh online user bound to conn.
func NewUser(uid UserID, displayName string, conn ConnID, now time.Time) (*User, error) {
	u := &User{
		UID:       uid,
		PhotoURL:  AvatarURL(uid),
		Status:    StatusOnline,
		Timestamp: now,
		ConnID:    conn,
	}
	if err := u.SetDisplayName(displayName); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetDisplayName(name string) error {
	if len(name) == 0 {
		return ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.DisplayName = name
	return nil
}

func (u *User) Online() bool { return u.Status == StatusOnline }

const dicebear = "https://api.dicebear.com/7.x/%s/svg?seed=%s&backgroundColor=b6e3f4,c0aede,d1d4f9&backgroundType=gradientLinear"

// AvatarURL is deterministic in uid so reconnects keep the same picture.
func AvatarURL(uid UserID) string {
	return fmt.Sprintf(dicebear, "avataaars", url.QueryEscape(string(uid)))
}

func RoomAvatarURL(name string) string {
	return fmt.Sprintf(dicebear, "bottts", url.QueryEscape(name))
}
