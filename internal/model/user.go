package model

import (
	"strconv"
	"time"
)

// User is anyone who talked to the bot.
type User struct {
	ID           int64      `json:"id" validate:"required"`
	Name         string     `json:"name,omitempty"`
	JoinedAt     time.Time  `json:"joined_at"`
	LastSearchAt *time.Time `json:"last_search_at,omitempty"`
}

func (u User) Key() string { return UserKey(u.ID) }

// UserKey is the storage key for a user id.
func UserKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// LastSeen is the latest known activity.
func (u User) LastSeen() time.Time {
	if u.LastSearchAt != nil && u.LastSearchAt.After(u.JoinedAt) {
		return *u.LastSearchAt
	}
	return u.JoinedAt
}
