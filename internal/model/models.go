package model

import "time"

// ForceChannel must be joined before a user may search.
type ForceChannel struct {
	ID       string `json:"id" validate:"required"`
	ChatID   int64  `json:"chat_id" validate:"required"`
	Title    string `json:"title"`
	JoinLink string `json:"join_link" validate:"omitempty,url"`
}

func (c ForceChannel) Key() string { return c.ID }

// Button is a URL button on the /start menu.
type Button struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=64"`
	Link string `json:"link" validate:"required,url"`
	Row  int    `json:"row" validate:"gte=0"`
}

func (b Button) Key() string { return b.ID }

// ButtonsPerRow is how many start buttons share a row by default.
const ButtonsPerRow = 2

// WelcomeItem is one entry of the rotating /start greeting.
type WelcomeItem struct {
	ID      string    `json:"id" validate:"required"`
	Media   Media     `json:"media"`
	AddedAt time.Time `json:"added_at"`
}

func (w WelcomeItem) Key() string { return w.ID }
