package model

import "time"

// DefaultAdSeconds is how long an ad stays up when no duration is given.
const DefaultAdSeconds = 10

// Ad is shown before search results and deleted after DisplaySeconds.
type Ad struct {
	ID             string    `json:"id" validate:"required"`
	Media          Media     `json:"media"`
	DisplaySeconds int       `json:"display_seconds" validate:"gte=0,lte=600"`
	Active         bool      `json:"active"`
	AddedAt        time.Time `json:"added_at"`
}

func (a Ad) Key() string { return a.ID }

// DisplayFor is the display duration.
func (a Ad) DisplayFor() time.Duration {
	return time.Duration(a.DisplaySeconds) * time.Second
}
