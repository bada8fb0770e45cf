package model

import (
	"strings"
	"time"
)

// Movie is one catalog entry.
type Movie struct {
	ID          string    `json:"id" validate:"required"`
	Code        string    `json:"code,omitempty" validate:"max=64"`
	Title       string    `json:"title" validate:"required,max=256"`
	Description string    `json:"description,omitempty" validate:"max=1024"`
	Media       Media     `json:"media"`
	AddedAt     time.Time `json:"added_at"`
}

func (m Movie) Key() string { return m.ID }

// Caption is the text shown with the movie.
func (m Movie) Caption() string {
	var b strings.Builder
	b.WriteString("🎬 ")
	b.WriteString(m.Title)
	if m.Code != "" {
		b.WriteString("\n🔢 Code: ")
		b.WriteString(m.Code)
	}
	if m.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(m.Description)
	}
	return b.String()
}

// Content is what gets delivered for a search hit.
func (m Movie) Content() Media {
	if m.Media.IsZero() {
		return TextMedia(m.Caption())
	}
	return m.Media.WithCaption(m.Caption())
}

// NormalizeCode upper-cases and trims a movie code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
