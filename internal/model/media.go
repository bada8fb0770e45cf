package model

// MediaKind identifies how a piece of content is delivered.
type MediaKind string

const (
	MediaText      MediaKind = "text"
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAnimation MediaKind = "animation"
	MediaSticker   MediaKind = "sticker"
	// MediaCopy re-sends a message kept in a storage chat.
	MediaCopy MediaKind = "copy"
)

// Media is a platform file reference, a plain text, or a pointer to a stored message.
// Text is the message body for MediaText and the caption otherwise.
type Media struct {
	Kind       MediaKind `json:"kind,omitempty" validate:"omitempty,oneof=text photo video document animation sticker copy"`
	FileID     string    `json:"file_id,omitempty"`
	Text       string    `json:"text,omitempty" validate:"max=4096"`
	FromChatID int64     `json:"from_chat_id,omitempty"`
	MessageID  int       `json:"message_id,omitempty"`
}

// TextMedia wraps plain text.
func TextMedia(text string) Media {
	return Media{Kind: MediaText, Text: text}
}

// CopyMedia points at a message in a storage chat.
func CopyMedia(fromChatID int64, messageID int) Media {
	return Media{Kind: MediaCopy, FromChatID: fromChatID, MessageID: messageID}
}

// IsZero reports whether no content is set.
func (m Media) IsZero() bool {
	return m.Kind == ""
}

// HasCaption reports whether the kind accepts a caption.
func (m Media) HasCaption() bool {
	switch m.Kind {
	case MediaPhoto, MediaVideo, MediaDocument, MediaAnimation:
		return true
	}
	return false
}

// WithCaption returns a copy whose caption is text when the kind supports one.
func (m Media) WithCaption(text string) Media {
	if m.HasCaption() && m.Text == "" {
		m.Text = text
	}
	return m
}

// Describe is a short human label used in admin listings.
func (m Media) Describe() string {
	switch m.Kind {
	case "":
		return "none"
	case MediaText:
		return "text: " + Truncate(m.Text, 30)
	case MediaCopy:
		return "stored message"
	default:
		if m.Text != "" {
			return string(m.Kind) + ": " + Truncate(m.Text, 30)
		}
		return string(m.Kind)
	}
}

// Truncate shortens s to at most n runes, adding an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
