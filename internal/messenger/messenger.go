// Package messenger is the boundary between the bot core and the chat platform.
package messenger

import (
	"context"
	"errors"

	"github.com/user/moviebot/internal/model"
)

// ErrMessageGone is returned by Delete when the message no longer exists.
var ErrMessageGone = errors.New("message already deleted")

// Member statuses reported by MemberStatus.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// Joined reports whether a member status counts as joined.
func Joined(status string) bool {
	switch status {
	case "", StatusLeft, StatusKicked:
		return false
	}
	return true
}

// Button is an inline button. Exactly one of URL and Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

// Keyboard is rows of inline buttons.
type Keyboard [][]Button

// SendOptions tunes an outgoing message.
type SendOptions struct {
	Keyboard Keyboard
	// ReplyMenu replaces the user's reply keyboard when set.
	ReplyMenu [][]string
	// ReplyTo quotes a message in the same chat.
	ReplyTo int
}

// Chat is what LookupChat resolves.
type Chat struct {
	ID         int64
	Title      string
	Username   string
	InviteLink string
}

// Messenger is the platform client the core needs.
type Messenger interface {
	// Send delivers m and returns the new message id.
	Send(ctx context.Context, chatID int64, m model.Media, opts SendOptions) (int, error)
	// Delete removes a message; ErrMessageGone when it is already gone.
	Delete(ctx context.Context, chatID int64, messageID int) error
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	// LookupChat resolves a numeric id or @username.
	LookupChat(ctx context.Context, ref string) (Chat, error)
	SendFile(ctx context.Context, chatID int64, name string, data []byte, caption string) (int, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	// Answer acknowledges a button press.
	Answer(ctx context.Context, callbackID, text string, alert bool) error
}

// SendText is a shortcut for a plain text message.
func SendText(ctx context.Context, m Messenger, chatID int64, text string) (int, error) {
	return m.Send(ctx, chatID, model.TextMedia(text), SendOptions{})
}
