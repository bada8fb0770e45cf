package model

import "strings"

// Chat types carried on events.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// Event is one inbound message or button press, independent of the platform.
type Event struct {
	ChatID     int64
	ChatType   string
	MessageID  int
	SenderID   int64
	SenderName string
	Text       string
	// Media is set when the message carries content the owner may store.
	Media    Media
	FileName string

	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the event is a button press.
func (e Event) IsCallback() bool {
	return e.CallbackID != ""
}

// IsGroup reports whether the event came from a group chat.
func (e Event) IsGroup() bool {
	return e.ChatType == ChatGroup || e.ChatType == ChatSupergroup
}

// Command returns the lower-cased command token without the leading slash or @botname,
// and the rest of the text. Non-command text returns an empty command.
func (e Event) Command() (string, string) {
	text := strings.TrimSpace(e.Text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	// newline right after the command
	if i := strings.IndexByte(cmd, '\n'); i >= 0 {
		rest = cmd[i+1:] + " " + rest
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

// Content is the message as storable media, falling back to its text.
func (e Event) Content() Media {
	if !e.Media.IsZero() {
		return e.Media
	}
	if strings.TrimSpace(e.Text) != "" {
		return TextMedia(e.Text)
	}
	return Media{}
}
