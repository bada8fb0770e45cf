package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/moviebot/internal/model"
)

// ToEvent converts an update; ok is false for updates the bot ignores.
func ToEvent(u tgbotapi.Update) (model.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		ev := model.Event{
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.From != nil {
			ev.SenderID = cq.From.ID
			ev.SenderName = displayName(cq.From)
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
				ev.ChatType = cq.Message.Chat.Type
			}
		}
		if ev.ChatID == 0 {
			ev.ChatID = ev.SenderID
			ev.ChatType = model.ChatPrivate
		}
		return ev, true
	}

	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return model.Event{}, false
	}
	ev := model.Event{
		ChatID:     msg.Chat.ID,
		ChatType:   msg.Chat.Type,
		MessageID:  msg.MessageID,
		SenderID:   msg.From.ID,
		SenderName: displayName(msg.From),
		Text:       msg.Text,
	}

	switch {
	case msg.Animation != nil:
		ev.Media = model.Media{Kind: model.MediaAnimation, FileID: msg.Animation.FileID, Text: msg.Caption}
	case len(msg.Photo) > 0:
		// the last size is the largest
		ev.Media = model.Media{Kind: model.MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID, Text: msg.Caption}
	case msg.Video != nil:
		ev.Media = model.Media{Kind: model.MediaVideo, FileID: msg.Video.FileID, Text: msg.Caption}
	case msg.Document != nil:
		ev.Media = model.Media{Kind: model.MediaDocument, FileID: msg.Document.FileID, Text: msg.Caption}
		ev.FileName = msg.Document.FileName
	case msg.Sticker != nil:
		ev.Media = model.Media{Kind: model.MediaSticker, FileID: msg.Sticker.FileID}
	}
	if ev.Text == "" && !ev.Media.IsZero() {
		ev.Text = msg.Caption
	}
	return ev, true
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.UserName != "" {
		return "@" + u.UserName
	}
	return name
}
