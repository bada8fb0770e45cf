package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/moviebot/internal/model"
)

func TestToEventText(t *testing.T) {
	ev, ok := ToEvent(tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: 7, FirstName: "Ann", LastName: "Lee"},
		Chat:      &tgbotapi.Chat{ID: 7, Type: "private"},
		Text:      "/start",
	}})
	if !ok {
		t.Fatal("ToEvent() ignored a text message")
	}
	if ev.ChatID != 7 || ev.SenderID != 7 || ev.MessageID != 10 || ev.SenderName != "Ann Lee" {
		t.Errorf("event = %+v", ev)
	}
	if cmd, _ := ev.Command(); cmd != "start" {
		t.Errorf("Command() = %q", cmd)
	}
}

func TestToEventPhotoUsesLargestSize(t *testing.T) {
	ev, ok := ToEvent(tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 1, UserName: "owner"},
		Chat:    &tgbotapi.Chat{ID: 1, Type: "private"},
		Caption: "/setwelcome",
		Photo:   []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}})
	if !ok {
		t.Fatal("ToEvent() ignored a photo")
	}
	if ev.Media.Kind != model.MediaPhoto || ev.Media.FileID != "large" {
		t.Errorf("media = %+v", ev.Media)
	}
	if ev.Text != "/setwelcome" {
		t.Errorf("caption should become the text, got %q", ev.Text)
	}
	if ev.SenderName != "@owner" {
		t.Errorf("SenderName = %q", ev.SenderName)
	}
}

func TestToEventAnimationBeforeDocument(t *testing.T) {
	ev, _ := ToEvent(tgbotapi.Update{Message: &tgbotapi.Message{
		From:      &tgbotapi.User{ID: 1},
		Chat:      &tgbotapi.Chat{ID: 1, Type: "private"},
		Animation: &tgbotapi.Animation{FileID: "gif"},
		Document:  &tgbotapi.Document{FileID: "gif"},
	}})
	if ev.Media.Kind != model.MediaAnimation {
		t.Errorf("Kind = %q, want animation", ev.Media.Kind)
	}
}

func TestToEventCallback(t *testing.T) {
	ev, ok := ToEvent(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 9},
		Data:    "force_done",
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 9, Type: "private"}},
	}})
	if !ok || !ev.IsCallback() || ev.CallbackData != "force_done" || ev.ChatID != 9 || ev.MessageID != 3 {
		t.Errorf("event = %+v ok=%v", ev, ok)
	}
}

func TestToEventIgnoresChannelPosts(t *testing.T) {
	if _, ok := ToEvent(tgbotapi.Update{ChannelPost: &tgbotapi.Message{Text: "hi"}}); ok {
		t.Error("channel posts should be ignored")
	}
}
