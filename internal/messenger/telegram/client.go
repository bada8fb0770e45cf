// Package telegram implements messenger.Messenger on the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/utils"
)

// Client wraps a BotAPI.
type Client struct {
	api  *tgbotapi.BotAPI
	http *utils.HTTPClient
	log  *zap.Logger
}

var _ messenger.Messenger = (*Client)(nil)

// New authenticates with token.
func New(token string, debug bool) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	api.Debug = debug
	return &Client{api: api, http: utils.NewHTTPClient(), log: logger.Named("telegram")}, nil
}

// Username is the bot's @name without the at sign.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

func (c *Client) Send(ctx context.Context, chatID int64, m model.Media, opts messenger.SendOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	markup := replyMarkup(opts)

	if m.Kind == model.MediaCopy {
		cfg := tgbotapi.NewCopyMessage(chatID, m.FromChatID, m.MessageID)
		cfg.ReplyMarkup = markup
		cfg.ReplyToMessageID = opts.ReplyTo
		if m.Text != "" {
			cfg.Caption = m.Text
		}
		id, err := c.api.CopyMessage(cfg)
		if err != nil {
			return 0, &model.DeliveryError{ChatID: chatID, Op: "copy", Err: err}
		}
		return id.MessageID, nil
	}

	var cfg tgbotapi.Chattable
	switch m.Kind {
	case model.MediaPhoto:
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(m.FileID))
		p.Caption, p.ReplyMarkup, p.ReplyToMessageID = m.Text, markup, opts.ReplyTo
		cfg = p
	case model.MediaVideo:
		v := tgbotapi.NewVideo(chatID, tgbotapi.FileID(m.FileID))
		v.Caption, v.ReplyMarkup, v.ReplyToMessageID = m.Text, markup, opts.ReplyTo
		cfg = v
	case model.MediaDocument:
		d := tgbotapi.NewDocument(chatID, tgbotapi.FileID(m.FileID))
		d.Caption, d.ReplyMarkup, d.ReplyToMessageID = m.Text, markup, opts.ReplyTo
		cfg = d
	case model.MediaAnimation:
		a := tgbotapi.NewAnimation(chatID, tgbotapi.FileID(m.FileID))
		a.Caption, a.ReplyMarkup, a.ReplyToMessageID = m.Text, markup, opts.ReplyTo
		cfg = a
	case model.MediaSticker:
		s := tgbotapi.NewSticker(chatID, tgbotapi.FileID(m.FileID))
		s.ReplyMarkup, s.ReplyToMessageID = markup, opts.ReplyTo
		cfg = s
	default:
		msg := tgbotapi.NewMessage(chatID, m.Text)
		msg.ReplyMarkup, msg.ReplyToMessageID = markup, opts.ReplyTo
		msg.DisableWebPagePreview = true
		cfg = msg
	}

	sent, err := c.api.Send(cfg)
	if err != nil {
		return 0, &model.DeliveryError{ChatID: chatID, Op: "send", Err: err}
	}
	return sent.MessageID, nil
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		if isGone(err) {
			return messenger.ErrMessageGone
		}
		return &model.DeliveryError{ChatID: chatID, Op: "delete", Err: err}
	}
	return nil
}

func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, kb messenger.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cfg tgbotapi.EditMessageTextConfig
	if len(kb) > 0 {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, inlineKeyboard(kb))
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	if _, err := c.api.Request(cfg); err != nil {
		if isGone(err) {
			return messenger.ErrMessageGone
		}
		return &model.DeliveryError{ChatID: chatID, Op: "edit", Err: err}
	}
	return nil
}

func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("get chat member %d in %d: %w", userID, chatID, err)
	}
	return member.Status, nil
}

func (c *Client) LookupChat(ctx context.Context, ref string) (messenger.Chat, error) {
	if err := ctx.Err(); err != nil {
		return messenger.Chat{}, err
	}
	cfg := tgbotapi.ChatInfoConfig{}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = "@" + strings.TrimPrefix(ref, "@")
	}
	chat, err := c.api.GetChat(cfg)
	if err != nil {
		return messenger.Chat{}, fmt.Errorf("get chat %s: %w", ref, err)
	}
	return messenger.Chat{
		ID:         chat.ID,
		Title:      chat.Title,
		Username:   chat.UserName,
		InviteLink: chat.InviteLink,
	}, nil
}

func (c *Client) SendFile(ctx context.Context, chatID int64, name string, data []byte, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	sent, err := c.api.Send(doc)
	if err != nil {
		return 0, &model.DeliveryError{ChatID: chatID, Op: "send file", Err: err}
	}
	return sent.MessageID, nil
}

func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	data, err := c.http.GetBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	return data, nil
}

func (c *Client) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func isGone(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message to edit not found") ||
		strings.Contains(msg, "message can't be deleted")
}

func replyMarkup(opts messenger.SendOptions) any {
	if len(opts.Keyboard) > 0 {
		return inlineKeyboard(opts.Keyboard)
	}
	if len(opts.ReplyMenu) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(opts.ReplyMenu))
		for _, r := range opts.ReplyMenu {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, label := range r {
				row = append(row, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, row)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		return kb
	}
	return nil
}

func inlineKeyboard(kb messenger.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
