package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/user/moviebot/internal/model"
)

// EventFunc consumes converted updates. It must not block for long.
type EventFunc func(model.Event)

// Poll long-polls for updates until ctx is done.
func (c *Client) Poll(ctx context.Context, handle EventFunc) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		c.log.Warn("delete webhook failed", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)
	c.log.Info("polling for updates", zap.String("bot", c.Username()))

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := ToEvent(upd); ok {
				handle(ev)
			}
		}
	}
}

// SetWebhook registers url with Telegram.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	info, err := c.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("webhook info: %w", err)
	}
	if info.LastErrorDate != 0 {
		c.log.Warn("telegram reports a webhook error", zap.String("error", info.LastErrorMessage))
	}
	return nil
}

// ParseWebhook decodes a webhook request body into an event.
func (c *Client) ParseWebhook(r *http.Request) (model.Event, bool, error) {
	upd, err := c.api.HandleUpdate(r)
	if err != nil {
		return model.Event{}, false, err
	}
	ev, ok := ToEvent(*upd)
	return ev, ok, nil
}
