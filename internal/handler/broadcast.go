package handler

import (
	"context"
	"fmt"

	"github.com/user/moviebot/internal/model"
)

// /broadcast [text]
// Attached media or inline text is sent right away, otherwise the next message is.
func (d *Dispatcher) broadcast(ctx context.Context, ev model.Event, args string) error {
	switch {
	case !ev.Media.IsZero():
		media := ev.Media
		media.Text = args
		return d.runBroadcast(ctx, ev.ChatID, media)
	case args != "":
		return d.runBroadcast(ctx, ev.ChatID, model.TextMedia(args))
	}
	return d.await(ctx, ev, pendingAction{Kind: pendingBroadcast},
		"📣 Send the message to broadcast to every user.")
}

func (d *Dispatcher) runBroadcast(ctx context.Context, chatID int64, media model.Media) error {
	if media.IsZero() {
		return invalid("nothing to broadcast")
	}
	d.reply(ctx, chatID, fmt.Sprintf("📣 Broadcasting to %d user(s)...", d.Store.Users.Len()))
	report := d.Broadcaster.Broadcast(ctx, media)
	d.reply(ctx, chatID, fmt.Sprintf("✅ Broadcast finished\n• Sent: %d\n• Failed: %d", report.Sent, report.Failed))
	return nil
}
