package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/service"
)

// pendingKind names an owner dialog waiting for the next message.
type pendingKind string

const (
	pendingOverlay   pendingKind = "overlay"
	pendingMovie     pendingKind = "movie"
	pendingMovieEdit pendingKind = "movie_media"
	pendingAd        pendingKind = "ad"
	pendingAdEdit    pendingKind = "ad_media"
	pendingWelcome   pendingKind = "welcome"
	pendingBroadcast pendingKind = "broadcast"
	pendingRestore   pendingKind = "restore"
)

type pendingAction struct {
	Kind    pendingKind
	Overlay string
	Movie   service.MovieInput
	MovieID string
	AdID    string
	Seconds int
}

func pendingKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// await stores a dialog and tells the owner what to send.
func (d *Dispatcher) await(ctx context.Context, ev model.Event, a pendingAction, prompt string) error {
	d.pending.Set(pendingKey(ev.ChatID), a)
	d.reply(ctx, ev.ChatID, prompt+"\n\nSend /cancel to abort.")
	return nil
}

// resumePending completes a waiting dialog with ev. done is false when nothing was waiting.
func (d *Dispatcher) resumePending(ctx context.Context, ev model.Event) (done bool, err error) {
	a, ok := d.pending.Take(pendingKey(ev.ChatID))
	if !ok {
		return false, nil
	}
	content := ev.Content()

	switch a.Kind {
	case pendingRestore:
		return true, d.restoreFrom(ctx, ev)
	case pendingBroadcast:
		return true, d.runBroadcast(ctx, ev.ChatID, content)
	}

	if content.IsZero() {
		d.pending.Set(pendingKey(ev.ChatID), a)
		d.reply(ctx, ev.ChatID, "⚠️ Send a text, photo, video, document, GIF or sticker.")
		return true, nil
	}

	switch a.Kind {
	case pendingOverlay:
		return true, d.setOverlay(ctx, ev.ChatID, a.Overlay, content)
	case pendingMovie:
		a.Movie.Media = content
		return true, d.saveMovie(ctx, ev.ChatID, a.Movie)
	case pendingMovieEdit:
		m, err := d.Admin.EditMovie(a.MovieID, service.MoviePatch{Media: &content})
		if err != nil {
			return true, err
		}
		d.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Content of \"%s\" replaced.", m.Title))
		return true, nil
	case pendingAd:
		return true, d.saveAd(ctx, ev.ChatID, content, a.Seconds)
	case pendingAdEdit:
		return true, d.saveAdEdit(ctx, ev.ChatID, a.AdID, service.AdPatch{Media: &content})
	case pendingWelcome:
		return true, d.saveWelcome(ctx, ev.ChatID, content)
	}
	return true, fmt.Errorf("unknown pending action %q", a.Kind)
}

func (d *Dispatcher) cancel(ctx context.Context, ev model.Event, _ string) error {
	if _, ok := d.pending.Take(pendingKey(ev.ChatID)); ok {
		d.reply(ctx, ev.ChatID, "✅ Cancelled.")
		return nil
	}
	d.reply(ctx, ev.ChatID, "Nothing to cancel.")
	return nil
}
