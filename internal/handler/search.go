package handler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/service"
)

// movieListLimit caps the public catalog listing.
const movieListLimit = 50

func (d *Dispatcher) runSearch(ctx context.Context, ev model.Event, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	out, err := d.Search.Search(ctx, service.SearchRequest{
		ChatID: ev.ChatID,
		UserID: ev.SenderID,
		Query:  query,
	})
	if err != nil {
		// the user was already told
		d.log.Warn("search failed", zap.Int64("user", ev.SenderID), zap.String("query", query),
			zap.String("state", string(out.State)), zap.Error(err))
		return nil
	}
	d.log.Debug("search done", zap.Int64("user", ev.SenderID), zap.String("query", query),
		zap.String("state", string(out.State)), zap.Int("results", len(out.Results)))
	return nil
}

// movieList shows titles and codes of the catalog.
func (d *Dispatcher) movieList(ctx context.Context, ev model.Event) error {
	movies := d.Store.Movies.List()
	if len(movies) == 0 {
		d.reply(ctx, ev.ChatID, "📭 The catalog is empty.")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Movies (%d)\n\n", len(movies))
	for i, m := range movies {
		if i == movieListLimit {
			fmt.Fprintf(&b, "\n…and %d more. Search by name to find them.", len(movies)-movieListLimit)
			break
		}
		if m.Code != "" {
			fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, m.Title, m.Code)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, m.Title)
		}
	}
	d.reply(ctx, ev.ChatID, b.String())
	return nil
}
