package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/repository"
)

// BroadcastReport counts deliveries.
type BroadcastReport struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Broadcaster sends one message to every known user.
type Broadcaster struct {
	store       *repository.Store
	msgr        messenger.Messenger
	concurrency int
	log         *zap.Logger
}

func NewBroadcaster(store *repository.Store, msgr messenger.Messenger, concurrency int) *Broadcaster {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Broadcaster{
		store:       store,
		msgr:        msgr,
		concurrency: concurrency,
		log:         logger.Named("broadcast"),
	}
}

// Broadcast delivers media to every user. A failed recipient is counted and never stops the
// others; a cancelled ctx counts the remaining recipients as failed.
func (b *Broadcaster) Broadcast(ctx context.Context, media model.Media) BroadcastReport {
	users := b.store.Users.List()
	var sent, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for _, u := range users {
		g.Go(func() error {
			if ctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			if _, err := b.msgr.Send(ctx, u.ID, media, messenger.SendOptions{}); err != nil {
				failed.Add(1)
				b.log.Debug("broadcast delivery failed", zap.Int64("user", u.ID), zap.Error(err))
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report := BroadcastReport{Sent: int(sent.Load()), Failed: int(failed.Load())}
	b.log.Info("broadcast finished", zap.Int("sent", report.Sent), zap.Int("failed", report.Failed))
	return report
}
