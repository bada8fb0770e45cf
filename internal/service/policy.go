package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/repository"
)

// memberLookupLimit bounds concurrent membership lookups for one request.
const memberLookupLimit = 8

// Policy decides whether a user may search.
type Policy struct {
	store   *repository.Store
	msgr    messenger.Messenger
	ownerID int64
	log     *zap.Logger
}

func NewPolicy(store *repository.Store, msgr messenger.Messenger, ownerID int64) *Policy {
	return &Policy{
		store:   store,
		msgr:    msgr,
		ownerID: ownerID,
		log:     logger.Named("policy"),
	}
}

// IsOwner is the single authorization predicate.
func (p *Policy) IsOwner(userID int64) bool {
	return userID != 0 && userID == p.ownerID
}

// OwnerID is the configured owner.
func (p *Policy) OwnerID() int64 { return p.ownerID }

// CheckMaintenance denies non-owners while maintenance mode is on.
func (p *Policy) CheckMaintenance(userID int64) error {
	if p.IsOwner(userID) {
		return nil
	}
	if p.store.GetSettings().Maintenance {
		return &model.Denial{Reason: model.DenyMaintenance}
	}
	return nil
}

// CheckForceJoin denies when the user is missing from any required channel. A failed lookup
// counts as not joined. Missing channels keep their stored order.
func (p *Policy) CheckForceJoin(ctx context.Context, userID int64) error {
	channels := p.store.Channels.List()
	if len(channels) == 0 {
		return nil
	}

	joined := make([]bool, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(memberLookupLimit)
	for i, ch := range channels {
		g.Go(func() error {
			status, err := p.msgr.MemberStatus(gctx, ch.ChatID, userID)
			if err != nil {
				p.log.Warn("membership lookup failed",
					zap.Int64("channel", ch.ChatID), zap.Int64("user", userID), zap.Error(err))
				return nil
			}
			joined[i] = messenger.Joined(status)
			return nil
		})
	}
	_ = g.Wait()

	var missing []model.ForceChannel
	for i, ch := range channels {
		if !joined[i] {
			missing = append(missing, ch)
		}
	}
	if len(missing) > 0 {
		return &model.Denial{Reason: model.DenyForceJoin, Missing: missing}
	}
	return nil
}

// CheckCooldown claims a search slot for userID at now. The check and the timestamp update are
// one compare-and-set on the user record, so of two concurrent requests only the first passes.
// The owner is exempt and never touches the timestamp.
func (p *Policy) CheckCooldown(userID int64, now time.Time) error {
	if p.IsOwner(userID) {
		return nil
	}
	cooldown := time.Duration(p.store.GetSettings().CooldownSeconds) * time.Second

	_, err := p.store.Users.Upsert(model.UserKey(userID), func(u *model.User, exists bool) error {
		if !exists {
			u.ID = userID
			u.JoinedAt = now
		}
		if last := u.LastSearchAt; last != nil {
			elapsed := now.Sub(*last)
			if cooldown > 0 && elapsed < cooldown {
				return &model.Denial{Reason: model.DenyCooldown, Remaining: cooldown - max(elapsed, 0)}
			}
			if !now.After(*last) {
				// keeps last_search_at non-decreasing when cooldown is zero
				return repository.ErrNoChange
			}
		}
		t := now
		u.LastSearchAt = &t
		return nil
	})
	return err
}

// Evaluate runs maintenance, force-join and cooldown in that order and returns the first
// denial. Only an allowed request updates the cooldown timestamp.
func (p *Policy) Evaluate(ctx context.Context, userID int64, now time.Time) error {
	if err := p.CheckMaintenance(userID); err != nil {
		return err
	}
	if err := p.CheckForceJoin(ctx, userID); err != nil {
		return err
	}
	return p.CheckCooldown(userID, now)
}
