package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/repository"
)

// DefaultWelcome greets users when the owner configured nothing.
const DefaultWelcome = "👋 Welcome!\n\nSend a movie name or code and I will find it for you."

// Reply keyboard labels.
const (
	MenuSearch = "🔍 Search Movie"
	MenuList   = "📋 Movie List"
)

// UserService tracks users and builds the /start greeting.
type UserService struct {
	store   *repository.Store
	msgr    messenger.Messenger
	ownerID int64
	clock   Clock
	log     *zap.Logger
}

func NewUserService(store *repository.Store, msgr messenger.Messenger, ownerID int64, clock Clock) *UserService {
	return &UserService{
		store:   store,
		msgr:    msgr,
		ownerID: ownerID,
		clock:   clock,
		log:     logger.Named("users"),
	}
}

// Register records a user on first contact and tells the owner about newcomers. It reports
// whether the user is new.
func (s *UserService) Register(ctx context.Context, id int64, name string) (bool, error) {
	var created bool
	_, err := s.store.Users.Upsert(model.UserKey(id), func(u *model.User, exists bool) error {
		if exists {
			if name == "" || u.Name == name {
				return repository.ErrNoChange
			}
			u.Name = name
			return nil
		}
		created = true
		*u = model.User{ID: id, Name: name, JoinedAt: s.clock.Now()}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("register user %d: %w", id, err)
	}
	if created && id != s.ownerID {
		text := fmt.Sprintf("🆕 New user: %s (%d)\n👥 Total users: %d", name, id, s.store.Users.Len())
		if _, err := messenger.SendText(ctx, s.msgr, s.ownerID, text); err != nil {
			s.log.Debug("notify owner failed", zap.Error(err))
		}
	}
	return created, nil
}

// NextWelcome returns the next rotating welcome item, the configured welcome overlay, or the
// built-in greeting, in that order of preference.
func (s *UserService) NextWelcome() model.Media {
	items := s.store.Welcomes.List()
	if len(items) == 0 {
		return orDefault(s.store.GetSettings().Welcome, DefaultWelcome)
	}
	var picked model.Media
	_, err := s.store.UpdateSettings(func(st *model.Settings) error {
		idx := st.WelcomeCursor % len(items)
		picked = items[idx].Media
		st.WelcomeCursor = (idx + 1) % len(items)
		return nil
	})
	if err != nil {
		s.log.Warn("advance welcome cursor failed", zap.Error(err))
		return items[0].Media
	}
	return picked
}

// StartKeyboard lays out the start buttons by row, two per row when rows are not set.
func (s *UserService) StartKeyboard() messenger.Keyboard {
	buttons := s.store.Buttons.List()
	if len(buttons) == 0 {
		return nil
	}
	rows := map[int][]messenger.Button{}
	var order []int
	for i, b := range buttons {
		row := b.Row
		if row == 0 {
			row = i/model.ButtonsPerRow + 1
		}
		if _, ok := rows[row]; !ok {
			order = append(order, row)
		}
		rows[row] = append(rows[row], messenger.Button{Text: b.Name, URL: b.Link})
	}
	sort.Ints(order)
	kb := make(messenger.Keyboard, 0, len(order))
	for _, r := range order {
		kb = append(kb, rows[r])
	}
	return kb
}

// Menu is the reply keyboard shown after /start.
func Menu() [][]string {
	return [][]string{{MenuSearch}, {MenuList}}
}

// Purge removes users whose last activity is older than days. It returns how many were removed.
func (s *UserService) Purge(days int) (int, error) {
	if days < 1 {
		return 0, fmt.Errorf("%w: days must be at least 1", model.ErrInvalidInput)
	}
	cutoff := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	var removed int
	for _, u := range s.store.Users.List() {
		if u.ID == s.ownerID || !u.LastSeen().Before(cutoff) {
			continue
		}
		ok, err := s.store.Users.Delete(u.Key())
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
