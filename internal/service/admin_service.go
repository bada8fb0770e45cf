package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/repository"
	"github.com/user/moviebot/internal/utils"
)

// tmdbTimeout bounds description enrichment on /addmovie.
const tmdbTimeout = 8 * time.Second

// AdminService holds the owner-only operations.
type AdminService struct {
	store  *repository.Store
	msgr   messenger.Messenger
	search *SearchService
	tmdb   *TMDBService
	clock  Clock
	log    *zap.Logger
}

func NewAdminService(store *repository.Store, msgr messenger.Messenger, search *SearchService, tmdb *TMDBService, clock Clock) *AdminService {
	return &AdminService{
		store:  store,
		msgr:   msgr,
		search: search,
		tmdb:   tmdb,
		clock:  clock,
		log:    logger.Named("admin"),
	}
}

// MovieInput describes a new movie.
type MovieInput struct {
	Title       string
	Code        string
	Description string
	Media       model.Media
}

// MoviePatch changes the set fields of a movie.
type MoviePatch struct {
	Title       *string
	Code        *string
	Description *string
	Media       *model.Media
}

// AddMovie stores a new movie under a fresh id. A missing description is looked up on TMDB
// when enrichment is enabled.
func (s *AdminService) AddMovie(ctx context.Context, in MovieInput) (model.Movie, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Code = model.NormalizeCode(in.Code)
	if in.Title == "" {
		return model.Movie{}, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	if err := s.checkCode(in.Code, ""); err != nil {
		return model.Movie{}, err
	}
	if in.Description == "" && s.tmdb != nil {
		tctx, cancel := context.WithTimeout(ctx, tmdbTimeout)
		overview, err := s.tmdb.Overview(tctx, in.Title)
		cancel()
		if err != nil {
			s.log.Info("tmdb enrichment skipped", zap.String("title", in.Title), zap.Error(err))
		} else {
			in.Description = model.Truncate(overview, 1000)
		}
	}

	m, err := s.store.Movies.InsertIf(codeFree(in.Code, ""), func(id string) (model.Movie, error) {
		return model.Movie{
			ID:          id,
			Code:        in.Code,
			Title:       in.Title,
			Description: in.Description,
			Media:       in.Media,
			AddedAt:     s.clock.Now(),
		}, nil
	})
	if err != nil {
		return model.Movie{}, fmt.Errorf("add movie: %w", err)
	}
	s.search.InvalidateCache()
	s.log.Info("movie added", zap.String("id", m.ID), zap.String("title", m.Title))
	return m, nil
}

// EditMovie applies a partial update.
func (s *AdminService) EditMovie(id string, p MoviePatch) (model.Movie, error) {
	var check func([]model.Movie) error
	if p.Code != nil {
		code := model.NormalizeCode(*p.Code)
		p.Code = &code
		check = codeFree(code, id)
	}
	m, err := s.store.Movies.UpdateIf(id, check, func(m *model.Movie) error {
		if p.Title != nil {
			m.Title = strings.TrimSpace(*p.Title)
		}
		if p.Code != nil {
			m.Code = *p.Code
		}
		if p.Description != nil {
			m.Description = *p.Description
		}
		if p.Media != nil {
			m.Media = *p.Media
		}
		return nil
	})
	if err != nil {
		return model.Movie{}, fmt.Errorf("edit movie: %w", err)
	}
	s.search.InvalidateCache()
	return m, nil
}

// codePrefix forces a code lookup for codes that look like ids.
const codePrefix = "code:"

// RemoveMovie deletes a movie by reference (see FindMovie). Removing a missing movie is not an
// error.
func (s *AdminService) RemoveMovie(ref string) (bool, error) {
	m, err := s.FindMovie(ref)
	if err != nil {
		return false, nil
	}
	removed, err := s.store.Movies.Delete(m.ID)
	if err != nil {
		return false, fmt.Errorf("remove movie: %w", err)
	}
	if removed {
		s.search.InvalidateCache()
	}
	return removed, nil
}

// FindMovie resolves a reference. A numeric ref is only ever an id, "code:X" is only ever a
// code, anything else is tried as an id and then as a code.
func (s *AdminService) FindMovie(ref string) (model.Movie, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) > len(codePrefix) && strings.EqualFold(ref[:len(codePrefix)], codePrefix) {
		return s.movieByCode(ref[len(codePrefix):])
	}
	if m, err := s.store.Movies.Get(ref); err == nil {
		return m, nil
	}
	if _, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return model.Movie{}, fmt.Errorf("movie %s: %w", ref, model.ErrNotFound)
	}
	return s.movieByCode(ref)
}

func (s *AdminService) movieByCode(ref string) (model.Movie, error) {
	code := model.NormalizeCode(ref)
	if code != "" {
		for _, m := range s.store.Movies.List() {
			if m.Code == code {
				return m, nil
			}
		}
	}
	return model.Movie{}, fmt.Errorf("movie code %q: %w", ref, model.ErrNotFound)
}

func (s *AdminService) ListMovies() []model.Movie {
	return s.store.Movies.List()
}

func (s *AdminService) checkCode(code, selfID string) error {
	return codeFree(code, selfID)(s.store.Movies.List())
}

// codeFree reports ErrDuplicate when another movie already carries code.
func codeFree(code, selfID string) func([]model.Movie) error {
	return func(movies []model.Movie) error {
		if code == "" {
			return nil
		}
		for _, m := range movies {
			if m.Code == code && m.ID != selfID {
				return fmt.Errorf("%w: code %s is used by %q", model.ErrDuplicate, code, m.Title)
			}
		}
		return nil
	}
}

// AdPatch changes the set fields of an ad.
type AdPatch struct {
	Media          *model.Media
	DisplaySeconds *int
}

// AddAd stores a new active ad. seconds < 0 selects the default duration.
func (s *AdminService) AddAd(media model.Media, seconds int) (model.Ad, error) {
	if media.IsZero() {
		return model.Ad{}, fmt.Errorf("%w: ad content is required", model.ErrInvalidInput)
	}
	if seconds < 0 {
		seconds = model.DefaultAdSeconds
	}
	ad, err := s.store.Ads.Insert(func(id string) (model.Ad, error) {
		return model.Ad{ID: id, Media: media, DisplaySeconds: seconds, Active: true, AddedAt: s.clock.Now()}, nil
	})
	if err != nil {
		return model.Ad{}, fmt.Errorf("add ad: %w", err)
	}
	return ad, nil
}

func (s *AdminService) FindAd(id string) (model.Ad, error) {
	return s.store.Ads.Get(strings.TrimSpace(id))
}

// EditAd applies a partial update; the ad keeps its place in the rotation.
func (s *AdminService) EditAd(id string, p AdPatch) (model.Ad, error) {
	ad, err := s.store.Ads.Update(id, func(a *model.Ad) error {
		if p.Media != nil {
			a.Media = *p.Media
		}
		if p.DisplaySeconds != nil {
			a.DisplaySeconds = *p.DisplaySeconds
		}
		return nil
	})
	if err != nil {
		return model.Ad{}, fmt.Errorf("edit ad: %w", err)
	}
	return ad, nil
}

// RemoveAd is idempotent.
func (s *AdminService) RemoveAd(id string) (bool, error) {
	return s.store.Ads.Delete(id)
}

// SetAdActive turns an ad on or off.
func (s *AdminService) SetAdActive(id string, active bool) (model.Ad, error) {
	return s.store.Ads.Update(id, func(a *model.Ad) error {
		if a.Active == active {
			return repository.ErrNoChange
		}
		a.Active = active
		return nil
	})
}

func (s *AdminService) ListAds() []model.Ad {
	return s.store.Ads.List()
}

// AddChannel resolves ref (id or @username) and requires it for searching. link overrides the
// join link read from the platform.
func (s *AdminService) AddChannel(ctx context.Context, ref, link string) (model.ForceChannel, error) {
	chat, err := s.msgr.LookupChat(ctx, strings.TrimSpace(ref))
	if err != nil {
		return model.ForceChannel{}, fmt.Errorf("look up channel: %w", err)
	}
	if link == "" {
		link = chat.InviteLink
	}
	if link == "" {
		link = utils.ChannelLink(chat.Username)
	}
	title := chat.Title
	if title == "" {
		title = chat.Username
	}
	ch := model.ForceChannel{
		ID:       strconv.FormatInt(chat.ID, 10),
		ChatID:   chat.ID,
		Title:    title,
		JoinLink: link,
	}
	if err := s.store.Channels.Put(ch); err != nil {
		return model.ForceChannel{}, fmt.Errorf("add channel: %w", err)
	}
	return ch, nil
}

func (s *AdminService) RemoveChannel(id string) (bool, error) {
	return s.store.Channels.Delete(strings.TrimSpace(id))
}

func (s *AdminService) ListChannels() []model.ForceChannel {
	return s.store.Channels.List()
}

// AddButton appends a start-menu URL button.
func (s *AdminService) AddButton(name, link string, row int) (model.Button, error) {
	b, err := s.store.Buttons.Insert(func(id string) (model.Button, error) {
		return model.Button{ID: id, Name: strings.TrimSpace(name), Link: strings.TrimSpace(link), Row: row}, nil
	})
	if err != nil {
		return model.Button{}, fmt.Errorf("add button: %w", err)
	}
	return b, nil
}

func (s *AdminService) RemoveButton(id string) (bool, error) {
	return s.store.Buttons.Delete(id)
}

func (s *AdminService) ListButtons() []model.Button {
	return s.store.Buttons.List()
}

// AddWelcome adds an item to the /start rotation.
func (s *AdminService) AddWelcome(media model.Media) (model.WelcomeItem, error) {
	if media.IsZero() {
		return model.WelcomeItem{}, fmt.Errorf("%w: welcome content is required", model.ErrInvalidInput)
	}
	return s.store.Welcomes.Insert(func(id string) (model.WelcomeItem, error) {
		return model.WelcomeItem{ID: id, Media: media, AddedAt: s.clock.Now()}, nil
	})
}

func (s *AdminService) RemoveWelcome(id string) (bool, error) {
	return s.store.Welcomes.Delete(id)
}

func (s *AdminService) ListWelcomes() []model.WelcomeItem {
	return s.store.Welcomes.List()
}

// SetMaintenance switches maintenance mode.
func (s *AdminService) SetMaintenance(on bool) (model.Settings, error) {
	return s.store.UpdateSettings(func(st *model.Settings) error {
		st.Maintenance = on
		return nil
	})
}

// ToggleMaintenance flips maintenance mode.
func (s *AdminService) ToggleMaintenance() (model.Settings, error) {
	return s.store.UpdateSettings(func(st *model.Settings) error {
		st.Maintenance = !st.Maintenance
		return nil
	})
}

// SetCooldown sets the gap between searches.
func (s *AdminService) SetCooldown(seconds int) (model.Settings, error) {
	if seconds < 0 {
		return model.Settings{}, fmt.Errorf("%w: cooldown must not be negative", model.ErrInvalidInput)
	}
	return s.store.UpdateSettings(func(st *model.Settings) error {
		st.CooldownSeconds = seconds
		return nil
	})
}

// SetOverlay replaces the welcome, searching or force-join content. Zero media restores the
// built-in text.
func (s *AdminService) SetOverlay(name string, media model.Media) (model.Settings, error) {
	return s.store.UpdateSettings(func(st *model.Settings) error {
		switch name {
		case model.OverlayWelcome:
			st.Welcome = media
		case model.OverlaySearching:
			st.Searching = media
		case model.OverlayForceJoin:
			st.ForceJoin = media
		default:
			return fmt.Errorf("%w: unknown overlay %q", model.ErrInvalidInput, name)
		}
		return nil
	})
}

// Auto-delete targets.
const (
	AutoDeleteResults = "dm"
	AutoDeleteGroups  = "group"
)

// SetAutoDelete sets the auto-delete delay for result messages or group messages; 0 disables.
func (s *AdminService) SetAutoDelete(target string, seconds int) (model.Settings, error) {
	if seconds < 0 {
		return model.Settings{}, fmt.Errorf("%w: seconds must not be negative", model.ErrInvalidInput)
	}
	return s.store.UpdateSettings(func(st *model.Settings) error {
		switch target {
		case AutoDeleteResults:
			st.ResultAutoDeleteSeconds = seconds
		case AutoDeleteGroups:
			st.GroupAutoDeleteSeconds = seconds
		case "off":
			st.ResultAutoDeleteSeconds, st.GroupAutoDeleteSeconds = 0, 0
		default:
			return fmt.Errorf("%w: unknown auto-delete target %q", model.ErrInvalidInput, target)
		}
		return nil
	})
}

// Backup serializes the whole store as a bundle document.
func (s *AdminService) Backup() ([]byte, error) {
	data, err := json.MarshalIndent(s.store.Backup(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// Restore replaces the store with a bundle document. Nothing changes when the bundle is invalid.
func (s *AdminService) Restore(data []byte) (*model.Bundle, error) {
	b, err := model.ParseBundle(data)
	if err != nil {
		return nil, err
	}
	if err := s.store.Restore(b); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	s.search.InvalidateCache()
	s.log.Info("store restored", zap.Int("movies", len(b.Movies)), zap.Int("users", len(b.Users)))
	return b, nil
}

// ClearAll empties every collection.
func (s *AdminService) ClearAll() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	s.search.InvalidateCache()
	s.log.Warn("all data cleared")
	return nil
}

// Stats is a summary for /stats and the admin API.
type Stats struct {
	Users                   int   `json:"users"`
	Movies                  int   `json:"movies"`
	Ads                     int   `json:"ads"`
	ActiveAds               int   `json:"active_ads"`
	Channels                int   `json:"channels"`
	Buttons                 int   `json:"buttons"`
	Welcomes                int   `json:"welcomes"`
	Maintenance             bool  `json:"maintenance"`
	CooldownSeconds         int   `json:"cooldown_seconds"`
	ResultAutoDeleteSeconds int   `json:"result_auto_delete_seconds"`
	GroupAutoDeleteSeconds  int   `json:"group_auto_delete_seconds"`
	ActiveSearches          int64 `json:"active_searches"`
}

func (s *AdminService) Stats() Stats {
	st := s.store.GetSettings()
	ads := s.store.Ads.List()
	active := 0
	for _, a := range ads {
		if a.Active {
			active++
		}
	}
	return Stats{
		Users:                   s.store.Users.Len(),
		Movies:                  s.store.Movies.Len(),
		Ads:                     len(ads),
		ActiveAds:               active,
		Channels:                s.store.Channels.Len(),
		Buttons:                 s.store.Buttons.Len(),
		Welcomes:                s.store.Welcomes.Len(),
		Maintenance:             st.Maintenance,
		CooldownSeconds:         st.CooldownSeconds,
		ResultAutoDeleteSeconds: st.ResultAutoDeleteSeconds,
		GroupAutoDeleteSeconds:  st.GroupAutoDeleteSeconds,
		ActiveSearches:          s.search.Active(),
	}
}
