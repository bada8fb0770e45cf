package repository

import (
	"fmt"
	"time"

	"github.com/user/moviebot/internal/model"
)

type lockable interface {
	lock()
	unlock()
	rlock()
	runlock()
}

// collections returns every collection in the fixed lock order.
func (s *Store) collections() []lockable {
	return []lockable{s.Movies, s.Ads, s.Users, s.Settings, s.Channels, s.Buttons, s.Welcomes}
}

// Backup snapshots every collection into one bundle. All collections are read-locked together
// so the bundle is consistent.
func (s *Store) Backup() *model.Bundle {
	cols := s.collections()
	for _, c := range cols {
		c.rlock()
	}
	defer func() {
		for i := len(cols) - 1; i >= 0; i-- {
			cols[i].runlock()
		}
	}()

	return &model.Bundle{
		FormatVersion: model.BundleVersion,
		CreatedAt:     time.Now().UTC(),
		Movies:        s.Movies.listLocked(),
		Ads:           s.Ads.listLocked(),
		Users:         s.Users.listLocked(),
		Settings:      s.Settings.listLocked(),
		Channels:      s.Channels.listLocked(),
		Buttons:       s.Buttons.listLocked(),
		Welcomes:      s.Welcomes.listLocked(),
	}
}

// Restore replaces the whole store with b. The bundle is validated and every collection is
// written to a temp file before any live file is replaced; on failure nothing changes.
func (s *Store) Restore(b *model.Bundle) error {
	if err := model.ValidateBundle(b); err != nil {
		return err
	}

	cols := s.collections()
	for _, c := range cols {
		c.lock()
	}
	defer func() {
		for i := len(cols) - 1; i >= 0; i-- {
			cols[i].unlock()
		}
	}()

	var pending []staged
	abort := func() {
		for _, p := range pending {
			p.abort()
		}
	}
	stage := func(st staged, err error) error {
		if err != nil {
			abort()
			return err
		}
		pending = append(pending, st)
		return nil
	}

	if err := stage(s.Movies.stageLocked(b.Movies)); err != nil {
		return err
	}
	if err := stage(s.Ads.stageLocked(b.Ads)); err != nil {
		return err
	}
	if err := stage(s.Users.stageLocked(b.Users)); err != nil {
		return err
	}
	if err := stage(s.Settings.stageLocked(b.Settings)); err != nil {
		return err
	}
	if err := stage(s.Channels.stageLocked(b.Channels)); err != nil {
		return err
	}
	if err := stage(s.Buttons.stageLocked(b.Buttons)); err != nil {
		return err
	}
	if err := stage(s.Welcomes.stageLocked(b.Welcomes)); err != nil {
		return err
	}

	for i, p := range pending {
		if err := p.commit(); err != nil {
			for _, rest := range pending[i+1:] {
				rest.abort()
			}
			return fmt.Errorf("restore interrupted: %w", err)
		}
	}
	return nil
}

// Clear empties every collection.
func (s *Store) Clear() error {
	return s.Restore(&model.Bundle{FormatVersion: model.BundleVersion})
}
