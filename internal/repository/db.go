package repository

import (
	"errors"
	"fmt"
	"os"

	"github.com/user/moviebot/internal/model"
)

// Store 同一数据目录下的全部集合
type Store struct {
	Dir      string
	Movies   *Collection[model.Movie]
	Ads      *Collection[model.Ad]
	Users    *Collection[model.User]
	Settings *Collection[model.Settings]
	Channels *Collection[model.ForceChannel]
	Buttons  *Collection[model.Button]
	Welcomes *Collection[model.WelcomeItem]
}

// Open 从 dir 加载所有集合，目录不存在时自动创建
// 任一文件格式错误都会返回 *model.CorruptionError
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{Dir: dir}
	var errs []error
	var err error
	if s.Movies, err = openCollection[model.Movie](dir, "movies"); err != nil {
		errs = append(errs, err)
	}
	if s.Ads, err = openCollection[model.Ad](dir, "ads"); err != nil {
		errs = append(errs, err)
	}
	if s.Users, err = openCollection[model.User](dir, "users"); err != nil {
		errs = append(errs, err)
	}
	if s.Settings, err = openCollection[model.Settings](dir, "settings"); err != nil {
		errs = append(errs, err)
	}
	if s.Channels, err = openCollection[model.ForceChannel](dir, "channels"); err != nil {
		errs = append(errs, err)
	}
	if s.Buttons, err = openCollection[model.Button](dir, "buttons"); err != nil {
		errs = append(errs, err)
	}
	if s.Welcomes, err = openCollection[model.WelcomeItem](dir, "welcomes"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// GetSettings 获取全局设置，未保存过时返回默认值
func (s *Store) GetSettings() model.Settings {
	st, err := s.Settings.Get(model.SettingsKey)
	if err != nil {
		return model.DefaultSettings()
	}
	return st
}

// UpdateSettings 在设置锁内修改全局设置，首次使用时从默认值开始
func (s *Store) UpdateSettings(fn func(st *model.Settings) error) (model.Settings, error) {
	return s.Settings.Upsert(model.SettingsKey, func(st *model.Settings, exists bool) error {
		if !exists {
			*st = model.DefaultSettings()
		}
		return fn(st)
	})
}
