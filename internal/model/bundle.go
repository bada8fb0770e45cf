package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// BundleVersion is the backup format written by this build.
const BundleVersion = 1

// Bundle is a full snapshot of every collection.
type Bundle struct {
	FormatVersion int            `json:"format_version"`
	CreatedAt     time.Time      `json:"created_at"`
	Movies        []Movie        `json:"movies" validate:"dive"`
	Ads           []Ad           `json:"ads" validate:"dive"`
	Users         []User         `json:"users" validate:"dive"`
	Settings      []Settings     `json:"settings" validate:"max=1,dive"`
	Channels      []ForceChannel `json:"channels" validate:"dive"`
	Buttons       []Button       `json:"buttons" validate:"dive"`
	Welcomes      []WelcomeItem  `json:"welcomes" validate:"dive"`
}

// ParseBundle decodes and validates a backup document.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: decode bundle: %v", ErrInvalidInput, err)
	}
	if err := ValidateBundle(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ValidateBundle checks the version, every record and id uniqueness per collection.
func ValidateBundle(b *Bundle) error {
	if b.FormatVersion != BundleVersion {
		return fmt.Errorf("%w: unsupported bundle format_version %d", ErrInvalidInput, b.FormatVersion)
	}
	if err := Validate(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	checks := []struct {
		name string
		keys []string
	}{
		{"movies", keysOf(b.Movies)},
		{"ads", keysOf(b.Ads)},
		{"users", keysOf(b.Users)},
		{"settings", keysOf(b.Settings)},
		{"channels", keysOf(b.Channels)},
		{"buttons", keysOf(b.Buttons)},
		{"welcomes", keysOf(b.Welcomes)},
	}
	for _, c := range checks {
		seen := make(map[string]struct{}, len(c.keys))
		for _, k := range c.keys {
			if _, dup := seen[k]; dup {
				return fmt.Errorf("%w: duplicate id %q in %s", ErrInvalidInput, k, c.name)
			}
			seen[k] = struct{}{}
		}
	}
	return nil
}

func keysOf[T interface{ Key() string }](recs []T) []string {
	keys := make([]string, len(recs))
	for i, r := range recs {
		keys[i] = r.Key()
	}
	return keys
}
