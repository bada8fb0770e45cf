package model

// SettingsKey is the id of the settings singleton.
const SettingsKey = "global"

// DefaultCooldownSeconds is the default gap between two searches of one user.
const DefaultCooldownSeconds = 90

// Settings is the singleton bot configuration record.
type Settings struct {
	ID                      string `json:"id" validate:"required,eq=global"`
	Maintenance             bool   `json:"maintenance"`
	CooldownSeconds         int    `json:"cooldown_seconds" validate:"gte=0"`
	Welcome                 Media  `json:"welcome"`
	Searching               Media  `json:"searching"`
	ForceJoin               Media  `json:"force_join"`
	ResultAutoDeleteSeconds int    `json:"result_auto_delete_seconds" validate:"gte=0"`
	GroupAutoDeleteSeconds  int    `json:"group_auto_delete_seconds" validate:"gte=0"`
	AdCursor                int    `json:"ad_cursor" validate:"gte=0"`
	WelcomeCursor           int    `json:"welcome_cursor" validate:"gte=0"`
}

func (s Settings) Key() string { return s.ID }

// DefaultSettings is used until the owner changes anything.
func DefaultSettings() Settings {
	return Settings{
		ID:              SettingsKey,
		CooldownSeconds: DefaultCooldownSeconds,
	}
}

// Overlay names accepted by SetOverlay.
const (
	OverlayWelcome   = "welcome"
	OverlaySearching = "searching"
	OverlayForceJoin = "forcejoin"
)
