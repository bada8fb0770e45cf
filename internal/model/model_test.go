package model

import (
	"errors"
	"testing"
	"time"
)

func TestEventCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantCmd  string
		wantRest string
	}{
		{"/start", "start", ""},
		{"/Start@MovieBot hello", "start", "hello"},
		{"  /addmovie Inception | dream heist ", "addmovie", "Inception | dream heist"},
		{"/addmovie\nInception", "addmovie", "Inception"},
		{"inception", "", "inception"},
		{"", "", ""},
	}
	for _, tt := range tests {
		cmd, rest := Event{Text: tt.text}.Command()
		if cmd != tt.wantCmd || rest != tt.wantRest {
			t.Errorf("Command(%q) = (%q, %q), want (%q, %q)", tt.text, cmd, rest, tt.wantCmd, tt.wantRest)
		}
	}
}

func TestDenialRemainingSeconds(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      int
	}{
		{0, 0},
		{-time.Second, 0},
		{1500 * time.Millisecond, 2},
		{90 * time.Second, 90},
	}
	for _, tt := range tests {
		d := &Denial{Reason: DenyCooldown, Remaining: tt.remaining}
		if got := d.RemainingSeconds(); got != tt.want {
			t.Errorf("RemainingSeconds(%v) = %d, want %d", tt.remaining, got, tt.want)
		}
	}
}

func TestCorruptionErrorIs(t *testing.T) {
	err := error(&CorruptionError{Path: "movies.json", Err: errors.New("unexpected EOF")})
	if !errors.Is(err, ErrStorageCorruption) {
		t.Fatal("CorruptionError should match ErrStorageCorruption")
	}
	if _, ok := AsDenial(err); ok {
		t.Fatal("CorruptionError is not a denial")
	}
}

func TestValidateMedia(t *testing.T) {
	tests := []struct {
		name    string
		movie   Movie
		wantErr bool
	}{
		{"text only", Movie{ID: "1", Title: "Inception"}, false},
		{"photo", Movie{ID: "1", Title: "Inception", Media: Media{Kind: MediaPhoto, FileID: "abc"}}, false},
		{"photo without file", Movie{ID: "1", Title: "Inception", Media: Media{Kind: MediaPhoto}}, true},
		{"copy without message", Movie{ID: "1", Title: "Inception", Media: Media{Kind: MediaCopy, FromChatID: -100}}, true},
		{"unknown kind", Movie{ID: "1", Title: "Inception", Media: Media{Kind: "audio", FileID: "x"}}, true},
		{"missing title", Movie{ID: "1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.movie)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBundle(t *testing.T) {
	b := &Bundle{
		FormatVersion: BundleVersion,
		Movies: []Movie{
			{ID: "1", Title: "Inception"},
			{ID: "1", Title: "Interstellar"},
		},
	}
	if err := ValidateBundle(b); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate ids: err = %v, want ErrInvalidInput", err)
	}

	b.Movies[1].ID = "2"
	if err := ValidateBundle(b); err != nil {
		t.Fatalf("ValidateBundle() = %v", err)
	}

	b.FormatVersion = 9
	if err := ValidateBundle(b); err == nil {
		t.Fatal("expected an error for an unknown format version")
	}
}

func TestAdNegativeDuration(t *testing.T) {
	if err := Validate(Ad{ID: "1", Media: TextMedia("buy"), DisplaySeconds: -1}); err == nil {
		t.Fatal("negative display seconds must be rejected")
	}
}

func TestAdAndWelcomeNeedMedia(t *testing.T) {
	if err := Validate(Ad{ID: "1", DisplaySeconds: 5}); err == nil {
		t.Error("ad without media must be rejected")
	}
	if err := Validate(WelcomeItem{ID: "1"}); err == nil {
		t.Error("welcome item without media must be rejected")
	}
	if err := Validate(WelcomeItem{ID: "1", Media: TextMedia("hi")}); err != nil {
		t.Errorf("Validate(welcome) = %v", err)
	}

	b := &Bundle{FormatVersion: BundleVersion, Ads: []Ad{{ID: "1", DisplaySeconds: 5}}}
	if err := ValidateBundle(b); err == nil {
		t.Error("bundle with an empty ad must be rejected")
	}
}

func TestMovieContent(t *testing.T) {
	m := Movie{ID: "1", Code: "101", Title: "Inception"}
	if got := m.Content(); got.Kind != MediaText || got.Text != m.Caption() {
		t.Errorf("Content() = %+v", got)
	}
	m.Media = Media{Kind: MediaVideo, FileID: "vid"}
	if got := m.Content(); got.Text != m.Caption() {
		t.Errorf("video caption = %q", got.Text)
	}
}
