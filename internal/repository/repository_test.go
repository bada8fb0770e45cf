package repository

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/user/moviebot/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	return s
}

func addMovie(t *testing.T, s *Store, title string) model.Movie {
	t.Helper()
	m, err := s.Movies.Insert(func(id string) (model.Movie, error) {
		return model.Movie{ID: id, Title: title, AddedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
	})
	if err != nil {
		t.Fatalf("Insert(%q) = %v", title, err)
	}
	return m
}

func TestCollectionInsertionOrderSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"Zodiac", "Alien", "Memento"} {
		addMovie(t, s, title)
	}
	// overwrite keeps the original position
	if err := s.Movies.Put(model.Movie{ID: "1", Title: "Zodiac (2007)"}); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var titles []string
	for _, m := range s2.Movies.List() {
		titles = append(titles, m.Title)
	}
	want := []string{"Zodiac (2007)", "Alien", "Memento"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}
}

func TestCollectionGetNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Movies.Get("404"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	m := addMovie(t, s, "Inception")
	addMovie(t, s, "Interstellar")

	removed, err := s.Movies.Delete(m.ID)
	if err != nil || !removed {
		t.Fatalf("first Delete() = %v, %v", removed, err)
	}
	after := s.Movies.List()
	data, _ := os.ReadFile(filepath.Join(s.Dir, "movies.json"))

	removed, err = s.Movies.Delete(m.ID)
	if err != nil || removed {
		t.Fatalf("second Delete() = %v, %v", removed, err)
	}
	if !reflect.DeepEqual(after, s.Movies.List()) {
		t.Error("second delete changed the collection")
	}
	data2, _ := os.ReadFile(filepath.Join(s.Dir, "movies.json"))
	if string(data) != string(data2) {
		t.Error("second delete rewrote the file")
	}
}

func TestOpenCorrupt(t *testing.T) {
	tests := map[string]string{
		"truncated":    `{"1": {"id": "1", "title": "Inception"`,
		"array":        `[{"id": "1"}]`,
		"key mismatch": `{"1": {"id": "2", "title": "Inception"}}`,
		"duplicate":    `{"1": {"id": "1", "title": "A"}, "1": {"id": "1", "title": "B"}}`,
		"trailing":     `{} {}`,
		"invalid":      `{"1": {"id": "1"}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "movies.json"), []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Open(dir)
			if !errors.Is(err, model.ErrStorageCorruption) {
				t.Fatalf("Open() error = %v, want ErrStorageCorruption", err)
			}
			var ce *model.CorruptionError
			if !errors.As(err, &ce) || filepath.Base(ce.Path) != "movies.json" {
				t.Errorf("CorruptionError = %+v", ce)
			}
		})
	}
}

func TestOpenEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ads.json"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if s.Ads.Len() != 0 {
		t.Errorf("Ads.Len() = %d", s.Ads.Len())
	}
}

func TestUpsertErrorLeavesRecord(t *testing.T) {
	s := openTestStore(t)
	boom := errors.New("boom")
	_, err := s.Users.Upsert(model.UserKey(5), func(u *model.User, exists bool) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Upsert() = %v", err)
	}
	if s.Users.Len() != 0 {
		t.Fatal("failed upsert stored a record")
	}

	u, err := s.Users.Upsert(model.UserKey(5), func(u *model.User, exists bool) error {
		if exists {
			return ErrNoChange
		}
		u.ID = 5
		return nil
	})
	if err != nil || u.ID != 5 {
		t.Fatalf("Upsert() = %+v, %v", u, err)
	}
}

func TestUpdateMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Ads.Update("9", func(a *model.Ad) error { return nil })
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update() = %v, want ErrNotFound", err)
	}
}

func TestConcurrentInsertsGetUniqueIDs(t *testing.T) {
	s := openTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Movies.Insert(func(id string) (model.Movie, error) {
				return model.Movie{ID: id, Title: "Movie"}, nil
			}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, m := range s.Movies.List() {
		if seen[m.ID] {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
	if len(seen) != 20 {
		t.Fatalf("got %d movies, want 20", len(seen))
	}
}

func TestInsertIfSeesCommittedRecords(t *testing.T) {
	s := openTestStore(t)
	errTaken := errors.New("taken")
	noTwin := func(movies []model.Movie) error {
		for _, m := range movies {
			if m.Code == "TWIN" {
				return errTaken
			}
		}
		return nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		taken   int
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Movies.InsertIf(noTwin, func(id string) (model.Movie, error) {
				return model.Movie{ID: id, Title: "Twin", Code: "TWIN"}, nil
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, errTaken):
				taken++
			default:
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if created != 1 || taken != 9 || s.Movies.Len() != 1 {
		t.Fatalf("created = %d, taken = %d, len = %d", created, taken, s.Movies.Len())
	}

	other := addMovie(t, s, "Other")
	_, err := s.Movies.UpdateIf(other.ID, noTwin, func(m *model.Movie) error {
		m.Code = "TWIN"
		return nil
	})
	if !errors.Is(err, errTaken) {
		t.Fatalf("UpdateIf() = %v, want errTaken", err)
	}
	if got, _ := s.Movies.Get(other.ID); got.Code != "" {
		t.Fatalf("code = %q, want unchanged", got.Code)
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := openTestStore(t)
	if got := s.GetSettings(); got.CooldownSeconds != model.DefaultCooldownSeconds {
		t.Fatalf("CooldownSeconds = %d", got.CooldownSeconds)
	}
	st, err := s.UpdateSettings(func(st *model.Settings) error {
		st.Maintenance = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !st.Maintenance || st.CooldownSeconds != model.DefaultCooldownSeconds {
		t.Errorf("UpdateSettings() = %+v", st)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	addMovie(t, s, "Inception")
	addMovie(t, s, "Alien")
	if _, err := s.Ads.Insert(func(id string) (model.Ad, error) {
		return model.Ad{ID: id, Media: model.TextMedia("Buy popcorn"), DisplaySeconds: 10, Active: true}, nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Users.Put(model.User{ID: 7, Name: "ann", JoinedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateSettings(func(st *model.Settings) error {
		st.CooldownSeconds = 30
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Channels.Put(model.ForceChannel{ID: "-1001", ChatID: -1001, Title: "News", JoinLink: "https://t.me/news"}); err != nil {
		t.Fatal(err)
	}

	bundle := s.Backup()

	other := openTestStore(t)
	addMovie(t, other, "Leftover")
	if err := other.Restore(bundle); err != nil {
		t.Fatalf("Restore() = %v", err)
	}
	got := other.Backup()
	got.CreatedAt = bundle.CreatedAt
	if !reflect.DeepEqual(got, bundle) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, bundle)
	}

	reopened, err := Open(other.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reopened.Movies.List(), bundle.Movies) {
		t.Error("restored files differ from the bundle")
	}
}

func TestRestoreInvalidLeavesStore(t *testing.T) {
	s := openTestStore(t)
	addMovie(t, s, "Inception")
	before := s.Backup()

	bad := &model.Bundle{
		FormatVersion: model.BundleVersion,
		Movies:        []model.Movie{{ID: "1", Title: "A"}, {ID: "1", Title: "B"}},
	}
	if err := s.Restore(bad); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("Restore() = %v, want ErrInvalidInput", err)
	}
	if !reflect.DeepEqual(s.Movies.List(), before.Movies) {
		t.Error("invalid restore changed the store")
	}
	matches, _ := filepath.Glob(filepath.Join(s.Dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	addMovie(t, s, "Inception")
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if s.Movies.Len() != 0 {
		t.Fatal("Clear() left movies")
	}
}
