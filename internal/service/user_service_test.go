package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/user/moviebot/internal/model"
)

func TestRegisterNotifiesOwnerOnce(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	ctx := context.Background()

	created, err := f.users.Register(ctx, 42, "Ann")
	if err != nil || !created {
		t.Fatalf("Register() = %v, %v", created, err)
	}
	created, err = f.users.Register(ctx, 42, "Ann")
	if err != nil || created {
		t.Fatalf("second Register() = %v, %v", created, err)
	}
	texts := f.fake.Texts(testOwner)
	if len(texts) != 1 || !strings.Contains(texts[0], "Ann (42)") {
		t.Errorf("owner notices = %q", texts)
	}

	if _, err := f.users.Register(ctx, testOwner, "Owner"); err != nil {
		t.Fatal(err)
	}
	if len(f.fake.Texts(testOwner)) != 1 {
		t.Error("owner was told about themselves")
	}
}

func TestNextWelcomeRotates(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	if got := f.users.NextWelcome(); got.Text != DefaultWelcome {
		t.Errorf("default welcome = %q", got.Text)
	}
	if _, err := f.admin.SetOverlay(model.OverlayWelcome, model.TextMedia("hello")); err != nil {
		t.Fatal(err)
	}
	if got := f.users.NextWelcome(); got.Text != "hello" {
		t.Errorf("overlay welcome = %q", got.Text)
	}

	for _, text := range []string{"one", "two"} {
		if _, err := f.admin.AddWelcome(model.TextMedia(text)); err != nil {
			t.Fatal(err)
		}
	}
	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, f.users.NextWelcome().Text)
	}
	if strings.Join(got, ",") != "one,two,one" {
		t.Errorf("rotation = %v", got)
	}
}

func TestStartKeyboardRows(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	for _, name := range []string{"A", "B", "C"} {
		if _, err := f.admin.AddButton(name, "https://example.com/"+name, 0); err != nil {
			t.Fatal(err)
		}
	}
	kb := f.users.StartKeyboard()
	if len(kb) != 2 || len(kb[0]) != 2 || len(kb[1]) != 1 || kb[1][0].Text != "C" {
		t.Errorf("keyboard = %+v", kb)
	}
	if _, err := f.admin.AddButton("bad", "not a url", 0); err == nil {
		t.Error("invalid link accepted")
	}
}

func TestPurgeInactiveUsers(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	now := f.clock.Now()
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)
	users := []model.User{
		{ID: 10, JoinedAt: old},
		{ID: 11, JoinedAt: old, LastSearchAt: &recent},
		{ID: testOwner, JoinedAt: old},
	}
	for _, u := range users {
		if err := f.store.Users.Put(u); err != nil {
			t.Fatal(err)
		}
	}
	n, err := f.users.Purge(30)
	if err != nil || n != 1 {
		t.Fatalf("Purge() = %d, %v", n, err)
	}
	if _, err := f.store.Users.Get("10"); err == nil {
		t.Error("inactive user kept")
	}
	if _, err := f.users.Purge(0); err == nil {
		t.Error("Purge(0) accepted")
	}
}
