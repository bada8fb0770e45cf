package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/user/moviebot/internal/model"
)

type searchResult struct {
	out SearchOutcome
	err error
}

func startSearch(f *fixture, user int64, query string) <-chan searchResult {
	ch := make(chan searchResult, 1)
	go func() {
		out, err := f.search.Search(context.Background(), SearchRequest{ChatID: user, UserID: user, Query: query})
		ch <- searchResult{out, err}
	}()
	return ch
}

func awaitSearch(t *testing.T, ch <-chan searchResult) SearchOutcome {
	t.Helper()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("Search() error = %v", r.err)
		}
		return r.out
	case <-time.After(5 * time.Second):
		t.Fatal("search did not finish")
		return SearchOutcome{}
	}
}

func mustSearch(t *testing.T, f *fixture, user int64, query string) SearchOutcome {
	t.Helper()
	out, err := f.search.Search(context.Background(), SearchRequest{ChatID: user, UserID: user, Query: query})
	if err != nil {
		t.Fatalf("Search(%q) error = %v", query, err)
	}
	return out
}

func addMovies(t *testing.T, f *fixture, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := f.admin.AddMovie(context.Background(), MovieInput{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchShowsAdThenResult(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	addMovies(t, f, "Inception")
	ad, err := f.admin.AddAd(model.TextMedia("🍿 Buy popcorn"), 10)
	if err != nil {
		t.Fatal(err)
	}
	const user = 42

	res := startSearch(f, user, "incep")
	f.clock.BlockUntil(t, 1)

	sent := f.fake.SentTo(user)
	if len(sent) != 1 || sent[0].Media.Text != "🍿 Buy popcorn" {
		t.Fatalf("sent before expiry = %+v, want only the ad", sent)
	}
	adMsg := sent[0].MessageID

	f.clock.Advance(9 * time.Second)
	if !f.fake.Live(user, adMsg) {
		t.Fatal("ad deleted before its display time")
	}
	select {
	case <-res:
		t.Fatal("result sent while the ad was showing")
	default:
	}

	f.clock.Advance(time.Second)
	out := awaitSearch(t, res)

	if out.State != StateResultSent || out.AdID != ad.ID {
		t.Errorf("outcome = %+v", out)
	}
	if len(out.Results) != 1 || out.Results[0].Title != "Inception" {
		t.Errorf("Results = %+v", out.Results)
	}
	if f.fake.Live(user, adMsg) {
		t.Error("ad still visible")
	}
	adDeletes := 0
	for _, d := range f.fake.Deleted() {
		if d.MessageID == adMsg {
			adDeletes++
		}
	}
	if adDeletes != 1 {
		t.Errorf("ad deleted %d times, want 1", adDeletes)
	}
	texts := f.fake.Texts(user)
	if last := texts[len(texts)-1]; !strings.Contains(last, "Inception") {
		t.Errorf("last message = %q, want the movie", last)
	}
}

func TestSearchMaintenanceDenied(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	addMovies(t, f, "Inception")
	if _, err := f.admin.AddAd(model.TextMedia("ad"), 10); err != nil {
		t.Fatal(err)
	}
	if _, err := f.admin.SetMaintenance(true); err != nil {
		t.Fatal(err)
	}

	out := mustSearch(t, f, 42, "incep")
	if out.State != StateDenied || out.Denial == nil || out.Denial.Reason != model.DenyMaintenance {
		t.Fatalf("outcome = %+v", out)
	}
	if texts := f.fake.Texts(42); len(texts) != 1 || texts[0] != TextMaintenance {
		t.Errorf("messages = %q, want only the maintenance notice", texts)
	}
	if _, err := f.store.Users.Get(model.UserKey(42)); err == nil {
		t.Error("denied search recorded a cooldown timestamp")
	}
	if f.clock.pending() != 0 {
		t.Error("an ad was scheduled for a denied search")
	}
}

func TestSearchCooldownDenied(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	addMovies(t, f, "Inception")

	if out := mustSearch(t, f, 42, "inception"); out.State != StateResultSent {
		t.Fatalf("first search = %+v", out)
	}
	out := mustSearch(t, f, 42, "inception")
	if out.State != StateDenied || out.Denial.Reason != model.DenyCooldown {
		t.Fatalf("second search = %+v", out)
	}
	texts := f.fake.Texts(42)
	if last := texts[len(texts)-1]; last != CooldownText(90) {
		t.Errorf("denial text = %q", last)
	}
}

func TestSearchForceJoinKeyboard(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	if err := f.store.Channels.Put(model.ForceChannel{ID: "-1001", ChatID: -1001, Title: "News", JoinLink: "https://t.me/news"}); err != nil {
		t.Fatal(err)
	}
	out := mustSearch(t, f, 42, "anything")
	if out.State != StateDenied || out.Denial.Reason != model.DenyForceJoin {
		t.Fatalf("outcome = %+v", out)
	}
	sent := f.fake.SentTo(42)
	if len(sent) != 1 {
		t.Fatalf("sent = %+v", sent)
	}
	kb := sent[0].Opts.Keyboard
	if len(kb) != 2 || kb[0][0].URL != "https://t.me/news" || kb[1][0].Data != ForceDoneData {
		t.Errorf("keyboard = %+v", kb)
	}
}

func TestAdRotationRoundRobin(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	addMovies(t, f, "Inception")
	if _, err := f.admin.SetCooldown(0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.admin.AddAd(model.TextMedia(fmt.Sprintf("ad %d", i+1)), 0); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for i := 0; i < 6; i++ {
		got = append(got, mustSearch(t, f, 42, "inception").AdID)
	}
	if want := "1 2 3 1 2 3"; strings.Join(got, " ") != want {
		t.Errorf("ad order = %v, want %s", got, want)
	}

	if _, err := f.admin.SetAdActive("2", false); err != nil {
		t.Fatal(err)
	}
	got = got[:0]
	for i := 0; i < 4; i++ {
		ad, ok := f.search.NextAd()
		if !ok {
			t.Fatal("NextAd() found nothing")
		}
		got = append(got, ad.ID)
	}
	for _, id := range got {
		if id == "2" {
			t.Fatalf("inactive ad shown: %v", got)
		}
	}
}

func TestSearchWithoutAds(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	addMovies(t, f, "Inception")

	out := mustSearch(t, f, 42, "INCEPTION")
	if out.State != StateResultSent || out.AdID != "" || out.AdMessageID != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	texts := f.fake.Texts(42)
	if texts[0] != TextSearching {
		t.Errorf("first message = %q, want the searching overlay", texts[0])
	}
	if len(f.fake.Deleted()) != 1 {
		t.Errorf("deletions = %v, want only the overlay", f.fake.Deleted())
	}
}

func TestLookupCapsAndPrefersCode(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	for i := 1; i <= 7; i++ {
		if _, err := f.admin.AddMovie(context.Background(), MovieInput{Title: fmt.Sprintf("Saw %d", i), Code: fmt.Sprintf("s%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	res := f.search.Lookup("saw")
	if len(res.Movies) != DefaultMaxResults || res.Total != 7 {
		t.Fatalf("Lookup(saw) = %d movies, total %d", len(res.Movies), res.Total)
	}
	for i, m := range res.Movies {
		if m.Title != fmt.Sprintf("Saw %d", i+1) {
			t.Errorf("result %d = %q, want insertion order", i, m.Title)
		}
	}

	res = f.search.Lookup(" s7 ")
	if !res.ExactCode || len(res.Movies) != 1 || res.Movies[0].Title != "Saw 7" {
		t.Errorf("Lookup(s7) = %+v", res)
	}
}

func TestLookupCacheFollowsCatalog(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	if res := f.search.Lookup("inception"); res.Total != 0 {
		t.Fatalf("empty catalog matched %d", res.Total)
	}
	addMovies(t, f, "Inception")
	if res := f.search.Lookup("inception"); res.Total != 1 {
		t.Fatalf("added movie not found, total %d", res.Total)
	}
	if _, err := f.admin.RemoveMovie("1"); err != nil {
		t.Fatal(err)
	}
	if res := f.search.Lookup("inception"); res.Total != 0 {
		t.Fatalf("removed movie still found")
	}
}

func TestSearchRefineAndNotFound(t *testing.T) {
	f := newFixture(t, SearchConfig{MaxResults: 2})
	addMovies(t, f, "Alien", "Aliens", "Alien 3")
	if _, err := f.admin.SetCooldown(0); err != nil {
		t.Fatal(err)
	}

	out := mustSearch(t, f, 42, "alien")
	if len(out.Results) != 2 || out.Total != 3 {
		t.Fatalf("outcome = %+v", out)
	}
	texts := f.fake.Texts(42)
	if last := texts[len(texts)-1]; last != fmt.Sprintf(TextRefine, 2, 3) {
		t.Errorf("last message = %q, want the refine hint", last)
	}

	mustSearch(t, f, 42, "zzz")
	texts = f.fake.Texts(42)
	if last := texts[len(texts)-1]; last != fmt.Sprintf(TextNotFound, "zzz") {
		t.Errorf("last message = %q, want not found", last)
	}
}

func TestSearchResultAutoDelete(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	addMovies(t, f, "Inception")
	if _, err := f.admin.SetAutoDelete(AutoDeleteResults, 30); err != nil {
		t.Fatal(err)
	}
	mustSearch(t, f, 42, "inception")
	sent := f.fake.SentTo(42)
	result := sent[len(sent)-1]
	if !f.fake.Live(42, result.MessageID) {
		t.Fatal("result missing")
	}
	f.clock.Advance(30 * time.Second)
	if f.fake.Live(42, result.MessageID) {
		t.Error("result not auto-deleted")
	}
}

func TestSearchQueuesWhenBusy(t *testing.T) {
	f := newFixture(t, SearchConfig{MaxActive: 1})
	addMovies(t, f, "Inception")
	if _, err := f.admin.AddAd(model.TextMedia("ad"), 10); err != nil {
		t.Fatal(err)
	}

	first := startSearch(f, 42, "inception")
	f.clock.BlockUntil(t, 1)

	second := startSearch(f, 43, "inception")
	queued := fmt.Sprintf(TextQueued, 1, 1, 1)
	waitFor(t, func() bool {
		texts := f.fake.Texts(43)
		return len(texts) > 0 && texts[0] == queued
	})

	f.clock.Advance(10 * time.Second)
	if out := awaitSearch(t, first); out.State != StateResultSent {
		t.Fatalf("first search = %+v", out)
	}

	f.clock.BlockUntil(t, 1)
	f.clock.Advance(10 * time.Second)
	if out := awaitSearch(t, second); out.State != StateResultSent {
		t.Fatalf("second search = %+v", out)
	}
	if f.search.Active() != 0 {
		t.Errorf("Active() = %d after both finished", f.search.Active())
	}
}

func TestSearchEmptyQueryIgnored(t *testing.T) {
	f := newFixture(t, SearchConfig{})
	out := mustSearch(t, f, 42, "   ")
	if out.State != StateReceived || len(f.fake.AllSent()) != 0 {
		t.Errorf("outcome = %+v, sent = %d", out, len(f.fake.AllSent()))
	}
}
