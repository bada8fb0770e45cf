package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTMDBOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("query") != "Inception" {
			_, _ = w.Write([]byte(`{"results": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"id": 27205, "title": "Inception", "overview": "A thief who steals secrets."}]}`))
	}))
	defer srv.Close()

	s := NewTMDBService("token")
	s.baseURL = srv.URL

	got, err := s.Overview(context.Background(), "Inception.2010.1080p")
	if err != nil || got != "A thief who steals secrets." {
		t.Fatalf("Overview() = %q, %v", got, err)
	}
	if _, err := s.Overview(context.Background(), "Unknown"); err == nil {
		t.Error("expected an error without results")
	}
	if NewTMDBService("") != nil {
		t.Error("empty token should disable the service")
	}
}

func TestAddMovieUsesTMDB(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"id": 1, "title": "Alien", "overview": "In space no one can hear you scream."}]}`))
	}))
	defer srv.Close()

	f := newFixture(t, SearchConfig{})
	tmdb := NewTMDBService("token")
	tmdb.baseURL = srv.URL
	admin := NewAdminService(f.store, f.fake, f.search, tmdb, f.clock)

	m, err := admin.AddMovie(context.Background(), MovieInput{Title: "Alien"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Description != "In space no one can hear you scream." {
		t.Errorf("Description = %q", m.Description)
	}
}
