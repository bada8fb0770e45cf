package utils

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Inception", []string{"Inception"}},
		{" Inception | A dream heist |  ", []string{"Inception", "A dream heist", ""}},
	}
	for _, tt := range tests {
		if got := SplitArgs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMessageRef(t *testing.T) {
	tests := []struct {
		in      string
		want    MessageRef
		wantErr bool
	}{
		{"-1001234/45", MessageRef{ChatID: -1001234, MessageID: 45}, false},
		{"-1001234 45", MessageRef{ChatID: -1001234, MessageID: 45}, false},
		{"https://t.me/c/1234567/9", MessageRef{ChatID: -1001234567, MessageID: 9}, false},
		{"t.me/moviestore/12", MessageRef{Username: "moviestore", MessageID: 12}, false},
		{"45", MessageRef{}, true},
		{"abc/1", MessageRef{}, true},
		{"-100/0", MessageRef{}, true},
	}
	for _, tt := range tests {
		got, err := ParseMessageRef(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMessageRef(%q) error = %v", tt.in, err)
			continue
		}
		if err != nil && !errors.Is(err, ErrBadReference) {
			t.Errorf("ParseMessageRef(%q) error = %v, want ErrBadReference", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMessageRef(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseSeconds(t *testing.T) {
	if n, err := ParseSeconds(" 90 "); err != nil || n != 90 {
		t.Errorf("ParseSeconds(90) = %d, %v", n, err)
	}
	if _, err := ParseSeconds("-1"); err == nil {
		t.Error("negative seconds accepted")
	}
	if _, err := ParseSeconds("soon"); err == nil {
		t.Error("non-number accepted")
	}
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"Inception.2010.1080p.BluRay.x264": "Inception",
		"[YTS] The Matrix (1999)":          "The Matrix",
		"  Alien  ":                        "Alien",
	}
	for in, want := range tests {
		if got := CleanTitle(in); got != want {
			t.Errorf("CleanTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchCacheExpiry(t *testing.T) {
	c := NewSearchCache[int](10, 20*time.Millisecond)
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get() = %v, %v", v, ok)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry returned")
	}
	c.Set("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Fatal("Clear() left entries")
	}
}

func TestStateCacheTake(t *testing.T) {
	c := NewStateCache[string](time.Minute)
	c.Set("42", "setwelcome")
	if v, ok := c.Take("42"); !ok || v != "setwelcome" {
		t.Fatalf("Take() = %q, %v", v, ok)
	}
	if _, ok := c.Get("42"); ok {
		t.Fatal("Take() did not remove the entry")
	}
}

func TestChannelLink(t *testing.T) {
	if got := ChannelLink("@news"); got != "https://t.me/news" {
		t.Errorf("ChannelLink() = %q", got)
	}
	if got := ChannelLink(""); got != "" {
		t.Errorf("ChannelLink(\"\") = %q", got)
	}
}
