package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OWNER_ID", "42")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.OwnerID != 42 {
		t.Errorf("OwnerID = %d, want 42", cfg.OwnerID)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.DataDir)
	}
	if cfg.MaxActiveSearches != 30 {
		t.Errorf("MaxActiveSearches = %d, want 30", cfg.MaxActiveSearches)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("JWTExpiry = %v", cfg.JWTExpiry)
	}
}

func TestValidateRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("OWNER_ID", "not-a-number")

	if err := Load().Validate(); err == nil {
		t.Fatal("expected an error for missing BOT_TOKEN and bad OWNER_ID")
	}
}

func TestValidateWebhookNeedsSecret(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OWNER_ID", "7")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com")
	t.Setenv("WEBHOOK_SECRET", "")

	if err := Load().Validate(); err == nil {
		t.Fatal("expected an error when WEBHOOK_SECRET is missing")
	}
}

func TestIntOverrides(t *testing.T) {
	t.Setenv("MAX_ACTIVE_SEARCHES", "5")
	t.Setenv("BROADCAST_CONCURRENCY", "oops")

	cfg := Load()
	if cfg.MaxActiveSearches != 5 {
		t.Errorf("MaxActiveSearches = %d, want 5", cfg.MaxActiveSearches)
	}
	if cfg.BroadcastConcurrency != 20 {
		t.Errorf("BroadcastConcurrency = %d, want default 20", cfg.BroadcastConcurrency)
	}
}
