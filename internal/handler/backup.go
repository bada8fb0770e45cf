package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/moviebot/internal/middleware"
	"github.com/user/moviebot/internal/model"
)

func (d *Dispatcher) backup(ctx context.Context, ev model.Event, _ string) error {
	data, err := d.Admin.Backup()
	if err != nil {
		return err
	}
	st := d.Admin.Stats()
	name := "backup-" + time.Now().UTC().Format("20060102-150405") + ".json"
	caption := fmt.Sprintf("💾 Backup\n🎬 Movies: %d\n📢 Ads: %d\n👥 Users: %d\n📣 Channels: %d",
		st.Movies, st.Ads, st.Users, st.Channels)
	if _, err := d.Messenger.SendFile(ctx, ev.ChatID, name, data, caption); err != nil {
		return fmt.Errorf("send backup: %w", err)
	}
	return nil
}

// /restore, with the backup attached or sent next.
func (d *Dispatcher) restore(ctx context.Context, ev model.Event, _ string) error {
	if ev.Media.Kind == model.MediaDocument {
		return d.restoreFrom(ctx, ev)
	}
	return d.await(ctx, ev, pendingAction{Kind: pendingRestore},
		"📥 Send the backup .json file. Every collection will be replaced.")
}

func (d *Dispatcher) restoreFrom(ctx context.Context, ev model.Event) error {
	if ev.Media.Kind != model.MediaDocument {
		return invalid("send the backup as a .json document")
	}
	if ev.FileName != "" && !strings.EqualFold(filepath.Ext(ev.FileName), ".json") {
		return invalid("%s is not a .json file", ev.FileName)
	}
	data, err := d.Messenger.Download(ctx, ev.Media.FileID)
	if err != nil {
		return fmt.Errorf("download backup: %w", err)
	}
	b, err := d.Admin.Restore(data)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Restore complete\n🎬 Movies: %d\n📢 Ads: %d\n👥 Users: %d\n📣 Channels: %d",
		len(b.Movies), len(b.Ads), len(b.Users), len(b.Channels)))
	return nil
}

func (d *Dispatcher) snapshot(ctx context.Context, ev model.Event, _ string) error {
	if d.Snapshots == nil {
		d.reply(ctx, ev.ChatID, "ℹ️ Snapshots are disabled.")
		return nil
	}
	path, err := d.Snapshots.Snapshot()
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, "✅ Snapshot written: "+filepath.Base(path))
	return nil
}

// /cleardata confirm
func (d *Dispatcher) clearData(ctx context.Context, ev model.Event, args string) error {
	if !strings.EqualFold(args, "confirm") {
		d.reply(ctx, ev.ChatID, "⚠️ This deletes every movie, ad, user, channel and setting.\nSend /cleardata confirm to proceed. Take a /backup first.")
		return nil
	}
	if err := d.Admin.ClearAll(); err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, "🗑 All data cleared.")
	return nil
}

// /purge days
func (d *Dispatcher) purge(ctx context.Context, ev model.Event, args string) error {
	days, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return invalid("usage: /purge days")
	}
	n, err := d.Users.Purge(days)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("🧹 Removed %d user(s) inactive for %d day(s).", n, days))
	return nil
}

func (d *Dispatcher) stats(ctx context.Context, ev model.Event, _ string) error {
	st := d.Admin.Stats()
	d.reply(ctx, ev.ChatID, fmt.Sprintf(`📊 Statistics

👥 Users: %d
🎬 Movies: %d
📢 Ads: %d (%d active)
📣 Channels: %d
🔘 Buttons: %d
👋 Welcomes: %d
🔎 Active searches: %d

🛠 Maintenance: %s
⏱ Cooldown: %s
🧹 Auto-delete: results %s, groups %s`,
		st.Users, st.Movies, st.Ads, st.ActiveAds, st.Channels, st.Buttons, st.Welcomes, st.ActiveSearches,
		onOff(st.Maintenance), seconds(st.CooldownSeconds),
		seconds(st.ResultAutoDeleteSeconds), seconds(st.GroupAutoDeleteSeconds)))
	return nil
}

// apiToken mints a bearer token for the admin HTTP API.
func (d *Dispatcher) apiToken(ctx context.Context, ev model.Event, _ string) error {
	token, err := middleware.GenerateToken(ev.SenderID, d.AppSecret, d.JWTExpiry)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("🔑 API token, valid for %s:\n\n%s\n\nUse it as \"Authorization: Bearer <token>\".",
		d.JWTExpiry, token))
	return nil
}
