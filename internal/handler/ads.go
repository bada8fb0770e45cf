package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/service"
	"github.com/user/moviebot/internal/utils"
)

// /addad [seconds]
// Attached media becomes the ad, otherwise the bot waits for it.
func (d *Dispatcher) addAd(ctx context.Context, ev model.Event, args string) error {
	secs := -1
	if args != "" {
		n, err := utils.ParseSeconds(args)
		if err != nil {
			return invalid("usage: /addad [seconds]: %v", err)
		}
		secs = n
	}
	if !ev.Media.IsZero() {
		media := ev.Media
		media.Text = ""
		return d.saveAd(ctx, ev.ChatID, media, secs)
	}
	return d.await(ctx, ev, pendingAction{Kind: pendingAd, Seconds: secs},
		"📢 Send the ad (text, photo, video, GIF...).")
}

func (d *Dispatcher) saveAd(ctx context.Context, chatID int64, media model.Media, secs int) error {
	ad, err := d.Admin.AddAd(media, secs)
	if err != nil {
		return err
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ Ad %s added, shown for %ds.", ad.ID, ad.DisplaySeconds))
	return nil
}

// /editad id | seconds|media | value
// media without a value (and without an attachment) waits for the new content.
func (d *Dispatcher) editAd(ctx context.Context, ev model.Event, args string) error {
	parts := utils.SplitArgs(args)
	if len(parts) < 2 || parts[0] == "" {
		return invalid("usage: /editad id | seconds|media | value")
	}
	id := parts[0]
	value := ""
	if len(parts) > 2 {
		value = strings.Join(parts[2:], " | ")
	}

	var p service.AdPatch
	switch strings.ToLower(parts[1]) {
	case "seconds", "secs":
		n, err := utils.ParseSeconds(value)
		if err != nil {
			return invalid("usage: /editad id | seconds | N: %v", err)
		}
		p.DisplaySeconds = &n
	case "media":
		switch {
		case value != "":
			media, err := d.resolveRef(ctx, value)
			if err != nil {
				return err
			}
			p.Media = &media
		case !ev.Media.IsZero():
			media := ev.Media
			media.Text = ""
			p.Media = &media
		default:
			if _, err := d.Admin.FindAd(id); err != nil {
				return err
			}
			return d.await(ctx, ev, pendingAction{Kind: pendingAdEdit, AdID: id},
				fmt.Sprintf("📢 Send the new content for ad %s.", id))
		}
	default:
		return invalid("unknown field %q", parts[1])
	}
	return d.saveAdEdit(ctx, ev.ChatID, id, p)
}

func (d *Dispatcher) saveAdEdit(ctx context.Context, chatID int64, id string, p service.AdPatch) error {
	ad, err := d.Admin.EditAd(id, p)
	if err != nil {
		return err
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ Ad %s updated: %s · %ds", ad.ID, ad.Media.Describe(), ad.DisplaySeconds))
	return nil
}

func (d *Dispatcher) delAd(ctx context.Context, ev model.Event, args string) error {
	if args == "" {
		return invalid("usage: /delad id")
	}
	removed, err := d.Admin.RemoveAd(args)
	if err != nil {
		return err
	}
	if removed {
		d.reply(ctx, ev.ChatID, "🗑 Ad removed.")
	} else {
		d.reply(ctx, ev.ChatID, "ℹ️ No such ad, nothing removed.")
	}
	return nil
}

func (d *Dispatcher) adOn(ctx context.Context, ev model.Event, args string) error {
	return d.setAdActive(ctx, ev, args, true)
}

func (d *Dispatcher) adOff(ctx context.Context, ev model.Event, args string) error {
	return d.setAdActive(ctx, ev, args, false)
}

func (d *Dispatcher) setAdActive(ctx context.Context, ev model.Event, id string, active bool) error {
	if id == "" {
		return invalid("usage: /adon id or /adoff id")
	}
	ad, err := d.Admin.SetAdActive(id, active)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Ad %s is now %s.", ad.ID, onOff(ad.Active)))
	return nil
}

func (d *Dispatcher) ads(ctx context.Context, ev model.Event, _ string) error {
	ads := d.Admin.ListAds()
	if len(ads) == 0 {
		d.reply(ctx, ev.ChatID, "📭 No ads. Add one with /addad.")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📢 Ads (%d)\n\n", len(ads))
	for _, a := range ads {
		fmt.Fprintf(&b, "%s. %s · %ds · %s\n", a.ID, a.Media.Describe(), a.DisplaySeconds, onOff(a.Active))
	}
	d.sendLong(ctx, ev.ChatID, b.String())
	return nil
}
