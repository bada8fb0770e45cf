package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/utils"
)

// /maintenance [on|off], toggles without an argument.
func (d *Dispatcher) maintenance(ctx context.Context, ev model.Event, args string) error {
	var (
		st  model.Settings
		err error
	)
	switch strings.ToLower(args) {
	case "":
		st, err = d.Admin.ToggleMaintenance()
	case "on":
		st, err = d.Admin.SetMaintenance(true)
	case "off":
		st, err = d.Admin.SetMaintenance(false)
	default:
		return invalid("usage: /maintenance [on|off]")
	}
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, "🛠 Maintenance mode: "+onOff(st.Maintenance))
	return nil
}

// /cooldown N
func (d *Dispatcher) cooldown(ctx context.Context, ev model.Event, args string) error {
	if args == "" {
		st := d.Store.GetSettings()
		d.reply(ctx, ev.ChatID, fmt.Sprintf("⏱ Cooldown: %s\nChange it with /cooldown seconds.", seconds(st.CooldownSeconds)))
		return nil
	}
	n, err := utils.ParseSeconds(args)
	if err != nil {
		return invalid("usage: /cooldown seconds: %v", err)
	}
	st, err := d.Admin.SetCooldown(n)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, "✅ Cooldown set to "+seconds(st.CooldownSeconds)+".")
	return nil
}

// /autodelete dm|group|off [seconds]
func (d *Dispatcher) autoDelete(ctx context.Context, ev model.Event, args string) error {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) == 0 {
		st := d.Store.GetSettings()
		d.reply(ctx, ev.ChatID, fmt.Sprintf("🧹 Auto-delete\n• Results: %s\n• Group messages: %s\n\nUsage: /autodelete dm|group|off [seconds]",
			seconds(st.ResultAutoDeleteSeconds), seconds(st.GroupAutoDeleteSeconds)))
		return nil
	}

	target, n := fields[0], 0
	if target != "off" {
		if len(fields) < 2 {
			return invalid("usage: /autodelete %s seconds", target)
		}
		var err error
		if n, err = utils.ParseSeconds(fields[1]); err != nil {
			return invalid("%v", err)
		}
	}
	st, err := d.Admin.SetAutoDelete(target, n)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Auto-delete\n• Results: %s\n• Group messages: %s",
		seconds(st.ResultAutoDeleteSeconds), seconds(st.GroupAutoDeleteSeconds)))
	return nil
}

var overlayNames = map[string]string{
	model.OverlayWelcome:   "welcome message",
	model.OverlaySearching: "searching message",
	model.OverlayForceJoin: "force-join message",
}

// overlay serves /setwelcome, /setsearching and /setforcemsg. "reset" restores the built-in
// text, inline text or attached media is used directly, otherwise the bot waits for it.
func (d *Dispatcher) overlay(name string) commandFunc {
	return func(ctx context.Context, ev model.Event, args string) error {
		switch {
		case strings.EqualFold(args, "reset"):
			return d.setOverlay(ctx, ev.ChatID, name, model.Media{})
		case !ev.Media.IsZero():
			media := ev.Media
			media.Text = args
			return d.setOverlay(ctx, ev.ChatID, name, media)
		case args != "":
			return d.setOverlay(ctx, ev.ChatID, name, model.TextMedia(args))
		}
		return d.await(ctx, ev, pendingAction{Kind: pendingOverlay, Overlay: name},
			fmt.Sprintf("✍️ Send the new %s. Use \"reset\" to restore the default.", overlayNames[name]))
	}
}

func (d *Dispatcher) setOverlay(ctx context.Context, chatID int64, name string, media model.Media) error {
	if media.Kind == model.MediaText && strings.EqualFold(strings.TrimSpace(media.Text), "reset") {
		media = model.Media{}
	}
	if _, err := d.Admin.SetOverlay(name, media); err != nil {
		return err
	}
	if media.IsZero() {
		d.reply(ctx, chatID, fmt.Sprintf("✅ The %s is back to the default.", overlayNames[name]))
		return nil
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ The %s is updated (%s).", overlayNames[name], media.Describe()))
	return nil
}
