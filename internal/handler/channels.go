package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/utils"
)

// /addchannel @name | join link
func (d *Dispatcher) addChannel(ctx context.Context, ev model.Event, args string) error {
	parts := utils.SplitArgs(args)
	if len(parts) == 0 || parts[0] == "" {
		return invalid("usage: /addchannel @channel or -100id | join link")
	}
	link := ""
	if len(parts) > 1 {
		link = parts[1]
	}
	ch, err := d.Admin.AddChannel(ctx, parts[0], link)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("✅ Channel added: %s (%d)", ch.Title, ch.ChatID)
	if ch.JoinLink == "" {
		msg += "\n⚠️ No join link known. Add one with /addchannel id | link."
	}
	d.reply(ctx, ev.ChatID, msg)
	return nil
}

func (d *Dispatcher) delChannel(ctx context.Context, ev model.Event, args string) error {
	if args == "" {
		return invalid("usage: /delchannel id")
	}
	removed, err := d.Admin.RemoveChannel(args)
	if err != nil {
		return err
	}
	if removed {
		d.reply(ctx, ev.ChatID, "🗑 Channel removed.")
	} else {
		d.reply(ctx, ev.ChatID, "ℹ️ No such channel, nothing removed.")
	}
	return nil
}

func (d *Dispatcher) channels(ctx context.Context, ev model.Event, _ string) error {
	chs := d.Admin.ListChannels()
	if len(chs) == 0 {
		d.reply(ctx, ev.ChatID, "📭 No force-join channels.")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📣 Force-join channels (%d)\n\n", len(chs))
	for _, c := range chs {
		fmt.Fprintf(&b, "%s · %s · %s\n", c.ID, c.Title, c.JoinLink)
	}
	d.reply(ctx, ev.ChatID, b.String())
	return nil
}

// /addbutton Name | link | row
func (d *Dispatcher) addButton(ctx context.Context, ev model.Event, args string) error {
	parts := utils.SplitArgs(args)
	if len(parts) < 2 {
		return invalid("usage: /addbutton Name | https://link | row")
	}
	row := 0
	if len(parts) > 2 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 0 {
			return invalid("row must be a positive number")
		}
		row = n
	}
	btn, err := d.Admin.AddButton(parts[0], parts[1], row)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Button %s added: %s", btn.ID, btn.Name))
	return nil
}

func (d *Dispatcher) delButton(ctx context.Context, ev model.Event, args string) error {
	if args == "" {
		return invalid("usage: /delbutton id")
	}
	removed, err := d.Admin.RemoveButton(args)
	if err != nil {
		return err
	}
	if removed {
		d.reply(ctx, ev.ChatID, "🗑 Button removed.")
	} else {
		d.reply(ctx, ev.ChatID, "ℹ️ No such button, nothing removed.")
	}
	return nil
}

func (d *Dispatcher) buttons(ctx context.Context, ev model.Event, _ string) error {
	btns := d.Admin.ListButtons()
	if len(btns) == 0 {
		d.reply(ctx, ev.ChatID, "📭 No start buttons.")
		return nil
	}
	var b strings.Builder
	for _, btn := range btns {
		fmt.Fprintf(&b, "%s · %s · %s · row %d\n", btn.ID, btn.Name, btn.Link, btn.Row)
	}
	d.reply(ctx, ev.ChatID, b.String())
	return nil
}

func (d *Dispatcher) addWelcome(ctx context.Context, ev model.Event, _ string) error {
	if !ev.Media.IsZero() {
		media := ev.Media
		media.Text = ""
		return d.saveWelcome(ctx, ev.ChatID, media)
	}
	return d.await(ctx, ev, pendingAction{Kind: pendingWelcome},
		"👋 Send the welcome message to add to the /start rotation.")
}

func (d *Dispatcher) saveWelcome(ctx context.Context, chatID int64, media model.Media) error {
	w, err := d.Admin.AddWelcome(media)
	if err != nil {
		return err
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ Welcome %s added.", w.ID))
	return nil
}

func (d *Dispatcher) delWelcome(ctx context.Context, ev model.Event, args string) error {
	if args == "" {
		return invalid("usage: /delwelcome id")
	}
	removed, err := d.Admin.RemoveWelcome(args)
	if err != nil {
		return err
	}
	if removed {
		d.reply(ctx, ev.ChatID, "🗑 Welcome removed.")
	} else {
		d.reply(ctx, ev.ChatID, "ℹ️ No such welcome, nothing removed.")
	}
	return nil
}

func (d *Dispatcher) welcomes(ctx context.Context, ev model.Event, _ string) error {
	items := d.Admin.ListWelcomes()
	if len(items) == 0 {
		d.reply(ctx, ev.ChatID, "📭 No rotating welcomes, /start uses the single welcome.")
		return nil
	}
	var b strings.Builder
	for _, w := range items {
		fmt.Fprintf(&b, "%s · %s\n", w.ID, w.Media.Describe())
	}
	d.reply(ctx, ev.ChatID, b.String())
	return nil
}
