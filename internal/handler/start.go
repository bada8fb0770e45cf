package handler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/service"
)

const textHelp = `🎬 How to use this bot

• Send a movie name (or part of it) to search.
• Send a movie code to get that exact movie.
• Press "📋 Movie List" to browse the catalog.`

const textOwnerHelp = `
👑 Owner commands

Movies: /addmovie Title | CODE | description | link, /editmovie id | field | value, /delmovie id, /movies
(a numeric ref is an id, use code:CODE for numeric codes)
Ads: /addad [seconds], /editad id | seconds|media | value, /delad id, /adon id, /adoff id, /ads
Channels: /addchannel @name | link, /delchannel id, /channels
Start menu: /addbutton Name | link | row, /delbutton id, /buttons
Welcome: /addwelcome, /delwelcome id, /welcomes, /setwelcome, /setsearching, /setforcemsg
Settings: /maintenance [on|off], /cooldown N, /autodelete dm|group|off [seconds]
Data: /backup, /restore, /snapshot, /cleardata confirm, /purge days, /stats
Other: /broadcast [text], /apitoken, /cancel`

const textAskQuery = "✍️ Send me the movie name or code."

func (d *Dispatcher) start(ctx context.Context, ev model.Event, _ string) error {
	if d.maintenanceGate(ctx, ev) {
		return nil
	}
	d.send(ctx, ev.ChatID, d.Users.NextWelcome(), messenger.SendOptions{Keyboard: d.Users.StartKeyboard()})
	d.send(ctx, ev.ChatID, model.TextMedia(textAskQuery), messenger.SendOptions{ReplyMenu: service.Menu()})
	return nil
}

func (d *Dispatcher) help(ctx context.Context, ev model.Event, _ string) error {
	if d.maintenanceGate(ctx, ev) {
		return nil
	}
	text := textHelp
	if d.Policy.IsOwner(ev.SenderID) {
		text += "\n" + textOwnerHelp
	}
	d.reply(ctx, ev.ChatID, text)
	return nil
}

// status answers /status and /os, in groups too.
func (d *Dispatcher) status(ctx context.Context, ev model.Event, _ string) error {
	if d.maintenanceGate(ctx, ev) {
		return nil
	}
	st := d.Admin.Stats()
	state := "✅ Online"
	if st.Maintenance {
		state = "🛠 Maintenance"
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("🤖 Bot status: %s\n🎬 Movies: %d\n👥 Users: %d\n🔎 Active searches: %d",
		state, st.Movies, st.Users, st.ActiveSearches))
	return nil
}

// plainText handles non-command messages: menu buttons, then searches.
func (d *Dispatcher) plainText(ctx context.Context, ev model.Event) error {
	switch ev.Text {
	case service.MenuSearch:
		if d.maintenanceGate(ctx, ev) {
			return nil
		}
		d.reply(ctx, ev.ChatID, textAskQuery)
		return nil
	case service.MenuList:
		if d.maintenanceGate(ctx, ev) {
			return nil
		}
		return d.movieList(ctx, ev)
	}
	return d.runSearch(ctx, ev, ev.Text)
}

// handleGroup answers status commands and schedules auto-delete for everything else.
func (d *Dispatcher) handleGroup(ctx context.Context, ev model.Event) {
	cmd, _ := ev.Command()
	if cmd == "status" || cmd == "os" {
		d.finish(ctx, ev, d.status(ctx, ev, ""))
		return
	}
	st := d.Store.GetSettings()
	if st.GroupAutoDeleteSeconds <= 0 || ev.MessageID == 0 {
		return
	}
	d.AutoDelete.ScheduleDelete(ctx, d.Messenger, ev.ChatID, ev.MessageID,
		time.Duration(st.GroupAutoDeleteSeconds)*time.Second)
}

func (d *Dispatcher) handleCallback(ctx context.Context, ev model.Event) {
	switch ev.CallbackData {
	case service.ForceDoneData:
		d.forceDone(ctx, ev)
	default:
		if err := d.Messenger.Answer(ctx, ev.CallbackID, "", false); err != nil {
			d.log.Debug("answer callback failed", zap.Error(err))
		}
	}
}

// forceDone rechecks membership after the user pressed "Done".
func (d *Dispatcher) forceDone(ctx context.Context, ev model.Event) {
	err := d.Policy.CheckForceJoin(ctx, ev.SenderID)
	if den, ok := model.AsDenial(err); ok {
		if err := d.Messenger.Answer(ctx, ev.CallbackID, service.TextStillMissing, true); err != nil {
			d.log.Debug("answer callback failed", zap.Error(err))
		}
		if ev.MessageID != 0 {
			_ = d.Messenger.Edit(ctx, ev.ChatID, ev.MessageID, service.TextForceJoin, service.ForceJoinKeyboard(den.Missing))
		}
		return
	}
	if err != nil {
		d.log.Warn("force-join recheck failed", zap.Int64("user", ev.SenderID), zap.Error(err))
		_ = d.Messenger.Answer(ctx, ev.CallbackID, textFailed, true)
		return
	}

	if err := d.Messenger.Answer(ctx, ev.CallbackID, service.TextJoinedOK, false); err != nil {
		d.log.Debug("answer callback failed", zap.Error(err))
	}
	if ev.MessageID != 0 {
		if err := d.Messenger.Edit(ctx, ev.ChatID, ev.MessageID, service.TextJoinedOK, nil); err != nil {
			// media overlays cannot be edited into text
			d.reply(ctx, ev.ChatID, service.TextJoinedOK)
		}
	}
}
