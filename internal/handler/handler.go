package handler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/repository"
	"github.com/user/moviebot/internal/service"
	"github.com/user/moviebot/internal/utils"
)

// pendingTTL is how long the bot waits for the owner's follow-up message.
const pendingTTL = 10 * time.Minute

const textFailed = "❌ Something went wrong. Please try again."

// Deps are the collaborators of the dispatcher.
type Deps struct {
	Store       *repository.Store
	Messenger   messenger.Messenger
	Policy      *service.Policy
	Search      *service.SearchService
	Admin       *service.AdminService
	Users       *service.UserService
	Broadcaster *service.Broadcaster
	AutoDelete  *service.Expirer
	// Snapshots is optional.
	Snapshots *service.SnapshotService

	AppSecret string
	JWTExpiry time.Duration
}

type commandFunc func(ctx context.Context, ev model.Event, args string) error

type command struct {
	owner bool
	run   commandFunc
}

// Dispatcher routes inbound events to commands and searches. Each event runs in its own
// goroutine; a failing event never affects another.
type Dispatcher struct {
	Deps
	commands map[string]command
	pending  *utils.StateCache[pendingAction]
	wg       sync.WaitGroup
	log      *zap.Logger
}

// NewDispatcher builds the dispatcher and its command table.
func NewDispatcher(deps Deps) *Dispatcher {
	d := &Dispatcher{
		Deps:    deps,
		pending: utils.NewStateCache[pendingAction](pendingTTL),
		log:     logger.Named("dispatcher"),
	}
	d.commands = d.routes()
	return d
}

func (d *Dispatcher) routes() map[string]command {
	public := func(f commandFunc) command { return command{run: f} }
	owner := func(f commandFunc) command { return command{owner: true, run: f} }

	return map[string]command{
		"start":  public(d.start),
		"help":   public(d.help),
		"status": public(d.status),
		"os":     public(d.status),

		"addmovie":  owner(d.addMovie),
		"editmovie": owner(d.editMovie),
		"delmovie":  owner(d.delMovie),
		"movies":    owner(d.movies),

		"addad":  owner(d.addAd),
		"editad": owner(d.editAd),
		"delad":  owner(d.delAd),
		"ads":    owner(d.ads),
		"adon":   owner(d.adOn),
		"adoff":  owner(d.adOff),

		"addchannel": owner(d.addChannel),
		"delchannel": owner(d.delChannel),
		"channels":   owner(d.channels),

		"addbutton":  owner(d.addButton),
		"delbutton":  owner(d.delButton),
		"buttons":    owner(d.buttons),
		"addwelcome": owner(d.addWelcome),
		"delwelcome": owner(d.delWelcome),
		"welcomes":   owner(d.welcomes),

		"maintenance":  owner(d.maintenance),
		"cooldown":     owner(d.cooldown),
		"autodelete":   owner(d.autoDelete),
		"setwelcome":   owner(d.overlay(model.OverlayWelcome)),
		"setsearching": owner(d.overlay(model.OverlaySearching)),
		"setforcemsg":  owner(d.overlay(model.OverlayForceJoin)),

		"broadcast": owner(d.broadcast),
		"backup":    owner(d.backup),
		"restore":   owner(d.restore),
		"snapshot":  owner(d.snapshot),
		"cleardata": owner(d.clearData),
		"purge":     owner(d.purge),
		"stats":     owner(d.stats),
		"apitoken":  owner(d.apiToken),
		"cancel":    owner(d.cancel),
	}
}

// Go handles ev on a new goroutine tracked by Wait.
func (d *Dispatcher) Go(ctx context.Context, ev model.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Handle(ctx, ev)
	}()
}

// Wait blocks until every event started with Go is done.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Handle processes one event. Panics and errors are logged and answered here.
func (d *Dispatcher) Handle(ctx context.Context, ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic while handling event",
				zap.Int64("chat", ev.ChatID),
				zap.Int64("user", ev.SenderID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	switch {
	case ev.IsCallback():
		d.handleCallback(ctx, ev)
	case ev.IsGroup():
		d.handleGroup(ctx, ev)
	case ev.ChatType == model.ChatPrivate || ev.ChatType == "":
		d.handlePrivate(ctx, ev)
	}
}

func (d *Dispatcher) handlePrivate(ctx context.Context, ev model.Event) {
	if ev.SenderID == 0 {
		return
	}
	if _, err := d.Users.Register(ctx, ev.SenderID, ev.SenderName); err != nil {
		d.log.Warn("register user failed", zap.Int64("user", ev.SenderID), zap.Error(err))
	}

	cmd, args := ev.Command()
	isOwner := d.Policy.IsOwner(ev.SenderID)

	if isOwner && cmd == "" {
		if done, err := d.resumePending(ctx, ev); done {
			d.finish(ctx, ev, err)
			return
		}
	}

	if cmd == "" {
		d.finish(ctx, ev, d.plainText(ctx, ev))
		return
	}

	c, ok := d.commands[cmd]
	if !ok {
		// unknown commands are searched as-is, e.g. /tt0133093
		d.finish(ctx, ev, d.runSearch(ctx, ev, cmd+" "+args))
		return
	}
	if c.owner && !isOwner {
		d.reply(ctx, ev.ChatID, service.TextUnauthorized)
		return
	}
	d.finish(ctx, ev, c.run(ctx, ev, args))
}

// finish turns a command error into a reply the user can act on.
func (d *Dispatcher) finish(ctx context.Context, ev model.Event, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrDuplicate),
		errors.Is(err, utils.ErrBadReference):
		d.reply(ctx, ev.ChatID, "⚠️ "+err.Error())
	case errors.Is(err, model.ErrNotFound):
		d.reply(ctx, ev.ChatID, "❌ "+err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		d.reply(ctx, ev.ChatID, service.TextUnauthorized)
	default:
		d.log.Error("event failed", zap.Int64("chat", ev.ChatID), zap.Int64("user", ev.SenderID),
			zap.String("text", model.Truncate(ev.Text, 64)), zap.Error(err))
		d.reply(ctx, ev.ChatID, textFailed)
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	d.send(ctx, chatID, model.TextMedia(text), messenger.SendOptions{})
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, m model.Media, opts messenger.SendOptions) {
	if _, err := d.Messenger.Send(ctx, chatID, m, opts); err != nil {
		d.log.Warn("reply failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// maintenanceGate answers non-owners during maintenance and reports whether it did.
func (d *Dispatcher) maintenanceGate(ctx context.Context, ev model.Event) bool {
	if err := d.Policy.CheckMaintenance(ev.SenderID); err != nil {
		d.reply(ctx, ev.ChatID, service.TextMaintenance)
		return true
	}
	return false
}

// invalid builds an ErrInvalidInput error with a usage hint.
func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{model.ErrInvalidInput}, a...)...)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func seconds(n int) string {
	if n == 0 {
		return "off"
	}
	return strconv.Itoa(n) + "s"
}
