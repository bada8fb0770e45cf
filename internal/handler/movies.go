package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/service"
	"github.com/user/moviebot/internal/utils"
)

// resolveRef turns a message link or "chat/msg" reference into copy media.
func (d *Dispatcher) resolveRef(ctx context.Context, s string) (model.Media, error) {
	ref, err := utils.ParseMessageRef(s)
	if err != nil {
		return model.Media{}, err
	}
	chatID := ref.ChatID
	if ref.Username != "" {
		chat, err := d.Messenger.LookupChat(ctx, "@"+ref.Username)
		if err != nil {
			return model.Media{}, fmt.Errorf("resolve @%s: %w", ref.Username, err)
		}
		chatID = chat.ID
	}
	return model.CopyMedia(chatID, ref.MessageID), nil
}

// /addmovie Title | CODE | description | link
// Without attached media or a link the bot waits for the movie message.
func (d *Dispatcher) addMovie(ctx context.Context, ev model.Event, args string) error {
	parts := utils.SplitArgs(args)
	if len(parts) == 0 || parts[0] == "" {
		return invalid("usage: /addmovie Title | CODE | description | message link")
	}
	in := service.MovieInput{Title: parts[0]}
	if len(parts) > 1 {
		in.Code = parts[1]
	}
	if len(parts) > 2 {
		in.Description = parts[2]
	}

	switch {
	case len(parts) > 3 && parts[3] != "":
		media, err := d.resolveRef(ctx, parts[3])
		if err != nil {
			return err
		}
		in.Media = media
	case !ev.Media.IsZero():
		in.Media = ev.Media
		// the caption carried the command
		in.Media.Text = ""
	default:
		return d.await(ctx, ev, pendingAction{Kind: pendingMovie, Movie: in},
			fmt.Sprintf("🎬 Now send or forward the file for \"%s\".", in.Title))
	}
	return d.saveMovie(ctx, ev.ChatID, in)
}

func (d *Dispatcher) saveMovie(ctx context.Context, chatID int64, in service.MovieInput) error {
	m, err := d.Admin.AddMovie(ctx, in)
	if err != nil {
		return err
	}
	code := m.Code
	if code == "" {
		code = "none"
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ Movie added\n\n🆔 %s\n🎬 %s\n🔑 Code: %s\n📦 %s",
		m.ID, m.Title, code, m.Media.Describe()))
	return nil
}

// /editmovie id | field | value, field is title, code, desc or media.
func (d *Dispatcher) editMovie(ctx context.Context, ev model.Event, args string) error {
	parts := utils.SplitArgs(args)
	if len(parts) < 2 {
		return invalid("usage: /editmovie id | title|code|desc|media | value")
	}
	m, err := d.Admin.FindMovie(parts[0])
	if err != nil {
		return err
	}
	value := ""
	if len(parts) > 2 {
		value = strings.Join(parts[2:], " | ")
	}

	var p service.MoviePatch
	switch strings.ToLower(parts[1]) {
	case "title":
		if value == "" {
			return invalid("title must not be empty")
		}
		p.Title = &value
	case "code":
		p.Code = &value
	case "desc", "description":
		p.Description = &value
	case "media":
		if value == "" {
			return d.await(ctx, ev, pendingAction{Kind: pendingMovieEdit, MovieID: m.ID},
				fmt.Sprintf("🎬 Send the new file for \"%s\".", m.Title))
		}
		media, err := d.resolveRef(ctx, value)
		if err != nil {
			return err
		}
		p.Media = &media
	default:
		return invalid("unknown field %q", parts[1])
	}

	m, err = d.Admin.EditMovie(m.ID, p)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChatID, fmt.Sprintf("✅ Movie %s updated: %s", m.ID, m.Title))
	return nil
}

func (d *Dispatcher) delMovie(ctx context.Context, ev model.Event, args string) error {
	if args == "" {
		return invalid("usage: /delmovie id or code")
	}
	removed, err := d.Admin.RemoveMovie(args)
	if err != nil {
		return err
	}
	if removed {
		d.reply(ctx, ev.ChatID, "🗑 Movie removed.")
	} else {
		d.reply(ctx, ev.ChatID, "ℹ️ No such movie, nothing removed.")
	}
	return nil
}

func (d *Dispatcher) movies(ctx context.Context, ev model.Event, _ string) error {
	movies := d.Admin.ListMovies()
	if len(movies) == 0 {
		d.reply(ctx, ev.ChatID, "📭 No movies yet. Add one with /addmovie.")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 Movies (%d)\n\n", len(movies))
	for _, m := range movies {
		fmt.Fprintf(&b, "%s. %s", m.ID, m.Title)
		if m.Code != "" {
			fmt.Fprintf(&b, " [%s]", m.Code)
		}
		fmt.Fprintf(&b, " · %s\n", m.Media.Describe())
	}
	d.sendLong(ctx, ev.ChatID, b.String())
	return nil
}

// maxMessageLen is the platform's text message limit.
const maxMessageLen = 4000

// sendLong splits text on line boundaries so every part fits one message.
func (d *Dispatcher) sendLong(ctx context.Context, chatID int64, text string) {
	for len(text) > maxMessageLen {
		cut := strings.LastIndexByte(text[:maxMessageLen], '\n')
		if cut <= 0 {
			cut = maxMessageLen
		}
		d.reply(ctx, chatID, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		d.reply(ctx, chatID, text)
	}
}
