// Package messengertest provides an in-memory Messenger for tests.
package messengertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
)

// Sent is one delivered message.
type Sent struct {
	ChatID    int64
	MessageID int
	Media     model.Media
	Opts      messenger.SendOptions
}

// Ref addresses a message.
type Ref struct {
	ChatID    int64
	MessageID int
}

// File is one SendFile call.
type File struct {
	ChatID  int64
	Name    string
	Data    []byte
	Caption string
}

// Fake records every call. Configure the exported hooks before use.
type Fake struct {
	// SendErr fails Send for chosen recipients.
	SendErr func(chatID int64, m model.Media) error
	// OnSend runs after a successful Send, outside the lock.
	OnSend func(Sent)

	mu        sync.Mutex
	nextID    int
	sent      []Sent
	deleted   []Ref
	edits     []Sent
	files     []File
	answers   []string
	live      map[Ref]bool
	members   map[int64]map[int64]string
	memberErr map[int64]error
	chats     map[string]messenger.Chat
	downloads map[string][]byte
}

var _ messenger.Messenger = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		live:      make(map[Ref]bool),
		members:   make(map[int64]map[int64]string),
		memberErr: make(map[int64]error),
		chats:     make(map[string]messenger.Chat),
		downloads: make(map[string][]byte),
	}
}

func (f *Fake) Send(ctx context.Context, chatID int64, m model.Media, opts messenger.SendOptions) (int, error) {
	if f.SendErr != nil {
		if err := f.SendErr(chatID, m); err != nil {
			return 0, &model.DeliveryError{ChatID: chatID, Op: "send", Err: err}
		}
	}
	f.mu.Lock()
	f.nextID++
	s := Sent{ChatID: chatID, MessageID: f.nextID, Media: m, Opts: opts}
	f.sent = append(f.sent, s)
	f.live[Ref{chatID, s.MessageID}] = true
	f.mu.Unlock()

	if f.OnSend != nil {
		f.OnSend(s)
	}
	return s.MessageID, nil
}

func (f *Fake) Delete(ctx context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := Ref{chatID, messageID}
	if !f.live[r] {
		return messenger.ErrMessageGone
	}
	delete(f.live, r)
	f.deleted = append(f.deleted, r)
	return nil
}

func (f *Fake) Edit(ctx context.Context, chatID int64, messageID int, text string, kb messenger.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live[Ref{chatID, messageID}] {
		return messenger.ErrMessageGone
	}
	f.edits = append(f.edits, Sent{ChatID: chatID, MessageID: messageID, Media: model.TextMedia(text), Opts: messenger.SendOptions{Keyboard: kb}})
	return nil
}

func (f *Fake) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.memberErr[chatID]; err != nil {
		return "", err
	}
	if status, ok := f.members[chatID][userID]; ok {
		return status, nil
	}
	return messenger.StatusLeft, nil
}

func (f *Fake) LookupChat(ctx context.Context, ref string) (messenger.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[ref]
	if !ok {
		return messenger.Chat{}, fmt.Errorf("chat %s: %w", ref, model.ErrNotFound)
	}
	return c, nil
}

func (f *Fake) SendFile(ctx context.Context, chatID int64, name string, data []byte, caption string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.files = append(f.files, File{ChatID: chatID, Name: name, Data: append([]byte(nil), data...), Caption: caption})
	f.live[Ref{chatID, f.nextID}] = true
	return f.nextID, nil
}

func (f *Fake) Download(ctx context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.downloads[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, model.ErrNotFound)
	}
	return data, nil
}

func (f *Fake) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

// SetMember sets the status of userID in chatID.
func (f *Fake) SetMember(chatID, userID int64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[chatID] == nil {
		f.members[chatID] = make(map[int64]string)
	}
	f.members[chatID][userID] = status
}

// FailMembers makes every MemberStatus lookup on chatID fail.
func (f *Fake) FailMembers(chatID int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberErr[chatID] = err
}

// AddChat registers a chat for LookupChat.
func (f *Fake) AddChat(ref string, c messenger.Chat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats[ref] = c
}

// AddFile registers a downloadable file.
func (f *Fake) AddFile(fileID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads[fileID] = data
}

// SentTo returns the messages delivered to chatID in order.
func (f *Fake) SentTo(chatID int64) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Texts returns the text or caption of every message delivered to chatID.
func (f *Fake) Texts(chatID int64) []string {
	var out []string
	for _, s := range f.SentTo(chatID) {
		out = append(out, s.Media.Text)
	}
	return out
}

// AllSent returns every delivered message.
func (f *Fake) AllSent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// Deleted returns every successful deletion in order.
func (f *Fake) Deleted() []Ref {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Ref(nil), f.deleted...)
}

// Edits returns every edit.
func (f *Fake) Edits() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.edits...)
}

// Files returns every SendFile call.
func (f *Fake) Files() []File {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]File(nil), f.files...)
}

// Answers returns every callback answer text.
func (f *Fake) Answers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.answers...)
}

// Live reports whether a message is still present.
func (f *Fake) Live(chatID int64, messageID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[Ref{chatID, messageID}]
}
