package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/user/moviebot/internal/model"
)

// ErrNoChange tells Upsert and Update to keep the record as it is without rewriting the file.
var ErrNoChange = errors.New("no change")

// Record is anything stored in a collection.
type Record interface {
	Key() string
}

// Collection is one JSON document mapping id to record, kept in memory and rewritten in full
// on every mutation. Keys keep insertion order on disk and in List.
type Collection[T Record] struct {
	name string
	path string

	mu    sync.RWMutex
	keys  []string
	items map[string]T
}

func openCollection[T Record](dir, name string) (*Collection[T], error) {
	c := &Collection[T]{
		name:  name,
		path:  filepath.Join(dir, name+".json"),
		items: make(map[string]T),
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	keys, items, err := decodeOrdered[T](data)
	if err != nil {
		return nil, &model.CorruptionError{Path: c.path, Err: err}
	}
	c.keys, c.items = keys, items
	return c, nil
}

// Name is the collection name, also the file stem.
func (c *Collection[T]) Name() string { return c.name }

// Get returns the record stored under key, or model.ErrNotFound.
func (c *Collection[T]) Get(key string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.items[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", c.name, key, model.ErrNotFound)
	}
	return rec, nil
}

// List returns every record in insertion order.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}

// Len is the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Put inserts or overwrites rec. An overwritten record keeps its position.
func (c *Collection[T]) Put(rec T) error {
	if err := model.Validate(rec); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.putLocked(rec)
}

// Delete removes key. Removing a missing key is a no-op and reports false.
func (c *Collection[T]) Delete(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return false, nil
	}
	keys := make([]string, 0, len(c.keys)-1)
	for _, k := range c.keys {
		if k != key {
			keys = append(keys, k)
		}
	}
	items := make(map[string]T, len(c.items)-1)
	for k, v := range c.items {
		if k != key {
			items[k] = v
		}
	}
	if err := c.writeLocked(keys, items); err != nil {
		return false, err
	}
	c.keys, c.items = keys, items
	return true, nil
}

// Upsert runs fn on the current record (zero value when missing) under the collection lock and
// stores the result. An error from fn aborts without writing; ErrNoChange aborts silently.
func (c *Collection[T]) Upsert(key string, fn func(rec *T, exists bool) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsertLocked(key, fn)
}

// Update is Upsert for an existing record; a missing key returns model.ErrNotFound.
func (c *Collection[T]) Update(key string, fn func(rec *T) error) (T, error) {
	return c.UpdateIf(key, nil, fn)
}

// UpdateIf is Update with check run over every current record under the same lock, so a
// uniqueness rule cannot race with another writer. An error from check aborts without writing.
func (c *Collection[T]) UpdateIf(key string, check func(existing []T) error, fn func(rec *T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsertLocked(key, func(rec *T, exists bool) error {
		if !exists {
			return fmt.Errorf("%s %q: %w", c.name, key, model.ErrNotFound)
		}
		if check != nil {
			if err := check(c.listLocked()); err != nil {
				return err
			}
		}
		return fn(rec)
	})
}

func (c *Collection[T]) upsertLocked(key string, fn func(rec *T, exists bool) error) (T, error) {
	rec, exists := c.items[key]
	if err := fn(&rec, exists); err != nil {
		if errors.Is(err, ErrNoChange) {
			return rec, nil
		}
		var zero T
		return zero, err
	}
	if rec.Key() != key {
		var zero T
		return zero, fmt.Errorf("%w: %s record key %q does not match %q", model.ErrInvalidInput, c.name, rec.Key(), key)
	}
	if err := model.Validate(rec); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if err := c.putLocked(rec); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Insert stores a new record under the next numeric id.
func (c *Collection[T]) Insert(build func(id string) (T, error)) (T, error) {
	return c.InsertIf(nil, build)
}

// InsertIf is Insert guarded by check, which sees every current record under the write lock.
func (c *Collection[T]) InsertIf(check func(existing []T) error, build func(id string) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if check != nil {
		if err := check(c.listLocked()); err != nil {
			var zero T
			return zero, err
		}
	}
	var next int64 = 1
	for _, k := range c.keys {
		if n, err := strconv.ParseInt(k, 10, 64); err == nil && n >= next {
			next = n + 1
		}
	}
	id := strconv.FormatInt(next, 10)
	rec, err := build(id)
	if err != nil {
		var zero T
		return zero, err
	}
	if rec.Key() != id {
		var zero T
		return zero, fmt.Errorf("%w: new %s record must use id %q", model.ErrInvalidInput, c.name, id)
	}
	if err := model.Validate(rec); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if err := c.putLocked(rec); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Replace swaps the whole content for recs.
func (c *Collection[T]) Replace(recs []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.stageLocked(recs)
	if err != nil {
		return err
	}
	return st.commit()
}

func (c *Collection[T]) putLocked(rec T) error {
	key := rec.Key()
	keys := c.keys
	if _, ok := c.items[key]; !ok {
		keys = append(append(make([]string, 0, len(c.keys)+1), c.keys...), key)
	}
	items := make(map[string]T, len(c.items)+1)
	for k, v := range c.items {
		items[k] = v
	}
	items[key] = rec
	if err := c.writeLocked(keys, items); err != nil {
		return err
	}
	c.keys, c.items = keys, items
	return nil
}

func (c *Collection[T]) writeLocked(keys []string, items map[string]T) error {
	tmp, err := c.writeTemp(keys, items)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", c.path, err)
	}
	return nil
}

func (c *Collection[T]) writeTemp(keys []string, items map[string]T) (string, error) {
	data, err := encodeOrdered(keys, items)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", c.name, err)
	}
	f, err := os.CreateTemp(filepath.Dir(c.path), c.name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", c.name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// staged is a written temp file waiting to replace a collection.
type staged interface {
	commit() error
	abort()
}

type stagedCollection[T Record] struct {
	c     *Collection[T]
	tmp   string
	keys  []string
	items map[string]T
}

func (s *stagedCollection[T]) commit() error {
	if err := os.Rename(s.tmp, s.c.path); err != nil {
		_ = os.Remove(s.tmp)
		return fmt.Errorf("replace %s: %w", s.c.path, err)
	}
	s.c.keys, s.c.items = s.keys, s.items
	return nil
}

func (s *stagedCollection[T]) abort() {
	_ = os.Remove(s.tmp)
}

// stageLocked writes recs to a temp file without touching the live file. Caller holds c.mu.
func (c *Collection[T]) stageLocked(recs []T) (*stagedCollection[T], error) {
	keys := make([]string, 0, len(recs))
	items := make(map[string]T, len(recs))
	for _, r := range recs {
		k := r.Key()
		if _, dup := items[k]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q in %s", model.ErrInvalidInput, k, c.name)
		}
		keys = append(keys, k)
		items[k] = r
	}
	tmp, err := c.writeTemp(keys, items)
	if err != nil {
		return nil, err
	}
	return &stagedCollection[T]{c: c, tmp: tmp, keys: keys, items: items}, nil
}

func (c *Collection[T]) lock()    { c.mu.Lock() }
func (c *Collection[T]) unlock()  { c.mu.Unlock() }
func (c *Collection[T]) rlock()   { c.mu.RLock() }
func (c *Collection[T]) runlock() { c.mu.RUnlock() }

// listLocked is List for callers already holding a lock.
func (c *Collection[T]) listLocked() []T {
	out := make([]T, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}

func encodeOrdered[T Record](keys []string, items map[string]T) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.MarshalIndent(items[k], "  ", "  ")
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteString(": ")
		buf.Write(vb)
	}
	if len(keys) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// decodeOrdered reads a JSON object keeping key order. Empty input is an empty collection.
func decodeOrdered[T Record](data []byte) ([]string, map[string]T, error) {
	items := make(map[string]T)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, items, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected an id, got %v", tok)
		}
		if _, dup := items[key]; dup {
			return nil, nil, fmt.Errorf("duplicate id %q", key)
		}
		var rec T
		if err := dec.Decode(&rec); err != nil {
			return nil, nil, fmt.Errorf("record %q: %w", key, err)
		}
		if rec.Key() != key {
			return nil, nil, fmt.Errorf("record under %q has id %q", key, rec.Key())
		}
		if err := model.Validate(rec); err != nil {
			return nil, nil, fmt.Errorf("record %q: %w", key, err)
		}
		keys = append(keys, key)
		items[key] = rec
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("trailing data after the collection object")
	}
	return keys, items, nil
}
