// Package store provides the file-backed persistence layer for query history.
// The whole document lives in memory for the process lifetime; the backing
// JSON file is a mirror, rewritten asynchronously on a debounce timer.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Version is the on-disk document version.
const Version = 1

// DefaultFlushDelay coalesces bursts of mutations into a single write.
const DefaultFlushDelay = 150 * time.Millisecond

// Entry is one remembered query for a user.
type Entry struct {
	Query     string `json:"q"`
	Engine    string `json:"engine"`
	Timestamp int64  `json:"ts"`
}

// document is the full on-disk shape: {version, users}.
type document struct {
	Version int                `json:"version"`
	Users   map[string][]Entry `json:"users"`
}

// FileStore holds the history document in memory and mirrors it to a single
// JSON file. All access goes through the mutex; the debounce timer is also
// the flush serialization mechanism (at most one pending flush at a time).
type FileStore struct {
	path       string
	flushDelay time.Duration
	log        zerolog.Logger

	mu    sync.Mutex
	doc   document
	timer *time.Timer // nil when no flush is pending
}

// Open loads the store at path, seeding the file with an empty document if it
// does not exist. A parse failure on an existing file is returned as an error
// rather than silently discarding user data.
func Open(path string, flushDelay time.Duration, log zerolog.Logger) (*FileStore, error) {
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &FileStore{
		path:       path,
		flushDelay: flushDelay,
		log:        log.With().Str("component", "store").Logger(),
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.doc = document{Version: Version, Users: map[string][]Entry{}}
		if err := s.write(); err != nil {
			return nil, fmt.Errorf("seed store file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read store file: %w", err)
	default:
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, fmt.Errorf("parse store file %s: %w", path, err)
		}
		if s.doc.Users == nil {
			s.doc.Users = map[string][]Entry{}
		}
	}

	return s, nil
}

// User returns a copy of the entry list for uid. The copy keeps callers from
// aliasing the slice the store mutates under its own lock.
func (s *FileStore) User(uid string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.doc.Users[uid]
	out := make([]Entry, len(list))
	copy(out, list)
	return out
}

// SetUser replaces the entry list for uid and schedules a flush.
func (s *FileStore) SetUser(uid string, entries []Entry) {
	s.mu.Lock()
	s.doc.Users[uid] = entries
	s.scheduleFlushLocked()
	s.mu.Unlock()
}

// Mutate runs fn on uid's entry list as one atomic read-modify-write and
// stores the result, then schedules a flush.
func (s *FileStore) Mutate(uid string, fn func(entries []Entry) []Entry) {
	s.mu.Lock()
	s.doc.Users[uid] = fn(s.doc.Users[uid])
	s.scheduleFlushLocked()
	s.mu.Unlock()
}

// ScheduleFlush requests that the store be persisted after the debounce
// delay. A call while a flush is already pending is a no-op.
func (s *FileStore) ScheduleFlush() {
	s.mu.Lock()
	s.scheduleFlushLocked()
	s.mu.Unlock()
}

func (s *FileStore) scheduleFlushLocked() {
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.flushDelay, func() {
		if err := s.FlushNow(); err != nil {
			s.log.Error().Err(err).Msg("failed to write store")
		}
	})
}

// FlushNow writes the store to disk synchronously, cancelling any pending
// debounce timer. Used by tests and shutdown; request handlers rely on the
// debounced path.
func (s *FileStore) FlushNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return s.write()
}

// write serializes the whole document and overwrites the backing file.
// Callers must hold the mutex.
func (s *FileStore) write() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

// Close performs a final synchronous flush.
func (s *FileStore) Close() error {
	return s.FlushNow()
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}
