// Package history implements the per-user query history service on top of
// the file store: read the latest entries, append with move-to-front dedup,
// and clear.
package history

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZhanXPX/glance-multisearch/internal/store"
)

// ErrEmptyQuery is returned by Append when the query normalizes to empty.
// It is the only error the HTTP layer surfaces to callers.
var ErrEmptyQuery = errors.New("empty query")

const (
	// MaxEntries caps a single user's stored history.
	MaxEntries = 1000

	// RecentLimit caps what GetRecent returns.
	RecentLimit = 50

	maxUserLen   = 40
	maxQueryLen  = 200
	maxEngineLen = 32
)

var unsafeUserChars = regexp.MustCompile(`[^A-Za-z0-9_.@-]`)

// NormalizeUser derives the history partition key from a caller-supplied
// identifier: trim, default, truncate to 40 runes, and replace anything
// outside [A-Za-z0-9_.@-] with underscores so the key is safe as a JSON map
// key and contains no path-significant characters.
func NormalizeUser(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		u = "default"
	}
	u = truncate(u, maxUserLen)
	return unsafeUserChars.ReplaceAllString(u, "_")
}

// NormalizeQuery trims and clamps a query to 200 runes.
func NormalizeQuery(raw string) string {
	return truncate(strings.TrimSpace(raw), maxQueryLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Service exposes history operations over a shared store. All methods
// normalize the user identifier the same way, so equivalent raw identifiers
// always resolve to the same partition.
type Service struct {
	store *store.FileStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a history service backed by s.
func NewService(s *store.FileStore, log zerolog.Logger) *Service {
	return &Service{
		store: s,
		log:   log.With().Str("component", "history").Logger(),
		now:   time.Now,
	}
}

// GetRecent returns up to the 50 most recent entries for the user,
// most-recent-first. It never mutates.
func (s *Service) GetRecent(rawUser string) []store.Entry {
	entries := s.store.User(NormalizeUser(rawUser))
	if len(entries) > RecentLimit {
		entries = entries[:RecentLimit]
	}
	return entries
}

// Append records a query for the user. An existing entry with the same query
// is removed and the fresh entry inserted at the front, so recency order
// reflects the last write. The list is capped at 1000 entries and a store
// flush is scheduled.
func (s *Service) Append(rawUser, rawQuery, rawEngine string) error {
	q := NormalizeQuery(rawQuery)
	if q == "" {
		return ErrEmptyQuery
	}
	engine := truncate(rawEngine, maxEngineLen)
	uid := NormalizeUser(rawUser)
	ts := s.now().UnixMilli()

	s.store.Mutate(uid, func(entries []store.Entry) []store.Entry {
		out := make([]store.Entry, 0, len(entries)+1)
		out = append(out, store.Entry{Query: q, Engine: engine, Timestamp: ts})
		for _, e := range entries {
			if e.Query != q {
				out = append(out, e)
			}
		}
		if len(out) > MaxEntries {
			out = out[:MaxEntries]
		}
		return out
	})

	s.log.Debug().Str("user", uid).Str("engine", engine).Msg("history appended")
	return nil
}

// Clear empties the user's history and schedules a flush. Clearing an
// already-empty history is a successful no-op.
func (s *Service) Clear(rawUser string) {
	uid := NormalizeUser(rawUser)
	s.store.SetUser(uid, []store.Entry{})
	s.log.Debug().Str("user", uid).Msg("history cleared")
}

// Matches scans the user's full history, not just the latest 50, for queries
// containing term as a case-insensitive substring. Order follows stored
// recency; the result is capped at limit.
func (s *Service) Matches(rawUser, term string, limit int) []string {
	needle := strings.ToLower(term)
	out := []string{}
	for _, e := range s.store.User(NormalizeUser(rawUser)) {
		if e.Query == "" {
			continue
		}
		if strings.Contains(strings.ToLower(e.Query), needle) {
			out = append(out, e.Query)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}
