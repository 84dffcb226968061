package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxAge is the inactivity threshold used by the periodic sweep.
const DefaultMaxAge = 24 * time.Hour

const shardCount = 32

var ErrInvalidMaxLength = errors.New("conversation: max length must be positive")

type conversation struct {
	mu           sync.Mutex
	messages     []Message
	lastActivity time.Time
	// removed is set once the conversation has been dropped from its shard.
	// Writers that still hold a pointer must start over with a fresh one.
	removed bool
}

type shard struct {
	mu    sync.RWMutex
	items map[int64]*conversation
}

// Store keeps a bounded, in-memory message history per owner.
//
// Owners are spread over independent shards and every conversation has its
// own lock, so work on one owner never waits on another owner's mutation.
// All methods are safe for concurrent use.
type Store struct {
	maxLength int
	shards    [shardCount]*shard
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a store that keeps at most maxLength messages per owner.
func New(maxLength int, opts ...Option) (*Store, error) {
	if maxLength <= 0 {
		return nil, ErrInvalidMaxLength
	}
	s := &Store{
		maxLength: maxLength,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[int64]*conversation)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxLength returns the configured per-owner history bound.
func (s *Store) MaxLength() int { return s.maxLength }

func (s *Store) shardFor(ownerID int64) *shard {
	h := uint64(ownerID)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return s.shards[h%shardCount]
}

func (s *Store) lookup(ownerID int64) *conversation {
	sh := s.shardFor(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.items[ownerID]
}

func (s *Store) acquire(ownerID int64) *conversation {
	if c := s.lookup(ownerID); c != nil {
		return c
	}
	sh := s.shardFor(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c, ok := sh.items[ownerID]
	if !ok {
		c = &conversation{lastActivity: s.now()}
		sh.items[ownerID] = c
	}
	return c
}

// mutate runs fn with the owner's conversation locked, creating it on demand.
func (s *Store) mutate(ownerID int64, fn func(c *conversation)) {
	for {
		c := s.acquire(ownerID)
		c.mu.Lock()
		if c.removed {
			c.mu.Unlock()
			continue
		}
		fn(c)
		c.mu.Unlock()
		return
	}
}

func (s *Store) appendLocked(ownerID int64, c *conversation, role Role, content string) {
	ts := s.now()
	c.messages = append(c.messages, Message{Role: role, Content: content, Timestamp: ts})
	if ts.After(c.lastActivity) {
		c.lastActivity = ts
	}
	before := len(c.messages)
	c.messages = trim(c.messages, s.maxLength)

	s.log.Debug().
		Int64("userID", ownerID).
		Str("role", string(role)).
		Int("contentLength", len(content)).
		Int("totalMessages", len(c.messages)).
		Msg("message added to conversation")
	if len(c.messages) != before {
		s.log.Debug().
			Int64("userID", ownerID).
			Int("newLength", len(c.messages)).
			Int("maxLength", s.maxLength).
			Msg("conversation trimmed")
	}
}

// Add appends a message to the owner's history and applies the trim policy.
// Roles are not validated; only RoleSystem is treated specially.
func (s *Store) Add(ownerID int64, role Role, content string) {
	s.mutate(ownerID, func(c *conversation) {
		s.appendLocked(ownerID, c, role, content)
	})
}

// SetSystemPrompt replaces every system message of the owner with prompt.
func (s *Store) SetSystemPrompt(ownerID int64, prompt string) {
	s.mutate(ownerID, func(c *conversation) {
		c.messages = withoutRole(c.messages, RoleSystem)
		s.appendLocked(ownerID, c, RoleSystem, prompt)
	})
}

// SeedSystemPrompt installs prompt as the first message when the owner has no
// history yet and reports whether it did. The check and the insert happen
// under the conversation lock.
func (s *Store) SeedSystemPrompt(ownerID int64, prompt string) bool {
	seeded := false
	s.mutate(ownerID, func(c *conversation) {
		if len(c.messages) > 0 {
			return
		}
		s.appendLocked(ownerID, c, RoleSystem, prompt)
		seeded = true
	})
	return seeded
}

// History returns a copy of the owner's messages in chronological order.
// Unknown owners get an empty slice.
func (s *Store) History(ownerID int64) []Message {
	c := s.lookup(ownerID)
	if c == nil {
		return []Message{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removed {
		return []Message{}
	}
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of stored messages for the owner.
func (s *Store) Len(ownerID int64) int {
	c := s.lookup(ownerID)
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removed {
		return 0
	}
	return len(c.messages)
}

// Reset drops the owner's conversation. Resetting an unknown owner is a no-op.
func (s *Store) Reset(ownerID int64) {
	sh := s.shardFor(ownerID)
	sh.mu.Lock()
	c, ok := sh.items[ownerID]
	if ok {
		c.mu.Lock()
		c.removed = true
		delete(sh.items, ownerID)
		c.mu.Unlock()
	}
	sh.mu.Unlock()

	if ok {
		s.log.Info().Int64("userID", ownerID).Msg("conversation cleared")
	}
}

// SweepStale removes every conversation whose last activity is at least
// maxAge old and returns how many were removed. SweepStale(0) empties the store.
func (s *Store) SweepStale(maxAge time.Duration) int {
	now := s.now()
	removed := 0
	remaining := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, c := range sh.items {
			c.mu.Lock()
			if now.Sub(c.lastActivity) >= maxAge {
				c.removed = true
				delete(sh.items, id)
				removed++
			}
			c.mu.Unlock()
		}
		remaining += len(sh.items)
		sh.mu.Unlock()
	}

	if removed > 0 {
		s.log.Info().
			Int("cleanedCount", removed).
			Int("remainingConversations", remaining).
			Msg("cleaned up old conversations")
	}
	return removed
}

// Stats counts conversations and messages over all owners.
func (s *Store) Stats() Stats {
	var st Stats
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, c := range sh.items {
			c.mu.Lock()
			st.Messages += len(c.messages)
			c.mu.Unlock()
		}
		st.Conversations += len(sh.items)
		sh.mu.RUnlock()
	}
	return st
}
