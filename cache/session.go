package cache

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

const (
	sessionNamespace = "session/"

	DefaultSessionTTL        = 24 * time.Hour
	DefaultSessionMaxHistory = 50

	sessionLockStripes = 64
)

// SessionCache stores ConversationContext values by session id.
// Reads never extend an entry's lifetime; only Put and Append reset it.
type SessionCache struct {
	store      storage.CacheStore
	ttl        time.Duration
	maxHistory int
	logger     *slog.Logger

	// serializes Append per session id; ids share stripes so the set
	// never grows with the number of sessions seen
	locks [sessionLockStripes]sync.Mutex
}

// SessionOption configures a SessionCache.
type SessionOption func(*SessionCache) error

// WithSessionTTL sets the session lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(c *SessionCache) error {
		if ttl <= 0 {
			return ErrInvalidTTL
		}
		c.ttl = ttl
		return nil
	}
}

// WithMaxHistory caps stored history; zero keeps everything.
func WithMaxHistory(n int) SessionOption {
	return func(c *SessionCache) error {
		if n < 0 {
			return errors.New("max history cannot be negative")
		}
		c.maxHistory = n
		return nil
	}
}

// WithSessionLogger sets a custom logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(c *SessionCache) error {
		c.logger = logger
		return nil
	}
}

// NewSessionCache creates a session cache over store.
func NewSessionCache(store storage.CacheStore, opts ...SessionOption) (*SessionCache, error) {
	c := &SessionCache{
		store:      store,
		ttl:        DefaultSessionTTL,
		maxHistory: DefaultSessionMaxHistory,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "session-cache")
	return c, nil
}

// Get returns the stored session, or nil if absent, expired or unreadable.
func (c *SessionCache) Get(ctx context.Context, sessionID string) *core.ConversationContext {
	if sessionID == "" {
		return nil
	}
	conv, err := c.get(ctx, sessionID)
	if err != nil {
		c.logger.Warn("session read failed", "session", sessionID, "err", err)
		return nil
	}
	return conv
}

// get distinguishes an absent session (nil, nil) from a store that could
// not be read. Undecodable entries count as absent.
func (c *SessionCache) get(ctx context.Context, sessionID string) (*core.ConversationContext, error) {
	if c.store == nil {
		return nil, nil
	}
	data, err := c.store.Get(ctx, sessionKey(sessionID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	conv, err := storage.UnmarshalConversation(data)
	if err != nil {
		c.logger.Warn("discarding undecodable session", "session", sessionID, "err", err)
		return nil, nil
	}
	return conv, nil
}

// Put stores conv and resets its lifetime. Only validation errors are
// returned; store failures are logged.
func (c *SessionCache) Put(ctx context.Context, conv *core.ConversationContext) error {
	if err := core.ValidateConversationContext(conv); err != nil {
		return err
	}
	c.put(ctx, conv)
	return nil
}

// Append adds entry to the session, creating it if needed, and trims the
// history to the configured maximum. The returned context is what was
// written, even if the write itself failed. When the stored session cannot
// be read the entry is applied to a fresh context that is returned but not
// written, so the stored history is never replaced by a partial one.
func (c *SessionCache) Append(ctx context.Context, sessionID, userID string, entry core.HistoryEntry) (*core.ConversationContext, error) {
	if sessionID == "" {
		return nil, core.ErrEmptySessionID
	}
	if entry.Kind == "" {
		return nil, core.ErrEmptyEntryKind
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	mu := c.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	conv, err := c.get(ctx, sessionID)
	readFailed := err != nil
	if readFailed {
		c.logger.Warn("session read failed, append not persisted", "session", sessionID, "err", err)
	}
	if conv == nil {
		conv = &core.ConversationContext{SessionID: sessionID, UserID: userID}
	}
	if conv.UserID == "" {
		conv.UserID = userID
	}
	conv.Append(entry, c.maxHistory)
	if !readFailed {
		c.put(ctx, conv)
	}
	return conv, nil
}

func (c *SessionCache) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &c.locks[h.Sum32()%sessionLockStripes]
}

// Delete removes a session.
func (c *SessionCache) Delete(ctx context.Context, sessionID string) {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, sessionKey(sessionID)); err != nil {
		c.logger.Warn("session delete failed", "session", sessionID, "err", err)
	}
}

func (c *SessionCache) put(ctx context.Context, conv *core.ConversationContext) {
	if c.store == nil {
		return
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = time.Now().UTC()
	}
	if err := c.store.Set(ctx, sessionKey(conv.SessionID), storage.MarshalConversation(conv), c.ttl); err != nil {
		c.logger.Warn("session write failed", "session", conv.SessionID, "err", err)
	}
}

func sessionKey(id string) []byte {
	return []byte(sessionNamespace + id)
}
