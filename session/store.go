package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/room4-2/frontdesk/config"

	"github.com/redis/go-redis/v9"
)

// ErrStoreFull is returned when the session cap is reached.
var ErrStoreFull = errors.New("maximum sessions reached")

// entry pairs a session with its turn lock. The lock serializes whole
// turns for one user; the store's own mutex only guards the registry.
type entry struct {
	turn     sync.Mutex
	sess     *Session
	lastSeen time.Time
}

// Store owns every live session, keyed by platform user ID. Turns for the
// same user run one at a time; turns for different users never contend.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	redis         *redis.Client
	maxSessions   int
	idleAfter     time.Duration
	historyWindow int
}

// NewStore creates the registry with an optional Redis mirror.
func NewStore(cfg *config.Config, historyWindow int) (*Store, error) {
	var redisClient *redis.Client

	// Try to connect to Redis, but don't fail if unavailable
	redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis unavailable, continue without it
		redisClient = nil
	}

	return &Store{
		sessions:      make(map[string]*entry),
		redis:         redisClient,
		maxSessions:   cfg.MaxSessions,
		idleAfter:     cfg.SessionTimeout,
		historyWindow: historyWindow,
	}, nil
}

// Acquire returns the user's session with its turn lock held, creating the
// session on first contact. The caller must invoke release exactly once
// when the turn is finished.
func (st *Store) Acquire(ctx context.Context, userID string) (*Session, func(), error) {
	for {
		st.mu.Lock()
		ent, ok := st.sessions[userID]
		if !ok {
			if len(st.sessions) >= st.maxSessions {
				st.mu.Unlock()
				return nil, nil, ErrStoreFull
			}
			ent = &entry{
				sess:     newSession(userID, st.historyWindow),
				lastSeen: time.Now(),
			}
			st.sessions[userID] = ent
			st.restore(ctx, ent.sess)
			st.mirror(ctx, ent.sess)
		}
		ent.lastSeen = time.Now()
		st.mu.Unlock()

		// The turn lock is taken outside the registry lock so a slow turn
		// for one user never stalls everyone else.
		ent.turn.Lock()

		st.mu.RLock()
		current := st.sessions[userID] == ent
		st.mu.RUnlock()
		if !current {
			// Evicted between lookup and lock; start over.
			ent.turn.Unlock()
			continue
		}

		sess := ent.sess
		release := func() {
			sess.Touch()
			st.mu.Lock()
			if cur, ok := st.sessions[userID]; ok && cur == ent {
				ent.lastSeen = time.Now()
			}
			st.mu.Unlock()
			// The request context may already be done by now.
			st.mirror(context.Background(), sess)
			ent.turn.Unlock()
		}
		return sess, release, nil
	}
}

// Get peeks at a session without taking its turn lock.
func (st *Store) Get(userID string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ent, ok := st.sessions[userID]
	if !ok {
		return nil, false
	}
	return ent.sess, true
}

// Remove drops a session from the registry and the mirror.
func (st *Store) Remove(ctx context.Context, userID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	ent, ok := st.sessions[userID]
	if !ok {
		return
	}
	delete(st.sessions, userID)
	st.unmirror(ctx, ent.sess)
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// CleanupIdle evicts sessions idle past the timeout. A session in the
// middle of a turn is skipped; it is not idle.
func (st *Store) CleanupIdle(ctx context.Context) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	for id, ent := range st.sessions {
		if now.Sub(ent.lastSeen) <= st.idleAfter {
			continue
		}
		if !ent.turn.TryLock() {
			continue
		}
		delete(st.sessions, id)
		st.unmirror(ctx, ent.sess)
		ent.turn.Unlock()
	}
}

// StartCleanupRoutine starts periodic cleanup of idle sessions.
func (st *Store) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.CleanupIdle(ctx)
		}
	}
}

// Shutdown drops all sessions and closes the mirror connection.
func (st *Store) Shutdown() {
	st.mu.Lock()
	defer st.mu.Unlock()

	for id := range st.sessions {
		delete(st.sessions, id)
	}

	if st.redis != nil {
		st.redis.Close()
	}
}

// mirror writes session safety state to Redis, best effort. A permanently
// blocked user must stay blocked even if the in-memory session is evicted,
// so the blocked flag and strike count live in the mirror too.
func (st *Store) mirror(ctx context.Context, s *Session) {
	if st.redis == nil {
		return
	}
	status := "active"
	if s.Blocked {
		status = "blocked"
	}
	st.redis.HSet(ctx, "user:"+s.ID, map[string]interface{}{
		"created_at":    s.CreatedAt.Format(time.RFC3339),
		"last_activity": s.LastActivity.Format(time.RFC3339),
		"status":        status,
		"suspicion":     s.SuspicionCount,
	})
	st.redis.SAdd(ctx, "active_users", s.ID)
	if !s.Blocked {
		st.redis.Expire(ctx, "user:"+s.ID, 24*time.Hour)
	}
}

// unmirror clears mirror state on eviction. Blocked users keep their hash
// so the block survives re-creation.
func (st *Store) unmirror(ctx context.Context, s *Session) {
	if st.redis == nil {
		return
	}
	st.redis.SRem(ctx, "active_users", s.ID)
	if !s.Blocked {
		st.redis.Del(ctx, "user:"+s.ID)
	}
}

// restore pulls safety state for a fresh session from the mirror.
func (st *Store) restore(ctx context.Context, s *Session) {
	if st.redis == nil {
		return
	}
	vals, err := st.redis.HGetAll(ctx, "user:"+s.ID).Result()
	if err != nil || len(vals) == 0 {
		return
	}
	if vals["status"] == "blocked" {
		s.Blocked = true
	}
	if n, err := strconv.Atoi(vals["suspicion"]); err == nil {
		s.SuspicionCount = n
	}
}
