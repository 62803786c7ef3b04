package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth:state:"

// StateStore keeps single-use OAuth state values for the redirect flow.
// Redis is used when available; otherwise entries live in process memory.
type StateStore struct {
	rc  *redis.Client
	mu  sync.Mutex
	mem map[string]time.Time
	now func() time.Time
}

// NewStateStore creates a StateStore. rc may be nil.
func NewStateStore(rc *redis.Client) *StateStore {
	return &StateStore{rc: rc, mem: map[string]time.Time{}, now: time.Now}
}

// Save remembers state for ttl.
func (s *StateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rc.Set(ctx, stateKeyPrefix+state, "1", ttl).Err(); err == nil {
			return nil
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.mem[state] = s.now().Add(ttl)
	return nil
}

// Consume reports whether state was saved and unexpired, and removes it.
func (s *StateStore) Consume(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		v, err := s.rc.GetDel(ctx, stateKeyPrefix+state).Result()
		if err == nil {
			return v != ""
		}
		if err == redis.Nil {
			return s.consumeMemory(state)
		}
		// GETDEL needs Redis >= 6.2
		script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
		if res, err := s.rc.Eval(ctx, script, []string{stateKeyPrefix + state}).Result(); err == nil {
			return res != nil
		}
	}
	return s.consumeMemory(state)
}

func (s *StateStore) consumeMemory(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.mem[state]
	if !ok {
		return false
	}
	delete(s.mem, state)
	return s.now().Before(expires)
}

// sweep drops expired entries; caller holds mu.
func (s *StateStore) sweep() {
	now := s.now()
	for k, exp := range s.mem {
		if now.After(exp) {
			delete(s.mem, k)
		}
	}
}
