package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is the cached snapshot of one user's cart. Stale is set once the
// entry has been invalidated or has outlived its TTL; a stale entry is only
// served when a refetch fails.
type Entry struct {
	Cart      Cart      `json:"cart"`
	FetchedAt time.Time `json:"fetchedAt"`
	Stale     bool      `json:"-"`
}

// Cache holds one snapshot per user behind a generation counter.
// Invalidate bumps the generation. Store only writes when the generation
// still equals the one read before the fetch started, so a response that
// raced with a newer invalidation is dropped.
type Cache interface {
	Get(ctx context.Context, userID string) (Entry, bool, error)
	Generation(ctx context.Context, userID string) (uint64, error)
	Store(ctx context.Context, userID string, gen uint64, e Entry) (bool, error)
	Invalidate(ctx context.Context, userID string) (uint64, error)
}

// ========================
// memory
// ========================

type memoryEntry struct {
	entry     Entry
	storedGen uint64
	hasEntry  bool
	gen       uint64
	expiresAt time.Time
}

type memoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	users map[string]*memoryEntry
	now   func() time.Time
}

// NewMemoryCache keeps snapshots in process. ttl of zero never expires.
func NewMemoryCache(ttl time.Duration) Cache {
	return &memoryCache{ttl: ttl, users: make(map[string]*memoryEntry), now: time.Now}
}

func (m *memoryCache) user(userID string) *memoryEntry {
	u, ok := m.users[userID]
	if !ok {
		u = &memoryEntry{}
		m.users[userID] = u
	}
	return u
}

func (m *memoryCache) Get(_ context.Context, userID string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || !u.hasEntry {
		return Entry{}, false, nil
	}

	e := u.entry
	e.Stale = u.storedGen != u.gen || (m.ttl > 0 && m.now().After(u.expiresAt))
	return e, true, nil
}

func (m *memoryCache) Generation(_ context.Context, userID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user(userID).gen, nil
}

func (m *memoryCache) Store(_ context.Context, userID string, gen uint64, e Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(userID)
	if u.gen != gen {
		return false, nil
	}
	e.Stale = false
	u.entry = e
	u.storedGen = gen
	u.hasEntry = true
	u.expiresAt = m.now().Add(m.ttl)
	return true, nil
}

func (m *memoryCache) Invalidate(_ context.Context, userID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(userID)
	u.gen++
	return u.gen, nil
}

// ========================
// redis
// ========================

const (
	genKeyPrefix  = "cart:gen:"
	snapKeyPrefix = "cart:snap:"
	genKeyTTL     = 7 * 24 * time.Hour
)

// storeScript writes the snapshot only if the generation is unchanged.
var storeScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur == false then cur = "0" end
if cur ~= ARGV[1] then return 0 end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

type redisSnapshot struct {
	Gen   uint64 `json:"gen"`
	Entry Entry  `json:"entry"`
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache shares snapshots between API replicas. The snapshot key
// expires after ttl; the last stale snapshot is kept until then.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisCache{rdb: rdb, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, userID string) (Entry, bool, error) {
	vals, err := c.rdb.MGet(ctx, genKeyPrefix+userID, snapKeyPrefix+userID).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("cart cache get: %w", err)
	}

	raw, ok := vals[1].(string)
	if !ok {
		return Entry{}, false, nil
	}

	var snap redisSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// unreadable snapshot is treated as a miss
		return Entry{}, false, nil
	}

	gen, err := parseGen(vals[0])
	if err != nil {
		return Entry{}, false, err
	}

	e := snap.Entry
	e.Stale = snap.Gen != gen
	return e, true, nil
}

func (c *redisCache) Generation(ctx context.Context, userID string) (uint64, error) {
	v, err := c.rdb.Get(ctx, genKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cart cache generation: %w", err)
	}
	return parseGen(v)
}

func (c *redisCache) Store(ctx context.Context, userID string, gen uint64, e Entry) (bool, error) {
	b, err := json.Marshal(redisSnapshot{Gen: gen, Entry: e})
	if err != nil {
		return false, err
	}

	n, err := storeScript.Run(ctx, c.rdb,
		[]string{genKeyPrefix + userID, snapKeyPrefix + userID},
		strconv.FormatUint(gen, 10), string(b), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("cart cache store: %w", err)
	}
	return n == 1, nil
}

func (c *redisCache) Invalidate(ctx context.Context, userID string) (uint64, error) {
	key := genKeyPrefix + userID

	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, genKeyTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cart cache invalidate: %w", err)
	}
	return uint64(incr.Val()), nil
}

func parseGen(v interface{}) (uint64, error) {
	switch g := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cart cache generation %q: %w", g, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cart cache generation: unexpected %T", v)
	}
}
