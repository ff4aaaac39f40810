package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// SessionCache keeps the latest committed snapshot of each ACTIVE session in
// Redis. PostgreSQL stays the source of truth; a miss is never an error for
// callers that can fall back to ExamSessionRepository.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a new SessionCache.
func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

// Get returns the cached snapshot for key or ErrCacheMiss.
func (c *SessionCache) Get(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s model.ExamSession
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt entry is treated as absent; the next write replaces it.
		return nil, ErrCacheMiss
	}
	if s.Answers == nil {
		s.Answers = map[string]model.Answer{}
	}
	return &s, nil
}

// Set stores s unless the cache already holds a newer version.
func (c *SessionCache) Set(ctx context.Context, s *model.ExamSession, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, s.Key)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := setIfNewer.Run(ctx, c.rdb, []string{cacheKey(s.Key)}, raw, s.Version, ttl.Milliseconds()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete drops the snapshot for key.
func (c *SessionCache) Delete(ctx context.Context, key model.SessionKey) error {
	return c.rdb.Del(ctx, cacheKey(key)).Err()
}

func cacheKey(key model.SessionKey) string {
	return config.CacheKey.ExamSessionSnapshotKey(key.ExamID, key.StudentID, key.CategoryID)
}

// setIfNewer writes ARGV[1] only when the stored snapshot's version is older
// than ARGV[2], so a slow writer cannot roll the cache back.
var setIfNewer = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, decoded = pcall(cjson.decode, current)
	if ok and decoded["version"] and tonumber(decoded["version"]) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)
