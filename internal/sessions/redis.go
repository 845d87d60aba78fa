package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/consult-booking/internal/booking"
)

var (
	releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisStore keeps each wizard as a JSON blob with a sliding TTL.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("sessions: redis client required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{redis: redisClient, ttl: ttl, now: time.Now}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("booking:session:%s", id)
}

func (s *RedisStore) lockKey(id string) string {
	return fmt.Sprintf("booking:session:%s:submit", id)
}

// Create stores a new wizard under a fresh id.
func (s *RedisStore) Create(ctx context.Context, snap booking.Snapshot) (*Record, error) {
	rec := newRecord(snap, s.now().UTC())
	if err := s.write(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get loads a wizard.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	return s.read(ctx, s.redis, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, cmd getter, id string) (*Record, error) {
	data, err := cmd.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("sessions: unmarshal: %w", err)
	}
	return &rec, nil
}

// Save overwrites a wizard and refreshes its TTL. The version check and the
// write run in one WATCH/MULTI transaction.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	key := s.key(rec.ID)
	next := *rec
	next.Version++
	next.UpdatedAt = s.now().UTC()

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, rec.ID)
		if err != nil {
			return err
		}
		if current.Version != rec.Version {
			return ErrStale
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("sessions: marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	if err != nil {
		if errors.Is(err, ErrStale) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("sessions: save: %w", err)
	}
	*rec = next
	return nil
}

func (s *RedisStore) write(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sessions: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(rec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("sessions: set: %w", err)
	}
	return nil
}

// Delete drops a wizard and any submit lock it holds.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id), s.lockKey(id)).Err(); err != nil {
		return fmt.Errorf("sessions: delete: %w", err)
	}
	return nil
}

// AcquireSubmit takes the submit lock with SETNX under a fresh owner token.
func (s *RedisStore) AcquireSubmit(ctx context.Context, id string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, s.lockKey(id), token, SubmitLockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("sessions: acquire submit lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// RefreshSubmit resets the lock TTL if token still owns it.
func (s *RedisStore) RefreshSubmit(ctx context.Context, id, token string) (bool, error) {
	n, err := refreshLockScript.Run(ctx, s.redis, []string{s.lockKey(id)}, token, SubmitLockTTL.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("sessions: refresh submit lock: %w", err)
	}
	return n == 1, nil
}

// ReleaseSubmit deletes the lock if token still owns it.
func (s *RedisStore) ReleaseSubmit(ctx context.Context, id, token string) error {
	if err := releaseLockScript.Run(ctx, s.redis, []string{s.lockKey(id)}, token).Err(); err != nil {
		return fmt.Errorf("sessions: release submit lock: %w", err)
	}
	return nil
}

// Submitting reports whether the submit lock is held.
func (s *RedisStore) Submitting(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.lockKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("sessions: check submit lock: %w", err)
	}
	return n > 0, nil
}
