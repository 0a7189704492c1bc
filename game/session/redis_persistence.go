package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/snake-engine/game/service"
)

const (
	DefaultRedisPrefix  = "snake:session:"
	defaultRedisTimeout = 2 * time.Second
)

// redisCommands is the subset of redis.UniversalClient the store needs
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// RedisOptions configures a RedisPersistence
type RedisOptions struct {
	// Prefix namespaces session keys; the index set lives at Prefix + "index"
	Prefix string
	// TTL expires idle sessions; zero keeps them forever
	TTL time.Duration
	// Timeout bounds each storage call
	Timeout time.Duration
}

// RedisPersistence implements SessionPersistence on Redis. Each session is a
// string key holding its JSON record, and a set indexes the stored IDs.
type RedisPersistence struct {
	client        redisCommands
	configManager service.ConfigManager
	prefix        string
	ttl           time.Duration
	timeout       time.Duration
}

// NewRedisClient connects to addr and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (redis.UniversalClient, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:           strings.Split(addr, ","),
		Password:        password,
		DB:              db,
		ReadTimeout:     defaultRedisTimeout,
		WriteTimeout:    defaultRedisTimeout,
		PoolSize:        20,
		MinIdleConns:    2,
		PoolTimeout:     5 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed pinging redis: %w", err)
	}
	return rdb, nil
}

// NewRedisPersistence stores sessions through client
func NewRedisPersistence(client redisCommands, configManager service.ConfigManager, opts RedisOptions) *RedisPersistence {
	if opts.Prefix == "" {
		opts.Prefix = DefaultRedisPrefix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRedisTimeout
	}
	return &RedisPersistence{
		client:        client,
		configManager: configManager,
		prefix:        opts.Prefix,
		ttl:           opts.TTL,
		timeout:       opts.Timeout,
	}
}

// Save stores the session record and adds it to the index
func (rp *RedisPersistence) Save(session *service.Session) error {
	data, err := encodeSession(session, false)
	if err != nil {
		return err
	}

	ctx, cancel := rp.context()
	defer cancel()

	id := strings.ToLower(session.ID)
	if err := rp.client.Set(ctx, rp.key(id), data, rp.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", id, err)
	}
	if err := rp.client.SAdd(ctx, rp.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to index session %s: %w", id, err)
	}
	return nil
}

// Load retrieves a session by ID
func (rp *RedisPersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := rp.context()
	defer cancel()

	id = strings.ToLower(id)
	data, err := rp.client.Get(ctx, rp.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// The record expired; drop the stale index entry
			rp.client.SRem(ctx, rp.indexKey(), id)
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	return decodeSession(data, rp.configManager)
}

// Delete removes the session record and its index entry
func (rp *RedisPersistence) Delete(id string) error {
	ctx, cancel := rp.context()
	defer cancel()

	id = strings.ToLower(id)
	removed, err := rp.client.Del(ctx, rp.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if err := rp.client.SRem(ctx, rp.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to unindex session %s: %w", id, err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns the indexed session IDs whose records still exist
func (rp *RedisPersistence) ListAll() ([]string, error) {
	ctx, cancel := rp.context()
	defer cancel()

	ids, err := rp.client.SMembers(ctx, rp.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := rp.client.Exists(ctx, rp.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check session %s: %w", id, err)
		}
		if n == 0 {
			rp.client.SRem(ctx, rp.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Exists checks if a session record is stored
func (rp *RedisPersistence) Exists(id string) bool {
	ctx, cancel := rp.context()
	defer cancel()

	n, err := rp.client.Exists(ctx, rp.key(strings.ToLower(id))).Result()
	return err == nil && n > 0
}

func (rp *RedisPersistence) key(id string) string {
	return rp.prefix + id
}

func (rp *RedisPersistence) indexKey() string {
	return rp.prefix + "index"
}

func (rp *RedisPersistence) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rp.timeout)
}
