package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "relaybot:contact:"

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL expires contacts natively; zero keeps them forever.
	TTL time.Duration
}

// Redis is a Directory storing one JSON value per contact.
type Redis struct {
	cli    *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis connects to redis and verifies the connection with PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("directory: redis ping: %w", err)
	}
	return newRedisWithClient(cli, opts), nil
}

func newRedisWithClient(cli *redis.Client, opts RedisOptions) *Redis {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{cli: cli, prefix: prefix, ttl: opts.TTL, now: time.Now}
}

func (r *Redis) key(id int64) string {
	return r.prefix + strconv.FormatInt(id, 10)
}

// Upsert stores rec, refreshing its expiry when a TTL is configured.
func (r *Redis) Upsert(ctx context.Context, rec Record) error {
	if rec.LastSeen.IsZero() {
		rec.LastSeen = r.now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("directory: encode %d: %w", rec.ID, err)
	}
	if err := r.cli.Set(ctx, r.key(rec.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("directory: redis set %d: %w", rec.ID, err)
	}
	return nil
}

// Lookup reads the contact for id; a missing key is not an error.
func (r *Redis) Lookup(ctx context.Context, id int64) (Record, bool, error) {
	data, err := r.cli.Get(ctx, r.key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return Record{}, false, nil
	case err != nil:
		return Record{}, false, fmt.Errorf("directory: redis get %d: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("directory: decode %d: %w", id, err)
	}
	return rec, true, nil
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.cli.Close()
}
