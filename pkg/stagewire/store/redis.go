package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/stagewire-net/stagewire/pkg/util"
)

// RedisStore is the Redis-backed entry store. Each record is a hash at
// "TABLE|key". Field-less records are written with a "NULL":"NULL"
// sentinel so the Redis key actually exists (the convention SONiC uses
// for field-less CONFIG_DB entries); the sentinel is stripped on read.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
	tunnel *SSHTunnel // nil for direct connections
}

// RedisOptions configures a RedisStore connection.
type RedisOptions struct {
	// Addr is the host:port of the store. When SSHUser is set, Addr's host
	// is dialed over SSH and Redis is reached through a local forward.
	Addr string
	// DB is the Redis database number holding the entry tables.
	DB int

	SSHUser string
	SSHPass string
}

// NewRedisStore connects to the store and verifies it with a ping.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	s := &RedisStore{ctx: context.Background()}

	addr := opts.Addr
	if opts.SSHUser != "" {
		tun, err := NewSSHTunnel(opts.Addr, opts.SSHUser, opts.SSHPass)
		if err != nil {
			return nil, fmt.Errorf("SSH tunnel to %s: %w", opts.Addr, err)
		}
		s.tunnel = tun
		addr = tun.LocalAddr()
	}

	s.client = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   opts.DB,
	})
	if err := s.client.Ping(s.ctx).Err(); err != nil {
		s.Close()
		return nil, fmt.Errorf("store ping %s: %w", opts.Addr, err)
	}

	util.WithStore(opts.Addr).Debugf("connected to entry store (db %d)", opts.DB)
	return s, nil
}

// Close closes the Redis connection and any SSH tunnel behind it.
func (s *RedisStore) Close() error {
	err := s.client.Close()
	if s.tunnel != nil {
		if terr := s.tunnel.Close(); err == nil {
			err = terr
		}
	}
	return err
}

// Get reads one record. Absent records report ok=false.
func (s *RedisStore) Get(table, key string) (map[string]string, bool, error) {
	fields, err := s.client.HGetAll(s.ctx, table+KeySeparator+key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("get %s%s%s: %w", table, KeySeparator, key, err)
	}
	if len(fields) == 0 {
		// HGetAll returns an empty map for missing keys.
		return nil, false, nil
	}
	delete(fields, "NULL")
	return fields, true, nil
}

// Put inserts or updates one record. All fields go out in a single HSET so
// agents driven by keyspace notifications see exactly one event with the
// complete record, never partial state.
func (s *RedisStore) Put(table, key string, fields map[string]string) error {
	redisKey := table + KeySeparator + key
	if len(fields) == 0 {
		if err := s.client.HSet(s.ctx, redisKey, "NULL", "NULL").Err(); err != nil {
			return fmt.Errorf("put %s: %w", redisKey, err)
		}
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.client.HSet(s.ctx, redisKey, args...).Err(); err != nil {
		return fmt.Errorf("put %s: %w", redisKey, err)
	}
	return nil
}

// Delete removes one record. Deleting an absent record is not an error.
func (s *RedisStore) Delete(table, key string) error {
	if err := s.client.Del(s.ctx, table+KeySeparator+key).Err(); err != nil {
		return fmt.Errorf("delete %s%s%s: %w", table, KeySeparator, key, err)
	}
	return nil
}

// Keys enumerates the entry keys of a table using cursor-based SCAN
// (non-blocking, unlike KEYS *). Results are sorted for deterministic
// iteration order.
func (s *RedisStore) Keys(table string) ([]string, error) {
	prefix := table + KeySeparator
	var cursor uint64
	var keys []string
	for {
		batch, next, err := s.client.Scan(s.ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		for _, k := range batch {
			keys = append(keys, k[len(prefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Apply issues the batch through a MULTI/EXEC pipeline: one round trip,
// no interleaved commands from this client. Other agents' writes to the
// same tables can still race the batch; that is inherent in the shared
// store and not papered over here.
func (s *RedisStore) Apply(changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, change := range changes {
		redisKey := change.Table + KeySeparator + change.Key
		switch {
		case change.Fields == nil:
			pipe.Del(s.ctx, redisKey)
		case len(change.Fields) == 0:
			pipe.HSet(s.ctx, redisKey, "NULL", "NULL")
		default:
			args := make([]interface{}, 0, len(change.Fields)*2)
			for k, v := range change.Fields {
				args = append(args, k, v)
			}
			pipe.HSet(s.ctx, redisKey, args...)
		}
	}

	if _, err := pipe.Exec(s.ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("apply batch of %d: %w", len(changes), err)
	}
	return nil
}
