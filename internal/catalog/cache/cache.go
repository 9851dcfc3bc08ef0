// Package cache wraps a catalog with a read-through cache. Cache failures are
// logged and the backend is queried directly, so a dead cache never fails an
// evaluation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
)

// ErrMiss is returned by KV.Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// KV is the subset of a key/value store the decorator needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Redis adapts a go-redis client to KV.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to addr and pings it.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Redis{Client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

const keyPrefix = "eligibility:catalog:"

// Catalog is a catalog.Catalog that consults KV before Backend.
type Catalog struct {
	Backend catalog.Catalog
	KV      KV
	TTL     time.Duration
	Logger  *slog.Logger
}

func New(backend catalog.Catalog, kv KV, ttl time.Duration, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{Backend: backend, KV: kv, TTL: ttl, Logger: logger}
}

func (c *Catalog) ListProgrammes(ctx context.Context, q catalog.Query) ([]domain.ProgrammeRecord, error) {
	return cached(ctx, c, ListKey(q), func() ([]domain.ProgrammeRecord, error) {
		return c.Backend.ListProgrammes(ctx, q)
	})
}

func (c *Catalog) ProgrammeDetail(ctx context.Context, category domain.Category, code string) (domain.ProgrammeRecord, error) {
	return cached(ctx, c, keyPrefix+"detail:"+string(category)+":"+code, func() (domain.ProgrammeRecord, error) {
		return c.Backend.ProgrammeDetail(ctx, category, code)
	})
}

func (c *Catalog) SubjectReference(ctx context.Context) ([]domain.SubjectReference, error) {
	return cached(ctx, c, keyPrefix+"subjects", func() ([]domain.SubjectReference, error) {
		return c.Backend.SubjectReference(ctx)
	})
}

// ListKey derives a stable key for q; filter values are normalized the same
// way the stores compare them.
func ListKey(q catalog.Query) string {
	norm := func(values []string) string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
				out = append(out, v)
			}
		}
		sort.Strings(out)
		return strings.Join(out, ",")
	}
	return fmt.Sprintf("%slist:%s:%d:%s:%s:%s", keyPrefix, q.Category, q.Cluster,
		norm(q.CategoryTags), norm(q.Counties), norm(q.InstitutionTypes))
}

// cached is a read-through lookup. Backend errors are returned untouched and
// never stored.
func cached[T any](ctx context.Context, c *Catalog, key string, load func() (T, error)) (T, error) {
	if b, err := c.KV.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		c.Logger.Warn("discarding undecodable cache entry", "key", key)
	} else if !errors.Is(err, ErrMiss) {
		c.Logger.Error("cache get failed", "key", key, "error", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	b, err := json.Marshal(v)
	if err != nil {
		c.Logger.Error("cache encode failed", "key", key, "error", err)
		return v, nil
	}
	if err := c.KV.Set(ctx, key, b, c.TTL); err != nil {
		c.Logger.Error("cache set failed", "key", key, "error", err)
	}
	return v, nil
}
