package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Mirror persists the last snapshot of each collection in Redis so a desk
// restart can show the last-known data while the backend is unreachable.
// The mirror is best-effort: the backend stays the source of truth and every
// successful refresh overwrites the mirrored copy.
type Mirror struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewMirror creates a snapshot mirror. ttl bounds how long stale data is
// served after the last successful refresh.
func NewMirror(rdb *redis.Client, ttl time.Duration, tracer trace.Tracer) *Mirror {
	if rdb == nil {
		panic("cache: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if tracer == nil {
		tracer = otel.Tracer("clinicdesk.internal.cache.mirror")
	}
	return &Mirror{redis: rdb, ttl: ttl, tracer: tracer}
}

// Save stores items under the collection key.
func Save[T any](ctx context.Context, m *Mirror, collection string, items []T) error {
	ctx, span := m.tracer.Start(ctx, "cache.mirror_save")
	defer span.End()

	data, err := json.Marshal(items)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache: marshal %s mirror: %w", collection, err)
	}
	if err := m.redis.Set(ctx, mirrorKey(collection), data, m.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache: persist %s mirror: %w", collection, err)
	}
	return nil
}

// Load returns the mirrored items for the collection key. A missing key
// yields an empty slice and no error.
func Load[T any](ctx context.Context, m *Mirror, collection string) ([]T, error) {
	ctx, span := m.tracer.Start(ctx, "cache.mirror_load")
	defer span.End()

	data, err := m.redis.Get(ctx, mirrorKey(collection)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("cache: load %s mirror: %w", collection, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cache: decode %s mirror: %w", collection, err)
	}
	return items, nil
}

func mirrorKey(collection string) string {
	return fmt.Sprintf("mirror:%s", collection)
}
