package ports

import (
	"context"
	"time"

	"subtrans/internal/domain"
)

// CacheStore is the content-addressed artifact store of spec §4.5.
type CacheStore interface {
	Lookup(ctx context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool, error)
	Put(ctx context.Context, fp domain.Fingerprint, artifact []byte, meta domain.CacheMetadata) error
	Expire(ctx context.Context, maxAge time.Duration) (int, error)
	// PublishAlongside atomically copies a cached artifact next to the
	// source video (spec §4.5, §6 "Output alongside video").
	PublishAlongside(ctx context.Context, fp domain.Fingerprint, destPath string) error
}
