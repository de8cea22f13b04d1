package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"subtrans/internal/domain"
)

// sidecar is the JSON-serialized form of domain.CacheMetadata written
// next to each artifact.
type sidecar struct {
	CreatedAt        time.Time     `json:"createdAt"`
	SourceURI        string        `json:"sourceUri"`
	SourceTrackIndex int           `json:"sourceTrackIndex"`
	TargetLanguage   string        `json:"targetLanguage"`
	Format           domain.Format `json:"format"`
}

// Store implements ports.CacheStore over the local filesystem: one
// artifact file plus one JSON metadata sidecar per fingerprint,
// directory layout {baseDir}/{fp[:2]}/{fp}.{sub,json} — mirroring
// the teacher's sharded-by-prefix cache directory layout.
type Store struct {
	baseDir string
	logger  *slog.Logger

	mu sync.Mutex
}

// NewStore creates (if needed) baseDir and returns a Store rooted there.
func NewStore(baseDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

func (s *Store) paths(fp domain.Fingerprint) (dir, artifact, meta string) {
	key := string(fp)
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}
	dir = filepath.Join(s.baseDir, shard)
	artifact = filepath.Join(dir, key+".sub")
	meta = filepath.Join(dir, key+".json")
	return
}

// Lookup implements ports.CacheStore.Lookup. An expired entry found on
// disk is itself irrelevant to this method — expiry is Expire's job —
// but a sidecar that fails to parse is treated as a miss.
func (s *Store) Lookup(ctx context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool, error) {
	_, artifactPath, metaPath := s.paths(fp)

	metaBytes, err := os.ReadFile(metaPath)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	var sc sidecar
	if err := json.Unmarshal(metaBytes, &sc); err != nil {
		return domain.CacheEntry{}, false, nil
	}

	artifact, err := os.ReadFile(artifactPath)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}

	return domain.CacheEntry{
		Fingerprint: fp,
		Artifact:    artifact,
		Metadata: domain.CacheMetadata{
			CreatedAt:        sc.CreatedAt,
			SourceURI:        sc.SourceURI,
			SourceTrackIndex: sc.SourceTrackIndex,
			TargetLanguage:   sc.TargetLanguage,
			Format:           sc.Format,
		},
	}, true, nil
}

// Put implements ports.CacheStore.Put, writing the artifact and
// sidecar atomically: write to a temp file in the same directory,
// flush, then rename (spec §4.5 Publication).
func (s *Store) Put(ctx context.Context, fp domain.Fingerprint, artifact []byte, meta domain.CacheMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, artifactPath, metaPath := s.paths(fp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := atomicWriteFile(dir, artifactPath, artifact); err != nil {
		return err
	}

	sc := sidecar{
		CreatedAt:        meta.CreatedAt,
		SourceURI:        meta.SourceURI,
		SourceTrackIndex: meta.SourceTrackIndex,
		TargetLanguage:   meta.TargetLanguage,
		Format:           meta.Format,
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now()
	}
	metaBytes, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, metaPath, metaBytes)
}

// Expire implements ports.CacheStore.Expire: removes every entry
// whose sidecar CreatedAt is older than maxAge, returning the count
// removed. A lookup returning a miss for an expired entry is handled
// by Lookup itself failing to find the files Expire has removed.
func (s *Store) Expire(ctx context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	shards, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, err
	}
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardDir := filepath.Join(s.baseDir, shard.Name())
		entries, err := os.ReadDir(shardDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if filepath.Ext(name) != ".json" {
				continue
			}
			metaPath := filepath.Join(shardDir, name)
			b, err := os.ReadFile(metaPath)
			if err != nil {
				continue
			}
			var sc sidecar
			if err := json.Unmarshal(b, &sc); err != nil {
				continue
			}
			if sc.CreatedAt.After(cutoff) {
				continue
			}
			key := name[:len(name)-len(".json")]
			os.Remove(metaPath)
			os.Remove(filepath.Join(shardDir, key+".sub"))
			removed++
			if s.logger != nil {
				s.logger.Info("cache entry expired", slog.String("fingerprint", key))
			}
		}
	}
	return removed, nil
}

// PublishAlongside implements ports.CacheStore.PublishAlongside: copy
// a cached artifact to destPath atomically (spec §4.5 Publication).
func (s *Store) PublishAlongside(ctx context.Context, fp domain.Fingerprint, destPath string) error {
	entry, ok, err := s.Lookup(ctx, fp)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no cache entry for fingerprint %s", domain.ErrNotFound, fp)
	}
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return atomicWriteFile(destDir, destPath, entry.Artifact)
}

// atomicWriteFile writes data to a temp file inside dir, flushes it,
// then renames it into place — the same write-temp-then-rename
// discipline the teacher's repository layer uses for durable writes.
func atomicWriteFile(dir, finalPath string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}
