package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtrans/internal/domain"
)

func TestFingerprintStableAndDistinct(t *testing.T) {
	a := Fingerprint("http://host/a.mkv", EmbeddedTrackKey(0), "fr")
	b := Fingerprint("http://host/a.mkv", EmbeddedTrackKey(0), "fr")
	c := Fingerprint("http://host/a.mkv", EmbeddedTrackKey(1), "fr")

	if a != b {
		t.Error("same inputs produced different fingerprints")
	}
	if a == c {
		t.Error("different track index produced the same fingerprint")
	}
}

func TestStorePutAndLookup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	fp := Fingerprint("http://host/a.mkv", EmbeddedTrackKey(0), "fr")
	meta := domain.CacheMetadata{
		CreatedAt:      time.Now(),
		SourceURI:      "http://host/a.mkv",
		TargetLanguage: "fr",
		Format:         domain.FormatSRT,
	}
	if err := store.Put(context.Background(), fp, []byte("1\n00:00:00,000 --> 00:00:01,000\nBonjour\n"), meta); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, ok, err := store.Lookup(context.Background(), fp)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(entry.Artifact) != "1\n00:00:00,000 --> 00:00:01,000\nBonjour\n" {
		t.Errorf("artifact = %q", entry.Artifact)
	}
	if entry.Metadata.TargetLanguage != "fr" {
		t.Errorf("TargetLanguage = %q, want fr", entry.Metadata.TargetLanguage)
	}
}

func TestStoreLookupMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	_, ok, err := store.Lookup(context.Background(), domain.Fingerprint("deadbeef"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestStoreExpireRemovesOldEntries(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	fp := Fingerprint("http://host/old.mkv", EmbeddedTrackKey(0), "fr")
	old := domain.CacheMetadata{CreatedAt: time.Now().Add(-48 * time.Hour)}
	if err := store.Put(context.Background(), fp, []byte("stale"), old); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := store.Expire(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	_, ok, err := store.Lookup(context.Background(), fp)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected entry to be gone after expiry")
	}
}

func TestPublishAlongsideWritesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	fp := Fingerprint("http://host/a.mkv", EmbeddedTrackKey(0), "fr")
	if err := store.Put(context.Background(), fp, []byte("contenu"), domain.CacheMetadata{CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "video.fr.srt")
	if err := store.PublishAlongside(context.Background(), fp, dest); err != nil {
		t.Fatalf("PublishAlongside: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "contenu" {
		t.Errorf("dest content = %q, want %q", got, "contenu")
	}
}
