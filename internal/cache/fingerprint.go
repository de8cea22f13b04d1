// Package cache implements the content-addressed subtitle artifact
// store of spec §4.5: MD5 fingerprinting, atomic filesystem
// publication, and TTL-based expiry.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"subtrans/internal/domain"
)

// Fingerprint computes the cache key for (sourceURI, trackIdentifier,
// targetLanguage) per spec §4.5. For an embedded track, trackIdentifier
// is its index in the accepted-track enumeration; for an external file
// it is the absolute normalized path prefixed "ext|" — callers build
// that identifier before calling Fingerprint (see ExternalTrackKey).
func Fingerprint(sourceURI, trackIdentifier, targetLanguage string) domain.Fingerprint {
	h := md5.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", sourceURI, trackIdentifier, targetLanguage)
	return domain.Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// ExternalTrackKey builds the trackIdentifier for an external subtitle
// file, per spec §4.5's "ext|" tag convention.
func ExternalTrackKey(path string) string {
	return "ext|" + filepath.Clean(path)
}

// EmbeddedTrackKey builds the trackIdentifier for an embedded track
// by its index among accepted (text subtitle) tracks.
func EmbeddedTrackKey(index int) string {
	return fmt.Sprintf("embedded|%d", index)
}
