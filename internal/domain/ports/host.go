package ports

import "context"

// Stream describes one subtitle stream as reported by the host player
// integration (spec §6). The host, not this core, knows about embedded
// tracks the container parser wasn't asked to look at (e.g. non-MKV
// inputs) and about subtitle files already sitting next to the video.
type Stream struct {
	Index    int
	Codec    string
	Language string
	Forced   bool
	Default  bool
	Title    string
}

// HostCollaborator is the narrow boundary contract with the host
// integration (spec §6). The core never reaches into host-player UI,
// settings storage, or notification toasts directly; it only calls
// these four operations.
type HostCollaborator interface {
	ListEmbeddedSubtitleStreams(ctx context.Context, videoURI string) ([]Stream, error)
	ExtractSubtitleStream(ctx context.Context, videoURI string, relativeIndex int) ([]byte, error)
	ShowSubtitle(ctx context.Context, filePath string) error
}
