package ports

import "context"

// TranslationBackend is the single-operation abstraction over N
// concrete translation providers (spec §4.6). Implementations must
// preserve batch ordering: out[i] corresponds to texts[i].
type TranslationBackend interface {
	Name() string
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
}
