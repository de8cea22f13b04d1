package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"subtrans/internal/domain"
)

const defaultLibreTranslateURL = "https://libretranslate.com/translate"

// libreTranslateBackend talks to a LibreTranslate instance. Grounded
// on original_source/lib/translators.py's LibreTranslateTranslator:
// the API accepts one source string per call, so TranslateBatch
// iterates — the same "providers that only translate one string per
// call implement the batch by iteration" rule spec §4.6 calls out.
type libreTranslateBackend struct {
	client   httpClient
	endpoint string
	apiKey   string
	timeout  time.Duration
}

func NewLibreTranslate(cfg domain.ProviderConfig) (*libreTranslateBackend, error) {
	endpoint := cfg.EndpointURL
	if endpoint == "" {
		endpoint = defaultLibreTranslateURL
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &libreTranslateBackend{
		client:   newRateLimitedClient(http.DefaultClient, 3, 2),
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		timeout:  timeout,
	}, nil
}

func (l *libreTranslateBackend) Name() string { return "libretranslate" }

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (l *libreTranslateBackend) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		translated, err := l.translateOne(ctx, text, sourceLang, targetLang)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}

func (l *libreTranslateBackend) translateOne(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if sourceLang == "" {
		sourceLang = "auto"
	}
	body, err := json.Marshal(libreTranslateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", domain.ErrInvalid, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := doJSON(l.client, req)
	if err != nil {
		return "", err
	}

	var parsed libreTranslateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding libretranslate response: %v", domain.ErrInvalid, err)
	}
	return parsed.TranslatedText, nil
}
