package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"subtrans/internal/domain"
)

const myMemoryURL = "https://api.mymemory.translated.net/get"

// myMemoryBackend talks to the MyMemory translation API, grounded on
// original_source/lib/translators.py's MyMemoryTranslator: a GET-based,
// key-optional, one-string-per-call API whose quota is keyed by an
// email address rather than an API key.
type myMemoryBackend struct {
	client  httpClient
	email   string
	timeout time.Duration
}

func NewMyMemory(cfg domain.ProviderConfig) (*myMemoryBackend, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &myMemoryBackend{
		client:  newRateLimitedClient(http.DefaultClient, 1, 1),
		email:   cfg.APIKey, // MyMemory overloads the "key" slot with a contact email for quota bump
		timeout: timeout,
	}, nil
}

func (m *myMemoryBackend) Name() string { return "mymemory" }

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus int `json:"responseStatus"`
}

func (m *myMemoryBackend) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		translated, err := m.translateOne(ctx, text, sourceLang, targetLang)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}

func (m *myMemoryBackend) translateOne(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", sourceLang+"|"+targetLang)
	if m.email != "" {
		q.Set("de", m.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, myMemoryURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	respBody, err := doJSON(m.client, req)
	if err != nil {
		return "", err
	}

	var parsed myMemoryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding mymemory response: %v", domain.ErrInvalid, err)
	}
	if parsed.ResponseStatus == http.StatusTooManyRequests {
		return "", &domain.RateLimitedError{}
	}
	if parsed.ResponseStatus != 0 && parsed.ResponseStatus != http.StatusOK {
		return "", fmt.Errorf("%w: mymemory status %d", domain.ErrTransient, parsed.ResponseStatus)
	}
	return parsed.ResponseData.TranslatedText, nil
}
