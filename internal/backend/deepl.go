package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"subtrans/internal/domain"
)

const (
	deeplFreeURL = "https://api-free.deepl.com/v2/translate"
	deeplProURL  = "https://api.deepl.com/v2/translate"
)

// deepLBackend talks to the DeepL REST API. Grounded on
// original_source/lib/translators.py's DeepLTranslator: a free-tier
// endpoint switch keyed off the API key's suffix, a formality option,
// and one HTTP call per batch (DeepL natively accepts an array of
// `text` fields, so unlike LibreTranslate/MyMemory no per-string
// iteration is needed).
type deepLBackend struct {
	client    httpClient
	endpoint  string
	apiKey    string
	formality domain.Formality
	timeout   time.Duration
}

// NewDeepL constructs a DeepL backend. cfg.EndpointURL overrides the
// free/pro URL auto-selection when set.
func NewDeepL(cfg domain.ProviderConfig) (*deepLBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: deepl requires an api key", domain.ErrAuthMissing)
	}
	endpoint := cfg.EndpointURL
	if endpoint == "" {
		endpoint = deeplProURL
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			endpoint = deeplFreeURL
		}
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &deepLBackend{
		client:    newRateLimitedClient(http.DefaultClient, 10, 5),
		endpoint:  endpoint,
		apiKey:    cfg.APIKey,
		formality: cfg.Formality,
		timeout:   timeout,
	}, nil
}

func (d *deepLBackend) Name() string { return "deepl" }

type deeplRequest struct {
	Text          []string `json:"text"`
	SourceLang    string   `json:"source_lang,omitempty"`
	TargetLang    string   `json:"target_lang"`
	Formality     string   `json:"formality,omitempty"`
	PreserveForma bool     `json:"preserve_formatting"`
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (d *deepLBackend) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, err := json.Marshal(deeplRequest{
		Text:          texts,
		SourceLang:    strings.ToUpper(sourceLang),
		TargetLang:    strings.ToUpper(targetLang),
		Formality:     mapDeepLFormality(d.formality),
		PreserveForma: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", domain.ErrInvalid, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	respBody, err := doJSON(d.client, req)
	if err != nil {
		return nil, err
	}

	var parsed deeplResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding deepl response: %v", domain.ErrInvalid, err)
	}
	if len(parsed.Translations) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d texts, got %d translations", domain.ErrShapeMismatch, len(texts), len(parsed.Translations))
	}

	out := make([]string, len(parsed.Translations))
	for i, t := range parsed.Translations {
		out[i] = t.Text
	}
	return out, nil
}

func mapDeepLFormality(f domain.Formality) string {
	switch f {
	case domain.FormalityMore:
		return "more"
	case domain.FormalityLess:
		return "less"
	default:
		return ""
	}
}
