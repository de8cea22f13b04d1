package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"subtrans/internal/domain"
)

type fakeClient struct {
	status int
	body   string
	err    error
	calls  int
}

func (f *fakeClient) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     make(http.Header),
	}, nil
}

func TestClassifyHTTPStatusMapsToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		wantIs error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuthMissing},
		{"forbidden", http.StatusForbidden, domain.ErrAuthMissing},
		{"server error", http.StatusInternalServerError, domain.ErrTransient},
		{"bad request", http.StatusBadRequest, domain.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: make(http.Header)}
			err := classifyHTTPStatus(resp, []byte("oops"))
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("classifyHTTPStatus(%d) = %v, want wrapping %v", tt.status, err, tt.wantIs)
			}
		})
	}
}

func TestClassifyHTTPStatusRateLimited(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: make(http.Header)}
	resp.Header.Set("Retry-After", "30")
	err := classifyHTTPStatus(resp, nil)

	var rl *domain.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *domain.RateLimitedError, got %T: %v", err, err)
	}
	if rl.RetryAfter.Seconds() != 30 {
		t.Errorf("RetryAfter = %v, want 30s", rl.RetryAfter)
	}
}

func TestDeepLTranslateBatchPreservesOrder(t *testing.T) {
	client := &fakeClient{status: http.StatusOK, body: `{"translations":[{"text":"Bonjour"},{"text":"Monde"}]}`}
	d, err := NewDeepL(domain.ProviderConfig{APIKey: "key:fx"})
	if err != nil {
		t.Fatalf("NewDeepL: %v", err)
	}
	d.client = client

	out, err := d.TranslateBatch(context.Background(), []string{"Hello", "World"}, "en", "fr")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if len(out) != 2 || out[0] != "Bonjour" || out[1] != "Monde" {
		t.Errorf("out = %v", out)
	}
}

func TestDeepLTranslateBatchShapeMismatch(t *testing.T) {
	client := &fakeClient{status: http.StatusOK, body: `{"translations":[{"text":"Bonjour"}]}`}
	d, err := NewDeepL(domain.ProviderConfig{APIKey: "key:fx"})
	if err != nil {
		t.Fatalf("NewDeepL: %v", err)
	}
	d.client = client

	_, err = d.TranslateBatch(context.Background(), []string{"Hello", "World"}, "en", "fr")
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestDeepLRequiresAPIKey(t *testing.T) {
	_, err := NewDeepL(domain.ProviderConfig{})
	if !errors.Is(err, domain.ErrAuthMissing) {
		t.Errorf("err = %v, want ErrAuthMissing", err)
	}
}

func TestLibreTranslateIteratesPerString(t *testing.T) {
	client := &fakeClient{status: http.StatusOK, body: `{"translatedText":"salut"}`}
	l, err := NewLibreTranslate(domain.ProviderConfig{})
	if err != nil {
		t.Fatalf("NewLibreTranslate: %v", err)
	}
	l.client = client

	out, err := l.TranslateBatch(context.Background(), []string{"hi", "hi", "hi"}, "en", "fr")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3 (one per string)", client.calls)
	}
	for _, got := range out {
		if got != "salut" {
			t.Errorf("got %q, want salut", got)
		}
	}
}

func TestRegistryChainDropsUnconfiguredNames(t *testing.T) {
	reg, err := NewRegistry(map[string]domain.ProviderConfig{
		"deepl": {APIKey: "key:fx"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	chain := reg.Chain([]string{"deepl", "does-not-exist", "libretranslate"})
	if len(chain) != 1 {
		t.Fatalf("chain len = %d, want 1", len(chain))
	}
	if chain[0].Name() != "deepl" {
		t.Errorf("chain[0].Name() = %q, want deepl", chain[0].Name())
	}
}

func TestRegistrySkipsUnknownFactoryName(t *testing.T) {
	reg, err := NewRegistry(map[string]domain.ProviderConfig{
		"not-a-real-provider": {APIKey: "x"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if len(reg.Names()) != 0 {
		t.Errorf("expected no backends registered, got %v", reg.Names())
	}
}
