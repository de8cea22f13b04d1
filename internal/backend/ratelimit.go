package backend

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"subtrans/internal/domain"
	"subtrans/internal/domain/ports"
)

// Budget is the optional per-backend {requests_per_period,
// chars_per_period} allowance of spec §5, distinct from the
// per-request HTTP pacing `rateLimited` already applies: this is a
// coarser, batch-granularity check the orchestrator consults before
// it ever issues the HTTP call, so a batch that plainly won't fit can
// fall back to the next backend instead of blocking.
//
// Both the request count and the character count are modeled as
// rate.Limiter token buckets sized to the period: burst equals the
// period allowance, refill rate is allowance/period. Counters "reset
// at period boundary" (spec §5) falls naturally out of a token
// bucket refilling continuously at that rate.
type Budget struct {
	requests *rate.Limiter
	chars    *rate.Limiter
}

// NewBudget builds a Budget. requestsPerPeriod or charsPerPeriod <= 0
// leaves that dimension unlimited; period <= 0 disables the whole
// budget (Allow always reports a fit).
func NewBudget(requestsPerPeriod, charsPerPeriod int, period time.Duration) *Budget {
	if period <= 0 {
		return nil
	}
	b := &Budget{}
	if requestsPerPeriod > 0 {
		b.requests = rate.NewLimiter(rate.Limit(float64(requestsPerPeriod)/period.Seconds()), requestsPerPeriod)
	}
	if charsPerPeriod > 0 {
		b.chars = rate.NewLimiter(rate.Limit(float64(charsPerPeriod)/period.Seconds()), charsPerPeriod)
	}
	return b
}

// Allow asks whether a batch of chars characters fits the budget right
// now, per spec §5: "before a batch, the orchestrator asks whether the
// batch fits; on no, it either waits the reported time or skips to
// the next fallback." A false result reserves nothing — the caller is
// free to wait retryAfter and ask again, or abandon this backend for
// the batch.
func (b *Budget) Allow(chars int) (ok bool, retryAfter time.Duration) {
	if b == nil {
		return true, 0
	}
	now := time.Now()
	var reqDelay, charDelay time.Duration
	var reqRes, charRes *rate.Reservation
	if b.requests != nil {
		reqRes = b.requests.ReserveN(now, 1)
		reqDelay = reqRes.DelayFrom(now)
	}
	if b.chars != nil {
		charRes = b.chars.ReserveN(now, chars)
		charDelay = charRes.DelayFrom(now)
	}
	if reqDelay == 0 && charDelay == 0 {
		return true, 0
	}
	if reqRes != nil {
		reqRes.Cancel()
	}
	if charRes != nil {
		charRes.Cancel()
	}
	delay := reqDelay
	if charDelay > delay {
		delay = charDelay
	}
	return false, delay
}

// budgetedBackend wraps a ports.TranslationBackend with a Budget
// check ahead of every TranslateBatch call.
type budgetedBackend struct {
	ports.TranslationBackend
	budget *Budget
}

// WithBudget wraps backend so every TranslateBatch call first consults
// budget; a miss surfaces as domain.RateLimitedError, which
// internal/orchestrator already retries with backoff and, once
// retries are exhausted, treats as cause to move to the next backend
// in the fallback chain (spec §4.7/§5).
func WithBudget(backend ports.TranslationBackend, budget *Budget) ports.TranslationBackend {
	if budget == nil {
		return backend
	}
	return &budgetedBackend{TranslationBackend: backend, budget: budget}
}

func (b *budgetedBackend) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	chars := 0
	for _, t := range texts {
		chars += len(t)
	}
	if ok, retryAfter := b.budget.Allow(chars); !ok {
		return nil, &domain.RateLimitedError{RetryAfter: retryAfter}
	}
	return b.TranslationBackend.TranslateBatch(ctx, texts, sourceLang, targetLang)
}
