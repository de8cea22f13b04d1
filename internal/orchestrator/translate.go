package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrans/internal/domain"
	"subtrans/internal/domain/ports"
)

// translateRun holds the mutable state of one Translate stage pass —
// the "heart" of spec §4.7 — across all batches.
type translateRun struct {
	cfg      Config
	chain    []ports.TranslationBackend
	journal  ports.ErrorJournal
	jobID    domain.JobID
	progress ports.ProgressSink

	consecutiveFailures int
	batchesOK           int
	batchesFailed       int
	smoother            *throughputSmoother

	// mu guards ineligible: with ConcurrentBatches > 1, multiple
	// in-flight batches can race to mark the same backend ineligible.
	mu sync.Mutex
	// ineligible records backends permanently excluded from the rest of
	// this job after an AuthMissing/Unsupported failure (spec §4.7: the
	// fallback chain is "filtered to those currently eligible — no
	// permanent auth/unsupported failure recorded for this job").
	ineligible map[string]bool
}

func (r *translateRun) isIneligible(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ineligible[name]
}

func (r *translateRun) markIneligible(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ineligible != nil {
		r.ineligible[name] = true
	}
}

// translateEntries runs the chunked batch translation described by
// spec §4.7 over entries, replacing each Entry's Text in place (order
// and timing fields are untouched) and returns the result. Percent
// reported via progress is mapped onto the 30%..90% sub-range of
// overall job progress per spec §4.7.
func (o *Orchestrator) translateEntries(ctx context.Context, jobID domain.JobID, entries []domain.Entry, sourceLang, targetLang string, chain []ports.TranslationBackend) ([]domain.Entry, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no translation backend configured", domain.ErrUnsupported)
	}

	run := &translateRun{
		cfg:        o.cfg,
		chain:      chain,
		journal:    o.journal,
		jobID:      jobID,
		progress:   o.progress,
		smoother:   newThroughputSmoother(),
		ineligible: make(map[string]bool),
	}

	out := make([]domain.Entry, len(entries))
	copy(out, entries)

	batches := chunkIndices(len(entries), run.cfg.BatchSize)
	unchangedCount := 0

	// Batches are dispatched in windows of up to ConcurrentBatches (P)
	// in flight at once (spec §5: "the translate stage MAY dispatch up
	// to P batches concurrently ... ordering is preserved by tagging
	// each in-flight batch with its index and reassembling in order at
	// join"). Bookkeeping that must observe strict batch order —
	// consecutive-failure counting, progress reporting, inter-batch
	// pacing — is applied sequentially once a window joins, so P=1
	// (the default) behaves exactly like a plain sequential loop.
	for winStart := 0; winStart < len(batches); winStart += run.cfg.ConcurrentBatches {
		winEnd := winStart + run.cfg.ConcurrentBatches
		if winEnd > len(batches) {
			winEnd = len(batches)
		}
		window := batches[winStart:winEnd]
		results := make([]batchOutcome, len(window))

		g, gctx := errgroup.WithContext(ctx)
		for wi, span := range window {
			wi, span := wi, span
			g.Go(func() error {
				if err := checkCancelled(gctx); err != nil {
					return err
				}
				texts := textsOf(out[span.lo:span.hi])
				started := time.Now()
				translated, err := run.translateBatch(gctx, texts, sourceLang, targetLang)
				results[wi] = batchOutcome{translated: translated, err: err, elapsed: time.Since(started)}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for wi, res := range results {
			i := winStart + wi
			span := window[wi]

			if res.err != nil {
				if errors.Is(res.err, domain.ErrCancelled) {
					return nil, res.err
				}
				run.batchesFailed++
				run.consecutiveFailures++
				o.recordWarning(jobID, fmt.Sprintf("batch %d/%d failed: %v", i+1, len(batches), res.err))
				if run.journal != nil {
					run.journal.Record("translate_batch_failed", res.err.Error(), res.err, map[string]string{
						"jobId": string(jobID),
						"batch": fmt.Sprintf("%d", i),
					})
				}
				if run.consecutiveFailures >= run.cfg.ConsecutiveFailureAbort {
					return nil, domain.ErrTranslationAborted
				}
				// Partial tolerance (spec §4.7): a failed batch simply
				// keeps its pre-translation text — out[] was never
				// overwritten for this span — and a warning has already
				// been recorded above; only the consecutive-failure
				// counter can abort the job from here.
			} else {
				run.batchesOK++
				run.consecutiveFailures = 0
				for j, t := range res.translated {
					out[span.lo+j].Text = t
				}
				run.smoother.Observe(span.hi-span.lo, res.elapsed)
			}

			for k := span.lo; k < span.hi; k++ {
				if normalizeForComparison(out[k].Text) == normalizeForComparison(entries[k].Text) {
					unchangedCount++
				}
			}

			o.reportTranslateProgress(jobID, i+1, len(batches), len(entries)-span.hi, run.smoother)

			if i < len(batches)-1 {
				if err := sleepCancelable(ctx, run.cfg.InterBatchPacing); err != nil {
					return nil, err
				}
			}
		}
	}

	total := run.batchesOK + run.batchesFailed
	if total > 0 && float64(run.batchesOK)/float64(total) < run.cfg.SuccessRateThreshold {
		return nil, domain.ErrSuccessRateTooLow
	}
	if len(entries) > 0 && float64(unchangedCount)/float64(len(entries)) >= run.cfg.NoProgressThreshold {
		return nil, domain.ErrNoProgress
	}

	return out, nil
}

// translateBatch attempts one batch against the backend chain in
// order, honoring the fallback and shape-mismatch-splits-in-half
// rules of spec §4.7.
func (r *translateRun) translateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	var lastErr error
	for _, b := range r.chain {
		if r.isIneligible(b.Name()) {
			continue
		}
		out, err := r.attemptBackend(ctx, b, texts, sourceLang, targetLang)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, domain.ErrCancelled) {
			return nil, err
		}
		if errors.Is(err, domain.ErrShapeMismatch) && len(texts) > 1 {
			if split, splitErr := r.splitAndRetry(ctx, texts, sourceLang, targetLang); splitErr == nil {
				return split, nil
			}
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = domain.ErrTransient
	}
	return nil, lastErr
}

// splitAndRetry implements "a ShapeMismatch failure causes the batch
// to split in half and be retried" (spec §4.7), recursing through the
// same backend chain for each half.
func (r *translateRun) splitAndRetry(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	mid := len(texts) / 2
	left, err := r.translateBatch(ctx, texts[:mid], sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	right, err := r.translateBatch(ctx, texts[mid:], sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// attemptBackend runs the per-batch retry policy (spec §4.7) against a
// single backend: Transient and RateLimited retry with backoff up to
// MaxRetriesPerBackend; AuthMissing/Invalid do not retry; a size-1
// ShapeMismatch is treated as Transient.
func (r *translateRun) attemptBackend(ctx context.Context, b ports.TranslationBackend, texts []string, sourceLang, targetLang string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetriesPerBackend; attempt++ {
		out, err := b.TranslateBatch(ctx, texts, sourceLang, targetLang)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrAuthMissing) || errors.Is(err, domain.ErrUnsupportedLang) {
			// Permanent for this job: spec §4.7 excludes a backend from
			// every later batch's fallback chain once it has failed
			// this way, rather than retrying it forever.
			r.markIneligible(b.Name())
			return nil, err
		}
		if errors.Is(err, domain.ErrInvalid) {
			return nil, err
		}

		var rl *domain.RateLimitedError
		if errors.As(err, &rl) {
			delay := rl.RetryAfter
			if delay <= 0 {
				delay = backoffDelay(r.cfg, attempt)
			}
			if sleepErr := sleepCancelable(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}

		if errors.Is(err, domain.ErrShapeMismatch) && len(texts) > 1 {
			return nil, err // let the caller split the batch
		}
		// Size-1 ShapeMismatch and any unclassified failure are
		// retried as Transient rather than discarding the rest of the
		// chain outright.
		if sleepErr := sleepCancelable(ctx, backoffDelay(r.cfg, attempt)); sleepErr != nil {
			return nil, sleepErr
		}
	}
	return nil, lastErr
}

// batchOutcome is one in-flight batch's result, joined back in index
// order once its dispatch window completes.
type batchOutcome struct {
	translated []string
	err        error
	elapsed    time.Duration
}

type indexSpan struct{ lo, hi int }

func chunkIndices(total, size int) []indexSpan {
	if size <= 0 {
		size = 1
	}
	var spans []indexSpan
	for lo := 0; lo < total; lo += size {
		hi := lo + size
		if hi > total {
			hi = total
		}
		spans = append(spans, indexSpan{lo, hi})
	}
	return spans
}

func textsOf(entries []domain.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func normalizeForComparison(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return domain.ErrCancelled
	default:
		return nil
	}
}
