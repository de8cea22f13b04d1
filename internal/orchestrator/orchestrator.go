package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"subtrans/internal/bytesource"
	"subtrans/internal/cache"
	"subtrans/internal/domain"
	"subtrans/internal/domain/ports"
	"subtrans/internal/subtitle"
	"subtrans/internal/telemetry"
)

// matroskaExtensions is the set of container extensions the internal
// extractor (spec §4.3) handles directly; anything else falls back to
// the host collaborator's extract_subtitle_stream (spec §6).
var matroskaExtensions = map[string]bool{".mkv": true, ".mka": true, ".webm": true}

// Orchestrator drives one job through the spec §4.7 state machine.
// Styled after the teacher's usecase structs: dependencies are plain
// injected port fields, Execute-shaped entry point (Run).
type Orchestrator struct {
	cache      ports.CacheStore
	host       ports.HostCollaborator
	progress   ports.ProgressSink
	journal    ports.ErrorJournal
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
}

// New builds an Orchestrator. progress, host and journal may be nil
// (events/host calls silently skipped, journal writes skipped) per
// spec §4.9's "journal writes are best-effort" rule, extended here to
// the host collaborator for headless/library use.
func New(cacheStore ports.CacheStore, host ports.HostCollaborator, progress ports.ProgressSink, journal ports.ErrorJournal, httpClient *http.Client, logger *slog.Logger, cfg Config) *Orchestrator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cache:      cacheStore,
		host:       host,
		progress:   progress,
		journal:    journal,
		httpClient: httpClient,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// JobRequest is the caller-supplied input to Run, gathering everything
// Selecting (spec §4.7) needs to choose a source track.
type JobRequest struct {
	JobID                   domain.JobID // optional; empty generates a fresh uuid (callers that need the ID before Run returns, e.g. the HTTP layer, set this themselves)
	SourceURI               string
	ExternalSubtitlePath    string // set when a standalone subtitle file sits alongside the video
	PreferredSourceLanguage string // operator config; "" means no preference
	TargetLanguage          string
	OutputFormat            domain.Format // FormatUnknown keeps the source's native format
	PublishAlongside        bool
	Chain                   []ports.TranslationBackend // primary first, fallbacks after
}

// Run executes the full pipeline for one job and returns its final
// domain.Job (Outcome set to Done/Failed/Cancelled).
func (o *Orchestrator) Run(ctx context.Context, req JobRequest) (*domain.Job, error) {
	id := req.JobID
	if id == "" {
		id = domain.JobID(uuid.NewString())
	}
	job := &domain.Job{ID: id, Stage: domain.StageInit}
	o.reportStage(job.ID, domain.StageInit, 0, "starting")

	job.Stage = domain.StageSelecting
	o.reportStage(job.ID, domain.StageSelecting, 5, "selecting source track")
	selectCtx, selectSpan := telemetry.StartStage(ctx, string(job.ID), string(domain.StageSelecting))
	selection, err := o.selectSource(selectCtx, req)
	selectSpan.End()
	if err != nil {
		return o.fail(job, err)
	}
	job.Selection = selection

	job.Stage = domain.StageCache
	o.reportStage(job.ID, domain.StageCache, 10, "checking cache")
	fp := cache.Fingerprint(req.SourceURI, trackIdentifier(selection), req.TargetLanguage)
	cacheCtx, cacheSpan := telemetry.StartStage(ctx, string(job.ID), string(domain.StageCache))
	entry, hit, err := o.cache.Lookup(cacheCtx, fp)
	cacheSpan.End()
	if err != nil {
		return o.fail(job, err)
	} else if hit {
		job.Stage = domain.StageSave
		job.Format = entry.Metadata.Format
		o.reportStage(job.ID, domain.StageSave, 95, "cache hit")
		if err := o.publishArtifact(ctx, job, req, entry.Artifact, fp); err != nil {
			return o.fail(job, err)
		}
		return o.complete(job)
	}

	job.Stage = domain.StageExtract
	o.reportStage(job.ID, domain.StageExtract, 15, "extracting subtitle track")
	extractCtx, extractSpan := telemetry.StartStage(ctx, string(job.ID), string(domain.StageExtract))
	rawText, sourceFormat, err := o.extract(extractCtx, req, selection)
	extractSpan.End()
	if err != nil {
		return o.fail(job, err)
	}
	job.Format = sourceFormat

	job.Stage = domain.StageParse
	o.reportStage(job.ID, domain.StageParse, 25, "parsing entries")
	entries, detectedFormat := subtitle.Parse(rawText, sourceFormat)
	if detectedFormat != domain.FormatUnknown {
		sourceFormat = detectedFormat
	}
	job.Counters.EntriesTotal = len(entries)
	if len(entries) == 0 {
		return o.fail(job, fmt.Errorf("%w: no subtitle entries parsed", domain.ErrMalformed))
	}

	job.Stage = domain.StageTranslate
	var translated []domain.Entry
	if selection.AlreadyAvailable {
		// Selecting already matched the target language: Translate is
		// a pass-through, per spec §4.7 "no translation".
		o.reportStage(job.ID, domain.StageTranslate, translateProgressHi, "target language already matches source, skipping translation")
		translated = entries
	} else {
		o.reportStage(job.ID, domain.StageTranslate, translateProgressLo, "translating")
		translateCtx, translateSpan := telemetry.StartStage(ctx, string(job.ID), string(domain.StageTranslate))
		translated, err = o.translateEntries(translateCtx, job.ID, entries, selection.SourceLanguage, req.TargetLanguage, req.Chain)
		translateSpan.End()
		if err != nil {
			return o.fail(job, err)
		}
	}
	job.Counters.EntriesDone = len(translated)

	job.Stage = domain.StageFormat
	o.reportStage(job.ID, domain.StageFormat, 92, "generating output")
	outFormat := req.OutputFormat
	if outFormat == domain.FormatUnknown {
		outFormat = sourceFormat
	}
	outputText := subtitle.Generate(translated, outFormat)

	job.Stage = domain.StageSave
	o.reportStage(job.ID, domain.StageSave, 96, "publishing")
	meta := domain.CacheMetadata{
		CreatedAt:        time.Now(),
		SourceURI:        req.SourceURI,
		SourceTrackIndex: selection.TrackIndex,
		TargetLanguage:   req.TargetLanguage,
		Format:           outFormat,
	}
	saveCtx, saveSpan := telemetry.StartStage(ctx, string(job.ID), string(domain.StageSave))
	defer saveSpan.End()
	if err := o.cache.Put(saveCtx, fp, []byte(outputText), meta); err != nil {
		return o.fail(job, err)
	}
	if err := o.publishArtifact(saveCtx, job, req, []byte(outputText), fp); err != nil {
		return o.fail(job, err)
	}

	return o.complete(job)
}

func (o *Orchestrator) fail(job *domain.Job, err error) (*domain.Job, error) {
	if errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
		job.Outcome = domain.OutcomeCancelled
		job.Err = err
		return job, nil
	}
	job.Outcome = domain.OutcomeFailed
	job.Err = err
	o.recordError(job.ID, classifyErrorKind(err), err.Error())
	if o.journal != nil {
		o.journal.Record(classifyErrorKind(err), err.Error(), err, map[string]string{"jobId": string(job.ID)})
	}
	return job, err
}

func (o *Orchestrator) complete(job *domain.Job) (*domain.Job, error) {
	job.Stage = domain.StageComplete
	job.Outcome = domain.OutcomeDone
	o.reportStage(job.ID, domain.StageComplete, 100, "done")
	return job, nil
}

func classifyErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformed):
		return "MalformedContainer"
	case errors.Is(err, domain.ErrTranslationAborted):
		return "TranslationAborted"
	case errors.Is(err, domain.ErrSuccessRateTooLow):
		return "SuccessRateTooLow"
	case errors.Is(err, domain.ErrNoProgress):
		return "NoProgress"
	case errors.Is(err, domain.ErrAuthMissing):
		return "AuthMissing"
	case errors.Is(err, domain.ErrUnsupported):
		return "Unsupported"
	default:
		return "Unknown"
	}
}

func trackIdentifier(sel domain.Selection) string {
	if sel.ExternalPath != "" {
		return cache.ExternalTrackKey(sel.ExternalPath)
	}
	return cache.EmbeddedTrackKey(sel.TrackIndex)
}

// publishArtifact implements spec §4.7 Publish: write to the cache
// (already done by the caller), optionally also write alongside the
// video, then hand the host a real file path to load (spec §6
// show_subtitle). When PublishAlongside isn't requested, a scratch
// temp file stands in for "a real path the host can open".
func (o *Orchestrator) publishArtifact(ctx context.Context, job *domain.Job, req JobRequest, artifact []byte, fp domain.Fingerprint) error {
	var path string
	if req.PublishAlongside {
		path = alongsidePath(req.SourceURI, req.TargetLanguage, job.Format)
		if err := o.cache.PublishAlongside(ctx, fp, path); err != nil {
			return err
		}
	} else {
		tmpPath, err := writeScratchFile(artifact, job.Format)
		if err != nil {
			return err
		}
		path = tmpPath
	}
	if o.host != nil {
		return o.host.ShowSubtitle(ctx, path)
	}
	return nil
}

func writeScratchFile(artifact []byte, format domain.Format) (string, error) {
	ext := string(format)
	if ext == "" {
		ext = "srt"
	}
	f, err := os.CreateTemp("", "subtrans-*."+ext)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(artifact); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// alongsidePath builds <video_stem>.<target_lang>.<ext> per spec §6,
// normalizing to forward slashes for network URIs.
func alongsidePath(sourceURI, targetLanguage string, format domain.Format) string {
	ext := string(format)
	if ext == "" {
		ext = "srt"
	}
	if strings.Contains(sourceURI, "://") {
		idx := strings.LastIndex(sourceURI, "/")
		dir := sourceURI[:idx+1]
		base := sourceURI[idx+1:]
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		return fmt.Sprintf("%s%s.%s.%s", dir, stem, targetLanguage, ext)
	}
	dir := filepath.Dir(sourceURI)
	base := filepath.Base(sourceURI)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, fmt.Sprintf("%s.%s.%s", stem, targetLanguage, ext))
}

// openSource opens a Bounded Byte Source (spec §4.1) over a local path
// or an http(s) URI.
func (o *Orchestrator) openSource(ctx context.Context, uri string) (ports.ByteSource, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return bytesource.OpenHTTP(ctx, o.httpClient, uri, o.logger)
	}
	return bytesource.OpenFile(uri)
}

func isMatroska(uri string) bool {
	ext := strings.ToLower(filepath.Ext(stripQuery(uri)))
	return matroskaExtensions[ext]
}

func stripQuery(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i]
	}
	return uri
}
