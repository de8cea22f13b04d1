package orchestrator

import "subtrans/internal/domain"

// translateProgressLo/Hi are the sub-range spec §4.7 maps the
// Translate stage's percent onto ("30%->90% of overall").
const (
	translateProgressLo = 30
	translateProgressHi = 90
)

func (o *Orchestrator) reportStage(jobID domain.JobID, stage domain.Stage, percent int, message string) {
	if o.progress == nil {
		return
	}
	o.progress.Progress(domain.ProgressEvent{
		JobID:   jobID,
		Stage:   stage,
		Percent: percent,
		Message: message,
	})
}

func (o *Orchestrator) reportTranslateProgress(jobID domain.JobID, batchesDone, batchesTotal, entriesRemaining int, smoother *throughputSmoother) {
	if o.progress == nil || batchesTotal == 0 {
		return
	}
	frac := float64(batchesDone) / float64(batchesTotal)
	percent := translateProgressLo + int(frac*float64(translateProgressHi-translateProgressLo))

	evt := domain.ProgressEvent{
		JobID:   jobID,
		Stage:   domain.StageTranslate,
		Percent: percent,
		Message: "translating",
	}
	if eta, ok := smoother.ETASeconds(entriesRemaining); ok {
		evt.ETASecs = &eta
	}
	done := batchesDone
	evt.Count = &done
	o.progress.Progress(evt)
}

func (o *Orchestrator) recordWarning(jobID domain.JobID, detail string) {
	if o.progress == nil {
		return
	}
	o.progress.Warning(domain.WarningEvent{JobID: jobID, Detail: detail})
}

func (o *Orchestrator) recordError(jobID domain.JobID, kind, detail string) {
	if o.progress != nil {
		o.progress.Error(domain.ErrorEvent{JobID: jobID, Kind: kind, Detail: detail})
	}
}
