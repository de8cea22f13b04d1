package ports

import "subtrans/internal/domain"

// ProgressSink is the single-consumer progress channel of spec §4.8/§6.
// Implementations must tolerate being called after the consumer has
// gone away (cancellation-safe, per spec §5).
type ProgressSink interface {
	Progress(evt domain.ProgressEvent)
	Warning(evt domain.WarningEvent)
	Error(evt domain.ErrorEvent)
}

// ErrorJournal is the bounded structured error log of spec §4.9.
type ErrorJournal interface {
	Record(kind, message string, cause error, context map[string]string)
	Recent(n int) []domain.ErrorRecord
	ByKind(kind string) []domain.ErrorRecord
	Clear()
	Export() ([]byte, error)
}
