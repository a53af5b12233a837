// Package metrics defines the observation points of the content pipeline and
// a Prometheus-backed implementation.
package metrics

import "time"

// Outcome labels a resolution or page result.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeUnknownRoute     Outcome = "unknown_route"
	OutcomeSourceUnreadable Outcome = "source_unreadable"
)

// Recorder receives pipeline observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveResolve(set string, outcome Outcome, d time.Duration)
	IncTreeLoad(set string, ok bool)
	SetDuplicateRoutes(set string, n int)
	ObserveBuild(status string, d time.Duration)
	IncPagesWritten(set string)
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

func (NoopRecorder) ObserveResolve(string, Outcome, time.Duration) {}
func (NoopRecorder) IncTreeLoad(string, bool)                     {}
func (NoopRecorder) SetDuplicateRoutes(string, int)               {}
func (NoopRecorder) ObserveBuild(string, time.Duration)           {}
func (NoopRecorder) IncPagesWritten(string)                       {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
