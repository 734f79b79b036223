package usecase

// Outcome labels reported to a Recorder.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
	OutcomeNavigate    = "navigate"
	OutcomeDraft       = "draft"
	OutcomeNoResult    = "no_result"
)

// Recorder receives business counters. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ChatTurn(outcome string)
	QuickReply(result string)
	Calculation(calculator, result string)
}

type nopRecorder struct{}

func (nopRecorder) ChatTurn(string)            {}
func (nopRecorder) QuickReply(string)          {}
func (nopRecorder) Calculation(string, string) {}
