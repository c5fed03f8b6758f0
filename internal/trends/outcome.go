package trends

import (
	"fmt"

	"github.com/julianstephens/trendlit/internal/models"
)

type OutcomeKind string

const (
	// OutcomeSignal means the detector produced at least one candidate.
	OutcomeSignal OutcomeKind = "signal"
	// OutcomeNoSignal is the normal "nothing to report" result, including
	// windows too short for the detector.
	OutcomeNoSignal OutcomeKind = "no_signal"
	// OutcomeFailed means the detector could not evaluate the window.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the result of running one detector over a window.
type Outcome struct {
	Detector   string
	Kind       OutcomeKind
	Candidates []models.TrendAnalysis
	Reason     string
	Err        error
}

func signal(detector string, candidates []models.TrendAnalysis) Outcome {
	return Outcome{Detector: detector, Kind: OutcomeSignal, Candidates: candidates}
}

func noSignal(detector, format string, args ...interface{}) Outcome {
	return Outcome{Detector: detector, Kind: OutcomeNoSignal, Reason: fmt.Sprintf(format, args...)}
}

func insufficientData(detector string, need, have int) Outcome {
	return noSignal(detector, "insufficient data: need %d daily aggregates, have %d", need, have)
}

func failed(detector string, err error) Outcome {
	return Outcome{Detector: detector, Kind: OutcomeFailed, Reason: err.Error(), Err: err}
}
