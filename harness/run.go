// Package harness holds the pieces an end-to-end suite wraps around the
// bootstrap client: run bookkeeping and authenticated session setup.
package harness

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status is the outcome of one test.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// TestError records a failed test.
type TestError struct {
	TestName  string    `json:"testName"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is a snapshot of a run.
type Summary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	PassRate float64       `json:"passRate"` // percent, 0 when nothing ran
}

type report struct {
	Summary   Summary     `json:"summary"`
	Errors    []TestError `json:"errors"`
	StartedAt time.Time   `json:"startedAt"`
	Timestamp time.Time   `json:"timestamp"`
}

// Run tracks the results of one suite run. Each suite owns its Run; there is
// no shared instance. A Run is safe for concurrent use.
type Run struct {
	mu     sync.Mutex
	logger zerolog.Logger
	now    func() time.Time

	startTime time.Time
	endTime   time.Time
	passed    int
	failed    int
	skipped   int
	errors    []TestError
}

// RunOption configures a Run.
type RunOption func(*Run)

func WithRunLogger(logger zerolog.Logger) RunOption {
	return func(r *Run) {
		r.logger = logger
	}
}

// WithClock replaces time.Now (primarily for testing).
func WithClock(now func() time.Time) RunOption {
	return func(r *Run) {
		r.now = now
	}
}

func NewRun(options ...RunOption) *Run {
	r := &Run{
		logger: log.Logger,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Start marks the beginning of the suite.
func (r *Run) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startTime = r.now()
	r.endTime = time.Time{}
	r.logger.Info().Time("started_at", r.startTime).Msg("test suite started")
}

// End marks the end of the suite and logs the summary.
func (r *Run) End() Summary {
	r.mu.Lock()
	r.endTime = r.now()
	s := r.summaryLocked()
	r.mu.Unlock()

	r.logger.Info().
		Dur("duration", s.Duration).
		Int("passed", s.Passed).
		Int("failed", s.Failed).
		Int("skipped", s.Skipped).
		Int("total", s.Total).
		Msg("test suite completed")
	return s
}

// Record adds the outcome of one test. err is kept only for failures.
func (r *Run) Record(testName string, status Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch status {
	case StatusPassed:
		r.passed++
	case StatusFailed:
		r.failed++
		if err != nil {
			r.errors = append(r.errors, TestError{TestName: testName, Error: err.Error(), Timestamp: r.now()})
		}
	case StatusSkipped:
		r.skipped++
	default:
		r.logger.Warn().Str("test", testName).Str("status", string(status)).Msg("unknown test status ignored")
		return
	}

	event := r.logger.Info()
	if status == StatusFailed {
		event = r.logger.Error().Err(err)
	}
	event.Str("test", testName).Str("status", string(status)).Msg("test result")
}

// Summary returns the current counts. Before End, the duration runs up to now.
func (r *Run) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *Run) summaryLocked() Summary {
	s := Summary{
		Passed:  r.passed,
		Failed:  r.failed,
		Skipped: r.skipped,
		Total:   r.passed + r.failed + r.skipped,
	}
	if !r.startTime.IsZero() {
		end := r.endTime
		if end.IsZero() {
			end = r.now()
		}
		s.Duration = end.Sub(r.startTime)
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) * 100 / float64(s.Total)
	}
	return s
}

// Errors returns the recorded failures.
func (r *Run) Errors() []TestError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TestError(nil), r.errors...)
}

// Reset clears all results so the Run can be reused.
func (r *Run) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startTime = time.Time{}
	r.endTime = time.Time{}
	r.passed, r.failed, r.skipped = 0, 0, 0
	r.errors = nil
}

// Flush writes the run as a JSON report to w.
func (r *Run) Flush(w io.Writer) error {
	r.mu.Lock()
	rep := report{
		Summary:   r.summaryLocked(),
		Errors:    append([]TestError{}, r.errors...),
		StartedAt: r.startTime,
		Timestamp: r.now(),
	}
	r.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return errors.Wrap(err, "[Run.Flush] encoding report")
	}
	return nil
}
