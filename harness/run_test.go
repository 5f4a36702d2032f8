package harness_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/logineko/wms-e2e-auth/harness"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func newTestRun(t *testing.T) *harness.Run {
	clock := &fakeClock{now: time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC), step: time.Second}
	return harness.NewRun(harness.WithRunLogger(zerolog.New(zerolog.NewTestWriter(t))), harness.WithClock(clock.Now))
}

func TestRun_Lifecycle(t *testing.T) {
	run := newTestRun(t)

	run.Start()
	run.Record("map loads", harness.StatusPassed, nil)
	run.Record("order search", harness.StatusFailed, errors.New("row not found"))
	run.Record("order creation", harness.StatusSkipped, nil)
	run.Record("warehouse page", harness.StatusPassed, nil)
	run.Record("bogus", harness.Status("flaky"), nil)
	s := run.End()

	require.Equal(t, 4, s.Total)
	require.Equal(t, 2, s.Passed)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, 1, s.Skipped)
	require.InDelta(t, 50.0, s.PassRate, 0.001)
	require.Positive(t, s.Duration)

	errs := run.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, "order search", errs[0].TestName)
	require.Equal(t, "row not found", errs[0].Error)
}

func TestRun_Flush(t *testing.T) {
	run := newTestRun(t)
	run.Start()
	run.Record("map loads", harness.StatusPassed, nil)
	run.Record("order search", harness.StatusFailed, errors.New("timeout"))

	var buf bytes.Buffer
	require.NoError(t, run.Flush(&buf))

	var report struct {
		Summary harness.Summary     `json:"summary"`
		Errors  []harness.TestError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	require.Equal(t, 2, report.Summary.Total)
	require.Equal(t, 1, report.Summary.Failed)
	require.Len(t, report.Errors, 1)
	require.Equal(t, "timeout", report.Errors[0].Error)
}

func TestRun_Reset(t *testing.T) {
	run := newTestRun(t)
	run.Start()
	run.Record("map loads", harness.StatusFailed, errors.New("boom"))

	run.Reset()

	require.Equal(t, harness.Summary{}, run.Summary())
	require.Empty(t, run.Errors())

	var buf bytes.Buffer
	require.NoError(t, run.Flush(&buf))
	require.Contains(t, buf.String(), `"errors": []`)
}

func TestRun_SeparateRunsDoNotShareState(t *testing.T) {
	a, b := newTestRun(t), newTestRun(t)
	a.Record("only in a", harness.StatusPassed, nil)

	require.Equal(t, 1, a.Summary().Total)
	require.Zero(t, b.Summary().Total)
}
