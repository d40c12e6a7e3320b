package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRegisterAndTrigger(t *testing.T) {
	s := NewJobScheduler()

	ran := 0
	require.NoError(t, s.Register("demo", "@midnight", func() error {
		ran++
		return nil
	}))

	require.NoError(t, s.TriggerNow("demo"))
	require.NoError(t, s.TriggerNow("demo"))
	assert.Equal(t, 2, ran)

	last, err := s.LastRun("demo")
	require.NoError(t, err)
	assert.False(t, last.IsZero())

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "demo", jobs[0].Name)
	assert.Equal(t, 2, jobs[0].Runs)
	assert.Empty(t, jobs[0].LastError)
}

func TestSchedulerDuplicateRegistration(t *testing.T) {
	s := NewJobScheduler()
	noop := func() error { return nil }

	require.NoError(t, s.Register("demo", "@midnight", noop))
	assert.Error(t, s.Register("demo", "@hourly", noop))
	assert.Error(t, s.Register("bad-spec", "not a cron spec", noop))
}

func TestSchedulerTriggerUnknownJob(t *testing.T) {
	s := NewJobScheduler()
	assert.Error(t, s.TriggerNow("nope"))

	_, err := s.LastRun("nope")
	assert.Error(t, err)
}

func TestSchedulerRecordsFailure(t *testing.T) {
	s := NewJobScheduler()

	fail := errors.New("batch exploded")
	require.NoError(t, s.Register("flaky", "@midnight", func() error { return fail }))

	err := s.TriggerNow("flaky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch exploded")

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "batch exploded", jobs[0].LastError)
}
