package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name     string
	interval time.Duration
	align    bool
	calls    atomic.Int32
	err      error
}

func (j *fakeJob) Name() string            { return j.name }
func (j *fakeJob) Interval() time.Duration { return j.interval }
func (j *fakeJob) AlignToInterval() bool   { return j.align }

func (j *fakeJob) Run(ctx context.Context) error {
	j.calls.Add(1)
	return j.err
}

func TestManager_RunsJobsAndRecordsStatus(t *testing.T) {
	m := NewManager(context.Background())
	ok := &fakeJob{name: "b-ok", interval: 20 * time.Millisecond}
	bad := &fakeJob{name: "a-bad", interval: time.Hour, err: errors.New("no input")}
	m.Register(ok)
	m.Register(bad)
	m.Register(nil)

	m.Start()
	m.Start()

	require.Eventually(t, func() bool { return ok.calls.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bad.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	m.Stop()
	m.Wait()

	statuses := m.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a-bad", statuses[0].Name, "sorted by name")
	assert.Equal(t, 1, statuses[0].Failures)
	assert.Equal(t, "no input", statuses[0].LastError)
	require.NotNil(t, statuses[0].LastRun)

	assert.Equal(t, "b-ok", statuses[1].Name)
	assert.GreaterOrEqual(t, statuses[1].Runs, 2)
	assert.Zero(t, statuses[1].Failures)
	assert.Empty(t, statuses[1].LastError)
}

func TestManager_StopBeforeAlignedStart(t *testing.T) {
	m := NewManager(context.Background())
	job := &fakeJob{name: "aligned", interval: 24 * time.Hour, align: true}
	m.Register(job)
	m.Start()

	require.Eventually(t, func() bool { return !m.Statuses()[0].NextRun.IsZero() }, 5*time.Second, 5*time.Millisecond)
	m.Stop()
	m.Wait()

	assert.Zero(t, job.calls.Load())
	assert.True(t, m.Statuses()[0].NextRun.After(time.Now().Add(-time.Minute)))
}

func TestFirstRun(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 17, 0, 0, time.UTC)

	assert.Equal(t, now, firstRun(&fakeJob{interval: time.Hour}, now))
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), firstRun(&fakeJob{interval: time.Hour, align: true}, now))
	assert.Equal(t, time.Minute, intervalOf(&fakeJob{interval: 0}))
}
