package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakkerme/postforge/internal/pipeline"
)

type stubProcessor struct {
	mu      sync.Mutex
	calls   []string
	errFor  map[string]error
	panicOn string
}

func (p *stubProcessor) ProcessAuthor(ctx context.Context, handle string) (*pipeline.Result, error) {
	_ = ctx
	p.mu.Lock()
	p.calls = append(p.calls, handle)
	p.mu.Unlock()
	if handle == p.panicOn {
		panic("processor exploded")
	}
	if err := p.errFor[handle]; err != nil {
		return nil, err
	}
	return &pipeline.Result{Skipped: []string{}}, nil
}

func (p *stubProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestRunNowIsolatesAuthorFailures(t *testing.T) {
	proc := &stubProcessor{errFor: map[string]error{"u1": errors.New("upstream unreachable")}}
	s, err := New(proc, []string{"u1", "u2"}, time.Minute, nil)
	require.NoError(t, err)

	results := s.RunNow(context.Background())
	require.Len(t, results, 2)

	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Result)
	assert.NoError(t, results[1].Err)
	assert.NotNil(t, results[1].Result)
	assert.Equal(t, []string{"u1", "u2"}, proc.calls)
}

func TestRunNowRecoversPanics(t *testing.T) {
	proc := &stubProcessor{panicOn: "u1"}
	s, err := New(proc, []string{"u1", "u2"}, time.Minute, nil)
	require.NoError(t, err)

	results := s.RunNow(context.Background())
	require.Len(t, results, 2)
	assert.ErrorContains(t, results[0].Err, "panic")
	assert.NoError(t, results[1].Err)
}

func TestSchedulerTicksRepeatedly(t *testing.T) {
	proc := &stubProcessor{}
	s, err := New(proc, []string{"u1"}, 50*time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for proc.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least two ticks, saw %d", proc.callCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerKeepsTickingAfterFailedRun(t *testing.T) {
	proc := &stubProcessor{errFor: map[string]error{"u1": errors.New("boom")}}
	s, err := New(proc, []string{"u1"}, 50*time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for proc.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected ticks to continue after failure, saw %d", proc.callCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, []string{"u"}, time.Minute, nil)
	assert.Error(t, err)

	_, err = New(&stubProcessor{}, []string{"u"}, 0, nil)
	assert.Error(t, err)
}
