package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rajubeparybd/gulp-compiler/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_RunsMembersAfterPredecessorCompletes(t *testing.T) {
	// --- Arrange ---
	marker := filepath.Join(t.TempDir(), "F")

	writer := NewLeaf("write", func(ctx context.Context) error {
		// Finish asynchronously so a series that only waited for the call to
		// start would let the reader run too early.
		done := make(chan error, 1)
		go func() {
			time.Sleep(50 * time.Millisecond)
			done <- os.WriteFile(marker, []byte("ok"), 0o600)
		}()
		return <-done
	})

	var sawFile atomic.Bool
	reader := NewLeaf("read", func(ctx context.Context) error {
		_, err := os.Stat(marker)
		sawFile.Store(err == nil)
		return err
	})

	// --- Act ---
	ctx, run := WithOutcome(testutil.Context(t))
	err := Series("build", writer, reader).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, sawFile.Load(), "B must observe the file written by A")
	assert.False(t, run.Failed())
}

func TestParallel_CompletesAtSlowestMember(t *testing.T) {
	// --- Arrange ---
	delays := map[string]time.Duration{
		"css":    100 * time.Millisecond,
		"js":     300 * time.Millisecond,
		"images": 200 * time.Millisecond,
	}

	var mu sync.Mutex
	var finished []string
	members := make([]Task, 0, len(delays))
	for _, name := range []string{"css", "js", "images"} {
		d := delays[name]
		members = append(members, NewLeaf(name, func(ctx context.Context) error {
			time.Sleep(d)
			mu.Lock()
			finished = append(finished, name)
			mu.Unlock()
			return nil
		}))
	}

	// --- Act ---
	start := time.Now()
	err := Parallel("default", members...).Run(testutil.Context(t))
	elapsed := time.Since(start)

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, finished, 3, "composite must not complete before every member")
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond, "composite finished before the slowest member")
	assert.Less(t, elapsed, 550*time.Millisecond, "members appear to have run one after another")
	assert.Equal(t, []string{"css", "images", "js"}, finished)
}

func TestParallel_SwallowedFailureStillCompletes(t *testing.T) {
	sink := make(ChanSink, 4)
	var ran atomic.Int32

	bad := NewLeaf("css", func(ctx context.Context) error {
		ran.Add(1)
		return errors.New("malformed stylesheet")
	}, WithFailureSink(sink))
	good := NewLeaf("js", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	err := Parallel("default", bad, good).Run(testutil.Context(t))

	require.NoError(t, err)
	assert.Equal(t, int32(2), ran.Load())
	require.Len(t, sink, 1)
	f := <-sink
	assert.Equal(t, "css", f.Task)
	assert.ErrorContains(t, f.Err, "malformed stylesheet")
	assert.NotEmpty(t, f.RunID)
}

func TestParallel_FatalErrorWaitsForSiblings(t *testing.T) {
	var siblingDone atomic.Bool
	fatal := NewLeaf("browser_sync", func(ctx context.Context) error {
		return Fatal(errors.New("address already in use"))
	})
	slow := NewLeaf("watch_files", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		siblingDone.Store(true)
		return nil
	})

	err := Parallel("watch", fatal, slow).Run(testutil.Context(t))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorContains(t, err, "address already in use")
	assert.True(t, siblingDone.Load())
}

func TestSeries_StopsOnFatalError(t *testing.T) {
	var secondRan atomic.Bool
	first := NewLeaf("first", func(ctx context.Context) error {
		return Fatal(errors.New("boom"))
	})
	second := NewLeaf("second", func(ctx context.Context) error {
		secondRan.Store(true)
		return nil
	})

	err := Series("s", first, second).Run(testutil.Context(t))

	require.Error(t, err)
	assert.False(t, secondRan.Load())
}

func TestSeries_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t))
	var secondRan atomic.Bool

	first := NewLeaf("first", func(context.Context) error {
		cancel()
		return nil
	})
	second := NewLeaf("second", func(context.Context) error {
		secondRan.Store(true)
		return nil
	})

	err := Series("s", first, second).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, secondRan.Load())
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []string
}

func (r *recordingObserver) TaskStarted(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, name)
}

func (r *recordingObserver) TaskFinished(name string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, name)
}

func TestGroup_Observer(t *testing.T) {
	obs := &recordingObserver{}
	leaf := NewLeaf("css", func(context.Context) error { return nil }, WithObserver(obs))
	group := NewGroup("build", KindSeries, []Task{leaf}, WithObserver(obs))

	require.NoError(t, group.Run(testutil.Context(t)))

	assert.Equal(t, []string{"build", "css"}, obs.started)
	assert.Equal(t, []string{"css", "build"}, obs.finished)
}
