package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

//
// Helpers
//

// testObserver is a simple Observer implementation used to verify fan-out behavior.
type testObserver struct {
	mu sync.Mutex

	starts    int
	ops       int
	successes int
	fails     int

	lastOp        string
	lastOpErr     error
	lastRetry     int
	lastCommitErr error
}

func (o *testObserver) OnSessionStart(ctx context.Context, sess *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *testObserver) OnOperation(ctx context.Context, sessionID, operation string, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops++
	o.lastOp = operation
	o.lastOpErr = err
}

func (o *testObserver) OnCommitSucceeded(ctx context.Context, sessionID, workflowID string, nodes int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successes++
}

func (o *testObserver) OnCommitFailed(ctx context.Context, sessionID string, retryCount int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fails++
	o.lastRetry = retryCount
	o.lastCommitErr = err
}

func TestCompositeObserverFansOut(t *testing.T) {
	ctx := context.Background()
	a := &testObserver{}
	b := &testObserver{}

	obs := NewCompositeObserver(a, nil, b)

	sess := &Session{ID: "s-1", Name: "Test"}
	obs.OnSessionStart(ctx, sess)
	obs.OnOperation(ctx, "s-1", "add_node", nil, time.Millisecond)
	obs.OnCommitFailed(ctx, "s-1", 2, errors.New("boom"))
	obs.OnCommitSucceeded(ctx, "s-1", "wf-1", 3)

	for _, o := range []*testObserver{a, b} {
		if o.starts != 1 || o.ops != 1 || o.fails != 1 || o.successes != 1 {
			t.Fatalf("expected all events fanned out, got %+v", o)
		}
		if o.lastOp != "add_node" {
			t.Fatalf("expected last op add_node, got %q", o.lastOp)
		}
		if o.lastRetry != 2 {
			t.Fatalf("expected retry count 2, got %d", o.lastRetry)
		}
	}
}

func TestCompositeObserverCollapses(t *testing.T) {
	if _, ok := NewCompositeObserver().(NoopObserver); !ok {
		t.Fatalf("expected NoopObserver for empty composite")
	}

	single := &testObserver{}
	if got := NewCompositeObserver(single, nil); got != single {
		t.Fatalf("expected single observer returned as-is")
	}
}

func TestLoggingObserverWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	obs := NewLoggingObserver(logger)
	ctx := context.Background()

	obs.OnSessionStart(ctx, &Session{ID: "s-9", Name: "Demo"})
	obs.OnCommitFailed(ctx, "s-9", 1, errors.New("remote down"))

	out := buf.String()
	for _, want := range []string{"session_start", `"session_id":"s-9"`, "commit_failed", `"retry_count":1`, "remote down"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestBasicMetricsSnapshot(t *testing.T) {
	ctx := context.Background()
	m := &BasicMetrics{}

	m.OnSessionStart(ctx, &Session{ID: "s-1"})
	m.OnOperation(ctx, "s-1", "add_node", nil, time.Millisecond)
	m.OnOperation(ctx, "s-1", "connect", errors.New("bad index"), time.Millisecond)
	m.OnCommitFailed(ctx, "s-1", 0, errors.New("boom"))
	m.OnCommitSucceeded(ctx, "s-1", "wf-1", 2)

	snap := m.Snapshot()
	if snap.SessionsStarted != 1 {
		t.Fatalf("expected 1 session started, got %d", snap.SessionsStarted)
	}
	if snap.Operations != 2 || snap.OperationErrors != 1 {
		t.Fatalf("unexpected operation counters: %+v", snap)
	}
	if snap.CommitsSucceeded != 1 || snap.CommitsFailed != 1 {
		t.Fatalf("unexpected commit counters: %+v", snap)
	}
}
