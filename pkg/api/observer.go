package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the session engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay session operations.
type Observer interface {
	// OnSessionStart is called once when a new draft session is created
	// (Start or Resume), after it has been persisted.
	OnSessionStart(ctx context.Context, sess *Session)

	// OnOperation is called after every session mutation attempt (add_node,
	// connect, commit, discard, resume), for both successes and failures
	// (err != nil).
	OnOperation(ctx context.Context, sessionID, operation string, err error, duration time.Duration)

	// OnCommitSucceeded is called when a draft has been materialized
	// remotely and its session deleted.
	OnCommitSucceeded(ctx context.Context, sessionID, workflowID string, nodes int)

	// OnCommitFailed is called when a commit failed and the session
	// survived. retryCount counts failures before this one.
	OnCommitFailed(ctx context.Context, sessionID string, retryCount int, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnSessionStart(ctx context.Context, sess *Session) {}
func (NoopObserver) OnOperation(ctx context.Context, sessionID, operation string, err error, d time.Duration) {
}
func (NoopObserver) OnCommitSucceeded(ctx context.Context, sessionID, workflowID string, nodes int) {}
func (NoopObserver) OnCommitFailed(ctx context.Context, sessionID string, retryCount int, err error) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnSessionStart(ctx context.Context, sess *Session) {
	for _, o := range c.observers {
		o.OnSessionStart(ctx, sess)
	}
}

func (c *CompositeObserver) OnOperation(ctx context.Context, sessionID, operation string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnOperation(ctx, sessionID, operation, err, d)
	}
}

func (c *CompositeObserver) OnCommitSucceeded(ctx context.Context, sessionID, workflowID string, nodes int) {
	for _, o := range c.observers {
		o.OnCommitSucceeded(ctx, sessionID, workflowID, nodes)
	}
}

func (c *CompositeObserver) OnCommitFailed(ctx context.Context, sessionID string, retryCount int, err error) {
	for _, o := range c.observers {
		o.OnCommitFailed(ctx, sessionID, retryCount, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs session lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnSessionStart(ctx context.Context, sess *Session) {
	o.Logger.InfoContext(ctx, "session_start",
		slog.String("session_id", sess.ID),
		slog.String("name", sess.Name),
		slog.Time("expires_at", sess.ExpiresAt),
	)
}

func (o *LoggingObserver) OnOperation(ctx context.Context, sessionID, operation string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "session_operation",
		slog.String("session_id", sessionID),
		slog.String("operation", operation),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnCommitSucceeded(ctx context.Context, sessionID, workflowID string, nodes int) {
	o.Logger.InfoContext(ctx, "commit_succeeded",
		slog.String("session_id", sessionID),
		slog.String("workflow_id", workflowID),
		slog.Int("nodes", nodes),
	)
}

func (o *LoggingObserver) OnCommitFailed(ctx context.Context, sessionID string, retryCount int, err error) {
	o.Logger.ErrorContext(ctx, "commit_failed",
		slog.String("session_id", sessionID),
		slog.Int("retry_count", retryCount),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters for session activity.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	sessionsStarted  atomic.Int64
	operations       atomic.Int64
	operationErrors  atomic.Int64
	commitsSucceeded atomic.Int64
	commitsFailed    atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	SessionsStarted  int64
	Operations       int64
	OperationErrors  int64
	CommitsSucceeded int64
	CommitsFailed    int64
}

func (m *BasicMetrics) OnSessionStart(ctx context.Context, sess *Session) {
	m.sessionsStarted.Add(1)
}

func (m *BasicMetrics) OnOperation(ctx context.Context, sessionID, operation string, err error, d time.Duration) {
	m.operations.Add(1)
	if err != nil {
		m.operationErrors.Add(1)
	}
}

func (m *BasicMetrics) OnCommitSucceeded(ctx context.Context, sessionID, workflowID string, nodes int) {
	m.commitsSucceeded.Add(1)
}

func (m *BasicMetrics) OnCommitFailed(ctx context.Context, sessionID string, retryCount int, err error) {
	m.commitsFailed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	return BasicMetricsSnapshot{
		SessionsStarted:  m.sessionsStarted.Load(),
		Operations:       m.operations.Load(),
		OperationErrors:  m.operationErrors.Load(),
		CommitsSucceeded: m.commitsSucceeded.Load(),
		CommitsFailed:    m.commitsFailed.Load(),
	}
}
