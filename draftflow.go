package draftflow

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/catalog"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/engine"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/kb"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/n8n"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/persistence"
	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine          = api.Engine
	Session         = api.Session
	SessionSummary  = api.SessionSummary
	Status          = api.Status
	Draft           = api.Draft
	DraftNode       = api.DraftNode
	DraftConnection = api.DraftConnection
	Graph           = api.Graph
	GraphNode       = api.GraphNode

	StartRequest   = api.StartRequest
	StartResult    = api.StartResult
	AddNodeRequest = api.AddNodeRequest
	AddNodeResult  = api.AddNodeResult
	ConnectRequest = api.ConnectRequest
	ConnectResult  = api.ConnectResult
	CommitRequest  = api.CommitRequest
	CommitResult   = api.CommitResult

	RemoteClient    = api.RemoteClient
	RemoteWorkflow  = api.RemoteWorkflow
	RemoteError     = api.RemoteError
	RemoteErrorKind = api.RemoteErrorKind
	Execution       = api.Execution

	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot

	SessionClosedError      = api.SessionClosedError
	UnknownNodeTypeError    = api.UnknownNodeTypeError
	NodeNotFoundError       = api.NodeNotFoundError
	InvalidOutputIndexError = api.InvalidOutputIndexError
	EmptyDraftError         = api.EmptyDraftError
	MissingTriggerError     = api.MissingTriggerError
	CommitFailedError       = api.CommitFailedError
)

// Re-export common observer helpers and sentinel errors.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver

	ErrSessionNotFound = api.ErrSessionNotFound
	ErrVersionConflict = api.ErrVersionConflict
)

// Re-export status values for convenience.

const (
	StatusActive    = api.StatusActive
	StatusExpired   = api.StatusExpired
	StatusCommitted = api.StatusCommitted
)

// Re-export remote failure kinds.

const (
	KindTransient  = api.KindTransient
	KindNotFound   = api.KindNotFound
	KindValidation = api.KindValidation
	KindAuth       = api.KindAuth
)

// Engine constructors
// These wrap the internal packages so external callers never need to
// import them.

// NewMemoryEngine returns an Engine backed by an in-memory session store
// that sweeps its own TTLs. Sessions do not survive a restart.
func NewMemoryEngine(remote RemoteClient) Engine {
	return NewMemoryEngineWithObserver(remote, nil)
}

// NewMemoryEngineWithObserver returns an in-memory Engine with the given
// Observer.
func NewMemoryEngineWithObserver(remote RemoteClient, obs Observer) Engine {
	store := persistence.NewMemoryStore(persistence.MemoryConfig{
		SweepInterval: persistence.DefaultSweepInterval,
	})
	return newEngine(store, remote, obs)
}

// NewSQLiteEngine returns an Engine that persists sessions in a SQLite
// database. The caller owns the *sql.DB and must import a SQLite driver
// such as modernc.org/sqlite.
func NewSQLiteEngine(db *sql.DB, remote RemoteClient) (Engine, error) {
	return NewSQLiteEngineWithObserver(db, remote, nil)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given
// Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, remote RemoteClient, obs Observer) (Engine, error) {
	store, err := persistence.NewSQLiteStore(db, 0)
	if err != nil {
		return nil, err
	}
	return newEngine(store, remote, obs), nil
}

// NewPostgresEngine returns an Engine that persists sessions in PostgreSQL.
// The caller owns the *sql.DB and must import a Postgres driver such as
// github.com/jackc/pgx/v5/stdlib.
func NewPostgresEngine(db *sql.DB, remote RemoteClient) (Engine, error) {
	return NewPostgresEngineWithObserver(db, remote, nil)
}

// NewPostgresEngineWithObserver returns a Postgres-backed Engine with the
// given Observer.
func NewPostgresEngineWithObserver(db *sql.DB, remote RemoteClient, obs Observer) (Engine, error) {
	store, err := persistence.NewPostgresStore(db, 0)
	if err != nil {
		return nil, err
	}
	return newEngine(store, remote, obs), nil
}

// NewRedisEngine returns an Engine that persists sessions in Redis. The
// caller owns the client.
func NewRedisEngine(client *redis.Client, remote RemoteClient) Engine {
	return NewRedisEngineWithObserver(client, remote, nil)
}

// NewRedisEngineWithObserver returns a Redis-backed Engine with the given
// Observer.
func NewRedisEngineWithObserver(client *redis.Client, remote RemoteClient, obs Observer) Engine {
	return newEngine(persistence.NewRedisStore(client, "", 0), remote, obs)
}

func newEngine(store persistence.SessionStore, remote RemoteClient, obs Observer) Engine {
	return engine.New(store, remote, engine.Options{
		Validator: kb.NewStaticValidator(),
		Observer:  obs,
	})
}

// NewHTTPRemoteClient returns a RemoteClient for an n8n instance reachable
// at baseURL, authenticating with apiKey.
func NewHTTPRemoteClient(baseURL, apiKey string) RemoteClient {
	return n8n.NewHTTPClient(n8n.Config{BaseURL: baseURL, APIKey: apiKey})
}

// NodeTypes lists the simplified node type names the engine accepts.
func NodeTypes() []string {
	return catalog.New().Names()
}
