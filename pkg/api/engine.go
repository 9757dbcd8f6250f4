package api

import (
	"context"
	"time"
)

// StartRequest creates a new empty draft session.
type StartRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
}

// StartResult is returned by Start and Resume.
type StartResult struct {
	SessionID  string    `json:"session_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// AddNodeRequest appends a node to a session's draft.
type AddNodeRequest struct {
	SessionID  string         `json:"session_id"`
	Type       string         `json:"type"`
	Name       string         `json:"name,omitempty"`
	Action     string         `json:"action,omitempty"`
	Config     map[string]any `json:"config,omitempty"`
	Credential string         `json:"credential,omitempty"`
	Position   *[2]int        `json:"position,omitempty"`
}

// AddNodeResult is returned by AddNode.
type AddNodeResult struct {
	NodeID     string `json:"node_id"`
	NodeName   string `json:"node_name"`
	NodesCount int    `json:"nodes_count"`
}

// ConnectRequest wires an explicit edge between two draft nodes, addressed
// by name or ID.
type ConnectRequest struct {
	SessionID  string `json:"session_id"`
	FromNode   string `json:"from_node"`
	ToNode     string `json:"to_node"`
	FromOutput int    `json:"from_output"`
	ToInput    int    `json:"to_input"`
}

// ConnectResult is returned by Connect.
type ConnectResult struct {
	From             string `json:"from"`
	To               string `json:"to"`
	FromOutput       int    `json:"from_output"`
	ToInput          int    `json:"to_input"`
	ConnectionsCount int    `json:"connections_count"`
}

// CommitRequest materializes a session's draft against the remote service.
type CommitRequest struct {
	SessionID string `json:"session_id"`
	Activate  bool   `json:"activate,omitempty"`
}

// CommitResult is returned by a successful Commit. The session no longer
// exists once this is returned.
type CommitResult struct {
	WorkflowID string   `json:"workflow_id"`
	NodesCount int      `json:"nodes_count"`
	Active     bool     `json:"active"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Engine is the session operations surface exposed to callers. Every
// operation validates its input before touching the store, detects
// structural and arity violations as early as possible, and leaves the
// session alive (with extended TTL) on every failure except an explicit
// Discard.
type Engine interface {
	// Start creates a new empty draft session and returns its id and TTL.
	Start(ctx context.Context, req StartRequest) (*StartResult, error)

	// AddNode resolves the simplified type, stamps output-arity metadata,
	// assigns default position/name where omitted and appends the node.
	AddNode(ctx context.Context, req AddNodeRequest) (*AddNodeResult, error)

	// Connect records an explicit edge. The output index is validated
	// eagerly against the source node's expected outputs; a violation is
	// rejected with a diagnostic rich enough for the caller to self-correct.
	Connect(ctx context.Context, req ConnectRequest) (*ConnectResult, error)

	// Commit validates the draft as a whole, synthesizes the final graph,
	// submits it and deletes the session on success. On any failure the
	// session survives with extended TTL and a commit_failed log entry.
	Commit(ctx context.Context, req CommitRequest) (*CommitResult, error)

	// Discard unconditionally deletes a session from whichever tier it
	// occupies.
	Discard(ctx context.Context, sessionID string) error

	// List returns lightweight summaries of known sessions. Archived
	// sessions are included only when includeExpired is set.
	List(ctx context.Context, includeExpired bool) ([]SessionSummary, error)

	// Resume revives an archived session into a brand-new active session:
	// new id, draft and operations log carried over, a resumed entry
	// appended.
	Resume(ctx context.Context, sessionID string) (*StartResult, error)

	// Get fetches a full session document from either tier.
	Get(ctx context.Context, sessionID string) (*Session, error)
}
