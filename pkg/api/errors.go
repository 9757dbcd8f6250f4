package api

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NodeBehaviorReference is attached to arity diagnostics so callers can
// find the authoritative description of per-type output behavior.
const NodeBehaviorReference = "https://docs.n8n.io/integrations/builtin/core-nodes/"

var (
	// ErrSessionNotFound is returned when a session id matches nothing in
	// either the active or the archive tier.
	ErrSessionNotFound = errors.New("session not found")

	// ErrVersionConflict is returned when an update lost the race against a
	// concurrent writer of the same session document.
	ErrVersionConflict = errors.New("session version conflict")
)

// SessionClosedError is returned when an operation targets a session that is
// no longer active (it expired into the archive tier).
type SessionClosedError struct {
	SessionID string
	Status    Status
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("session %s is %s: resume it into a new active session before operating on it",
		e.SessionID, e.Status)
}

// UnknownNodeTypeError is returned by AddNode when the simplified type is
// not present in the catalog.
type UnknownNodeTypeError struct {
	Type  string
	Known []string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("unknown node type %q; known types: %s", e.Type, strings.Join(e.Known, ", "))
}

// NodeNotFoundError is returned by Connect when a node reference matches
// neither a name nor an id in the draft. The diagnostic carries the known
// node names so the caller can correct the reference without refetching.
type NodeNotFoundError struct {
	Ref   string
	Known []string
}

func (e *NodeNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("node %q not found: the draft has no nodes yet", e.Ref)
	}
	return fmt.Sprintf("node %q not found; draft nodes: %s", e.Ref, strings.Join(e.Known, ", "))
}

// ConnectionDiagnostic annotates one existing outgoing connection of a node
// as part of an arity diagnostic.
type ConnectionDiagnostic struct {
	From       string `json:"from"`
	To         string `json:"to"`
	FromOutput int    `json:"from_output"`
	Valid      bool   `json:"valid"`
}

// InvalidOutputIndexError rejects a connect whose output index is outside
// the source node's port range. It is structured so a fully automated
// caller can self-correct: who violated, what was requested versus valid,
// why the arity holds for this category, how to fix it, and the node's
// existing connections for context.
type InvalidOutputIndexError struct {
	Node     string       // who
	NodeID   string
	NodeType string
	Category NodeCategory

	Requested int // what
	ValidMax  int // valid range is 0..ValidMax

	Explanation string // why

	SuggestedOutput int    // how
	SuggestedCall   string

	ExistingConnections []ConnectionDiagnostic // context

	Reference string
}

func (e *InvalidOutputIndexError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid output index %d for node %q (type %s, id %s, category %s): valid range is 0 to %d. ",
		e.Requested, e.Node, e.NodeType, e.NodeID, e.Category, e.ValidMax)
	b.WriteString(e.Explanation)
	fmt.Fprintf(&b, " Suggested fix: use from_output=%d, e.g. %s.", e.SuggestedOutput, e.SuggestedCall)
	if len(e.ExistingConnections) > 0 {
		b.WriteString(" Existing outgoing connections:")
		for _, c := range e.ExistingConnections {
			state := "valid"
			if !c.Valid {
				state = "invalid"
			}
			fmt.Fprintf(&b, " [%s -> %s output %d: %s]", c.From, c.To, c.FromOutput, state)
		}
		b.WriteString(".")
	}
	if e.Reference != "" {
		fmt.Fprintf(&b, " Node behavior reference: %s", e.Reference)
	}
	return b.String()
}

// EmptyDraftError rejects a commit against a draft with zero nodes.
type EmptyDraftError struct {
	SessionID string
}

func (e *EmptyDraftError) Error() string {
	return fmt.Sprintf("draft of session %s has no nodes: add at least a trigger node before committing", e.SessionID)
}

// MissingTriggerError rejects a commit against a draft with no trigger node.
type MissingTriggerError struct {
	SessionID string
	NodeTypes []string
}

func (e *MissingTriggerError) Error() string {
	return fmt.Sprintf("draft of session %s has no trigger node (present types: %s): every workflow needs exactly one entry point such as webhook, schedule or manual",
		e.SessionID, strings.Join(e.NodeTypes, ", "))
}

// CommitFailedError wraps any commit failure, structural or remote. The
// session survives every commit failure: it stays active with an extended
// TTL so the caller never has to rebuild the draft from scratch.
type CommitFailedError struct {
	SessionID     string
	SessionStatus Status // always StatusActive
	TTLExtended   bool
	ExpiresAt     time.Time

	// RetryCount is the number of commit failures before this one, so the
	// k-th consecutive failure reports k-1.
	RetryCount int

	Advice string
	Err    error
}

func (e *CommitFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "commit of session %s failed: %v (session_status=%s, ttl_extended=%t, retry_count=%d)",
		e.SessionID, e.Err, e.SessionStatus, e.TTLExtended, e.RetryCount)
	if e.Advice != "" {
		b.WriteString(" ")
		b.WriteString(e.Advice)
	}
	return b.String()
}

func (e *CommitFailedError) Unwrap() error { return e.Err }
