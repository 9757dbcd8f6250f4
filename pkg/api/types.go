package api

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a draft session.
type Status string

const (
	// StatusActive means the session accepts operations and its TTL slides
	// forward on every mutation.
	StatusActive Status = "active"

	// StatusExpired means the active TTL lapsed and the session was demoted
	// to the archive tier. It can still be resumed until the archive TTL
	// lapses as well.
	StatusExpired Status = "expired"

	// StatusCommitted is terminal. A committed session is removed from the
	// store; the value only ever appears in operation results, never in a
	// stored document.
	StatusCommitted Status = "committed"
)

// NodeCategory classifies what a node type does within a workflow.
// It is a closed enumeration: output arity rules are keyed by category,
// never by matching on raw type strings.
type NodeCategory int

const (
	CategoryTrigger NodeCategory = iota
	CategoryAction
	CategoryTransform
	CategoryBranching
)

func (c NodeCategory) String() string {
	switch c {
	case CategoryTrigger:
		return "trigger"
	case CategoryAction:
		return "action"
	case CategoryTransform:
		return "transform"
	case CategoryBranching:
		return "branching"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler so categories round-trip
// through the JSON session documents as readable strings.
func (c NodeCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *NodeCategory) UnmarshalText(text []byte) error {
	switch string(text) {
	case "trigger":
		*c = CategoryTrigger
	case "action":
		*c = CategoryAction
	case "transform":
		*c = CategoryTransform
	case "branching":
		*c = CategoryBranching
	default:
		return fmt.Errorf("unknown node category: %q", text)
	}
	return nil
}

// NodeMetadata is stamped onto a draft node when it is added, using the same
// pure resolver that validation uses later, so the stored value and any
// recomputation cannot diverge.
type NodeMetadata struct {
	ExpectedOutputs int          `json:"expected_outputs"`
	Category        NodeCategory `json:"category"`
}

// DraftNode is a single node of a workflow-in-progress.
//
// Name is the addressing key used by connect operations and must be unique
// within the draft. ID is a stable internal key that survives renames.
type DraftNode struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	SimplifiedType string         `json:"simplified_type"`
	ResolvedType   string         `json:"resolved_type,omitempty"`
	TypeVersion    int            `json:"type_version,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Position       [2]int         `json:"position"`
	CredentialRef  string         `json:"credential_ref,omitempty"`
	Metadata       NodeMetadata   `json:"metadata"`
}

// DraftConnection is an explicit edge between two draft nodes, addressed by
// node ID. The output index is validated eagerly at creation time:
// 0 <= FromOutput < expected outputs of the source node.
type DraftConnection struct {
	FromNode   string `json:"from_node"`
	ToNode     string `json:"to_node"`
	FromOutput int    `json:"from_output"`
	ToInput    int    `json:"to_input"`
}

// Draft is the mutable, in-progress workflow graph owned by exactly one
// session.
type Draft struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Nodes       []DraftNode       `json:"nodes"`
	Connections []DraftConnection `json:"connections"`
	Settings    map[string]any    `json:"settings,omitempty"`
}

// NodeByRef resolves a node by name or by ID. Names take precedence since
// they are the documented addressing key.
func (d *Draft) NodeByRef(ref string) (*DraftNode, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].Name == ref {
			return &d.Nodes[i], true
		}
	}
	for i := range d.Nodes {
		if d.Nodes[i].ID == ref {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// NodeNames returns the display names of all nodes in draft order.
func (d *Draft) NodeNames() []string {
	names := make([]string, len(d.Nodes))
	for i, n := range d.Nodes {
		names[i] = n.Name
	}
	return names
}

// OperationLogEntry records one operation against a session. The log is
// append-only; entries are never rewritten. Besides auditing, the log is
// how repeated commit failures derive their retry count.
type OperationLogEntry struct {
	Operation string         `json:"operation"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Session is the addressable, time-boxed container for one draft plus its
// history. One document per session; the document is always read, mutated
// as a whole and written back.
type Session struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Status        Status              `json:"status"`
	Version       int64               `json:"version"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	ExpiresAt     time.Time           `json:"expires_at"`
	Draft         Draft               `json:"draft"`
	OperationsLog []OperationLogEntry `json:"operations_log"`
	Credentials   map[string]string   `json:"credentials,omitempty"`
}

// AppendLog appends an operation record with the given timestamp.
func (s *Session) AppendLog(op string, at time.Time, details map[string]any) {
	s.OperationsLog = append(s.OperationsLog, OperationLogEntry{
		Operation: op,
		Timestamp: at,
		Details:   details,
	})
}

// CommitFailures counts prior commit_failed entries in the operations log.
func (s *Session) CommitFailures() int {
	n := 0
	for _, e := range s.OperationsLog {
		if e.Operation == "commit_failed" {
			n++
		}
	}
	return n
}

// LastOperation returns the name of the most recent log entry, or "".
func (s *Session) LastOperation() string {
	if len(s.OperationsLog) == 0 {
		return ""
	}
	return s.OperationsLog[len(s.OperationsLog)-1].Operation
}

// SessionSummary is the lightweight listing shape returned by List. It
// carries enough for a caller that lost track of its sessions to rediscover
// them without fetching full draft bodies.
type SessionSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	NodeCount     int       `json:"node_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	LastOperation string    `json:"last_operation,omitempty"`
	TriggerType   string    `json:"trigger_type,omitempty"`
	NodeTypes     []string  `json:"node_types,omitempty"`
}
