package api

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RemoteErrorKind classifies failures surfaced by the remote workflow
// service. The commit failure path depends on this distinction to decide
// what retry guidance to give.
type RemoteErrorKind int

const (
	// KindTransient covers network errors, timeouts and 5xx responses.
	// Retrying the same commit is reasonable.
	KindTransient RemoteErrorKind = iota

	// KindNotFound means the addressed workflow does not exist remotely.
	KindNotFound

	// KindValidation means the service rejected the graph itself; retrying
	// without changing the draft will fail again.
	KindValidation

	// KindAuth means the API credentials were rejected.
	KindAuth
)

func (k RemoteErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// RemoteError is a structured failure from the remote workflow service.
type RemoteError struct {
	Kind       RemoteErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote workflow service: %s (%s, status %d)", e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("remote workflow service: %s (%s)", e.Message, e.Kind)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RemoteErrorKindOf extracts the kind from err, defaulting to KindTransient
// for anything unstructured (including context deadline errors).
func RemoteErrorKindOf(err error) RemoteErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransient
}

// RemoteWorkflow is the remote service's record of a created workflow.
type RemoteWorkflow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
}

// Execution is one remote execution record of a workflow.
type Execution struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	StoppedAt  time.Time `json:"stoppedAt,omitempty"`
}

// RemoteClient is the boundary to the external workflow-automation service.
// Implementations must surface *RemoteError for structured failures and
// honor context cancellation on every call.
type RemoteClient interface {
	CreateWorkflow(ctx context.Context, graph *Graph) (*RemoteWorkflow, error)
	UpdateWorkflow(ctx context.Context, id string, graph *Graph) (*RemoteWorkflow, error)
	ActivateWorkflow(ctx context.Context, id string) error
	DeactivateWorkflow(ctx context.Context, id string) error
	DeleteWorkflow(ctx context.Context, id string) error
	ListExecutions(ctx context.Context, workflowID string, limit int) ([]Execution, error)
}
