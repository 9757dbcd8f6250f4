// Package engine implements the session operations surface: start,
// add-node, connect, commit, discard, list, resume and get. Structural and
// arity violations are detected as early as possible, and every failure
// except an explicit discard leaves the session alive with an extended TTL.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/catalog"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/kb"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/persistence"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/synth"
	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

const (
	// DefaultTTL is the sliding active-tier lifetime of a session.
	DefaultTTL = 30 * time.Minute

	// DefaultSubmitTimeout bounds the remote submission call during commit.
	// A timeout is a recoverable failure; the session survives it.
	DefaultSubmitTimeout = 30 * time.Second

	// discardAdviceThreshold is the retry count at which commit failures
	// start recommending discard over further retries.
	discardAdviceThreshold = 5
)

// Default layout for nodes added without an explicit position.
const (
	positionBaseX = 240
	positionStepX = 220
	positionY     = 300
)

// Options tune an Engine. The zero value is usable: defaults are applied
// by New.
type Options struct {
	TTL           time.Duration
	SubmitTimeout time.Duration
	Catalog       *catalog.Catalog
	Validator     kb.Validator // optional pre-commit parameter checks
	Observer      api.Observer

	// Clock and NewID exist for deterministic tests.
	Clock func() time.Time
	NewID func() string
}

// Engine is the concrete api.Engine implementation.
type Engine struct {
	store     persistence.SessionStore
	remote    api.RemoteClient
	cat       *catalog.Catalog
	validator kb.Validator
	obs       api.Observer

	ttl           time.Duration
	submitTimeout time.Duration

	now   func() time.Time
	newID func() string
}

var _ api.Engine = (*Engine)(nil)

// New creates an Engine on top of a session store and a remote client.
func New(store persistence.SessionStore, remote api.RemoteClient, opts Options) *Engine {
	e := &Engine{
		store:         store,
		remote:        remote,
		cat:           opts.Catalog,
		validator:     opts.Validator,
		obs:           opts.Observer,
		ttl:           opts.TTL,
		submitTimeout: opts.SubmitTimeout,
		now:           opts.Clock,
		newID:         opts.NewID,
	}
	if e.cat == nil {
		e.cat = catalog.New()
	}
	if e.obs == nil {
		e.obs = api.NoopObserver{}
	}
	if e.ttl <= 0 {
		e.ttl = DefaultTTL
	}
	if e.submitTimeout <= 0 {
		e.submitTimeout = DefaultSubmitTimeout
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

func (e *Engine) Start(ctx context.Context, req api.StartRequest) (*api.StartResult, error) {
	started := time.Now()

	name := req.Name
	if name == "" {
		name = "Untitled Workflow"
	}

	now := e.now()
	sess := &api.Session{
		ID:          e.newID(),
		Name:        name,
		Status:      api.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(e.ttl),
		Draft:       api.Draft{Name: name, Description: req.Description},
		Credentials: req.Credentials,
	}
	sess.AppendLog("start", now, nil)

	if err := e.store.Create(ctx, sess); err != nil {
		err = mapStoreErr(err)
		e.obs.OnOperation(ctx, sess.ID, "start", err, time.Since(started))
		return nil, err
	}

	e.obs.OnSessionStart(ctx, sess)
	e.obs.OnOperation(ctx, sess.ID, "start", nil, time.Since(started))
	return &api.StartResult{
		SessionID:  sess.ID,
		ExpiresAt:  sess.ExpiresAt,
		TTLSeconds: int(e.ttl.Seconds()),
	}, nil
}

func (e *Engine) AddNode(ctx context.Context, req api.AddNodeRequest) (result *api.AddNodeResult, err error) {
	started := time.Now()
	defer func() { e.obs.OnOperation(ctx, req.SessionID, "add_node", err, time.Since(started)) }()

	sess, err := e.loadActive(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	entry, ok := e.cat.Lookup(req.Type)
	if !ok {
		err = &api.UnknownNodeTypeError{Type: req.Type, Known: e.cat.Names()}
		e.touch(ctx, sess)
		return nil, err
	}

	config := req.Config
	if req.Action != "" {
		merged := make(map[string]any, len(config)+1)
		for k, v := range config {
			merged[k] = v
		}
		if _, set := merged["operation"]; !set {
			merged["operation"] = req.Action
		}
		config = merged
	}

	position := [2]int{positionBaseX + positionStepX*len(sess.Draft.Nodes), positionY}
	if req.Position != nil {
		position = *req.Position
	}

	node := api.DraftNode{
		ID:             e.newID(),
		Name:           uniqueName(&sess.Draft, req.Name, entry.DisplayName),
		SimplifiedType: entry.Name,
		ResolvedType:   entry.Type,
		TypeVersion:    entry.TypeVersion,
		Parameters:     config,
		Position:       position,
		CredentialRef:  req.Credential,
		Metadata:       catalog.Resolve(entry, config),
	}

	sess.Draft.Nodes = append(sess.Draft.Nodes, node)
	sess.AppendLog("add_node", e.now(), map[string]any{
		"node_id": node.ID,
		"type":    node.SimplifiedType,
	})
	if err = e.save(ctx, sess); err != nil {
		return nil, err
	}

	return &api.AddNodeResult{
		NodeID:     node.ID,
		NodeName:   node.Name,
		NodesCount: len(sess.Draft.Nodes),
	}, nil
}

func (e *Engine) Connect(ctx context.Context, req api.ConnectRequest) (result *api.ConnectResult, err error) {
	started := time.Now()
	defer func() { e.obs.OnOperation(ctx, req.SessionID, "connect", err, time.Since(started)) }()

	sess, err := e.loadActive(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	from, ok := sess.Draft.NodeByRef(req.FromNode)
	if !ok {
		err = &api.NodeNotFoundError{Ref: req.FromNode, Known: sess.Draft.NodeNames()}
		e.touch(ctx, sess)
		return nil, err
	}
	to, ok := sess.Draft.NodeByRef(req.ToNode)
	if !ok {
		err = &api.NodeNotFoundError{Ref: req.ToNode, Known: sess.Draft.NodeNames()}
		e.touch(ctx, sess)
		return nil, err
	}

	if req.FromOutput < 0 || req.FromOutput >= from.Metadata.ExpectedOutputs {
		err = e.arityError(&sess.Draft, from, to, req.FromOutput)
		e.touch(ctx, sess)
		return nil, err
	}
	if req.ToInput < 0 {
		err = fmt.Errorf("invalid input index %d for node %q: input indices start at 0", req.ToInput, to.Name)
		e.touch(ctx, sess)
		return nil, err
	}

	sess.Draft.Connections = append(sess.Draft.Connections, api.DraftConnection{
		FromNode:   from.ID,
		ToNode:     to.ID,
		FromOutput: req.FromOutput,
		ToInput:    req.ToInput,
	})
	sess.AppendLog("connect", e.now(), map[string]any{
		"from": from.Name,
		"to":   to.Name,
	})
	if err = e.save(ctx, sess); err != nil {
		return nil, err
	}

	return &api.ConnectResult{
		From:             from.Name,
		To:               to.Name,
		FromOutput:       req.FromOutput,
		ToInput:          req.ToInput,
		ConnectionsCount: len(sess.Draft.Connections),
	}, nil
}

func (e *Engine) Commit(ctx context.Context, req api.CommitRequest) (result *api.CommitResult, err error) {
	started := time.Now()
	defer func() { e.obs.OnOperation(ctx, req.SessionID, "commit", err, time.Since(started)) }()

	sess, err := e.loadActive(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if structural := e.validateForCommit(sess); structural != nil {
		return nil, e.failCommit(ctx, sess, structural)
	}

	warnings := kb.ValidateDraft(e.validator, &sess.Draft)
	graph := synth.Synthesize(e.cat, &sess.Draft, sess.Credentials)

	submitCtx, cancel := context.WithTimeout(ctx, e.submitTimeout)
	defer cancel()
	created, err := e.remote.CreateWorkflow(submitCtx, graph)
	if err != nil {
		return nil, e.failCommit(ctx, sess, err)
	}

	active := false
	if req.Activate {
		if actErr := e.remote.ActivateWorkflow(ctx, created.ID); actErr != nil {
			// The workflow exists; activation can be retried out of band.
			warnings = append(warnings, fmt.Sprintf(
				"workflow %s was created but activation failed: %v", created.ID, actErr))
		} else {
			active = true
		}
	}

	if delErr := e.store.Delete(ctx, sess.ID); delErr != nil && !errors.Is(delErr, persistence.ErrSessionNotFound) {
		warnings = append(warnings, fmt.Sprintf(
			"workflow %s was created but session cleanup failed: %v", created.ID, delErr))
	}

	e.obs.OnCommitSucceeded(ctx, sess.ID, created.ID, len(graph.Nodes))
	return &api.CommitResult{
		WorkflowID: created.ID,
		NodesCount: len(graph.Nodes),
		Active:     active,
		Warnings:   warnings,
	}, nil
}

func (e *Engine) Discard(ctx context.Context, sessionID string) (err error) {
	started := time.Now()
	defer func() { e.obs.OnOperation(ctx, sessionID, "discard", err, time.Since(started)) }()

	if err = e.store.Delete(ctx, sessionID); err != nil {
		err = mapStoreErr(err)
		return err
	}
	return nil
}

func (e *Engine) List(ctx context.Context, includeExpired bool) ([]api.SessionSummary, error) {
	sessions, err := e.store.List(ctx, includeExpired)
	if err != nil {
		return nil, err
	}

	summaries := make([]api.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, summarize(sess))
	}
	return summaries, nil
}

func (e *Engine) Resume(ctx context.Context, sessionID string) (result *api.StartResult, err error) {
	started := time.Now()
	defer func() { e.obs.OnOperation(ctx, sessionID, "resume", err, time.Since(started)) }()

	old, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if old.Status == api.StatusActive {
		return nil, fmt.Errorf("session %s is still active: operate on it directly instead of resuming", sessionID)
	}

	now := e.now()
	revived := &api.Session{
		ID:            e.newID(),
		Name:          old.Name,
		Status:        api.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(e.ttl),
		Draft:         old.Draft,
		OperationsLog: old.OperationsLog,
		Credentials:   old.Credentials,
	}
	revived.AppendLog("resumed", now, map[string]any{"resumed_from": old.ID})

	if err = e.store.Create(ctx, revived); err != nil {
		return nil, mapStoreErr(err)
	}
	if err := e.store.Delete(ctx, old.ID); err != nil && !errors.Is(err, persistence.ErrSessionNotFound) {
		return nil, err
	}

	e.obs.OnSessionStart(ctx, revived)
	return &api.StartResult{
		SessionID:  revived.ID,
		ExpiresAt:  revived.ExpiresAt,
		TTLSeconds: int(e.ttl.Seconds()),
	}, nil
}

func (e *Engine) Get(ctx context.Context, sessionID string) (*api.Session, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return sess, nil
}

// loadActive fetches a session and rejects anything that is not active.
func (e *Engine) loadActive(ctx context.Context, id string) (*api.Session, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if sess.Status != api.StatusActive {
		return nil, &api.SessionClosedError{SessionID: id, Status: sess.Status}
	}
	return sess, nil
}

// save refreshes the sliding TTL and writes the session back.
func (e *Engine) save(ctx context.Context, sess *api.Session) error {
	now := e.now()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(e.ttl)
	if err := e.store.Update(ctx, sess); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// touch extends the TTL after a rejected operation. Rejections must keep
// the session alive, so a failed touch is swallowed: the caller's
// diagnostic matters more than the bookkeeping write.
func (e *Engine) touch(ctx context.Context, sess *api.Session) {
	_ = e.save(ctx, sess)
}

// validateForCommit runs the whole-draft structural checks, including a
// re-resolution of output arity against the final parameters. A multi-way
// node whose recorded connections drifted out of its configured rule count
// is caught here.
func (e *Engine) validateForCommit(sess *api.Session) error {
	if len(sess.Draft.Nodes) == 0 {
		return &api.EmptyDraftError{SessionID: sess.ID}
	}

	hasTrigger := false
	for i := range sess.Draft.Nodes {
		n := &sess.Draft.Nodes[i]
		if entry, ok := e.cat.Lookup(n.SimplifiedType); ok {
			n.Metadata = catalog.Resolve(entry, n.Parameters)
		}
		if n.Metadata.Category == api.CategoryTrigger {
			hasTrigger = true
		}
	}
	if !hasTrigger {
		return &api.MissingTriggerError{SessionID: sess.ID, NodeTypes: distinctTypes(&sess.Draft)}
	}

	for _, c := range sess.Draft.Connections {
		from, ok := sess.Draft.NodeByRef(c.FromNode)
		if !ok {
			continue
		}
		if c.FromOutput >= from.Metadata.ExpectedOutputs {
			to, _ := sess.Draft.NodeByRef(c.ToNode)
			return e.arityError(&sess.Draft, from, to, c.FromOutput)
		}
	}
	return nil
}

// failCommit records a commit failure and keeps the session alive. The
// reported retry count is the number of failures before this one.
func (e *Engine) failCommit(ctx context.Context, sess *api.Session, cause error) error {
	retryCount := sess.CommitFailures()

	now := e.now()
	sess.AppendLog("commit_failed", now, map[string]any{
		"error":       cause.Error(),
		"retry_count": retryCount,
	})
	e.touch(ctx, sess)

	e.obs.OnCommitFailed(ctx, sess.ID, retryCount, cause)
	return &api.CommitFailedError{
		SessionID:     sess.ID,
		SessionStatus: api.StatusActive,
		TTLExtended:   true,
		ExpiresAt:     sess.ExpiresAt,
		RetryCount:    retryCount,
		Advice:        commitAdvice(cause, retryCount),
		Err:           cause,
	}
}

// commitAdvice picks retry guidance from the failure class, plus a discard
// recommendation once retries have clearly stopped helping.
func commitAdvice(cause error, retryCount int) string {
	var advice string

	var remoteErr *api.RemoteError
	if errors.As(cause, &remoteErr) {
		switch remoteErr.Kind {
		case api.KindAuth:
			advice = "The remote service rejected the API credentials; fix the API key before retrying."
		case api.KindValidation:
			advice = "The remote service rejected the graph itself; change the draft before retrying."
		case api.KindNotFound:
			advice = "The addressed remote resource does not exist; check the target workflow id."
		default:
			advice = "The failure looks transient; retrying the same commit is reasonable."
		}
	} else {
		switch cause.(type) {
		case *api.EmptyDraftError, *api.MissingTriggerError, *api.InvalidOutputIndexError:
			advice = "The draft failed structural validation; fix it before retrying."
		default:
			advice = "The failure looks transient; retrying the same commit is reasonable."
		}
	}

	if retryCount >= discardAdviceThreshold {
		advice += fmt.Sprintf(
			" This session has already failed to commit %d times; consider discard to stop wasted retries.",
			retryCount)
	}
	return advice
}

// arityError builds the self-correction diagnostic for an out-of-range
// output index.
func (e *Engine) arityError(draft *api.Draft, from, to *api.DraftNode, requested int) *api.InvalidOutputIndexError {
	validMax := from.Metadata.ExpectedOutputs - 1

	suggested := requested
	if suggested > validMax {
		suggested = validMax
	}
	if suggested < 0 {
		suggested = 0
	}

	toRef := ""
	if to != nil {
		toRef = to.Name
	}

	var existing []api.ConnectionDiagnostic
	for _, c := range draft.Connections {
		if c.FromNode != from.ID {
			continue
		}
		target, _ := draft.NodeByRef(c.ToNode)
		targetName := c.ToNode
		if target != nil {
			targetName = target.Name
		}
		existing = append(existing, api.ConnectionDiagnostic{
			From:       from.Name,
			To:         targetName,
			FromOutput: c.FromOutput,
			Valid:      c.FromOutput <= validMax,
		})
	}

	return &api.InvalidOutputIndexError{
		Node:            from.Name,
		NodeID:          from.ID,
		NodeType:        from.SimplifiedType,
		Category:        from.Metadata.Category,
		Requested:       requested,
		ValidMax:        validMax,
		Explanation:     e.explainArity(from),
		SuggestedOutput: suggested,
		SuggestedCall: fmt.Sprintf("connect(from_node=%q, to_node=%q, from_output=%d)",
			from.Name, toRef, suggested),
		ExistingConnections: existing,
		Reference:           api.NodeBehaviorReference,
	}
}

// explainArity states why the node's arity holds, phrased per category so
// the caller does not have to guess the port semantics.
func (e *Engine) explainArity(node *api.DraftNode) string {
	entry, ok := e.cat.Lookup(node.SimplifiedType)
	if ok {
		switch entry.Branch {
		case catalog.BranchBinary:
			return "Binary gates always expose exactly two outputs: index 0 routes items matching the condition (true), index 1 routes the rest (false)."
		case catalog.BranchMultiway:
			return fmt.Sprintf(
				"Multi-way routers expose exactly one output per configured routing rule (currently %d) with no implicit fallback port; add a rule to gain another output.",
				node.Metadata.ExpectedOutputs)
		}
	}
	return fmt.Sprintf("Nodes of category %s always expose exactly one output at index 0.", node.Metadata.Category)
}

// summarize projects a session onto its listing shape.
func summarize(sess *api.Session) api.SessionSummary {
	summary := api.SessionSummary{
		ID:            sess.ID,
		Name:          sess.Name,
		Status:        sess.Status,
		NodeCount:     len(sess.Draft.Nodes),
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
		ExpiresAt:     sess.ExpiresAt,
		LastOperation: sess.LastOperation(),
		NodeTypes:     distinctTypes(&sess.Draft),
	}
	for _, n := range sess.Draft.Nodes {
		if n.Metadata.Category == api.CategoryTrigger {
			summary.TriggerType = n.SimplifiedType
			break
		}
	}
	return summary
}

// distinctTypes lists the simplified types present in a draft, in first-use
// order.
func distinctTypes(draft *api.Draft) []string {
	seen := make(map[string]bool, len(draft.Nodes))
	var types []string
	for _, n := range draft.Nodes {
		if !seen[n.SimplifiedType] {
			seen[n.SimplifiedType] = true
			types = append(types, n.SimplifiedType)
		}
	}
	return types
}

// uniqueName picks the node's display name: the explicit name when given,
// the type's display name otherwise, deduplicated with a numeric suffix so
// names stay unique addressing keys.
func uniqueName(draft *api.Draft, explicit, display string) string {
	base := explicit
	if base == "" {
		base = display
	}

	inUse := make(map[string]bool, len(draft.Nodes))
	for _, n := range draft.Nodes {
		inUse[n.Name] = true
	}

	if !inUse[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s %d", base, i)
		if !inUse[candidate] {
			return candidate
		}
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, persistence.ErrSessionNotFound):
		return api.ErrSessionNotFound
	case errors.Is(err, persistence.ErrVersionConflict):
		return api.ErrVersionConflict
	default:
		return err
	}
}
