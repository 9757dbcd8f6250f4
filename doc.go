// Package draftflow provides a draft session engine for building workflow
// graphs incrementally and materializing them against a remote
// workflow-automation service such as n8n.
//
// It is designed for automated callers — agents that construct a workflow
// across many small tool calls rather than in one shot. The engine keeps
// the in-progress graph server-side, validates each step eagerly, and
// answers every rejection with a diagnostic structured well enough that the
// caller can self-correct without human help.
//
// # Sessions
//
// A session is a TTL-governed container for one draft graph. Start creates
// it; AddNode and Connect grow the draft; Commit synthesizes the final
// graph, submits it remotely and deletes the session; Discard deletes it
// unconditionally. Every successful or rejected operation slides the TTL
// forward, so an actively used session never expires mid-build.
//
// When the TTL does lapse, the session is demoted into an archive tier
// rather than destroyed. Until the archive TTL lapses as well, it can be
// inspected with Get and revived with Resume, which mints a fresh active
// session carrying the old draft and history.
//
// # Failure survival
//
// A failed commit never deletes the session. The draft stays intact, the
// TTL is extended, and the returned CommitFailedError carries the retry
// count plus advice matched to the failure class: transient failures
// suggest retrying, auth failures suggest fixing the API key, validation
// failures suggest changing the draft. After five failed attempts the
// advice recommends discarding instead of burning further calls.
//
// # Graph synthesis
//
// Drafts may be only partially wired. At commit time the synthesizer keeps
// every explicit edge, auto-chains single-output nodes to their successor
// in draft order, and fans branching nodes out across their expected
// output ports. Branch arity is resolved per node category: binary gates
// always expose two outputs, multi-way routers one per configured rule.
//
// # Persistence backends
//
// Sessions can be stored in memory (non-durable, best for tests), SQLite,
// PostgreSQL or Redis. All backends share the same two-tier TTL lifecycle
// and optimistic versioning; the choice is operational.
//
// # Typical usage
//
//	remote := draftflow.NewHTTPRemoteClient("http://localhost:5678", apiKey)
//	eng := draftflow.NewMemoryEngine(remote)
//
//	started, _ := eng.Start(ctx, draftflow.StartRequest{Name: "Order alerts"})
//	eng.AddNode(ctx, draftflow.AddNodeRequest{SessionID: started.SessionID, Type: "webhook"})
//	eng.AddNode(ctx, draftflow.AddNodeRequest{SessionID: started.SessionID, Type: "slack"})
//	result, _ := eng.Commit(ctx, draftflow.CommitRequest{SessionID: started.SessionID})
package draftflow
