// Package api contains the core building blocks of the draft session
// engine: the session and draft data model, the final graph shape, the
// Engine interface, the error taxonomy and the Observer used for logging
// and metrics.
//
// Most users interact with the higher-level draftflow package, which
// re-exports selected types and provides engine constructors for the
// different storage backends. The api package is intended for custom
// integrations or contributors extending the engine itself.
//
// # Sessions and Drafts
//
// A Session is the addressable, time-boxed container for one Draft: a
// workflow graph under construction. Sessions live in a store under a
// sliding TTL; when the TTL lapses they are demoted to an archive tier
// from which they can be resumed until the archive TTL lapses as well.
// A session leaves the store in exactly two ways: a successful commit or
// an explicit discard. Every other failure leaves it alive with an
// extended TTL so callers never need to rebuild a draft from scratch.
//
// # Error taxonomy
//
// Operations reject bad input as early as possible: AddNode rejects
// unknown types, Connect rejects out-of-range output indices at the moment
// of the call rather than at commit. Rejections carry structured
// diagnostics (offending entity, requested versus valid range, a
// ready-to-retry fix, surrounding state) so a fully automated caller can
// self-correct without human intervention.
//
// # Observability
//
// The Observer interface reports session lifecycle events. Ready-made
// implementations cover structured logging (log/slog), basic in-memory
// metrics, and composition of multiple observers.
package api
