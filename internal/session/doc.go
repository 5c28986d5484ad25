// Package session persists workflow sessions in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stale-session recovery, and the step
// transitions that mirror the wizard's state machine. A row records only what
// resume needs (backend session/project ids, step, entry mode, chosen
// options) plus progress and review flags; step payloads such as filler words
// and clip suggestions are always re-fetched from the backend by id, never
// cached locally across runs.
//
// Treat this package as the single source of truth for step semantics; when
// you add steps or columns, update schema.sql and bump schemaVersion.
package session
