// Package api exposes the workflow operations the CLI drives: creating and
// resuming sessions, staging interactive input, and read-only queries over
// the session store. It translates internal session models into
// transport-friendly DTOs so command output (tables or --json) never couples
// to internal types.
//
// # Key Types
//
// App: facade bundling config, session store, backend client, notifier, and
// workflow manager. One App serves one CLI invocation.
//
// SessionView: transport representation of a session row with progress,
// review state, and advisory fields.
//
// HealthReport: store diagnostics plus per-step handler readiness.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (session.Step, session.Mode)
// are exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
//
// Resume reconstructs state from the backend's recorded step and re-fetches
// step payloads (filler words, clip suggestions) rather than trusting
// anything cached locally.
package api
