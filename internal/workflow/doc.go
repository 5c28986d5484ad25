// Package workflow coordinates session progress through the wizard's steps.
//
// The Manager owns transitions, persistence, heartbeats, and failure
// classification; concrete step work lives in the steps package behind the
// step.Handler contract. Automatic steps (upload, processing) advance on
// their own; interactive steps (defiller, broll_config) wait for staged user
// input and run on demand. Recoverable failures flag the session for review
// on its current step; only unrecoverable ones mark the workflow failed.
//
// Add new lifecycle steps by extending StepSet, updating the session step
// enums, and teaching the manager how to transition sessions; this package is
// the authoritative home for that coordination logic.
package workflow
