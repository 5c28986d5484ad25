// Package steps contains the concrete workflow step handlers the manager
// orchestrates: session creation and file upload, backend analysis or AI
// generation, filler-trim application, and B-roll configuration. Handlers
// mutate the session item; the manager owns transitions and persistence of
// step outcomes.
package steps
