package step

import (
	"reelflow/internal/backend"
	"reelflow/internal/services"
	"reelflow/internal/session"
)

// AnalysisOptions decodes the options chosen at the config step. On failure it
// returns a services.ErrValidation suitable for step Execute methods.
func AnalysisOptions(item *session.Item) (backend.AnalysisOptions, error) {
	opts, err := item.Options()
	if err != nil {
		return backend.AnalysisOptions{}, services.Wrap(
			services.ErrValidation, string(item.Step), "decode analysis options",
			"Analysis options missing or invalid; rerun configuration", err)
	}
	return opts, nil
}

// RequireSessionID returns the backend session id or a validation error when
// the item has not completed session creation yet.
func RequireSessionID(item *session.Item) (string, error) {
	if item.SessionID == "" {
		return "", services.Wrap(
			services.ErrValidation, string(item.Step), "require session",
			"No backend session recorded; rerun upload", nil)
	}
	return item.SessionID, nil
}
