package step

import (
	"context"

	"reelflow/internal/session"
)

// Handler describes the contract the workflow manager needs from each step.
type Handler interface {
	Prepare(context.Context, *session.Item) error
	Execute(context.Context, *session.Item) error
	HealthCheck(context.Context) Health
}
