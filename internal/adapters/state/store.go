// Package state provides the checkpoint stores: in-memory for tests, a
// JSON directory for zero-setup installs, and SQLite for durable
// multi-project deployments. All three persist execution contexts and
// approval gates without interpreting context fields beyond the status
// used for listing.
package state

import (
	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// Store combines context checkpointing with gate persistence. Every
// backend implements both so a project and its gates share one lifetime.
type Store interface {
	core.StateStore
	core.GateStore
}
