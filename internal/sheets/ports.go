package sheets

import (
	"context"

	"meudinheiro/internal/core"
)

// Mirror is a human-readable copy of each owner's ledger. The snapshot
// store stays authoritative; a mirror is rewritten, never read back.
type Mirror interface {
	// WriteLedger replaces the owner's rows with the snapshot's
	// transactions and returns a reference to the written range.
	WriteLedger(ctx context.Context, ownerID string, s core.Snapshot) (ref string, err error)
}
