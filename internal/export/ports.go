package export

import (
	"context"

	"tenpo/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionAppender appends one confirmed ledger row to the
	// reconciliation destination and returns a reference to where it landed.
	TransactionAppender interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
