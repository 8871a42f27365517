package sheets

import (
	"context"

	"github.com/kwondongha1116/spendwallet/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordWriter exports one daily record to the backing spreadsheet.
	RecordWriter interface {
		Append(ctx context.Context, rec core.DailyRecord) (rowRef string, err error)
	}
)
