package standardize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/vor/internal/address"
	"github.com/dukerupert/vor/internal/telemetry"
)

// Processor normalizes every record of a table, in order, one at a
// time. Records are independent: no cross-row state, no deduplication.
// Callers wanting deduplication must pre-aggregate.
type Processor struct {
	validator    address.Validator
	includeAudit bool
	logger       *slog.Logger
	metrics      *telemetry.Pipeline
}

// NewProcessor creates a batch processor. When includeAudit is set,
// audit columns (attempt, confirmation, note) are added to the table
// schema and populated per record.
func NewProcessor(v address.Validator, includeAudit bool, logger *slog.Logger, metrics *telemetry.Pipeline) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		validator:    v,
		includeAudit: includeAudit,
		logger:       logger,
		metrics:      metrics,
	}
}

// Summary reports how a batch resolved, per winning attempt.
type Summary struct {
	Total             int
	ValidatedAddress1 int
	ValidatedAddress2 int
	Fallback          int
	Elapsed           time.Duration
}

// Process normalizes the table in place and returns it along with a
// summary of outcomes. The schema is fixed before the first row so
// every row sees the same columns: address1/address2 always exist on
// output, and audit columns exist exactly when requested.
//
// The batch either completes with every record normalized (possibly
// via fallback) or aborts entirely on a credential failure; there is
// no partial-batch error state.
func (p *Processor) Process(ctx context.Context, table *Table) (*Table, Summary, error) {
	table.Schema.Audit = p.includeAudit

	n := NewNormalizer(p.validator, table.Schema, p.logger)

	start := time.Now()
	counts := map[string]int{}

	for i := range table.Records {
		attempt, err := n.Normalize(ctx, &table.Records[i])
		if err != nil {
			return nil, Summary{}, fmt.Errorf("record %d: %w", i, err)
		}
		counts[attempt]++
		p.metrics.RecordProcessed(attempt)
	}

	elapsed := time.Since(start)
	p.metrics.BatchProcessed(len(table.Records), elapsed)

	summary := Summary{
		Total:             len(table.Records),
		ValidatedAddress1: counts[AttemptAddress1],
		ValidatedAddress2: counts[AttemptAddress2],
		Fallback:          counts[AttemptNone],
		Elapsed:           elapsed,
	}

	p.logger.Info("batch processed",
		"records", summary.Total,
		"validated_address1", summary.ValidatedAddress1,
		"validated_address2", summary.ValidatedAddress2,
		"fallback", summary.Fallback,
		"elapsed", elapsed,
	)

	return table, summary, nil
}
