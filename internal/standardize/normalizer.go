package standardize

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/vor/internal/address"
)

// Normalizer applies validated addresses onto records, falling back to
// uppercasing when neither attempt is usable. One instance serves a
// whole batch; it is stateless across records.
type Normalizer struct {
	validator address.Validator
	schema    Schema
	logger    *slog.Logger
}

// NewNormalizer creates a normalizer for one batch schema.
func NewNormalizer(v address.Validator, schema Schema, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		validator: v,
		schema:    schema,
		logger:    logger,
	}
}

// Normalize mutates rec in place and returns the winning attempt
// label. The state machine is terminal after the first usable branch:
//
//  1. validate address1 as street with address2 as secondary;
//  2. if unusable, validate address2 as street with no secondary;
//  3. if still unusable, uppercase the original address lines.
//
// Only a token exchange failure propagates; misses fall through.
func (n *Normalizer) Normalize(ctx context.Context, rec *Record) (string, error) {
	primary, err := n.validator.Validate(ctx, address.Query{
		Street:    rec.Address1,
		Secondary: rec.Address2,
		City:      rec.City,
		State:     rec.State,
		Zip5:      rec.Zip,
		Zip4:      rec.Zip4,
	})
	if err != nil {
		return "", err
	}
	if address.Deliverable(primary) {
		n.apply(rec, primary, AttemptAddress1)
		return AttemptAddress1, nil
	}

	secondary, err := n.validator.Validate(ctx, address.Query{
		Street: rec.Address2,
		City:   rec.City,
		State:  rec.State,
		Zip5:   rec.Zip,
		Zip4:   rec.Zip4,
	})
	if err != nil {
		return "", err
	}
	if address.Deliverable(secondary) {
		n.apply(rec, secondary, AttemptAddress2)
		return AttemptAddress2, nil
	}

	n.fallback(rec, primary, secondary)
	return AttemptNone, nil
}

// apply overwrites the record's address fields from a deliverable
// candidate. Address lines take the standardized values verbatim
// (possibly empty); city, state and zip keep the record's original
// value when the provider omits them. Zip4 is written only when the
// batch schema carries the column.
func (n *Normalizer) apply(rec *Record, c *address.Candidate, attempt string) {
	rec.Address1 = c.Street
	rec.Address2 = c.Secondary
	rec.City = firstNonBlank(c.City, rec.City)
	rec.State = firstNonBlank(c.State, rec.State)
	rec.Zip = firstNonBlank(c.Zip5, rec.Zip)
	if n.schema.HasZip4 {
		rec.Zip4 = c.Zip4
	}

	if n.schema.Audit {
		rec.Attempt = attempt
		rec.Confirmation = c.Confirmation
		rec.Note = ""
	}
}

// fallback uppercases the original address lines. City, state and zip
// stay untouched. Uppercasing is idempotent, so reprocessing an
// already-fallen-back record is a no-op.
func (n *Normalizer) fallback(rec *Record, primary, secondary *address.Candidate) {
	rec.Address1 = strings.ToUpper(rec.Address1)
	rec.Address2 = strings.ToUpper(rec.Address2)

	if n.schema.Audit {
		rec.Attempt = AttemptNone
		rec.Confirmation = firstNonBlank(confirmationOf(secondary), confirmationOf(primary))
		rec.Note = FallbackNote
	}
}

func confirmationOf(c *address.Candidate) string {
	if c == nil {
		return ""
	}
	return c.Confirmation
}
