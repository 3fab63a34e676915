package address

import (
	"context"
	"strings"
)

// Validator defines the interface for address validation against an
// external provider (USPS, SmartyStreets, Lob, etc.).
// Implementations return (nil, nil) for an ordinary validation miss:
// a miss is expected business flow, not an error. Only hard failures
// (credential exchange problems) surface as errors.
type Validator interface {
	// Validate looks up a single address candidate.
	// A query without a street is never sent to the provider.
	Validate(ctx context.Context, q Query) (*Candidate, error)
}

// Query is one address lookup attempt. All fields are optional;
// blank fields are omitted from the outgoing request. A query whose
// Street is blank is not a meaningful lookup and short-circuits.
type Query struct {
	Street    string
	Secondary string
	City      string
	State     string
	Zip5      string
	Zip4      string
}

// HasStreet reports whether the query carries a non-blank primary street.
func (q Query) HasStreet() bool {
	return strings.TrimSpace(q.Street) != ""
}

// Candidate is the provider's standardized answer for one query.
// It is ephemeral: produced per call and not retained beyond one
// record's processing.
type Candidate struct {
	Street    string
	Secondary string
	City      string
	State     string
	Zip5      string
	Zip4      string

	// Confirmation is the DPV confirmation code reported by the
	// provider ("Y", "D", "S", "N", or empty when absent).
	Confirmation string

	// Raw is the unparsed response payload, kept for auditing.
	Raw []byte
}
