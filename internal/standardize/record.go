package standardize

import "strings"

// Attempt labels recorded in the audit columns. Fixed set: the winning
// validation attempt, or "none" when the uppercase fallback applied.
const (
	AttemptAddress1 = "address1"
	AttemptAddress2 = "address2"
	AttemptNone     = "none"
)

// FallbackNote is written to the audit note column when neither
// attempt produced a deliverable address.
const FallbackNote = "not validated; original address uppercased"

// Record is one mutable row of a batch. Address fields are plain
// strings (never null; possibly empty). Unrecognized input columns
// ride along in Extra untouched.
type Record struct {
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Zip4     string

	// Audit fields, populated only when the batch requests auditing.
	Attempt      string
	Confirmation string
	Note         string

	// Extra holds passthrough values keyed by their original column
	// name.
	Extra map[string]string
}

// Schema describes which optional columns a batch carries. Resolved
// once per table, before any row is processed, so every row sees the
// same capabilities: per-row "column exists" checks are not a thing.
type Schema struct {
	HasCity  bool
	HasState bool
	HasZip   bool
	HasZip4  bool

	// Audit is set by the processor when audit columns are requested.
	Audit bool
}

// Table is an ordered batch of records sharing one schema.
// The processor owns the table for the duration of processing.
type Table struct {
	Schema  Schema
	Records []Record

	// Columns preserves the input column order (original spellings)
	// for writers. Empty for tables not loaded from a file; writers
	// then synthesize a default order.
	Columns []string
}

// firstNonBlank returns the first value that is non-blank after
// trimming, or the empty string. This is the explicit ordered fallback
// for overwriting record fields: standardized value if present and
// non-blank, else the original, else empty.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
