// Package tabular reads and writes batches as CSV tables.
// Recognized address columns (matched case-insensitively) map onto
// record fields; every other column passes through untouched.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dukerupert/vor/internal/standardize"
)

// Canonical column names. Input headers are matched against these
// after lowercasing; appended output columns use these spellings.
const (
	ColAddress1 = "address1"
	ColAddress2 = "address2"
	ColCity     = "city"
	ColState    = "state"
	ColZip      = "zip"
	ColZip4     = "zip4"

	ColAttempt      = "attempt"
	ColConfirmation = "confirmation"
	ColNote         = "note"
)

// Load reads a CSV document into a table. The first row is the header.
// Schema capabilities are resolved here, once, from the header.
// An empty input produces an empty table.
func Load(r io.Reader) (*standardize.Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &standardize.Table{}, nil
		}
		return nil, fmt.Errorf("tabular: failed to read header: %w", err)
	}

	table := &standardize.Table{Columns: header}

	// Column index per field; -1 means absent.
	idx := map[string]int{
		ColAddress1: -1, ColAddress2: -1,
		ColCity: -1, ColState: -1, ColZip: -1, ColZip4: -1,
		ColAttempt: -1, ColConfirmation: -1, ColNote: -1,
	}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, recognized := idx[key]; recognized {
			idx[key] = i
		}
	}

	table.Schema = standardize.Schema{
		HasCity:  idx[ColCity] >= 0,
		HasState: idx[ColState] >= 0,
		HasZip:   idx[ColZip] >= 0,
		HasZip4:  idx[ColZip4] >= 0,
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tabular: failed to read row %d: %w", line, err)
		}
		line++

		at := func(col string) string {
			if i := idx[col]; i >= 0 && i < len(row) {
				return row[i]
			}
			return ""
		}

		rec := standardize.Record{
			Address1: at(ColAddress1),
			Address2: at(ColAddress2),
			City:     at(ColCity),
			State:    at(ColState),
			Zip:      at(ColZip),
			Zip4:     at(ColZip4),
		}

		for i, name := range header {
			if isRecognized(name) {
				continue
			}
			if i >= len(row) {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = row[i]
		}

		table.Records = append(table.Records, rec)
	}

	return table, nil
}

// Write emits the table as CSV. The original column order is kept;
// address1/address2 are appended when the input lacked them, and audit
// columns are appended when the schema carries them. Every row is
// written with the same, uniform column set.
func Write(w io.Writer, table *standardize.Table) error {
	columns := outputColumns(table)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("tabular: failed to write header: %w", err)
	}

	row := make([]string, len(columns))
	for i := range table.Records {
		rec := &table.Records[i]
		for j, name := range columns {
			row[j] = fieldValue(rec, name)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("tabular: failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// outputColumns determines the uniform output header.
func outputColumns(table *standardize.Table) []string {
	columns := make([]string, len(table.Columns))
	copy(columns, table.Columns)

	if len(columns) == 0 {
		// Tables built in memory: synthesize the canonical order.
		columns = []string{ColAddress1, ColAddress2}
		if table.Schema.HasCity {
			columns = append(columns, ColCity)
		}
		if table.Schema.HasState {
			columns = append(columns, ColState)
		}
		if table.Schema.HasZip {
			columns = append(columns, ColZip)
		}
		if table.Schema.HasZip4 {
			columns = append(columns, ColZip4)
		}
	}

	ensure := func(col string) {
		for _, name := range columns {
			if strings.EqualFold(strings.TrimSpace(name), col) {
				return
			}
		}
		columns = append(columns, col)
	}

	ensure(ColAddress1)
	ensure(ColAddress2)

	if table.Schema.Audit {
		ensure(ColAttempt)
		ensure(ColConfirmation)
		ensure(ColNote)
	}

	return columns
}

// fieldValue resolves one output cell.
func fieldValue(rec *standardize.Record, column string) string {
	switch strings.ToLower(strings.TrimSpace(column)) {
	case ColAddress1:
		return rec.Address1
	case ColAddress2:
		return rec.Address2
	case ColCity:
		return rec.City
	case ColState:
		return rec.State
	case ColZip:
		return rec.Zip
	case ColZip4:
		return rec.Zip4
	case ColAttempt:
		return rec.Attempt
	case ColConfirmation:
		return rec.Confirmation
	case ColNote:
		return rec.Note
	default:
		return rec.Extra[column]
	}
}

func isRecognized(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ColAddress1, ColAddress2, ColCity, ColState, ColZip, ColZip4,
		ColAttempt, ColConfirmation, ColNote:
		return true
	}
	return false
}
