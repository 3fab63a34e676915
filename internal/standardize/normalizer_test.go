package standardize_test

import (
	"context"
	"testing"

	"github.com/dukerupert/vor/internal/address"
	"github.com/dukerupert/vor/internal/standardize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditSchema() standardize.Schema {
	return standardize.Schema{
		HasCity:  true,
		HasState: true,
		HasZip:   true,
		Audit:    true,
	}
}

func TestNormalize_Address1Deliverable(t *testing.T) {
	mock := address.NewMockValidator()
	mock.ValidateFunc = func(ctx context.Context, q address.Query) (*address.Candidate, error) {
		return &address.Candidate{
			Street:       "123 MAIN ST",
			City:         "SPRINGFIELD",
			State:        "IL",
			Zip5:         "62701",
			Confirmation: "Y",
		}, nil
	}

	n := standardize.NewNormalizer(mock, auditSchema(), nil)

	rec := standardize.Record{
		Address1: "123 main st",
		Address2: "",
		City:     "Springfield",
		State:    "IL",
		Zip:      "62701",
	}

	attempt, err := n.Normalize(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, standardize.AttemptAddress1, attempt)
	assert.Equal(t, "123 MAIN ST", rec.Address1)
	assert.Equal(t, "", rec.Address2)
	assert.Equal(t, "SPRINGFIELD", rec.City)
	assert.Equal(t, "IL", rec.State)
	assert.Equal(t, "62701", rec.Zip)
	assert.Equal(t, "address1", rec.Attempt)
	assert.Equal(t, "Y", rec.Confirmation)
	assert.Equal(t, "", rec.Note)

	// Only the first attempt should have gone out.
	require.Len(t, mock.Queries, 1)
	assert.Equal(t, "123 main st", mock.Queries[0].Street)
	assert.Equal(t, "", mock.Queries[0].Secondary)
}

func TestNormalize_FallsThroughToAddress2(t *testing.T) {
	mock := address.NewMockValidator()
	mock.ValidateFunc = func(ctx context.Context, q address.Query) (*address.Candidate, error) {
		if q.Street == "PO Box 99" {
			return &address.Candidate{
				Street:       "PO BOX 99",
				City:         "PORTLAND",
				State:        "OR",
				Zip5:         "97201",
				Confirmation: "D",
			}, nil
		}
		return &address.Candidate{Confirmation: "N"}, nil
	}

	n := standardize.NewNormalizer(mock, auditSchema(), nil)

	rec := standardize.Record{
		Address1: "Attn: Accounts",
		Address2: "PO Box 99",
		City:     "Portland",
		State:    "OR",
		Zip:      "97201",
	}

	attempt, err := n.Normalize(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, standardize.AttemptAddress2, attempt)
	assert.Equal(t, "PO BOX 99", rec.Address1)
	assert.Equal(t, "", rec.Address2)
	assert.Equal(t, "address2", rec.Attempt)
	assert.Equal(t, "D", rec.Confirmation)

	// Second attempt uses address2 as the street with no secondary.
	require.Len(t, mock.Queries, 2)
	assert.Equal(t, "PO Box 99", mock.Queries[1].Street)
	assert.Equal(t, "", mock.Queries[1].Secondary)
}

func TestNormalize_FallbackUppercases(t *testing.T) {
	mock := address.NewMockValidator()
	mock.ValidateFunc = func(ctx context.Context, q address.Query) (*address.Candidate, error) {
		return &address.Candidate{Confirmation: "N"}, nil
	}

	n := standardize.NewNormalizer(mock, auditSchema(), nil)

	rec := standardize.Record{
		Address1: "123 nowhere ln",
		Address2: "apt 4",
		City:     "Springfield",
		State:    "IL",
		Zip:      "62701",
	}

	attempt, err := n.Normalize(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, standardize.AttemptNone, attempt)
	assert.Equal(t, "123 NOWHERE LN", rec.Address1)
	assert.Equal(t, "APT 4", rec.Address2)

	// City, state and zip stay untouched on fallback.
	assert.Equal(t, "Springfield", rec.City)
	assert.Equal(t, "IL", rec.State)
	assert.Equal(t, "62701", rec.Zip)

	assert.Equal(t, "none", rec.Attempt)
	assert.Equal(t, "N", rec.Confirmation)
	assert.Equal(t, standardize.FallbackNote, rec.Note)
}

func TestNormalize_FallbackIsIdempotent(t *testing.T) {
	mock := address.NewMockValidator() // every query misses

	n := standardize.NewNormalizer(mock, auditSchema(), nil)

	rec := standardize.Record{Address1: "123 nowhere ln", Address2: "apt 4"}

	_, err := n.Normalize(context.Background(), &rec)
	require.NoError(t, err)
	first := rec

	_, err = n.Normalize(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, first, rec)
}

func TestNormalize_DefaultsToOriginalsWhenProviderOmitsContext(t *testing.T) {
	mock := address.NewMockValidator()
	mock.ValidateFunc = func(ctx context.Context, q address.Query) (*address.Candidate, error) {
		// Standardized street only; no city/state/zip.
		return &address.Candidate{
			Street:       "500 OAK AVE",
			Confirmation: "Y",
		}, nil
	}

	n := standardize.NewNormalizer(mock, auditSchema(), nil)

	rec := standardize.Record{
		Address1: "500 oak ave",
		City:     "Boise",
		State:    "ID",
		Zip:      "83702",
	}

	_, err := n.Normalize(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, "500 OAK AVE", rec.Address1)
	assert.Equal(t, "Boise", rec.City)
	assert.Equal(t, "ID", rec.State)
	assert.Equal(t, "83702", rec.Zip)
}

func TestNormalize_Zip4OnlyWrittenWhenSchemaHasColumn(t *testing.T) {
	mock := address.NewMockValidator()
	mock.ValidateFunc = func(ctx context.Context, q address.Query) (*address.Candidate, error) {
		return &address.Candidate{
			Street:       "123 MAIN ST",
			Zip5:         "62701",
			Zip4:         "1234",
			Confirmation: "Y",
		}, nil
	}

	withZip4 := auditSchema()
	withZip4.HasZip4 = true

	rec := standardize.Record{Address1: "123 main st"}
	_, err := standardize.NewNormalizer(mock, withZip4, nil).Normalize(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "1234", rec.Zip4)

	rec = standardize.Record{Address1: "123 main st"}
	_, err = standardize.NewNormalizer(mock, auditSchema(), nil).Normalize(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "", rec.Zip4)
}

func TestNormalize_AuditDisabledLeavesAuditFieldsEmpty(t *testing.T) {
	mock := address.NewMockValidator()

	schema := auditSchema()
	schema.Audit = false

	n := standardize.NewNormalizer(mock, schema, nil)

	rec := standardize.Record{Address1: "123 main st"}
	_, err := n.Normalize(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, "", rec.Attempt)
	assert.Equal(t, "", rec.Confirmation)
	assert.Equal(t, "", rec.Note)
}

func TestNormalize_TokenErrorPropagates(t *testing.T) {
	mock := address.NewMockValidator()
	wantErr := assert.AnError
	mock.ValidateFunc = func(ctx context.Context, q address.Query) (*address.Candidate, error) {
		return nil, wantErr
	}

	n := standardize.NewNormalizer(mock, auditSchema(), nil)

	rec := standardize.Record{Address1: "123 main st"}
	_, err := n.Normalize(context.Background(), &rec)
	assert.ErrorIs(t, err, wantErr)
}
