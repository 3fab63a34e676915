package tabular_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dukerupert/vor/internal/standardize"
	"github.com/dukerupert/vor/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MapsRecognizedColumnsCaseInsensitively(t *testing.T) {
	in := strings.NewReader(
		"member_id,Address1,ADDRESS2,City,state,ZIP\n" +
			"m-1,123 main st,apt 4,Springfield,IL,62701\n",
	)

	table, err := tabular.Load(in)
	require.NoError(t, err)

	assert.True(t, table.Schema.HasCity)
	assert.True(t, table.Schema.HasState)
	assert.True(t, table.Schema.HasZip)
	assert.False(t, table.Schema.HasZip4)

	require.Len(t, table.Records, 1)
	rec := table.Records[0]
	assert.Equal(t, "123 main st", rec.Address1)
	assert.Equal(t, "apt 4", rec.Address2)
	assert.Equal(t, "Springfield", rec.City)
	assert.Equal(t, "IL", rec.State)
	assert.Equal(t, "62701", rec.Zip)
	assert.Equal(t, "m-1", rec.Extra["member_id"])
}

func TestLoad_MissingAddressColumnsYieldEmptyFields(t *testing.T) {
	in := strings.NewReader("name,city\nAda,Boston\n")

	table, err := tabular.Load(in)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	assert.Equal(t, "", table.Records[0].Address1)
	assert.Equal(t, "", table.Records[0].Address2)
	assert.Equal(t, "Boston", table.Records[0].City)
}

func TestLoad_EmptyInput(t *testing.T) {
	table, err := tabular.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Records)
}

func TestWrite_AppendsMissingAddressAndAuditColumns(t *testing.T) {
	in := strings.NewReader("member_id,city\nm-1,Springfield\n")
	table, err := tabular.Load(in)
	require.NoError(t, err)

	table.Schema.Audit = true
	table.Records[0].Address1 = "123 MAIN ST"
	table.Records[0].Attempt = "address1"
	table.Records[0].Confirmation = "Y"

	var out bytes.Buffer
	require.NoError(t, tabular.Write(&out, table))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "member_id,city,address1,address2,attempt,confirmation,note", lines[0])
	assert.Equal(t, "m-1,Springfield,123 MAIN ST,,address1,Y,", lines[1])
}

func TestWrite_PreservesInputColumnOrderAndPassthrough(t *testing.T) {
	in := strings.NewReader(
		"member_id,address1,address2,city,state,zip\n" +
			"m-1,123 main st,,Springfield,IL,62701\n" +
			"m-2,456 oak ave,suite 9,Portland,OR,97201\n",
	)
	table, err := tabular.Load(in)
	require.NoError(t, err)

	table.Records[0].Address1 = "123 MAIN ST"

	var out bytes.Buffer
	require.NoError(t, tabular.Write(&out, table))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "member_id,address1,address2,city,state,zip", lines[0])
	assert.Equal(t, "m-1,123 MAIN ST,,Springfield,IL,62701", lines[1])
	assert.Equal(t, "m-2,456 oak ave,suite 9,Portland,OR,97201", lines[2])
}

func TestWrite_SynthesizesColumnsForInMemoryTables(t *testing.T) {
	table := &standardize.Table{
		Schema: standardize.Schema{HasCity: true, HasZip: true},
		Records: []standardize.Record{
			{Address1: "123 MAIN ST", City: "SPRINGFIELD", Zip: "62701"},
		},
	}

	var out bytes.Buffer
	require.NoError(t, tabular.Write(&out, table))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "address1,address2,city,zip", lines[0])
	assert.Equal(t, "123 MAIN ST,,SPRINGFIELD,62701", lines[1])
}
