package formurl

import (
	"net/url"
	"strings"
	"testing"

	"domsync/internal/dateparse"
	"domsync/internal/errors"
	"domsync/internal/extract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() Input {
	return Input{
		AccountID:    " 123456789 ",
		Brand:        "Koodo",
		Product:      "Postpaid",
		LOB:          "Wireless",
		CustomerType: "Consumer",
		Language:     "EN",
	}
}

func fullRecord() extract.Record {
	return extract.Record{
		LeadNumber:     "AB12",
		FirstName:      "Jane",
		LastName:       "Doe",
		PrimaryPhone:   "6045550199",
		PreferredPhone: "6045550100",
		Verbatim:       "Bill too high & wrong",
		ReceivedDate:   &dateparse.Parts{Year: 2026, Month: 2, Day: 5, Hour: 13, Minute: 2},
	}
}

func keys(p Payload) []string {
	out := make([]string, len(p))
	for i, param := range p {
		out[i] = param.Key
	}
	return out
}

func TestBuildOrder(t *testing.T) {
	p := Build(fullRecord(), validInput())

	assert.Equal(t, []string{
		"entry.1882987299_year",
		"entry.1882987299_month",
		"entry.1882987299_day",
		"entry.1882987299_hour",
		"entry.1882987299_minute",
		FieldLOB,
		FieldBrand,
		FieldCustomerType,
		FieldProduct,
		FieldLanguage,
		FieldAccountID,
		FieldFullName,
		FieldPrimaryPhone,
		FieldPreferredPhone,
		FieldVerbatim,
	}, keys(p))

	hour, ok := p.Get("entry.1882987299_hour")
	require.True(t, ok)
	assert.Equal(t, "13", hour)

	id, _ := p.Get(FieldAccountID)
	assert.Equal(t, "123456789", id, "account id is trimmed")
}

func TestBuildOmitsEmptyOptionals(t *testing.T) {
	p := Build(extract.Record{LeadNumber: "AB12"}, validInput())

	assert.Equal(t, []string{
		FieldLOB,
		FieldBrand,
		FieldCustomerType,
		FieldProduct,
		FieldLanguage,
		FieldAccountID,
	}, keys(p))

	for _, param := range p {
		assert.NotContains(t, param.Key, FieldReceivedDate)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	rec := fullRecord()
	in := validInput()
	assert.Equal(t, Build(rec, in).URL(), Build(rec, in).URL())
}

func TestBuildUsesLatestNote(t *testing.T) {
	rec := fullRecord()
	in := validInput()

	in.Note = "first"
	first, _ := Build(rec, in).Get(FieldVerbatim)
	in.Note = "second"
	second, _ := Build(rec, in).Get(FieldVerbatim)

	assert.Equal(t, "[NOTE FOR AGENT: first] Bill too high & wrong", first)
	assert.Equal(t, "[NOTE FOR AGENT: second] Bill too high & wrong", second)
}

func TestNoteVerbatim(t *testing.T) {
	assert.Equal(t, "text", NoteVerbatim("", "text"))
	assert.Equal(t, "text", NoteVerbatim("   ", "text"))
	assert.Equal(t, "[NOTE FOR AGENT: call back] text", NoteVerbatim(" call back ", "text"))
	assert.Equal(t, "[NOTE FOR AGENT: call back] ", NoteVerbatim("call back", ""))
	assert.Equal(t, "", NoteVerbatim("", ""))
}

func TestURLEncoding(t *testing.T) {
	in := validInput()
	in.Brand = "Public Mobile"
	in.Product = "Discovery+"

	raw, err := URL(fullRecord(), in)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, Endpoint+"?"))

	query := strings.TrimPrefix(raw, Endpoint+"?")
	assert.Contains(t, query, FieldBrand+"=Public+Mobile")
	assert.Contains(t, query, FieldProduct+"=Discovery%2B")
	assert.Contains(t, query, FieldVerbatim+"=Bill+too+high+%26+wrong")

	parsed, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, "Discovery+", parsed.Get(FieldProduct))
	assert.Equal(t, "Jane Doe", parsed.Get(FieldFullName))
}

func TestURLRejectsInvalidInput(t *testing.T) {
	_, err := URL(fullRecord(), Input{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Input)
		missing []string
	}{
		{name: "valid", mutate: func(*Input) {}},
		{name: "blank account id", mutate: func(in *Input) { in.AccountID = "   " }, missing: []string{"BAN/CID"}},
		{name: "account id too long", mutate: func(in *Input) { in.AccountID = "1234567890" }, missing: []string{"BAN/CID"}},
		{name: "unknown brand", mutate: func(in *Input) { in.Brand = "Other" }, missing: []string{"brand"}},
		{name: "no product", mutate: func(in *Input) { in.Product = "" }, missing: []string{"product"}},
		{name: "no LOB", mutate: func(in *Input) { in.LOB = "" }, missing: []string{"LOB"}},
		{name: "no customer type", mutate: func(in *Input) { in.CustomerType = "" }, missing: []string{"customer type"}},
		{name: "bad language", mutate: func(in *Input) { in.Language = "DE" }, missing: []string{"language"}},
		{
			name:    "everything missing",
			mutate:  func(in *Input) { *in = Input{} },
			missing: []string{"BAN/CID", "brand", "product", "LOB", "customer type", "language"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := in.Validate()
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var verr *errors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.missing, verr.Fields)
		})
	}
}
