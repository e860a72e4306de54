package model

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/data/query"
	"backoffice/errors"
)

func TestDefaultsAndValidate(t *testing.T) {
	p := &Project{Name: "Site", Client: "ACME"}
	p.ApplyDefaults()
	assert.Equal(t, ProjectActive, p.Status)
	assert.NoError(t, p.Validate())

	p.Status = "archived"
	assert.True(t, errors.IsValidation(p.Validate()))

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	p = &Project{Name: "x", Client: "y", StartDate: &start, EndDate: &end}
	assert.True(t, errors.IsValidation(p.Validate()))

	c := &ClientCharge{ProjectID: "p1", Amount: 10, Description: "d", Date: start}
	c.ApplyDefaults()
	assert.Equal(t, CurrencyUSD, c.Currency)
	assert.Equal(t, ChargePending, c.Status)
	assert.NoError(t, c.Validate())
	c.Amount = -1
	assert.Error(t, c.Validate())

	pay := &PartnerPayment{ProjectID: "p1", PartnerName: "Bob", Amount: 0, Description: "d", Date: start}
	pay.ApplyDefaults()
	assert.Equal(t, MethodBankTransfer, pay.PaymentMethod)
	assert.NoError(t, pay.Validate())

	partner := &Partner{Name: "P", Email: "bad"}
	partner.ApplyDefaults()
	assert.Error(t, partner.Validate())

	assert.Error(t, (&Note{Title: "t"}).Validate())
	assert.NoError(t, (&Note{Title: "t", Content: "c"}).Validate())

	u := &User{Email: "a@b.io", PasswordHash: "h"}
	u.ApplyDefaults()
	assert.Equal(t, RoleUser, u.Role)
	assert.NoError(t, u.Validate())
	assert.Equal(t, []string{FieldPasswordHash}, u.RedactedFields())
}

func TestUserInputValidate(t *testing.T) {
	assert.NoError(t, UserInput{Email: "a@b.io", Password: "secret1"}.Validate())
	assert.Error(t, UserInput{Email: "a@b.io", Password: "123"}.Validate())
	assert.Error(t, UserInput{Email: "a@b.io", Password: "secret1", Role: "root"}.Validate())
}

func TestParseClientChargeFilter(t *testing.T) {
	values := url.Values{
		"projectId":      {"p1"},
		"minAmount":      {"0"},
		"maxAmount":      {"250.5"},
		"startDate":      {"2024-01-01"},
		"currency":       {"EUR"},
		"includeDeleted": {"true"},
	}
	f, err := ParseClientChargeFilter(values)
	require.NoError(t, err)
	require.NotNil(t, f.MinAmount)
	assert.Equal(t, 0.0, *f.MinAmount, "0 是有效下界")
	assert.Equal(t, 250.5, *f.MaxAmount)
	assert.True(t, f.IncludeDeleted)

	pred := query.Translate(f.Query())
	ops := map[string][]query.Op{}
	for _, c := range pred.Conditions {
		ops[c.Field] = append(ops[c.Field], c.Op)
	}
	assert.Equal(t, []query.Op{query.OpEq}, ops["projectId"])
	assert.Equal(t, []query.Op{query.OpGte, query.OpLte}, ops["amount"])
	assert.Equal(t, []query.Op{query.OpGte}, ops["date"])
	assert.NotContains(t, ops, "deletedAt")
}

func TestParseFilterErrors(t *testing.T) {
	_, err := ParseClientChargeFilter(url.Values{"minAmount": {"lots"}})
	assert.True(t, errors.IsValidation(err))

	_, err = ParseProjectFilter(url.Values{"status": {"archived"}})
	assert.True(t, errors.IsValidation(err))

	_, err = ParseNoteFilter(url.Values{"includeDeleted": {"maybe"}})
	assert.True(t, errors.IsValidation(err))

	_, err = ParsePartnerPaymentFilter(url.Values{"startDate": {"yesterday"}})
	assert.True(t, errors.IsValidation(err))
}

func TestParseNoteFilterTags(t *testing.T) {
	f, err := ParseNoteFilter(url.Values{"tags": {"a, b", "c"}, "title": {" x "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, f.Tags)
	assert.Equal(t, "x", f.Title)

	pred := query.Translate(f.Query())
	last := pred.Conditions[len(pred.Conditions)-1]
	assert.Equal(t, query.OpNotExists, last.Op, "默认只查询有效记录")
}

func TestEmptyFiltersOnlyExcludeDeleted(t *testing.T) {
	filters := []interface{ Query() query.Filter }{
		NoteFilter{}, ProjectFilter{}, ClientChargeFilter{}, PartnerPaymentFilter{}, PartnerFilter{}, UserFilter{},
	}
	for _, f := range filters {
		pred := query.Translate(f.Query())
		require.Len(t, pred.Conditions, 1)
		assert.Equal(t, query.OpNotExists, pred.Conditions[0].Op)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-03-05T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 8, d.Hour())
}

func TestParsePage(t *testing.T) {
	req, err := ParsePage(url.Values{"page": {"3"}, "limit": {"25"}})
	require.NoError(t, err)
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 25, req.Limit)

	req, err = ParsePage(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 10, req.Limit)

	for _, bad := range []url.Values{
		{"limit": {"ten"}},
		{"page": {"0"}},
		{"limit": {"0"}},
		{"page": {"0"}, "limit": {"0"}},
		{"page": {"-2"}},
		{"limit": {"101"}},
		{"page": {""}},
	} {
		_, err = ParsePage(bad)
		assert.True(t, errors.IsValidation(err), bad.Encode())
	}
}

func TestParseLogFilter(t *testing.T) {
	f, err := ParseLogFilter(url.Values{
		"action":     {"UPDATE"},
		"entityType": {"Partner"},
		"startDate":  {"2024-01-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE", string(f.Action))
	require.NotNil(t, f.Start)
	assert.Nil(t, f.End)

	_, err = ParseLogFilter(url.Values{"action": {"PURGE"}})
	assert.True(t, errors.IsValidation(err))
	_, err = ParseLogFilter(url.Values{"endDate": {"yesterday"}})
	assert.True(t, errors.IsValidation(err))
}
