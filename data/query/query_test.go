package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestTranslate_EmptyFilterMatchesLiveOnly(t *testing.T) {
	p := Translate(Filter{})

	require.Len(t, p.Conditions, 1)
	assert.Equal(t, NotExists("deletedAt"), p.Conditions[0])

	assert.True(t, Match(p, map[string]any{"id": "1"}))
	assert.False(t, Match(p, map[string]any{"id": "2", "deletedAt": time.Now()}))
	// 显式的 null 与缺失等价
	assert.True(t, Match(p, map[string]any{"id": "3", "deletedAt": nil}))
}

func TestTranslate_IncludeDeletedAddsNoConstraint(t *testing.T) {
	var f Filter
	f.WithDeleted(true)

	p := Translate(f)
	assert.True(t, p.IsEmpty())
	assert.True(t, Match(p, map[string]any{"deletedAt": time.Now()}))
}

func TestTranslate_ClauseKinds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var f Filter
	f.Contains("description", "Design").
		Equals("currency", "USD").
		Equals("status", "").
		Range("amount", ptr(10.0), ptr(100.0)).
		DateRange("date", &start, nil).
		AnyOf("tags", []string{"a", " ", "b"})

	p := Translate(f)

	assert.Equal(t, []Condition{
		{Field: "description", Op: OpContains, Value: "Design"},
		{Field: "currency", Op: OpEq, Value: "USD"},
		{Field: "amount", Op: OpGte, Value: 10.0},
		{Field: "amount", Op: OpLte, Value: 100.0},
		{Field: "date", Op: OpGte, Value: start},
		{Field: "tags", Op: OpIn, Value: []any{"a", "b"}},
		NotExists("deletedAt"),
	}, p.Conditions)
}

func TestFilter_UnsafeFieldIgnored(t *testing.T) {
	var f Filter
	f.Contains("title') OR 1=1 --", "x").Equals("1abc", "y")
	assert.Empty(t, f.Clauses)
}

func TestMatch(t *testing.T) {
	doc := map[string]any{
		"title":  "Quarterly Report",
		"amount": 50,
		"tags":   []any{"finance", "q1"},
		"date":   "2024-03-15T10:00:00Z",
		"active": true,
	}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"子串不区分大小写", Condition{Field: "title", Op: OpContains, Value: "report"}, true},
		{"子串不匹配", Condition{Field: "title", Op: OpContains, Value: "annual"}, false},
		{"数值下界", Condition{Field: "amount", Op: OpGte, Value: 50.0}, true},
		{"数值上界", Condition{Field: "amount", Op: OpLte, Value: 49.5}, false},
		{"字符串日期与时间比较", Condition{Field: "date", Op: OpGte, Value: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, true},
		{"日期上界", Condition{Field: "date", Op: OpLte, Value: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, false},
		{"数组包含任一", Condition{Field: "tags", Op: OpIn, Value: []any{"q2", "q1"}}, true},
		{"数组不包含", Condition{Field: "tags", Op: OpIn, Value: []any{"hr"}}, false},
		{"布尔相等", Condition{Field: "active", Op: OpEq, Value: true}, true},
		{"缺失字段", Condition{Field: "missing", Op: OpEq, Value: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(Where(tc.cond), doc))
		})
	}
}

func TestMatch_InvertedRangeIsEmpty(t *testing.T) {
	var f Filter
	f.Range("amount", ptr(100.0), ptr(10.0))
	p := Translate(f)

	for _, amount := range []float64{5, 10, 50, 100, 200} {
		assert.False(t, Match(p, map[string]any{"amount": amount}))
	}
}

func TestCompare(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	assert.Equal(t, -1, Compare(older, newer))
	assert.Equal(t, 1, Compare(newer.Format(time.RFC3339Nano), older))
	assert.Equal(t, 0, Compare(int64(3), 3.0))
	assert.Equal(t, -1, Compare(nil, "a"))
	assert.Equal(t, 1, Compare("b", "a"))
}

func TestIsSafeFieldName(t *testing.T) {
	assert.True(t, IsSafeFieldName("createdAt"))
	assert.True(t, IsSafeFieldName("_id"))
	assert.False(t, IsSafeFieldName(""))
	assert.False(t, IsSafeFieldName("a.b"))
	assert.False(t, IsSafeFieldName("a-b"))
}
