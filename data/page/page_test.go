package page

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/data/store/memory"
	"backoffice/errors"
)

func seedCollection(t *testing.T, n int) *memory.Collection {
	t.Helper()
	c := memory.NewCollection("items")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := c.Insert(context.Background(), store.Document{
			"id":        fmt.Sprintf("item-%02d", i),
			"createdAt": base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	return c
}

func decodeID(doc store.Document) (string, error) {
	return doc["id"].(string), nil
}

func TestRequestDefaultsAndValidate(t *testing.T) {
	req := Request{}.WithDefaults()
	assert.Equal(t, Request{Page: 1, Limit: 10}, req)
	assert.NoError(t, req.Validate())

	for _, bad := range []Request{{Page: 0, Limit: 10}, {Page: 1, Limit: 0}, {Page: 1, Limit: 101}, {Page: -1, Limit: 5}} {
		err := bad.Validate()
		assert.True(t, errors.IsValidation(err), "%+v", bad)
	}
	assert.NoError(t, Request{Page: 1, Limit: 100}.Validate())
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse(make([]int, 5), 25, Request{Page: 3, Limit: 10})

	assert.Equal(t, 3, resp.TotalPages)
	assert.False(t, resp.HasNext)
	assert.True(t, resp.HasPrev)

	empty := NewResponse[int](nil, 0, Request{Page: 1, Limit: 10})
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
	assert.NotNil(t, empty.Data)
}

func TestPaginate_ThirdPageOfTwentyFive(t *testing.T) {
	c := seedCollection(t, 25)

	resp, err := Paginate(context.Background(), c, query.Predicate{}, Request{Page: 3, Limit: 10},
		[]query.Sort{query.NewestFirst}, decodeID)
	require.NoError(t, err)

	assert.Equal(t, int64(25), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.False(t, resp.HasNext)
	assert.True(t, resp.HasPrev)
	// 倒序：第三页是最早创建的 5 条
	assert.Equal(t, []string{"item-04", "item-03", "item-02", "item-01", "item-00"}, resp.Data)
}

// TestPaginate_DataLength 覆盖 len(data) == min(limit, max(0, total-(page-1)*limit))
func TestPaginate_DataLength(t *testing.T) {
	c := seedCollection(t, 23)
	total := 23

	for _, limit := range []int{1, 7, 10, 23, 100} {
		for pg := 1; pg <= 5; pg++ {
			resp, err := Paginate(context.Background(), c, query.Predicate{}, Request{Page: pg, Limit: limit},
				[]query.Sort{query.NewestFirst}, decodeID)
			require.NoError(t, err)

			want := total - (pg-1)*limit
			if want < 0 {
				want = 0
			}
			if want > limit {
				want = limit
			}
			assert.Len(t, resp.Data, want, "page=%d limit=%d", pg, limit)
			assert.Equal(t, pg, resp.Page)
			assert.Equal(t, limit, resp.Limit)
			assert.Equal(t, pg < resp.TotalPages, resp.HasNext)
			assert.Equal(t, pg > 1, resp.HasPrev)
		}
	}
}

func TestPaginate_TotalIsFilteredCount(t *testing.T) {
	c := seedCollection(t, 12)
	pred := query.Where(query.Condition{Field: "id", Op: query.OpContains, Value: "item-0"})

	resp, err := Paginate(context.Background(), c, pred, Request{Page: 1, Limit: 3}, nil, decodeID)
	require.NoError(t, err)

	assert.Equal(t, int64(10), resp.Total)
	assert.Len(t, resp.Data, 3)
	assert.Equal(t, 4, resp.TotalPages)
}

func TestPaginate_StoreFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Paginate(ctx, seedCollection(t, 1), query.Predicate{}, Request{Page: 1, Limit: 10}, nil, decodeID)
	assert.Error(t, err)
}

func TestMap(t *testing.T) {
	resp := NewResponse([]int{1, 2}, 12, Request{Page: 2, Limit: 2})
	mapped := Map(resp, func(i int) string { return fmt.Sprint(i * 10) })

	assert.Equal(t, []string{"10", "20"}, mapped.Data)
	assert.Equal(t, resp.TotalPages, mapped.TotalPages)
	assert.True(t, mapped.HasNext)
}
