// Package storetest 提供各集合后端共用的行为测试
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/errors"
)

// Factory 为每个子测试创建一个空集合
type Factory func(t *testing.T) store.ICollection

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, ctx context.Context, c store.ICollection) []store.Document {
	t.Helper()
	fixtures := []store.Document{
		{"title": "Alpha report", "amount": 10.0, "tags": []any{"finance"}, "createdAt": base},
		{"title": "beta notes", "amount": 25.5, "tags": []any{"hr", "finance"}, "createdAt": base.Add(time.Hour)},
		{"title": "Gamma", "amount": 40.0, "tags": []any{}, "createdAt": base.Add(2 * time.Hour), "deletedAt": base.Add(3 * time.Hour)},
		{"title": "delta REPORT", "amount": 100.0, "tags": []any{"ops"}, "createdAt": base.Add(4 * time.Hour)},
	}
	out := make([]store.Document, 0, len(fixtures))
	for _, f := range fixtures {
		doc, err := c.Insert(ctx, f)
		require.NoError(t, err)
		require.NotEmpty(t, doc["id"])
		out = append(out, doc)
	}
	return out
}

func ids(docs []store.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i], _ = d["id"].(string)
	}
	return out
}

// Run 执行集合行为测试
func Run(t *testing.T, newCollection Factory) {
	ctx := context.Background()

	t.Run("插入与按ID查询", func(t *testing.T) {
		c := newCollection(t)
		docs := seed(t, ctx, c)

		found, err := c.FindOne(ctx, query.ByID(ids(docs)[1]))
		require.NoError(t, err)
		assert.Equal(t, "beta notes", found["title"])
		got, ok := query.ToTime(found["createdAt"])
		require.True(t, ok)
		assert.True(t, base.Add(time.Hour).Equal(got))

		_, err = c.FindOne(ctx, query.ByID("missing"))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("保留调用方提供的ID", func(t *testing.T) {
		c := newCollection(t)
		doc, err := c.Insert(ctx, store.Document{"id": "fixed-1", "title": "x", "createdAt": base})
		require.NoError(t, err)
		assert.Equal(t, "fixed-1", doc["id"])
	})

	t.Run("排序与分页窗口", func(t *testing.T) {
		c := newCollection(t)
		docs := seed(t, ctx, c)
		all := ids(docs)

		page, err := c.FindMany(ctx, query.Predicate{}, store.FindOptions{
			Skip: 1, Limit: 2, Sort: []query.Sort{query.NewestFirst},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{all[2], all[1]}, ids(page))

		beyond, err := c.FindMany(ctx, query.Predicate{}, store.FindOptions{Skip: 10, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, beyond)
	})

	t.Run("谓词求值", func(t *testing.T) {
		c := newCollection(t)
		docs := seed(t, ctx, c)
		all := ids(docs)
		live := query.NotExists("deletedAt")

		cases := []struct {
			name string
			pred query.Predicate
			want []string
		}{
			{"仅有效记录", query.Where(live), []string{all[3], all[1], all[0]}},
			{"子串不区分大小写", query.Where(live, query.Condition{Field: "title", Op: query.OpContains, Value: "report"}), []string{all[3], all[0]}},
			{"数值区间", query.Where(
				query.Condition{Field: "amount", Op: query.OpGte, Value: 20.0},
				query.Condition{Field: "amount", Op: query.OpLte, Value: 50.0},
			), []string{all[2], all[1]}},
			{"反向区间为空", query.Where(
				query.Condition{Field: "amount", Op: query.OpGte, Value: 50.0},
				query.Condition{Field: "amount", Op: query.OpLte, Value: 20.0},
			), []string{}},
			{"标签任一", query.Where(query.Condition{Field: "tags", Op: query.OpIn, Value: []any{"finance", "ops"}}), []string{all[3], all[1], all[0]}},
			{"日期下界", query.Where(query.Condition{Field: "createdAt", Op: query.OpGte, Value: base.Add(90 * time.Minute)}), []string{all[3], all[2]}},
			{"相等", query.Where(query.Eq("title", "Gamma")), []string{all[2]}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := c.FindMany(ctx, tc.pred, store.FindOptions{Sort: []query.Sort{query.NewestFirst}})
				require.NoError(t, err)
				assert.Equal(t, tc.want, ids(got))

				n, err := c.Count(ctx, tc.pred)
				require.NoError(t, err)
				assert.Equal(t, int64(len(tc.want)), n)
			})
		}
	})

	t.Run("非ASCII子串不区分大小写", func(t *testing.T) {
		c := newCollection(t)
		_, err := c.Insert(ctx, store.Document{"title": "ÉCOLE Ñandú", "createdAt": base})
		require.NoError(t, err)
		_, err = c.Insert(ctx, store.Document{"title": "ecole nandu", "createdAt": base.Add(time.Hour)})
		require.NoError(t, err)

		for text, want := range map[string]int64{"école": 1, "ñANDÚ": 1, "ÉCOLE ñ": 1, "ecole": 1, "cole": 2} {
			n, err := c.Count(ctx, query.Where(query.Condition{Field: "title", Op: query.OpContains, Value: text}))
			require.NoError(t, err)
			assert.Equal(t, want, n, text)
		}
	})

	t.Run("部分更新", func(t *testing.T) {
		c := newCollection(t)
		docs := seed(t, ctx, c)
		id := ids(docs)[0]

		updated, err := c.UpdateByID(ctx, id, store.Document{"title": "renamed", "amount": 11.0})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated["title"])
		assert.Equal(t, id, updated["id"])

		n, err := c.Count(ctx, query.Where(query.Eq("title", "renamed")))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = c.UpdateByID(ctx, "missing", store.Document{"title": "x"})
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("设置与移除字段", func(t *testing.T) {
		c := newCollection(t)
		docs := seed(t, ctx, c)
		id := ids(docs)[0]
		live := query.Where(query.NotExists("deletedAt"))

		doc, err := c.SetField(ctx, id, "deletedAt", base.Add(24*time.Hour))
		require.NoError(t, err)
		assert.NotNil(t, doc["deletedAt"])
		n, err := c.Count(ctx, live)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		doc, err = c.SetField(ctx, id, "deletedAt", nil)
		require.NoError(t, err)
		assert.Nil(t, doc["deletedAt"])
		n, err = c.Count(ctx, live)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		_, err = c.SetField(ctx, "missing", "deletedAt", nil)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("物理删除", func(t *testing.T) {
		c := newCollection(t)
		docs := seed(t, ctx, c)
		id := ids(docs)[0]

		ok, err := c.DeleteByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = c.DeleteByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := c.Count(ctx, query.Predicate{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
