package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/data/page"
	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/data/store/memory"
	"backoffice/domain"
	"backoffice/errors"
)

type widget struct {
	domain.Entity
	Name   string   `json:"name"`
	Status string   `json:"status,omitempty"`
	Price  float64  `json:"price"`
	Tags   []string `json:"tags,omitempty"`
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newRepo(t *testing.T) *Repository[widget] {
	t.Helper()
	seq := 0
	coll := memory.NewCollection("widgets").WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("w%d", seq)
	})
	clock := &fixedClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	return New[widget](coll, WithClock(clock.now))
}

func TestCreate(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	w, err := r.Create(ctx, &widget{Name: "gear", Price: 9.5, Tags: []string{"metal"}})
	require.NoError(t, err)

	assert.Equal(t, "w1", w.ID)
	assert.False(t, w.CreatedAt.IsZero())
	assert.Equal(t, w.CreatedAt, w.UpdatedAt)
	assert.Nil(t, w.DeletedAt)
	assert.Equal(t, []string{"metal"}, w.Tags)
}

func TestCreateIgnoresDeletedAt(t *testing.T) {
	r := newRepo(t)
	now := time.Now()
	w, err := r.Create(context.Background(), &widget{Entity: domain.Entity{DeletedAt: &now}, Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, StateLive, StateOf(w))
}

func TestFindAllNewestFirstAndExcludesDeleted(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := r.Create(ctx, &widget{Name: name})
		require.NoError(t, err)
	}
	_, err := r.SoftDelete(ctx, "w2")
	require.NoError(t, err)

	items, err := r.FindAll(ctx, query.Filter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].Name)
	assert.Equal(t, "a", items[1].Name)

	all, err := r.FindAll(ctx, query.Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFindAllFilters(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed := []widget{
		{Name: "Blue Gear", Status: "active", Price: 5},
		{Name: "red gear", Status: "paused", Price: 15},
		{Name: "Bolt", Status: "active", Price: 25},
	}
	for i := range seed {
		_, err := r.Create(ctx, &seed[i])
		require.NoError(t, err)
	}

	f := &query.Filter{}
	f.Contains("name", "GEAR")
	items, err := r.FindAll(ctx, *f)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	lo, hi := 10.0, 30.0
	f = &query.Filter{}
	f.Equals("status", "active").Range("price", &lo, &hi)
	items, err = r.FindAll(ctx, *f)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bolt", items[0].Name)

	n, err := r.Count(ctx, query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestFindAllPaginated(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := r.Create(ctx, &widget{Name: fmt.Sprintf("n%02d", i)})
		require.NoError(t, err)
	}

	resp, err := r.FindAllPaginated(ctx, query.Filter{}, page.Request{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, int64(25), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.False(t, resp.HasNext)
	assert.True(t, resp.HasPrev)
	assert.Equal(t, "n04", resp.Data[0].Name)

	resp, err = r.FindAllPaginated(ctx, query.Filter{}, page.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.Limit)
	assert.Len(t, resp.Data, 10)

	_, err = r.FindAllPaginated(ctx, query.Filter{}, page.Request{Page: 1, Limit: 500})
	assert.True(t, errors.IsValidation(err))
}

func TestFindByID(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_, err := r.Create(ctx, &widget{Name: "a"})
	require.NoError(t, err)

	w, err := r.FindByID(ctx, "w1", false)
	require.NoError(t, err)
	assert.Equal(t, "a", w.Name)

	_, err = r.FindByID(ctx, "missing", false)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdate(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	created, err := r.Create(ctx, &widget{Name: "a", Status: "active"})
	require.NoError(t, err)

	updated, err := r.Update(ctx, "w1", store.Document{
		"name":      "b",
		"id":        "hijack",
		"createdAt": time.Unix(0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "w1", updated.ID)
	assert.Equal(t, "b", updated.Name)
	assert.Equal(t, "active", updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = r.Update(ctx, "missing", store.Document{"name": "c"})
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateReachesDeletedRecords(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_, err := r.Create(ctx, &widget{Name: "a"})
	require.NoError(t, err)
	_, err = r.SoftDelete(ctx, "w1")
	require.NoError(t, err)

	updated, err := r.Update(ctx, "w1", store.Document{"name": "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Name)
	assert.Equal(t, StateDeleted, StateOf(updated))
}
