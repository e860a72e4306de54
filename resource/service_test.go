package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/audit"
	"backoffice/data/page"
	"backoffice/data/query"
	"backoffice/data/repo"
	"backoffice/data/store"
	"backoffice/data/store/memory"
	"backoffice/errors"
	"backoffice/logging"
	"backoffice/model"
)

var actor = audit.ActorContext{UserID: "admin-1", IPAddress: "10.0.0.7", UserAgent: "curl/8"}

func newWriter(t *testing.T) (*audit.Writer, *audit.Store) {
	t.Helper()
	logs := audit.NewStore(memory.NewCollection(audit.CollectionName))
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		at = at.Add(time.Second)
		return at
	}
	return audit.NewWriter(logs, audit.WithLogger(logging.NewNoopLogger()), audit.WithClock(tick)), logs
}

func newProjects(t *testing.T) (*Service[model.Project], *audit.Store) {
	t.Helper()
	w, logs := newWriter(t)
	r := repo.New[model.Project](memory.NewCollection("projects"))
	return New(r, audit.EntityProject, w), logs
}

func entries(t *testing.T, logs *audit.Store) []*audit.Entry {
	t.Helper()
	out, err := logs.Find(context.Background(), query.Predicate{})
	require.NoError(t, err)
	return out
}

func TestCreate_AuditsWithActor(t *testing.T) {
	svc, logs := newProjects(t)
	p, err := svc.Create(context.Background(), actor, &model.Project{Name: "Site", Client: "ACME"})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectActive, p.Status)

	got := entries(t, logs)
	require.Len(t, got, 1)
	assert.Equal(t, audit.ActionCreate, got[0].Action)
	assert.Equal(t, audit.EntityProject, got[0].EntityType)
	assert.Equal(t, p.ID, got[0].EntityID)
	assert.Equal(t, "admin-1", got[0].UserID)
	assert.Nil(t, got[0].OldData)
	assert.Equal(t, "Site", got[0].NewData["name"])
}

func TestCreate_NoActorNoAudit(t *testing.T) {
	svc, logs := newProjects(t)
	_, err := svc.Create(context.Background(), audit.ActorContext{}, &model.Project{Name: "Site", Client: "ACME"})
	require.NoError(t, err)
	assert.Empty(t, entries(t, logs))
}

func TestCreate_ValidationFails(t *testing.T) {
	svc, logs := newProjects(t)
	_, err := svc.Create(context.Background(), actor, &model.Project{Client: "ACME"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, entries(t, logs))
}

func TestUpdate_DiffOnlyChangedFields(t *testing.T) {
	svc, logs := newProjects(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, actor, &model.Project{Name: "old", Client: "ACME"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, p.ID, store.Document{"name": "new", "id": "hijack"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, model.ProjectActive, updated.Status)

	got := entries(t, logs)
	require.Len(t, got, 2)
	upd := got[0]
	assert.Equal(t, audit.ActionUpdate, upd.Action)
	assert.Contains(t, upd.Changes, "name")
	assert.NotContains(t, upd.Changes, "status")
	assert.Equal(t, "old", upd.OldData["name"])
	assert.Equal(t, "new", upd.NewData["name"])
}

func TestUpdate_RejectsInvalidResult(t *testing.T) {
	svc, _ := newProjects(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, actor, &model.Project{Name: "x", Client: "ACME"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, actor, p.ID, store.Document{"status": "archived"})
	assert.True(t, errors.IsValidation(err))

	_, err = svc.Update(ctx, actor, p.ID, store.Document{"name": 42})
	assert.True(t, errors.IsValidation(err))

	current, err := svc.FindByID(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "x", current.Name)
	assert.Equal(t, model.ProjectActive, current.Status)
}

func TestUpdate_NullClearsOptionalField(t *testing.T) {
	svc, _ := newProjects(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, actor, &model.Project{Name: "x", Client: "ACME", Description: "draft"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, p.ID, store.Document{"description": nil})
	require.NoError(t, err)
	assert.Empty(t, updated.Description)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, logs := newProjects(t)
	_, err := svc.Update(context.Background(), actor, "missing", store.Document{"name": "n"})
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, entries(t, logs))
}

func TestSoftDeleteRestoreHardDelete(t *testing.T) {
	svc, logs := newProjects(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, actor, &model.Project{Name: "x", Client: "ACME"})
	require.NoError(t, err)

	deleted, err := svc.SoftDelete(ctx, actor, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, deleted.DeletedAt)

	_, err = svc.FindByID(ctx, p.ID, false)
	assert.True(t, errors.IsNotFound(err))
	found, err := svc.FindByID(ctx, p.ID, true)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted())

	restored, err := svc.Restore(ctx, actor, p.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	// 对有效记录恢复不产生审计
	_, err = svc.Restore(ctx, actor, p.ID)
	require.NoError(t, err)

	require.NoError(t, svc.HardDelete(ctx, actor, p.ID))
	err = svc.HardDelete(ctx, actor, p.ID)
	assert.True(t, errors.IsNotFound(err))

	got := entries(t, logs)
	actions := make([]audit.Action, 0, len(got))
	for i := len(got) - 1; i >= 0; i-- {
		actions = append(actions, got[i].Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionDelete, audit.ActionUpdate, audit.ActionDelete}, actions)

	restoreEntry := got[1]
	assert.Equal(t, []string{"deletedAt"}, restoreEntry.Changes)
	assert.NotNil(t, got[0].OldData)
	assert.Nil(t, got[0].NewData)
}

func TestFindAllPaginated(t *testing.T) {
	svc, _ := newProjects(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, audit.ActorContext{}, &model.Project{Name: "p", Client: "ACME"})
		require.NoError(t, err)
	}
	resp, err := svc.FindAllPaginated(ctx, query.Filter{}, page.Request{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, int64(12), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
}

func TestUserSnapshotRedactsPassword(t *testing.T) {
	w, logs := newWriter(t)
	svc := New(repo.New[model.User](memory.NewCollection("users")), audit.EntityUser, w)

	_, err := svc.Create(context.Background(), actor, &model.User{Email: "a@b.io", PasswordHash: "$2a$hash"})
	require.NoError(t, err)

	got := entries(t, logs)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0].NewData, model.FieldPasswordHash)
	assert.Equal(t, "a@b.io", got[0].NewData["email"])
}
