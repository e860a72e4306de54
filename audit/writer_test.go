package audit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/data/store/memory"
	"backoffice/logging"
	"backoffice/messaging"
	memtransport "backoffice/messaging/transport/memory"
	synctransport "backoffice/messaging/transport/sync"
	"backoffice/metrics"
)

var actor = ActorContext{UserID: "u1", IPAddress: "10.0.0.1", UserAgent: "test"}

func newTestWriter(t *testing.T, opts ...WriterOption) (*Writer, *Store) {
	t.Helper()
	s := NewStore(memory.NewCollection(CollectionName))
	opts = append([]WriterOption{WithLogger(logging.NewNoopLogger())}, opts...)
	return NewWriter(s, opts...), s
}

func countEntries(t *testing.T, s *Store) int {
	t.Helper()
	entries, err := s.Find(context.Background(), query.Predicate{})
	require.NoError(t, err)
	return len(entries)
}

func TestWriter_Write(t *testing.T) {
	w, s := newTestWriter(t)
	ctx := context.Background()

	entry, err := w.Write(ctx, Record{
		Actor:      actor,
		Action:     ActionCreate,
		EntityType: EntityNote,
		EntityID:   "n1",
		NewData:    Snapshot{"title": "hello"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	stored, err := s.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, ActionCreate, stored.Action)
	assert.Equal(t, "hello", stored.NewData["title"])
	assert.Nil(t, stored.OldData)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
}

func TestWriter_WriteWithoutActor(t *testing.T) {
	w, s := newTestWriter(t)
	_, err := w.Write(context.Background(), Record{Action: ActionCreate, EntityType: EntityNote, EntityID: "n1"})
	assert.ErrorIs(t, err, ErrNoActor)
	assert.Equal(t, 0, countEntries(t, s))
}

func TestWriter_DispatchSync(t *testing.T) {
	tpt := synctransport.NewTransport()
	require.NoError(t, tpt.Start(context.Background()))
	defer tpt.Close()

	m := metrics.New()
	w, s := newTestWriter(t, WithPublisher(tpt), WithMetrics(m))
	require.NoError(t, w.Subscribe(tpt))

	w.Dispatch(context.Background(), Record{
		Actor:      actor,
		Action:     ActionUpdate,
		EntityType: EntityProject,
		EntityID:   "p1",
		OldData:    Snapshot{"name": "old", "status": "active"},
		NewData:    Snapshot{"name": "new", "status": "active"},
		Changes:    []string{"name"},
	})

	entries, err := s.Find(context.Background(), query.Predicate{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"name"}, entries[0].Changes)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWrittenTotal.WithLabelValues("Project", "UPDATE")))
}

func TestWriter_DispatchWithoutActorSkips(t *testing.T) {
	m := metrics.New()
	w, s := newTestWriter(t, WithMetrics(m))
	w.Dispatch(context.Background(), Record{Action: ActionCreate, EntityType: EntityNote, EntityID: "n1"})

	assert.Equal(t, 0, countEntries(t, s))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditSkippedTotal))
}

func TestWriter_DispatchAsync(t *testing.T) {
	tpt := memtransport.NewTransport(8, 2, memtransport.WithLogger(logging.NewNoopLogger()))
	require.NoError(t, tpt.Start(context.Background()))

	w, s := newTestWriter(t, WithPublisher(tpt))
	require.NoError(t, w.Subscribe(tpt))

	for _, id := range []string{"a", "b", "c"} {
		w.Dispatch(context.Background(), Record{Actor: actor, Action: ActionDelete, EntityType: EntityPartner, EntityID: id})
	}
	require.NoError(t, tpt.Close())
	assert.Equal(t, 3, countEntries(t, s))
}

type failingPublisher struct{ calls int32 }

func (p *failingPublisher) Publish(ctx context.Context, m messaging.IMessage) error {
	atomic.AddInt32(&p.calls, 1)
	return assert.AnError
}

func TestWriter_PublishFailureSwallowed(t *testing.T) {
	m := metrics.New()
	pub := &failingPublisher{}
	w, s := newTestWriter(t, WithPublisher(pub), WithMetrics(m))

	assert.NotPanics(t, func() {
		w.Dispatch(context.Background(), Record{Actor: actor, Action: ActionCreate, EntityType: EntityNote, EntityID: "n1"})
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&pub.calls))
	assert.Equal(t, 0, countEntries(t, s))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditFailedTotal.WithLabelValues("publish")))
}

type brokenCollection struct{ store.ICollection }

func (brokenCollection) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	return nil, assert.AnError
}

func TestWriter_AppendFailureSwallowed(t *testing.T) {
	m := metrics.New()
	w := NewWriter(NewStore(brokenCollection{}), WithLogger(logging.NewNoopLogger()), WithMetrics(m))

	assert.NotPanics(t, func() {
		w.Dispatch(context.Background(), Record{Actor: actor, Action: ActionCreate, EntityType: EntityNote, EntityID: "n1"})
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditFailedTotal.WithLabelValues("append")))
}

func TestWriter_HandlerDecodesRemotePayload(t *testing.T) {
	w, s := newTestWriter(t)
	payload := map[string]any{
		"id":         "e1",
		"userId":     "u1",
		"action":     "CREATE",
		"entityType": "Note",
		"entityId":   "n1",
		"newData":    map[string]any{"title": "t"},
		"createdAt":  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano),
	}
	err := w.Handler().Handle(context.Background(), messaging.NewMessage("e1", MessageType, payload))
	require.NoError(t, err)

	entry, err := s.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, EntityNote, entry.EntityType)
	assert.Equal(t, 2024, entry.CreatedAt.Year())
}
