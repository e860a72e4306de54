package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/audit"
	"backoffice/domain"
	"backoffice/errors"
	"backoffice/metrics"
	"backoffice/model"
)

var alice = &model.User{Entity: domain.Entity{ID: "u-1"}, Email: "alice@example.com", Role: model.RoleAdmin}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
}

func TestVerifyRejects(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Verify(token)
	assert.True(t, errors.IsUnauthorized(err))

	_, err = issuer.Verify("not-a-token")
	assert.True(t, errors.IsUnauthorized(err))

	expired := NewTokenIssuer("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue(alice)
	require.NoError(t, err)
	_, err = issuer.Verify(old)
	assert.True(t, errors.IsUnauthorized(err))
}

type countingLoader struct {
	calls atomic.Int32
	users map[string]*model.User
}

func (l *countingLoader) FindByID(ctx context.Context, id string, includeDeleted bool) (*model.User, error) {
	l.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	if u, ok := l.users[id]; ok {
		return u, nil
	}
	return nil, errors.NewError(errors.ErrCodeNotFound, "missing")
}

func TestResolverCachesUsers(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	loader := &countingLoader{users: map[string]*model.User{"u-1": alice}}
	m := metrics.New()
	r := NewResolver(issuer, loader, 16, time.Minute, WithMetrics(m))

	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := r.Resolve(context.Background(), token)
			assert.NoError(t, err)
			assert.Equal(t, "u-1", u.ID)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, loader.calls.Load(), int32(8))

	before := loader.calls.Load()
	_, err = r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, before, loader.calls.Load())
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.UserCacheHitsTotal), float64(1))

	r.Invalidate("u-1")
	_, err = r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, before+1, loader.calls.Load())
}

func TestResolverUnknownUser(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	r := NewResolver(issuer, &countingLoader{users: map[string]*model.User{}}, 16, time.Minute)
	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	_, ok := UserFrom(ctx)
	assert.False(t, ok)
	assert.False(t, ActorFrom(ctx).Authenticated())

	ctx = WithUser(ctx, alice)
	ctx = WithActor(ctx, audit.ActorContext{UserID: alice.ID})
	u, ok := UserFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, u)
	assert.Equal(t, "u-1", ActorFrom(ctx).UserID)
}
