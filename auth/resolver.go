package auth

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"backoffice/cache"
	"backoffice/errors"
	"backoffice/metrics"
	"backoffice/model"
)

// UserLoader 按 id 读取有效用户
type UserLoader interface {
	FindByID(ctx context.Context, id string, includeDeleted bool) (*model.User, error)
}

// Resolver 把令牌解析为当前用户，用户记录经 LRU 缓存，并发未命中合并为一次读取
type Resolver struct {
	tokens  *TokenIssuer
	users   UserLoader
	cache   *cache.Cache[string, *model.User]
	group   singleflight.Group
	metrics *metrics.Metrics
}

// ResolverOption 解析器选项
type ResolverOption func(*Resolver)

// WithMetrics 记录缓存命中
func WithMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver 创建解析器；size 为缓存容量，ttl 为用户记录的缓存时长
func NewResolver(tokens *TokenIssuer, users UserLoader, size int, ttl time.Duration, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tokens: tokens,
		users:  users,
		cache:  cache.New[string, *model.User](cache.Config{Name: "users", MaxSize: size, TTL: ttl}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tokens 令牌签发器
func (r *Resolver) Tokens() *TokenIssuer { return r.tokens }

// Resolve 校验令牌并加载用户；用户已被删除时返回 Unauthorized
func (r *Resolver) Resolve(ctx context.Context, token string) (*model.User, error) {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return r.user(ctx, claims.Subject)
}

// Invalidate 用户变更或删除后清除缓存
func (r *Resolver) Invalidate(userID string) {
	r.cache.Delete(userID)
}

func (r *Resolver) user(ctx context.Context, id string) (*model.User, error) {
	if u, ok := r.cache.Get(id); ok {
		r.metrics.IncUserCache(true)
		return u, nil
	}
	r.metrics.IncUserCache(false)

	v, err, _ := r.group.Do(id, func() (any, error) {
		u, err := r.users.FindByID(ctx, id, false)
		if err != nil {
			return nil, err
		}
		r.cache.Set(id, u)
		return u, nil
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewError(errors.ErrCodeUnauthorized, "用户不存在或已停用")
		}
		return nil, err
	}
	return v.(*model.User), nil
}
