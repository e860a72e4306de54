package auth

import (
	"context"

	"backoffice/audit"
	"backoffice/model"
)

type ctxKey int

const (
	userKey ctxKey = iota
	actorKey
)

// WithUser 把已认证用户放入上下文
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom 取出已认证用户
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// WithActor 把审计操作者放入上下文
func WithActor(ctx context.Context, actor audit.ActorContext) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom 取出审计操作者；未认证时返回零值
func ActorFrom(ctx context.Context) audit.ActorContext {
	actor, _ := ctx.Value(actorKey).(audit.ActorContext)
	return actor
}
