// Package auth 负责令牌签发校验与请求操作者的解析
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"backoffice/errors"
	"backoffice/model"
)

// Claims 访问令牌载荷，sub 为用户 id
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer HS256 令牌签发与校验
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer 创建签发器
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue 为用户签发访问令牌
func (t *TokenIssuer) Issue(user *model.User) (string, error) {
	now := t.now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrCodeInternal, "签发令牌失败")
	}
	return signed, nil
}

// Verify 校验签名与有效期，返回载荷
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeUnauthorized, "令牌无效或已过期")
	}
	if !parsed.Valid {
		return nil, errors.NewError(errors.ErrCodeUnauthorized, "令牌无效")
	}
	if claims.Subject == "" {
		return nil, errors.NewError(errors.ErrCodeUnauthorized, "令牌缺少 sub")
	}
	return claims, nil
}
