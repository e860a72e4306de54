package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"backoffice/audit"
	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/errors"
	"backoffice/model"
	"backoffice/resource"
	"backoffice/validation"
)

// FieldPassword 请求体中的明文密码字段
const FieldPassword = "password"

// UserService 用户服务：密码哈希、邮箱唯一与登录校验
type UserService struct {
	*resource.Service[model.User]
	cost int
}

// UserOption 用户服务选项
type UserOption func(*UserService)

// WithBcryptCost 设置 bcrypt 代价，测试中可调低
func WithBcryptCost(cost int) UserOption {
	return func(s *UserService) { s.cost = cost }
}

// NewUserService 创建用户服务
func NewUserService(users *resource.Service[model.User], opts ...UserOption) *UserService {
	s := &UserService{Service: users, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 管理端创建用户
func (s *UserService) Create(ctx context.Context, actor audit.ActorContext, in model.UserInput) (*model.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	return s.Service.Create(ctx, actor, &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
	})
}

// Register 自助注册，没有操作者因此不产生审计条目
func (s *UserService) Register(ctx context.Context, in model.UserInput) (*model.User, error) {
	return s.Create(ctx, audit.ActorContext{}, in)
}

// Login 校验邮箱与密码；任何不匹配都返回相同的 Unauthorized 错误
func (s *UserService) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	user, err := s.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// FindByEmail 按邮箱查找有效用户
func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f := query.Filter{}
	f.Equals("email", normalizeEmail(email))
	return s.Repository().FindOne(ctx, query.Translate(f))
}

// Update 部分更新；password 字段会被哈希后写入 passwordHash
func (s *UserService) Update(ctx context.Context, actor audit.ActorContext, id string, patch store.Document) (*model.User, error) {
	clean := store.Clone(patch)
	delete(clean, model.FieldPasswordHash)

	if raw, ok := clean[FieldPassword]; ok {
		delete(clean, FieldPassword)
		password, _ := raw.(string)
		if err := validation.ValidatePassword(password); err != nil {
			return nil, err
		}
		hash, err := s.hash(password)
		if err != nil {
			return nil, err
		}
		clean[model.FieldPasswordHash] = hash
	}
	if raw, ok := clean["email"].(string); ok {
		email := normalizeEmail(raw)
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		clean["email"] = email
	}
	return s.Service.Update(ctx, actor, id, clean)
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return errors.Errorf(errors.ErrCodeConflict, "邮箱 %s 已被注册", email)
}

func (s *UserService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrCodeInternal, "密码哈希失败")
	}
	return string(hash), nil
}

var errInvalidCredentials = errors.NewError(errors.ErrCodeUnauthorized, "邮箱或密码错误")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
