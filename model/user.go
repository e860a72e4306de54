package model

import (
	"net/url"

	"backoffice/data/query"
	"backoffice/domain"
	"backoffice/validation"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var roles = []string{RoleUser, RoleAdmin}

// FieldPasswordHash 存储密码哈希的字段
const FieldPasswordHash = "passwordHash"

// User 用户；密码哈希不会出现在 HTTP 响应与审计快照中
type User struct {
	domain.Entity
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Role         string `json:"role"`
}

func (u *User) ApplyDefaults() {
	if u.Role == "" {
		u.Role = RoleUser
	}
}

func (u *User) Validate() error {
	return validation.New().
		Required("email", u.Email).
		Email("email", u.Email).
		Required("password", u.PasswordHash).
		OneOf("role", u.Role, roles...).
		Err()
}

func (u *User) RedactedFields() []string { return []string{FieldPasswordHash} }

// UserFilter 用户过滤条件
type UserFilter struct {
	Email          string
	FirstName      string
	LastName       string
	Role           string
	IncludeDeleted bool
}

func (f UserFilter) Query() query.Filter {
	q := &query.Filter{IncludeDeleted: f.IncludeDeleted}
	q.Contains("email", f.Email).
		Contains("firstName", f.FirstName).
		Contains("lastName", f.LastName).
		Equals("role", f.Role)
	return *q
}

func ParseUserFilter(values url.Values) (UserFilter, error) {
	p := newParams(values)
	f := UserFilter{
		Email:          p.str("email"),
		FirstName:      p.str("firstName"),
		LastName:       p.str("lastName"),
		Role:           p.oneOf("role", roles...),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return f, p.err
}

// UserInput 创建用户或注册时的请求体，password 为明文
type UserInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (in UserInput) Validate() error {
	return validation.New().
		Required("email", in.Email).
		Email("email", in.Email).
		Required("password", in.Password).
		MinLength("password", in.Password, 6).
		OneOf("role", in.Role, roles...).
		Err()
}

// Credentials 登录请求体
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
