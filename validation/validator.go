// Package validation 提供请求体与实体的字段校验
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"backoffice/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// FieldError 单个字段的校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator 收集多个字段错误，最后一次性返回
type Validator struct {
	problems []FieldError
}

// New 创建校验器
func New() *Validator { return &Validator{} }

// Check 条件不成立时记录错误
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.problems = append(v.problems, FieldError{Field: field, Message: message})
	}
	return v
}

// Required 非空白
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, field+"不能为空")
}

// Email 邮箱格式，空值跳过
func (v *Validator) Email(field, value string) *Validator {
	if value == "" {
		return v
	}
	return v.Check(emailRegex.MatchString(value), field, "邮箱格式不正确")
}

// OneOf 枚举取值，空值跳过
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	return v.Check(false, field, fmt.Sprintf("%s的值无效，必须是以下之一: %v", field, allowed))
}

// NonNegative 数值不小于 0
func (v *Validator) NonNegative(field string, value float64) *Validator {
	return v.Check(value >= 0, field, field+"不能为负数")
}

// MinLength 最小长度
func (v *Validator) MinLength(field, value string, n int) *Validator {
	return v.Check(len(value) >= n, field, fmt.Sprintf("%s长度不能少于%d个字符", field, n))
}

// Valid 是否没有错误
func (v *Validator) Valid() bool { return len(v.problems) == 0 }

// Problems 已记录的错误
func (v *Validator) Problems() []FieldError { return v.problems }

// Err 没有错误时返回 nil，否则返回带 fields 详情的校验错误
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	msgs := make([]string, len(v.problems))
	for i, p := range v.problems {
		msgs[i] = p.Message
	}
	return errors.NewError(errors.ErrCodeValidation, strings.Join(msgs, "; ")).
		WithContext("fields", v.problems)
}

// ValidateEmail 校验必填邮箱
func ValidateEmail(email string) error {
	return New().Required("email", email).Email("email", email).Err()
}

// ValidatePassword 密码至少 6 位
func ValidatePassword(password string) error {
	return New().Required("password", password).MinLength("password", password, 6).Err()
}
