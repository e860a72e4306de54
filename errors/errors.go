// Package errors 提供统一的应用错误类型与错误码体系
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
)

// ErrorCode 错误代码
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeDatabase     ErrorCode = "DATABASE_ERROR"
)

// IError 应用错误
type IError interface {
	error

	Code() ErrorCode
	Message() string
	Cause() error
	Details() map[string]any
	Stack() string

	// WithContext 返回附加了一条详情的新错误，原错误不变
	WithContext(key string, value any) IError
}

// AppError IError 的实现；错误码相同的两个 AppError 满足 errors.Is
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

func newAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		cause:   cause,
		details: map[string]any{},
		stack:   captureStack(4),
	}
}

// NewError 创建错误
func NewError(code ErrorCode, message string) IError {
	return newAppError(code, message, nil)
}

// Errorf 创建带格式化消息的错误
func Errorf(code ErrorCode, format string, args ...any) IError {
	return newAppError(code, fmt.Sprintf(format, args...), nil)
}

// WrapError 包装底层错误；err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return newAppError(code, message, err)
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.code))
	b.WriteString("] ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Cause() error    { return e.cause }
func (e *AppError) Unwrap() error   { return e.cause }
func (e *AppError) Stack() string   { return e.stack }

func (e *AppError) Details() map[string]any {
	if e.details == nil {
		e.details = map[string]any{}
	}
	return e.details
}

func (e *AppError) Is(target error) bool {
	var other *AppError
	if t, ok := target.(*AppError); ok {
		other = t
	}
	if other != nil {
		return other.code == e.code
	}
	return e.cause != nil && stderrors.Is(e.cause, target)
}

func (e *AppError) WithContext(key string, value any) IError {
	clone := *e
	clone.details = maps.Clone(e.details)
	if clone.details == nil {
		clone.details = map[string]any{}
	}
	clone.details[key] = value
	return &clone
}

// 按错误码比较用的哨兵
var (
	ErrNotFound     = NewError(ErrCodeNotFound, "资源未找到")
	ErrConflict     = NewError(ErrCodeConflict, "资源冲突")
	ErrUnauthorized = NewError(ErrCodeUnauthorized, "未授权访问")
	ErrValidation   = NewError(ErrCodeValidation, "数据验证失败")
)

func IsNotFound(err error) bool     { return HasCode(err, ErrCodeNotFound) }
func IsValidation(err error) bool   { return HasCode(err, ErrCodeValidation) }
func IsConflict(err error) bool     { return HasCode(err, ErrCodeConflict) }
func IsUnauthorized(err error) bool { return HasCode(err, ErrCodeUnauthorized) }

// HasCode 错误链上最外层 AppError 的错误码是否为 code
func HasCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}

// GetErrorCode 取最外层 AppError 的错误码，其他错误视为内部错误
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return ErrCodeInternal
	}
	return appErr.code
}

func captureStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for frame, more := frames.Next(); ; frame, more = frames.Next() {
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}
