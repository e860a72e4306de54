package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"runtime"

	"backoffice/logging"
)

// Wrap 包装错误，添加错误码和调用位置
// 建议：在 Service/Handler 层边界使用
func Wrap(ctx context.Context, err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	logging.GetLogger().Debug(ctx, fmt.Sprintf("错误包装: %s (位置: %s:%d)", msg, file, line))
	return WrapError(err, code, msg)
}

// WrapDatabaseError 包装存储层错误
//
// NotFound 保持原错误码，其余统一归为数据库错误并记录警告日志。
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return WrapError(err, ErrCodeNotFound, operation)
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrCodeTimeout, operation)
	}

	logging.GetLogger().Warn(ctx, "数据库操作失败",
		logging.String("operation", operation),
		logging.Error(err))
	return WrapError(err, ErrCodeDatabase, fmt.Sprintf("数据库操作失败: %s", operation))
}

// HTTPStatus 将错误码映射为 HTTP 状态码
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeValidation, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
