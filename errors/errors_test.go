package errors

import (
	"context"
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWrap 测试基本错误包装
func TestWrap(t *testing.T) {
	original := stdErrors.New("原始错误")

	wrapped := Wrap(context.Background(), original, ErrCodeInternal, "包装消息")

	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, original)
	assert.Equal(t, ErrCodeInternal, GetErrorCode(wrapped))
	assert.Nil(t, Wrap(context.Background(), nil, ErrCodeInternal, "消息"))
}

func TestWrapDatabaseError(t *testing.T) {
	ctx := context.Background()

	t.Run("未找到保持错误码", func(t *testing.T) {
		err := WrapDatabaseError(ctx, NewError(ErrCodeNotFound, "记录不存在"), "查询笔记")
		assert.True(t, IsNotFound(err))
	})

	t.Run("其他错误归为数据库错误", func(t *testing.T) {
		err := WrapDatabaseError(ctx, stdErrors.New("连接断开"), "写入笔记")
		assert.Equal(t, ErrCodeDatabase, GetErrorCode(err))
		assert.Contains(t, err.Error(), "写入笔记")
	})

	t.Run("超时", func(t *testing.T) {
		err := WrapDatabaseError(ctx, context.DeadlineExceeded, "统计")
		assert.Equal(t, ErrCodeTimeout, GetErrorCode(err))
	})

	assert.Nil(t, WrapDatabaseError(ctx, nil, "操作"))
}

func TestAppErrorIsByCode(t *testing.T) {
	err := Errorf(ErrCodeNotFound, "笔记 %s 不存在", "n-1")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, "[NOT_FOUND] 笔记 n-1 不存在", err.Error())
	assert.NotEmpty(t, err.Stack())
}

func TestWithContext(t *testing.T) {
	base := NewError(ErrCodeValidation, "参数错误")
	withField := base.WithContext("field", "limit")

	assert.Equal(t, "limit", withField.Details()["field"])
	assert.Empty(t, base.Details())
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(stdErrors.New("裸错误")))
	assert.True(t, IsConflict(WrapError(stdErrors.New("dup"), ErrCodeConflict, "邮箱已存在")))
	assert.True(t, IsValidation(ErrValidation))
	assert.True(t, IsUnauthorized(ErrUnauthorized))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeValidation:   http.StatusBadRequest,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeDatabase:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), string(code))
	}
}
