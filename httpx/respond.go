// Package httpx 基于 chi 暴露后台记录的 REST 接口
package httpx

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"backoffice/data/store"
	"backoffice/domain"
	"backoffice/errors"
	"backoffice/logging"
)

const maxBodyBytes = 1 << 20

// ErrorBody 错误响应信封
type ErrorBody struct {
	StatusCode int            `json:"statusCode"`
	Error      string         `json:"error"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ComponentLogger("httpx").Warn(context.Background(), "write response failed", logging.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetErrorCode(err)
	status := errors.HTTPStatus(code)
	body := ErrorBody{StatusCode: status, Error: http.StatusText(status), Message: err.Error()}

	var appErr errors.IError
	if stderrors.As(err, &appErr) {
		body.Message = appErr.Message()
		if details := appErr.Details(); len(details) > 0 && status < http.StatusInternalServerError {
			body.Details = details
		}
	}
	if status >= http.StatusInternalServerError {
		logging.ComponentLogger("httpx").Error(r.Context(), "request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err))
		body.Message = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

// decodeDocument 读取 JSON 对象请求体
func decodeDocument(r *http.Request) (store.Document, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "读取请求体失败")
	}
	doc := store.Document{}
	if len(body) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeValidation, "请求体必须是 JSON 对象")
	}
	return doc, nil
}

// decodeInto 读取请求体到结构体
func decodeInto(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		return errors.WrapError(err, errors.ErrCodeValidation, "请求体格式不正确")
	}
	return nil
}

// present 脱敏后输出
func present(v any) any {
	r, ok := v.(domain.IRedactable)
	if !ok {
		return v
	}
	doc, err := store.Encode(v)
	if err != nil {
		return v
	}
	for _, field := range r.RedactedFields() {
		delete(doc, field)
	}
	return doc
}

func presentAll[T any](items []*T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = present(item)
	}
	return out
}
