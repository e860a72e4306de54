// Package model 定义六类后台记录实体及其类型化过滤条件
package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"backoffice/data/page"
	"backoffice/errors"
)

// params 读取查询字符串，第一个解析错误被保留
type params struct {
	values url.Values
	err    error
}

func newParams(values url.Values) *params { return &params{values: values} }

func (p *params) str(key string) string {
	return strings.TrimSpace(p.values.Get(key))
}

func (p *params) float(key string) *float64 {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, "必须是数字")
		return nil
	}
	return &f
}

// date 接受 RFC3339 或 YYYY-MM-DD
func (p *params) date(key string) *time.Time {
	raw := p.str(key)
	if raw == "" {
		return nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		p.fail(key, "必须是日期（RFC3339 或 YYYY-MM-DD）")
		return nil
	}
	return &t
}

func (p *params) boolean(key string) bool {
	raw := p.str(key)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, "必须是布尔值")
	}
	return b
}

// list 逗号分隔或重复参数
func (p *params) list(key string) []string {
	var out []string
	for _, raw := range p.values[key] {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func (p *params) oneOf(key string, allowed ...string) string {
	v := p.str(key)
	if v == "" {
		return ""
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.fail(key, "取值无效，必须是以下之一: "+strings.Join(allowed, ", "))
	return ""
}

func (p *params) fail(key, msg string) {
	if p.err == nil {
		p.err = errors.NewError(errors.ErrCodeValidation, key+" "+msg).WithContext("field", key)
	}
}

// ParseDate 解析 RFC3339 或 YYYY-MM-DD 日期
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// integer 参数缺失时返回 def；出现但为空或非整数记为错误
func (p *params) integer(key string, def int) int {
	if !p.values.Has(key) {
		return def
	}
	n, err := strconv.Atoi(p.str(key))
	if err != nil {
		p.fail(key, "必须是整数")
		return def
	}
	return n
}

// ParsePage 读取 page 与 limit；仅缺失的参数取默认值，显式给出的越界值返回验证错误
func ParsePage(values url.Values) (page.Request, error) {
	p := newParams(values)
	req := page.Request{
		Page:  p.integer("page", page.DefaultPage),
		Limit: p.integer("limit", page.DefaultLimit),
	}
	if p.err != nil {
		return req, p.err
	}
	return req, req.Validate()
}
