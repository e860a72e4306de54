package query

import (
	"strings"
	"time"
)

// Kind 过滤条件类别
type Kind int

const (
	KindText  Kind = iota // 部分文本匹配
	KindExact             // 精确匹配（枚举、外键）
	KindRange             // 数值或日期区间，上下界独立可选
	KindAnyOf             // 任一值匹配（标签集合）
	KindFlag              // 布尔标记
)

// Clause 单个字段的过滤条件
type Clause struct {
	Field  string
	Kind   Kind
	Value  any
	Min    any
	Max    any
	Values []any
}

// Filter 结构统一的过滤条件集合，由各实体的类型化过滤器构造
//
// 未设置的字段不产生约束；IncludeDeleted 为 false 时只返回未软删除的记录。
type Filter struct {
	Clauses        []Clause
	IncludeDeleted bool
}

// Contains 文本子串匹配，空串忽略
func (f *Filter) Contains(field, text string) *Filter {
	if text == "" {
		return f
	}
	return f.add(Clause{Field: field, Kind: KindText, Value: text})
}

// Equals 精确匹配，空串或 nil 忽略
func (f *Filter) Equals(field string, value any) *Filter {
	if isBlank(value) {
		return f
	}
	return f.add(Clause{Field: field, Kind: KindExact, Value: value})
}

// Range 数值区间，nil 边界表示不限
func (f *Filter) Range(field string, min, max *float64) *Filter {
	if min == nil && max == nil {
		return f
	}
	c := Clause{Field: field, Kind: KindRange}
	if min != nil {
		c.Min = *min
	}
	if max != nil {
		c.Max = *max
	}
	return f.add(c)
}

// DateRange 日期区间，nil 边界表示不限
func (f *Filter) DateRange(field string, start, end *time.Time) *Filter {
	if start == nil && end == nil {
		return f
	}
	c := Clause{Field: field, Kind: KindRange}
	if start != nil {
		c.Min = start.UTC()
	}
	if end != nil {
		c.Max = end.UTC()
	}
	return f.add(c)
}

// AnyOf 匹配任一取值，空集合忽略
func (f *Filter) AnyOf(field string, values []string) *Filter {
	vals := make([]any, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return f
	}
	return f.add(Clause{Field: field, Kind: KindAnyOf, Values: vals})
}

// Flag 布尔标记匹配，nil 忽略
func (f *Filter) Flag(field string, value *bool) *Filter {
	if value == nil {
		return f
	}
	return f.add(Clause{Field: field, Kind: KindFlag, Value: *value})
}

// WithDeleted 设置是否包含已软删除的记录
func (f *Filter) WithDeleted(include bool) *Filter {
	f.IncludeDeleted = include
	return f
}

func (f *Filter) add(c Clause) *Filter {
	if !IsSafeFieldName(c.Field) {
		return f
	}
	f.Clauses = append(f.Clauses, c)
	return f
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case *string:
		return val == nil || *val == ""
	}
	return false
}

// IsSafeFieldName 判断字段名是否为安全标识符
//
// 规则：非空；首字符为字母或下划线；后续字符为字母、数字或下划线。
// SQL 后端直接把字段名拼进 JSON 路径，因此翻译前必须校验。
func IsSafeFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		letter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
		digit := ch >= '0' && ch <= '9'
		if i == 0 && !letter {
			return false
		}
		if !letter && !digit {
			return false
		}
	}
	return true
}
