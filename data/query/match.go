package query

import (
	"strings"
	"time"
)

// Match 在进程内对文档求值谓词，供内存与 bbolt 后端使用
func Match(p Predicate, doc map[string]any) bool {
	for _, c := range p.Conditions {
		if !matchCondition(c, doc) {
			return false
		}
	}
	return true
}

func matchCondition(c Condition, doc map[string]any) bool {
	v, ok := doc[c.Field]
	if c.Op == OpNotExists {
		return !ok || v == nil
	}
	if !ok || v == nil {
		return false
	}
	switch c.Op {
	case OpEq:
		return Equal(v, c.Value)
	case OpContains:
		s, isStr := v.(string)
		q, _ := c.Value.(string)
		return isStr && strings.Contains(strings.ToLower(s), strings.ToLower(q))
	case OpGte:
		cmp, comparable := compare(v, c.Value)
		return comparable && cmp >= 0
	case OpLte:
		cmp, comparable := compare(v, c.Value)
		return comparable && cmp <= 0
	case OpIn:
		wanted, _ := c.Value.([]any)
		if items, isSlice := AsSlice(v); isSlice {
			for _, item := range items {
				if containsValue(wanted, item) {
					return true
				}
			}
			return false
		}
		return containsValue(wanted, v)
	}
	return false
}

func containsValue(values []any, v any) bool {
	for _, w := range values {
		if Equal(v, w) {
			return true
		}
	}
	return false
}

// Equal 标量值相等：数值按 float64 比较，时间按时刻比较
func Equal(a, b any) bool {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		return ok && fa == fb
	}
	if ta, ok := ToTime(a); ok {
		if tb, ok := ToTime(b); ok {
			return ta.Equal(tb)
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// Compare 排序用的三路比较；nil 小于任何值，不可比较的值视为相等
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	cmp, _ := compare(a, b)
	return cmp
}

func compare(a, b any) (int, bool) {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		if !ok {
			return 0, false
		}
		return sign(fa - fb), true
	}
	// 时间必须先于字符串判断：JSON 后端把时间存为 RFC3339 字符串
	if tb, ok := b.(time.Time); ok {
		ta, ok := ToTime(a)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := ToTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		ta, okA := ToTime(sa)
		tb, okB := ToTime(sb)
		if okA && okB {
			return ta.Compare(tb), true
		}
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func sign(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	}
	return 0
}

// ToFloat 将各类数值转换为 float64
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// ToTime 接受 time.Time 或 RFC3339 字符串
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

// AsSlice 将数组值统一为 []any
func AsSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}
