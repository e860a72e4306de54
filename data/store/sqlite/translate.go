package sqlite

import (
	"fmt"
	"strings"
	"time"

	"backoffice/data/query"
)

// jsonPath 返回字段在 doc 列中的 JSON 提取表达式，字段名须已校验
func jsonPath(field string) string {
	return fmt.Sprintf("json_extract(doc, '$.%s')", field)
}

// whereClause 把谓词翻译为 SQL 条件与参数
//
// 时间值以 RFC3339 字符串存储，区间比较经 julianday 转换后按时刻比较。
func whereClause(p query.Predicate) (string, []any, error) {
	if p.IsEmpty() {
		return "", nil, nil
	}
	parts := make([]string, 0, len(p.Conditions))
	args := make([]any, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		if !query.IsSafeFieldName(c.Field) {
			return "", nil, fmt.Errorf("sqlite: unsafe field name %q", c.Field)
		}
		expr, condArgs, err := condition(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, expr)
		args = append(args, condArgs...)
	}
	return strings.Join(parts, " AND "), args, nil
}

func condition(c query.Condition) (string, []any, error) {
	col := jsonPath(c.Field)
	switch c.Op {
	case query.OpNotExists:
		return col + " IS NULL", nil, nil
	case query.OpContains:
		text, _ := c.Value.(string)
		return foldFunc + "(" + col + ") LIKE ? ESCAPE '\\'", []any{"%" + escapeLike(strings.ToLower(text)) + "%"}, nil
	case query.OpEq:
		return compareExpr(col, "=", c.Value)
	case query.OpGte:
		return compareExpr(col, ">=", c.Value)
	case query.OpLte:
		return compareExpr(col, "<=", c.Value)
	case query.OpIn:
		values, _ := c.Value.([]any)
		if len(values) == 0 {
			return "0", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = sqlValue(v)
		}
		expr := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(doc, '$.%s') WHERE json_each.value IN (%s))", c.Field, marks)
		return expr, args, nil
	}
	return "", nil, fmt.Errorf("sqlite: unsupported operator %q", c.Op)
}

func compareExpr(col, op string, value any) (string, []any, error) {
	if t, ok := value.(time.Time); ok {
		return fmt.Sprintf("julianday(%s) %s julianday(?)", col, op), []any{formatTime(t)}, nil
	}
	return fmt.Sprintf("%s %s ?", col, op), []any{sqlValue(value)}, nil
}

// sqlValue 对齐 json_extract 的返回类型：布尔为 0/1，数值为 float64
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	if f, ok := query.ToFloat(v); ok {
		return f
	}
	if t, ok := v.(time.Time); ok {
		return formatTime(t)
	}
	return v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// orderClause createdAt 走专用列，其余字段走 JSON 提取；rowid 保证稳定
func orderClause(sorts []query.Sort) (string, error) {
	if len(sorts) == 0 {
		return "rowid ASC", nil
	}
	parts := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		if !query.IsSafeFieldName(s.Field) {
			return "", fmt.Errorf("sqlite: unsafe sort field %q", s.Field)
		}
		expr := jsonPath(s.Field)
		if s.Field == "createdAt" {
			expr = "created_at"
		}
		if s.Desc {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		parts = append(parts, expr)
	}
	parts = append(parts, "rowid ASC")
	return strings.Join(parts, ", "), nil
}
