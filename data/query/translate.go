package query

import "backoffice/domain"

// Translate 将过滤条件翻译为谓词
//
// 文本字段映射为不区分大小写的子串匹配，枚举映射为相等，区间上下界各自
// 生成 gte/lte 条件，所有条件以 AND 组合。min > max 不视为错误，结果为空集。
func Translate(f Filter) Predicate {
	conds := make([]Condition, 0, len(f.Clauses)+1)
	for _, c := range f.Clauses {
		switch c.Kind {
		case KindText:
			conds = append(conds, Condition{Field: c.Field, Op: OpContains, Value: c.Value})
		case KindExact, KindFlag:
			conds = append(conds, Condition{Field: c.Field, Op: OpEq, Value: c.Value})
		case KindRange:
			if c.Min != nil {
				conds = append(conds, Condition{Field: c.Field, Op: OpGte, Value: c.Min})
			}
			if c.Max != nil {
				conds = append(conds, Condition{Field: c.Field, Op: OpLte, Value: c.Max})
			}
		case KindAnyOf:
			conds = append(conds, Condition{Field: c.Field, Op: OpIn, Value: c.Values})
		}
	}
	if !f.IncludeDeleted {
		conds = append(conds, NotExists(domain.FieldDeletedAt))
	}
	return Predicate{Conditions: conds}
}
