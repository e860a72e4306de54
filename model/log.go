package model

import (
	"net/url"

	"backoffice/audit"
)

// ParseLogFilter 从查询字符串构造审计过滤条件
func ParseLogFilter(values url.Values) (audit.LogFilter, error) {
	p := newParams(values)
	f := audit.LogFilter{
		UserID:     p.str("userId"),
		Action:     audit.Action(p.str("action")),
		EntityType: audit.EntityType(p.str("entityType")),
		EntityID:   p.str("entityId"),
		Start:      p.date("startDate"),
		End:        p.date("endDate"),
	}
	if p.err != nil {
		return audit.LogFilter{}, p.err
	}
	return f, f.Validate()
}
