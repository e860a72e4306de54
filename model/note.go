package model

import (
	"net/url"

	"backoffice/data/query"
	"backoffice/domain"
	"backoffice/validation"
)

// Note 笔记
type Note struct {
	domain.Entity
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (n *Note) Validate() error {
	return validation.New().
		Required("title", n.Title).
		Required("content", n.Content).
		Err()
}

// NoteFilter 笔记过滤条件
type NoteFilter struct {
	Title          string
	Content        string
	Tags           []string
	IncludeDeleted bool
}

func (f NoteFilter) Query() query.Filter {
	q := &query.Filter{IncludeDeleted: f.IncludeDeleted}
	q.Contains("title", f.Title).
		Contains("content", f.Content).
		AnyOf("tags", f.Tags)
	return *q
}

// ParseNoteFilter 从查询字符串构造
func ParseNoteFilter(values url.Values) (NoteFilter, error) {
	p := newParams(values)
	f := NoteFilter{
		Title:          p.str("title"),
		Content:        p.str("content"),
		Tags:           p.list("tags"),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return f, p.err
}
