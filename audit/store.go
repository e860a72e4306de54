package audit

import (
	"context"
	"time"

	"backoffice/data/page"
	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/errors"
)

// CollectionName 审计集合名
const CollectionName = "audit_logs"

// newestFirst 审计查询统一按创建时间倒序
var newestFirst = []query.Sort{query.NewestFirst}

// Store 只追加的审计条目存储
type Store struct {
	coll store.ICollection
}

// NewStore 基于文档集合创建审计存储
func NewStore(coll store.ICollection) *Store {
	return &Store{coll: coll}
}

// Append 追加条目
func (s *Store) Append(ctx context.Context, entry *Entry) error {
	doc, err := store.Encode(entry)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "编码审计条目失败")
	}
	if _, err := s.coll.Insert(ctx, doc); err != nil {
		return errors.WrapDatabaseError(ctx, err, "写入审计条目")
	}
	return nil
}

// Get 按 id 读取
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	doc, err := s.coll.FindOne(ctx, query.ByID(id))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Errorf(errors.ErrCodeNotFound, "审计条目 %s 不存在", id)
		}
		return nil, errors.WrapDatabaseError(ctx, err, "读取审计条目")
	}
	return decodeEntry(doc)
}

// Find 按谓词查询，结果按创建时间倒序
func (s *Store) Find(ctx context.Context, pred query.Predicate) ([]*Entry, error) {
	docs, err := s.coll.FindMany(ctx, pred, store.FindOptions{Sort: newestFirst})
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "查询审计条目")
	}
	entries := make([]*Entry, 0, len(docs))
	for _, doc := range docs {
		entry, err := decodeEntry(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Paginate 分页查询
func (s *Store) Paginate(ctx context.Context, pred query.Predicate, req page.Request) (*page.Response[*Entry], error) {
	return page.Paginate(ctx, s.coll, pred, req, newestFirst, decodeEntry)
}

func decodeEntry(doc store.Document) (*Entry, error) {
	var entry Entry
	if err := store.Decode(doc, &entry); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "解码审计条目失败")
	}
	return &entry, nil
}

// LogFilter 审计列表过滤条件，零值字段不参与过滤
type LogFilter struct {
	UserID     string
	Action     Action
	EntityType EntityType
	EntityID   string
	Start      *time.Time
	End        *time.Time
}

// Query 转换为通用过滤条件；审计条目没有软删除状态
func (f LogFilter) Query() query.Filter {
	q := &query.Filter{IncludeDeleted: true}
	q.Equals("userId", f.UserID).
		Equals("action", string(f.Action)).
		Equals("entityType", string(f.EntityType)).
		Equals("entityId", f.EntityID).
		DateRange("createdAt", f.Start, f.End)
	return *q
}

// Validate 检查枚举取值与时间区间
func (f LogFilter) Validate() error {
	if f.Action != "" && !f.Action.Valid() {
		return errors.Errorf(errors.ErrCodeValidation, "未知的审计动作 %q", f.Action).WithContext("field", "action")
	}
	if f.EntityType != "" && !f.EntityType.Valid() {
		return errors.Errorf(errors.ErrCodeValidation, "未知的实体类别 %q", f.EntityType).WithContext("field", "entityType")
	}
	return nil
}
