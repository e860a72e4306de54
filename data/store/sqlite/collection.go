// Package sqlite 在 SQLite（modernc.org/sqlite）上实现文档集合
//
// 每个集合一张表：id 主键、created_at 排序列、doc 保存 JSON 文档，
// 谓词通过 json_extract/json_each 下推到 SQL。
package sqlite

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"encoding/json"
	"fmt"

	"backoffice/codegen/snowflake"
	"backoffice/data/db"
	"backoffice/data/query"
	"backoffice/data/store"
)

// Collection SQLite 文档集合
type Collection struct {
	db    db.IDatabase
	table string
	newID store.IDGenerator
}

// NewCollection 创建集合并确保表存在
func NewCollection(ctx context.Context, database db.IDatabase, name string) (*Collection, error) {
	if !query.IsSafeFieldName(name) {
		return nil, fmt.Errorf("sqlite: unsafe collection name %q", name)
	}
	c := &Collection{db: database, table: name, newID: snowflake.NewString}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL DEFAULT 0,
	doc TEXT NOT NULL
)`, name)
	if _, err := database.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("sqlite: create table %s: %w", name, err)
	}
	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at)", name, name)
	if _, err := database.Exec(ctx, index); err != nil {
		return nil, fmt.Errorf("sqlite: create index on %s: %w", name, err)
	}
	return c, nil
}

func (c *Collection) Name() string { return c.table }

func (c *Collection) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	stored := store.Clone(doc)
	id, _ := stored["id"].(string)
	if id == "" {
		id = c.newID()
		stored["id"] = id
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (id, created_at, doc) VALUES (?, ?, ?)", c.table)
	if _, err := c.db.Exec(ctx, stmt, id, createdAtNanos(stored), string(raw)); err != nil {
		return nil, err
	}
	return decodeDoc(string(raw))
}

func (c *Collection) FindOne(ctx context.Context, pred query.Predicate) (store.Document, error) {
	docs, err := c.FindMany(ctx, pred, store.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}
	return docs[0], nil
}

func (c *Collection) FindMany(ctx context.Context, pred query.Predicate, opts store.FindOptions) ([]store.Document, error) {
	where, args, err := whereClause(pred)
	if err != nil {
		return nil, err
	}
	order, err := orderClause(opts.Sort)
	if err != nil {
		return nil, err
	}

	stmt := "SELECT doc FROM " + c.table
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += " ORDER BY " + order
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	stmt += " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Skip)

	rows, err := c.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]store.Document, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *Collection) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	where, args, err := whereClause(pred)
	if err != nil {
		return 0, err
	}
	stmt := "SELECT COUNT(1) FROM " + c.table
	if where != "" {
		stmt += " WHERE " + where
	}
	var n int64
	if err := c.db.QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Collection) UpdateByID(ctx context.Context, id string, patch store.Document) (store.Document, error) {
	var updated store.Document
	err := db.WithTx(ctx, c.db, func(tx db.ITransaction) error {
		var raw string
		err := tx.QueryRow(ctx, "SELECT doc FROM "+c.table+" WHERE id = ?", id).Scan(&raw)
		if stdErrors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return err
		}
		store.Merge(doc, patch)
		doc["id"] = id

		next, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("UPDATE %s SET doc = ?, created_at = ? WHERE id = ?", c.table)
		if _, err := tx.Exec(ctx, stmt, string(next), createdAtNanos(doc), id); err != nil {
			return err
		}
		updated, err = decodeDoc(string(next))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Collection) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := c.db.Exec(ctx, "DELETE FROM "+c.table+" WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Collection) SetField(ctx context.Context, id, field string, value any) (store.Document, error) {
	return c.UpdateByID(ctx, id, store.Document{field: value})
}

func createdAtNanos(doc store.Document) int64 {
	if t, ok := query.ToTime(doc["createdAt"]); ok {
		return t.UnixNano()
	}
	return 0
}

func decodeDoc(raw string) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("sqlite: decode document: %w", err)
	}
	return doc, nil
}

var _ store.ICollection = (*Collection)(nil)
