package mongo

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backoffice/data/query"
)

// fieldName 文档 id 映射为 MongoDB 主键 _id
func fieldName(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

// filterDoc 把谓词翻译为 MongoDB 查询文档
//
// 同一字段上的多个条件（例如区间上下界）合并为同一个操作符文档。
func filterDoc(p query.Predicate) (bson.M, error) {
	filter := bson.M{}
	for _, c := range p.Conditions {
		if !query.IsSafeFieldName(c.Field) {
			return nil, fmt.Errorf("mongo: unsafe field name %q", c.Field)
		}
		name := fieldName(c.Field)
		ops, _ := filter[name].(bson.M)
		if ops == nil {
			ops = bson.M{}
			filter[name] = ops
		}
		switch c.Op {
		case query.OpEq:
			ops["$eq"] = c.Value
		case query.OpContains:
			text, _ := c.Value.(string)
			ops["$regex"] = primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		case query.OpGte:
			ops["$gte"] = c.Value
		case query.OpLte:
			ops["$lte"] = c.Value
		case query.OpIn:
			values, _ := c.Value.([]any)
			ops["$in"] = bson.A(values)
		case query.OpNotExists:
			// $eq: null 同时匹配缺失与显式 null
			ops["$eq"] = nil
		default:
			return nil, fmt.Errorf("mongo: unsupported operator %q", c.Op)
		}
	}
	return filter, nil
}

// sortDoc 排序规则，末尾追加 _id 保证稳定
func sortDoc(sorts []query.Sort) bson.D {
	d := make(bson.D, 0, len(sorts)+1)
	for _, s := range sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: fieldName(s.Field), Value: dir})
	}
	return append(d, bson.E{Key: "_id", Value: 1})
}

// updateDoc 拆分部分更新：非 nil 走 $set，nil 走 $unset
func updateDoc(patch map[string]any) bson.M {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range patch {
		if k == "id" || k == "_id" {
			continue
		}
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// normalize 把驱动返回的 BSON 类型转换为普通 Go 值
func normalize(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case time.Time:
		return val.UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.A:
		return normalizeSlice(val)
	case []any:
		return normalizeSlice(val)
	case bson.M:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case int32:
		return int64(val)
	}
	return v
}

func normalizeSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = normalize(item)
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

// fromBSON 读出的文档：_id 还原为 id
func fromBSON(raw bson.M) map[string]any {
	doc := normalizeMap(raw)
	if id, ok := doc["_id"]; ok {
		doc["id"] = fmt.Sprint(id)
		delete(doc, "_id")
	}
	return doc
}
