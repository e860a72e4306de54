package audit

import (
	"reflect"
	"sort"
	"time"

	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/domain"
)

// Diff 返回 newData 中与 oldData 取值不同的键，按字典序排列
//
// 只检查 newData 的键。标量按值比较（数字统一为 float64，时间按时刻），
// 数组、对象等复合值总是视为已变化。任一侧为 nil 时返回空切片。
func Diff(oldData, newData Snapshot) []string {
	changes := []string{}
	if oldData == nil || newData == nil {
		return changes
	}
	for key, newValue := range newData {
		oldValue, ok := oldData[key]
		if !ok || !sameScalar(oldValue, newValue) {
			changes = append(changes, key)
		}
	}
	sort.Strings(changes)
	return changes
}

func sameScalar(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isComposite(a) || isComposite(b) {
		return false
	}
	// 时间是标量：同一时刻即相同，未改动的 createdAt 不会出现在 changes 中
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if fa, ok := query.ToFloat(a); ok {
		fb, ok := query.ToFloat(b)
		return ok && fa == fb
	}
	return a == b
}

func isComposite(v any) bool {
	if _, ok := v.(time.Time); ok {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer:
		return true
	}
	return false
}

// SnapshotOf 把实体编码为快照，实现 domain.IRedactable 的实体会去除敏感字段
func SnapshotOf(entity any) Snapshot {
	if entity == nil {
		return nil
	}
	if rv := reflect.ValueOf(entity); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	doc, err := store.Encode(entity)
	if err != nil {
		return nil
	}
	if r, ok := entity.(domain.IRedactable); ok {
		for _, field := range r.RedactedFields() {
			delete(doc, field)
		}
	}
	return doc
}
