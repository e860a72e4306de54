package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Encode 把带 json 标签的结构体编码为文档
//
// 与 JSON 往返不同，时间字段保留为 time.Time（UTC），便于各后端做区间比较；
// nil 指针字段一律省略，表示“字段缺失”。
func Encode(v any) (Document, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("store: encode nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map {
		if doc, ok := rv.Interface().(Document); ok {
			return Clone(doc), nil
		}
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("store: cannot encode %T as document", v)
	}
	doc := make(Document)
	encodeStruct(rv, doc)
	return doc, nil
}

// MustEncode 编码失败时 panic，仅用于已知结构体
func MustEncode(v any) Document {
	doc, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return doc
}

// Decode 把文档解码到结构体指针
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("store: decode document into %T: %w", out, err)
	}
	return nil
}

func encodeStruct(rv reflect.Value, doc Document) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		fv := rv.Field(i)
		name, omitEmpty, skip := parseTag(sf)
		if skip {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && name == "" {
			encodeStruct(fv, doc)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		if val, ok := encodeValue(fv); ok {
			doc[name] = val
		}
	}
}

func encodeValue(fv reflect.Value) (any, bool) {
	for fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface {
		if fv.IsNil() {
			return nil, false
		}
		fv = fv.Elem()
	}
	if fv.Type() == timeType {
		return fv.Interface().(time.Time).UTC(), true
	}
	switch fv.Kind() {
	case reflect.String:
		return fv.String(), true
	case reflect.Bool:
		return fv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(fv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return fv.Float(), true
	case reflect.Slice, reflect.Array:
		items := make([]any, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			if item, ok := encodeValue(fv.Index(i)); ok {
				items = append(items, item)
			}
		}
		return items, true
	case reflect.Struct:
		nested := make(Document)
		encodeStruct(fv, nested)
		return nested, true
	case reflect.Map:
		raw, err := json.Marshal(fv.Interface())
		if err != nil {
			return nil, false
		}
		var m map[string]any
		if json.Unmarshal(raw, &m) != nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

func parseTag(sf reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}
