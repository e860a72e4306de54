// Package query 将类型化的过滤条件翻译为与存储后端无关的谓词
package query

// Op 谓词操作符
type Op string

const (
	OpEq        Op = "eq"         // 精确相等
	OpContains  Op = "contains"   // 不区分大小写的子串匹配
	OpGte       Op = "gte"        // 大于等于
	OpLte       Op = "lte"        // 小于等于
	OpIn        Op = "in"         // 等于任一值；数组字段包含任一值
	OpNotExists Op = "not_exists" // 字段缺失或为 null
)

// Condition 单字段条件
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Predicate 条件的合取，空谓词匹配所有文档
type Predicate struct {
	Conditions []Condition
}

// And 追加条件，返回新谓词
func (p Predicate) And(conds ...Condition) Predicate {
	merged := make([]Condition, 0, len(p.Conditions)+len(conds))
	merged = append(merged, p.Conditions...)
	merged = append(merged, conds...)
	return Predicate{Conditions: merged}
}

// IsEmpty 是否不含任何条件
func (p Predicate) IsEmpty() bool { return len(p.Conditions) == 0 }

// Eq 构造相等条件
func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Value: value} }

// NotExists 构造字段缺失条件
func NotExists(field string) Condition { return Condition{Field: field, Op: OpNotExists} }

// ByID 按主键匹配
func ByID(id string) Predicate { return Predicate{Conditions: []Condition{Eq("id", id)}} }

// Where 由条件直接构造谓词
func Where(conds ...Condition) Predicate { return Predicate{}.And(conds...) }

// Sort 排序规则
type Sort struct {
	Field string
	Desc  bool
}

// NewestFirst 默认排序：创建时间倒序
var NewestFirst = Sort{Field: "createdAt", Desc: true}
