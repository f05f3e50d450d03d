package chain

import "strings"

// opKind 操作符的内部类别。
type opKind int

const (
	opEquals opKind = iota
	opNotEquals
	opIn
	opNotIn
	opOn
	opNotOn
	opLike
	opNotLike
	opRaw
)

// Operator 条件比较操作符，封闭的值类型。
// 通过包级变量（Equals、In、Like 等）或 Raw 取得，零值等同于 Equals。
type Operator struct {
	kind opKind
	raw  string
}

var (
	// Equals 等值比较。
	Equals = Operator{kind: opEquals}
	// NotEquals 不等比较。
	NotEquals = Operator{kind: opNotEquals}
	// In 集合成员判定，取值必须是切片或数组。
	In = Operator{kind: opIn}
	// NotIn 集合排除判定,取值必须是切片或数组。
	NotIn = Operator{kind: opNotIn}
	// On 按关联键的成员判定，编译结果与 In 一致。
	On = Operator{kind: opOn}
	// NotOn 按关联键的排除判定，编译结果与 NotIn 一致。
	NotOn = Operator{kind: opNotOn}
	// Like 模糊匹配。
	Like = Operator{kind: opLike}
	// NotLike 反向模糊匹配。
	NotLike = Operator{kind: opNotLike}
)

// Raw 构造自定义比较操作符，如 ">"、"<=" 或 "IS"。
// 操作符文本会原样进入语句，调用方不要传入用户输入。
func Raw(op string) Operator {
	return Operator{kind: opRaw, raw: strings.TrimSpace(op)}
}

// IsSpecial 报告操作符是否要求切片取值（IN/NOT IN/ON/NOT ON）。
func (o Operator) IsSpecial() bool {
	switch o.kind {
	case opIn, opNotIn, opOn, opNotOn:
		return true
	}
	return false
}

// Negated 报告集合操作符是否为排除语义。
func (o Operator) Negated() bool {
	return o.kind == opNotIn || o.kind == opNotOn
}

// SQL 返回操作符的语句片段。
func (o Operator) SQL() string {
	switch o.kind {
	case opEquals:
		return "="
	case opNotEquals:
		return "!="
	case opIn, opOn:
		return "IN"
	case opNotIn, opNotOn:
		return "NOT IN"
	case opLike:
		return "LIKE"
	case opNotLike:
		return "NOT LIKE"
	case opRaw:
		return o.raw
	}
	return "="
}

// String 返回操作符的可读名称，用于日志与错误信息。
func (o Operator) String() string {
	switch o.kind {
	case opOn:
		return "ON"
	case opNotOn:
		return "NOT ON"
	case opRaw:
		return o.raw
	}
	return o.SQL()
}

// Logic 条件之间的逻辑连接词。
type Logic string

const (
	// LogicAnd 以 AND 连接。
	LogicAnd Logic = "AND"
	// LogicOr 以 OR 连接。
	LogicOr Logic = "OR"
)

// Wildcard 模糊匹配时通配符的放置位置。
type Wildcard int

const (
	// WildcardBoth 两侧通配，默认取值。
	WildcardBoth Wildcard = iota
	// WildcardLeft 仅左侧通配，匹配以给定文本结尾的值。
	WildcardLeft
	// WildcardRight 仅右侧通配，匹配以给定文本开头的值。
	WildcardRight
)

// wrap 按放置位置为匹配文本加上通配符。
func (w Wildcard) wrap(pattern string) string {
	switch w {
	case WildcardLeft:
		return "%" + pattern
	case WildcardRight:
		return pattern + "%"
	default:
		return "%" + pattern + "%"
	}
}
