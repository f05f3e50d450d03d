package sqlexec

import (
	"reflect"
	"sort"
	"strings"

	"dbchain/chain"
	core "dbchain/data/db"
	"dbchain/data/db/dialect"
)

// quoteIdent 校验并按方言引用标识符。
// 空标识符原样返回，让非法语句由数据库自己报错；
// 含注入片段的非空标识符直接 panic，视为调用方编码错误。
func quoteIdent(d dialect.Dialect, kind, name string) string {
	if name == "" {
		return ""
	}
	if !isSafeIdentifier(name) {
		panic("sqlexec: unsafe " + kind + " " + name)
	}
	return d.QuoteIdentifier(name)
}

// compileSelect 拼装查询语句。
// LIMIT 与 OFFSET 以参数占位，0 值不输出。
func compileSelect(d dialect.Dialect, req chain.SelectRequest) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")

	columns := req.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	quoted := make([]string, len(columns))
	for i, column := range columns {
		if column == "*" {
			quoted[i] = column
			continue
		}
		quoted[i] = quoteIdent(d, "column name", column)
	}
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(d, "table name", req.Table))

	args := make([]any, 0, 8)
	if frag, whereArgs := compileWhere(d, req.Where); frag != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(frag)
		args = append(args, whereArgs...)
	}
	if req.Order.Column != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(quoteIdent(d, "column name", req.Order.Column))
		if req.Order.Desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
	if req.Limit.Count > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, req.Limit.Count)
	}
	if req.Limit.Offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, req.Limit.Offset)
	}
	return sb.String(), args
}

// compileCount 拼装行数统计语句。
func compileCount(d dialect.Dialect, table string, where []chain.CondGroup) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(1) FROM ")
	sb.WriteString(quoteIdent(d, "table name", table))

	frag, args := compileWhere(d, where)
	if frag != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(frag)
	}
	return sb.String(), args
}

// compileInsert 拼装多行插入语句。
// 列集取首条记录的列并按名称排序保证语句稳定；
// 后续记录缺少某列时以 NULL 占位。
func compileInsert(d dialect.Dialect, table string, records []core.Record) (string, []any) {
	if len(records) == 0 {
		panic("sqlexec: at least one record is required")
	}
	columns := sortedColumns(records[0])
	if len(columns) == 0 {
		panic("sqlexec: insert record has no columns")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quoteIdent(d, "table name", table))
	sb.WriteString(" (")
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(d, "column name", column)
	}
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	rowPlaceholder := "(" + strings.TrimRight(strings.Repeat("?, ", len(columns)), ", ") + ")"

	args := make([]any, 0, len(records)*len(columns))
	for i, record := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(rowPlaceholder)
		for _, column := range columns {
			args = append(args, record[column])
		}
	}
	return sb.String(), args
}

// compileUpdate 拼装更新语句，SET 列按名称排序。
func compileUpdate(d dialect.Dialect, table string, data core.Record, where []chain.CondGroup) (string, []any) {
	columns := sortedColumns(data)
	if len(columns) == 0 {
		panic("sqlexec: no columns to set")
	}

	var sb strings.Builder
	args := make([]any, 0, len(columns)+4)

	sb.WriteString("UPDATE ")
	sb.WriteString(quoteIdent(d, "table name", table))
	sb.WriteString(" SET ")
	for i, column := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteIdent(d, "column name", column))
		sb.WriteString(" = ?")
		args = append(args, data[column])
	}

	if frag, whereArgs := compileWhere(d, where); frag != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(frag)
		args = append(args, whereArgs...)
	}
	return sb.String(), args
}

// compileDelete 拼装删除语句。
func compileDelete(d dialect.Dialect, table string, where []chain.CondGroup) (string, []any) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(quoteIdent(d, "table name", table))

	frag, args := compileWhere(d, where)
	if frag != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(frag)
	}
	return sb.String(), args
}

// compileWhere 把条件组编译为 WHERE 片段。
// 组与组之间以后一组的逻辑词连接，多成员的组加括号。
func compileWhere(d dialect.Dialect, groups []chain.CondGroup) (string, []any) {
	if len(groups) == 0 {
		return "", nil
	}
	var sb strings.Builder
	var args []any
	for _, g := range groups {
		if len(g.Conds) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
			sb.WriteString(string(g.Logic))
			sb.WriteString(" ")
		}
		frag, groupArgs := compileGroup(d, g)
		sb.WriteString(frag)
		args = append(args, groupArgs...)
	}
	return sb.String(), args
}

func compileGroup(d dialect.Dialect, g chain.CondGroup) (string, []any) {
	parts := make([]string, 0, len(g.Conds))
	var args []any
	for _, c := range g.Conds {
		frag, condArgs := compileCond(d, c)
		parts = append(parts, frag)
		args = append(args, condArgs...)
	}
	frag := strings.Join(parts, " "+string(g.Logic)+" ")
	if len(parts) > 1 {
		frag = "(" + frag + ")"
	}
	return frag, args
}

// compileCond 编译单个条件。
// 空集合的 IN 编译为恒假、NOT IN 编译为恒真，结果语义与集合运算一致。
func compileCond(d dialect.Dialect, c chain.Cond) (string, []any) {
	column := quoteIdent(d, "column name", c.Column)
	if c.Op.IsSpecial() {
		values := listValues(c.Op, c.Value)
		if len(values) == 0 {
			if c.Op.Negated() {
				return "1 = 1", nil
			}
			return "1 = 0", nil
		}
		placeholders := strings.TrimRight(strings.Repeat("?, ", len(values)), ", ")
		return column + " " + c.Op.SQL() + " (" + placeholders + ")", values
	}
	return column + " " + c.Op.SQL() + " ?", []any{c.Value}
}

func listValues(op chain.Operator, v any) []any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		panic("sqlexec: operator " + op.String() + " requires a slice value")
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}

func sortedColumns(record core.Record) []string {
	columns := make([]string, 0, len(record))
	for column := range record {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
