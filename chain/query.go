package chain

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"

	"dbchain/data/db"
	"dbchain/errors"
)

// Query 单次查询的链式构建器。
// 每个 Query 持有独立的查询状态，并在创建时捕获 context，
// 链式方法返回自身以便连续调用。参数校验在链式阶段立即完成，
// 一旦出错即进入粘滞错误态：后续链式调用原样返回，终结方法
// 返回首个错误且不会触达执行器。
type Query struct {
	ctx  context.Context
	exec IExecutor
	st   State
	err  error
}

// NewQuery 基于执行器创建空白查询。
func NewQuery(ctx context.Context, exec IExecutor) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Query{ctx: ctx, exec: exec}
}

// Select 指定返回列，不调用时默认为通配。
func (q *Query) Select(columns ...string) *Query {
	if q.err != nil {
		return q
	}
	if len(columns) == 0 {
		return q
	}
	q.st.Columns = append([]string(nil), columns...)
	return q
}

// From 指定查询表名。
func (q *Query) From(table string) *Query {
	if q.err != nil {
		return q
	}
	q.st.Table = table
	return q
}

// Where 追加一个 AND 条件。
// 集合操作符（IN/NOT IN/ON/NOT ON）要求切片取值，否则进入错误态；
// 普通操作符遇到切片取值时自动按 IN 处理。
func (q *Query) Where(column string, op Operator, value any) *Query {
	return q.addCond(LogicAnd, column, op, value)
}

// WhereEq 追加一个 AND 等值条件。
func (q *Query) WhereEq(column string, value any) *Query {
	return q.addCond(LogicAnd, column, Equals, value)
}

// OrWhere 追加一个 OR 条件，校验规则与 Where 相同。
func (q *Query) OrWhere(column string, op Operator, value any) *Query {
	return q.addCond(LogicOr, column, op, value)
}

// OrWhereEq 追加一个 OR 等值条件。
func (q *Query) OrWhereEq(column string, value any) *Query {
	return q.addCond(LogicOr, column, Equals, value)
}

// WhereMap 以 AND 一次追加多列条件，列按名称排序后依次进入条件组。
// 切片取值按 IN 处理，其余按等值处理。
func (q *Query) WhereMap(conds map[string]any) *Query {
	return q.addMap(LogicAnd, conds)
}

// OrWhereMap 以 OR 一次追加多列条件。
func (q *Query) OrWhereMap(conds map[string]any) *Query {
	return q.addMap(LogicOr, conds)
}

// Like 追加模糊匹配条件，placement 控制通配符位置，默认两侧通配。
func (q *Query) Like(column, pattern string, placement ...Wildcard) *Query {
	return q.addCond(LogicAnd, column, Like, wildcardOf(placement).wrap(pattern))
}

// NotLike 追加反向模糊匹配条件。
func (q *Query) NotLike(column, pattern string, placement ...Wildcard) *Query {
	return q.addCond(LogicAnd, column, NotLike, wildcardOf(placement).wrap(pattern))
}

// OrLike 以 OR 追加模糊匹配条件。
func (q *Query) OrLike(column, pattern string, placement ...Wildcard) *Query {
	return q.addCond(LogicOr, column, Like, wildcardOf(placement).wrap(pattern))
}

// OrNotLike 以 OR 追加反向模糊匹配条件。
func (q *Query) OrNotLike(column, pattern string, placement ...Wildcard) *Query {
	return q.addCond(LogicOr, column, NotLike, wildcardOf(placement).wrap(pattern))
}

// OrderBy 设置排序列，重复调用时后者覆盖前者。
func (q *Query) OrderBy(column string, desc bool) *Query {
	if q.err != nil {
		return q
	}
	q.st.Order = OrderSpec{Column: column, Desc: desc}
	return q
}

// Limit 设置返回行数与偏移，重复调用时后者覆盖前者。
func (q *Query) Limit(count, offset int64) *Query {
	if q.err != nil {
		return q
	}
	q.st.Limit = LimitSpec{Offset: offset, Count: count}
	return q
}

// Clear 清空全部查询状态与错误态。
// 终结方法不会自动清理状态，复用同一 Query 前应显式调用。
func (q *Query) Clear() *Query {
	q.st = State{}
	q.err = nil
	return q
}

// Err 返回链式阶段记录的首个错误。
func (q *Query) Err() error {
	return q.err
}

// Get 执行查询并返回全部结果行。
// 查询状态保持不变，连续调用会重复执行同一查询。
func (q *Query) Get() ([]db.Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.exec.Select(q.ctx, q.st.snapshot())
}

// First 执行查询并返回首行，无结果时返回 NOT_FOUND。
func (q *Query) First() (db.Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	req := q.st.snapshot()
	req.Limit.Count = 1
	rows, err := q.exec.Select(q.ctx, req)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewError(errors.ErrCodeNotFound, "record not found")
	}
	return rows[0], nil
}

// Count 按当前条件统计行数，排序与行数限制不参与统计。
func (q *Query) Count() (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	return q.exec.Count(q.ctx, q.st.Table, cloneWhere(q.st.Where))
}

// Insert 插入单条记录，空记录返回 INVALID_INPUT。
func (q *Query) Insert(table string, record db.Record) (sql.Result, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(record) == 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, "insert record is empty")
	}
	return q.exec.Insert(q.ctx, table, record)
}

// InsertBatch 批量插入记录，空批次或含空记录的批次返回 INVALID_INPUT。
func (q *Query) InsertBatch(table string, records []db.Record) (sql.Result, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(records) == 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, "insert batch is empty")
	}
	for i, record := range records {
		if len(record) == 0 {
			return nil, errors.NewError(errors.ErrCodeInvalidInput,
				fmt.Sprintf("insert batch record %d is empty", i))
		}
	}
	return q.exec.InsertBatch(q.ctx, table, records)
}

// Update 按已累积的条件更新记录并返回受影响行数。
// 为避免整表误改，没有任何条件时拒绝执行。
func (q *Query) Update(table string, data db.Record) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(data) == 0 {
		return 0, errors.NewError(errors.ErrCodeInvalidInput, "update data is empty")
	}
	if len(q.st.Where) == 0 {
		return 0, errors.NewError(errors.ErrCodeInvalidInput, "update without conditions is not allowed")
	}
	return q.exec.Update(q.ctx, table, data, cloneWhere(q.st.Where))
}

// UpdateByKey 以数据中的主键列定位记录，主键列本身不参与更新。
// 已累积的 WHERE 条件不参与定位，定位条件仅来自主键取值。
func (q *Query) UpdateByKey(table string, data db.Record, key string) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	where, set, err := splitByKey(data, key)
	if err != nil {
		return 0, err
	}
	return q.exec.Update(q.ctx, table, set, where)
}

// UpdateBatch 按主键逐条更新并累计受影响行数。
// 所有记录先通过校验再开始执行，任何一条缺少主键都会整体拒绝；
// 执行中途出错时返回已累计的行数和该错误。
func (q *Query) UpdateBatch(table string, records []db.Record, key string) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(records) == 0 {
		return 0, errors.NewError(errors.ErrCodeInvalidInput, "update batch is empty")
	}
	type part struct {
		where []CondGroup
		set   db.Record
	}
	parts := make([]part, 0, len(records))
	for i, record := range records {
		where, set, err := splitByKey(record, key)
		if err != nil {
			return 0, errors.WrapError(err, errors.ErrCodeInvalidInput,
				fmt.Sprintf("update batch record %d", i))
		}
		parts = append(parts, part{where: where, set: set})
	}
	var total int64
	for _, p := range parts {
		affected, err := q.exec.Update(q.ctx, table, p.set, p.where)
		total += affected
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Delete 按已累积的条件删除记录并返回受影响行数。
// 为避免整表误删，没有任何条件时拒绝执行。
func (q *Query) Delete(table string) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(q.st.Where) == 0 {
		return 0, errors.NewError(errors.ErrCodeInvalidInput, "delete without conditions is not allowed")
	}
	return q.exec.Delete(q.ctx, table, cloneWhere(q.st.Where))
}

// addCond 校验取值形态后按合并规则追加条件。
func (q *Query) addCond(logic Logic, column string, op Operator, value any) *Query {
	if q.err != nil {
		return q
	}
	if op.IsSpecial() {
		if !isList(value) {
			q.err = errors.NewError(errors.ErrCodeInvalidInput,
				fmt.Sprintf("operator %s requires a slice value for column %s", op, column))
			return q
		}
	} else if isList(value) {
		op = In
	}
	q.appendCond(logic, Cond{Column: column, Op: op, Value: value})
	return q
}

func (q *Query) addMap(logic Logic, conds map[string]any) *Query {
	if q.err != nil || len(conds) == 0 {
		return q
	}
	columns := make([]string, 0, len(conds))
	for column := range conds {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		value := conds[column]
		op := Equals
		if isList(value) {
			op = In
		}
		q.appendCond(logic, Cond{Column: column, Op: op, Value: value})
	}
	return q
}

// appendCond 应用合并规则：与末组逻辑一致时并入末组，否则另起新组。
func (q *Query) appendCond(logic Logic, c Cond) {
	if len(q.st.Where) == 0 {
		q.st.Where = append(q.st.Where, CondGroup{Logic: logic, Conds: []Cond{c}})
		return
	}
	last := &q.st.Where[len(q.st.Where)-1]
	if last.Logic == logic {
		last.Conds = append(last.Conds, c)
		return
	}
	q.st.Where = append(q.st.Where, CondGroup{Logic: logic, Conds: []Cond{c}})
}

// splitByKey 从记录中取出主键形成定位条件，其余列作为更新内容。
func splitByKey(record db.Record, key string) ([]CondGroup, db.Record, error) {
	if len(record) == 0 {
		return nil, nil, errors.NewError(errors.ErrCodeInvalidInput, "update data is empty")
	}
	if key == "" {
		return nil, nil, errors.NewError(errors.ErrCodeInvalidInput, "update key is empty")
	}
	value, ok := record[key]
	if !ok {
		return nil, nil, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("update data is missing key column %s", key))
	}
	set := record.Clone()
	delete(set, key)
	if len(set) == 0 {
		return nil, nil, errors.NewError(errors.ErrCodeInvalidInput,
			"update data only contains the key column")
	}
	where := []CondGroup{{
		Logic: LogicAnd,
		Conds: []Cond{{Column: key, Op: Equals, Value: value}},
	}}
	return where, set, nil
}

func wildcardOf(placement []Wildcard) Wildcard {
	if len(placement) == 0 {
		return WildcardBoth
	}
	return placement[0]
}

// isList 报告取值是否按集合处理，[]byte 视为标量。
func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}
