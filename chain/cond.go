package chain

// Cond 单个查询条件。
type Cond struct {
	Column string
	Op     Operator
	Value  any
}

// CondGroup 由相同逻辑连接词累积的一组条件。
// Logic 既是组内成员之间的连接词，也是本组与前一组之间的连接词；
// 首组的 Logic 只参与合并判定，编译时不输出。
type CondGroup struct {
	Logic Logic
	Conds []Cond
}

// OrderSpec 排序说明，列名为空表示未设置。
type OrderSpec struct {
	Column string
	Desc   bool
}

// LimitSpec 行数限制，Count 为 0 表示未设置。
type LimitSpec struct {
	Offset int64
	Count  int64
}

// State 链式调用逐步累积的查询状态。
type State struct {
	Columns []string
	Table   string
	Where   []CondGroup
	Order   OrderSpec
	Limit   LimitSpec
}

// SelectRequest 交给执行器的查询快照，与构建中的状态相互独立。
type SelectRequest struct {
	Table   string
	Columns []string
	Where   []CondGroup
	Order   OrderSpec
	Limit   LimitSpec
}

// snapshot 复制当前状态，未指定列时补全为通配。
func (s *State) snapshot() SelectRequest {
	columns := make([]string, len(s.Columns))
	copy(columns, s.Columns)
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return SelectRequest{
		Table:   s.Table,
		Columns: columns,
		Where:   cloneWhere(s.Where),
		Order:   s.Order,
		Limit:   s.Limit,
	}
}

// cloneWhere 复制条件组切片，执行器侧的改动不会影响构建状态。
func cloneWhere(groups []CondGroup) []CondGroup {
	if len(groups) == 0 {
		return nil
	}
	out := make([]CondGroup, len(groups))
	for i, g := range groups {
		conds := make([]Cond, len(g.Conds))
		copy(conds, g.Conds)
		out[i] = CondGroup{Logic: g.Logic, Conds: conds}
	}
	return out
}
