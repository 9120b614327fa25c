package element

import (
	"sfc/expr"
	"sfc/mna"
	"sfc/registry"
	"sfc/table"
)

// PlainTable 展示表元件
// 只读地求各行行和与各列列和用于显示与平衡检查,
// 不登记存量, 不参与积分
type PlainTable struct {
	Base
	Table *table.Table

	state expr.State
}

// NewPlainTable 初始化
func NewPlainTable(t *table.Table, values *registry.ComputedValues) *PlainTable {
	e := &PlainTable{Table: t}
	e.state.Values = values
	return e
}

func (e *PlainTable) StepFinished(m *mna.System, tm *mna.Time) {
	e.state.Time = tm.Time
	e.state.TimeStep = tm.TimeStep
	for col := 0; col < e.Table.Cols(); col++ {
		c := e.Table.Column(col)
		c.LastSum = e.Table.ColumnSum(col, &e.state)
	}
}

// ColumnSums 各列最近一次提交的列和
func (e *PlainTable) ColumnSums() []float64 {
	out := make([]float64, e.Table.Cols())
	for col := range out {
		out[col] = e.Table.Column(col).LastSum
	}
	return out
}

// IsBalanced 检查全部行是否平衡
func (e *PlainTable) IsBalanced(eps float64) bool {
	return e.Table.IsFullyBalanced(&e.state, eps)
}
