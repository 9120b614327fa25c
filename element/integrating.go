package element

import (
	"strings"

	"sfc/expr"
	"sfc/mna"
	"sfc/registry"
	"sfc/table"
	"sfc/utils"
)

// 列和收敛判定容差
const sumConvergeEps = 1e-6

// IntegratingTable 积分表元件
// 每次迭代求各存量列的列和即净流量, 列和与上次迭代偏差超过容差时
// 清除收敛标志; 时间步结束后按 存量 += 步长 × 增益 × 列和 做离散积分,
// 并以列头为名发布积分结果
type IntegratingTable struct {
	Base
	Table *table.Table
	Gain  float64

	registry *registry.StockRegistry
	values   *registry.ComputedValues
	state    expr.State
}

// NewIntegratingTable 初始化并登记各存量列
func NewIntegratingTable(t *table.Table, reg *registry.StockRegistry, values *registry.ComputedValues) *IntegratingTable {
	e := &IntegratingTable{
		Table:    t,
		Gain:     1,
		registry: reg,
		values:   values,
	}
	e.state.Values = values
	e.RegisterStocks()
	e.Reset()
	return e
}

// RegisterStocks 向存量注册表登记全部非推导列
func (e *IntegratingTable) RegisterStocks() {
	if e.registry == nil {
		return
	}
	for col := 0; col < e.Table.Cols(); col++ {
		if e.Table.IsComputedColumn(col) {
			continue
		}
		e.registry.Register(e.Table.Column(col).StockName, e.Table)
	}
}

// Unregister 注销全部存量, 元件删除时调用
func (e *IntegratingTable) Unregister() {
	if e.registry != nil {
		e.registry.UnregisterAll(e.Table)
	}
}

func (e *IntegratingTable) Reset() {
	for col := 0; col < e.Table.Cols(); col++ {
		c := e.Table.Column(col)
		c.LastOutput = c.InitialValue
		c.LastSum = 0
		e.publish(col)
	}
}

func (e *IntegratingTable) publish(col int) {
	if e.values == nil || e.Table.IsComputedColumn(col) {
		return
	}
	c := e.Table.Column(col)
	name := strings.TrimSpace(c.StockName)
	if name == "" {
		return
	}
	e.values.Set(name, c.LastOutput, e)
}

func (e *IntegratingTable) DoStep(m *mna.System, tm *mna.Time) {
	e.state.Time = tm.Time
	e.state.TimeStep = tm.TimeStep
	for col := 0; col < e.Table.Cols(); col++ {
		if e.Table.IsComputedColumn(col) {
			continue
		}
		c := e.Table.Column(col)
		sum := e.Table.ColumnSum(col, &e.state)
		if utils.Abs(sum-c.LastSum) > sumConvergeEps {
			m.SetConverged(false)
		}
		c.LastSum = sum
	}
}

// StepFinished 以收敛后的列和完成一步离散积分
func (e *IntegratingTable) StepFinished(m *mna.System, tm *mna.Time) {
	for col := 0; col < e.Table.Cols(); col++ {
		if e.Table.IsComputedColumn(col) {
			continue
		}
		c := e.Table.Column(col)
		c.LastOutput += tm.TimeStep * e.Gain * c.LastSum
		e.publish(col)
		if e.values != nil {
			e.values.MarkComputed(strings.TrimSpace(c.StockName))
		}
	}
}
