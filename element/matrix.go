package element

import (
	"strings"

	"sfc/expr"
	"sfc/mna"
	"sfc/registry"
	"sfc/table"
)

// TransactionsMatrix 交易流量汇总矩阵
// 从注册表自动收集共享存量作为列, 合并所有相关表的流量行,
// 汇总每个存量的净流量. 已由扇区或积分表在本步计算过的存量
// 不再重复计数, 其他汇总矩阵持有的存量被排除
type TransactionsMatrix struct {
	Base
	Name         string
	Table        *table.Table
	CustomStocks []string // 非空时覆盖自动收集

	registry *registry.StockRegistry
	values   *registry.ComputedValues
	state    expr.State

	computing bool
	sums      map[string]float64
}

// NewTransactionsMatrix 初始化
func NewTransactionsMatrix(name string, reg *registry.StockRegistry, values *registry.ComputedValues) *TransactionsMatrix {
	e := &TransactionsMatrix{
		Name:     name,
		Table:    table.New(0, 0),
		registry: reg,
		values:   values,
		sums:     make(map[string]float64),
	}
	e.state.Values = values
	e.Table.Title = name
	return e
}

// stocks 返回参与汇总的存量列表
func (e *TransactionsMatrix) stocks() []string {
	if len(e.CustomStocks) > 0 {
		return e.CustomStocks
	}
	var out []string
	for _, stock := range e.registry.SharedStocks() {
		if owner, ok := e.values.Owner(stock).(*TransactionsMatrix); ok && owner != e {
			continue
		}
		out = append(out, stock)
	}
	return out
}

// RefreshColumns 重建矩阵结构
// 列为收集到的存量, 行为各存量合并后的流量描述,
// 单元格取第一张持有该流量行且方程非空的表的方程
func (e *TransactionsMatrix) RefreshColumns() {
	stocks := e.stocks()
	var rowOrder []string
	seen := make(map[string]bool)
	for _, stock := range stocks {
		for _, desc := range e.registry.MergedRowDescriptions(stock, nil) {
			if !seen[desc] {
				seen[desc] = true
				rowOrder = append(rowOrder, desc)
			}
		}
	}
	t := table.New(len(rowOrder), len(stocks))
	t.Title = e.Name
	for col, stock := range stocks {
		t.Column(col).StockName = stock
		t.Column(col).Type = table.Asset
	}
	for row, desc := range rowOrder {
		t.SetRowDescription(row, desc)
		for col, stock := range stocks {
			t.SetCellEquation(row, col, e.lookupEquation(stock, desc))
		}
	}
	e.Table = t
}

func (e *TransactionsMatrix) lookupEquation(stock, desc string) string {
	for _, src := range e.registry.TablesFor(stock) {
		col := src.FindColumnByStock(stock)
		if col < 0 || src.IsComputedColumn(col) {
			continue
		}
		for row := 0; row < src.Rows(); row++ {
			if strings.TrimSpace(src.RowDescription(row)) != desc {
				continue
			}
			eq := strings.TrimSpace(src.CellEquation(row, col))
			if eq != "" && eq != "0" {
				return eq
			}
		}
	}
	return ""
}

func (e *TransactionsMatrix) Reset() {
	e.sums = make(map[string]float64)
	e.computing = false
	e.RefreshColumns()
}

// StepFinished 汇总各存量净流量
// computing 标志防止方程解析经计算值回查时递归重入
func (e *TransactionsMatrix) StepFinished(m *mna.System, tm *mna.Time) {
	if e.computing {
		return
	}
	e.computing = true
	defer func() { e.computing = false }()

	e.state.Time = tm.Time
	e.state.TimeStep = tm.TimeStep
	for col := 0; col < e.Table.Cols(); col++ {
		stock := e.Table.Column(col).StockName
		// 避免重复计数: 本步已由所有者计算的存量直接取其发布值
		if e.values.ComputedThisStep(stock) {
			if v, ok := e.values.Get(stock); ok {
				e.sums[stock] = v
			}
			continue
		}
		sum := e.Table.ColumnSum(col, &e.state)
		e.sums[stock] = sum
		e.values.Set(stock, sum, e)
	}
}

// Sum 读取某存量最近一次汇总结果
func (e *TransactionsMatrix) Sum(stock string) float64 {
	return e.sums[stock]
}
