package registry

import (
	"testing"

	"sfc/table"
)

// 构建两张共享 Deposits 存量的表并完成注册
func sharedPair(r *StockRegistry) (*table.Table, *table.Table) {
	t1 := table.New(1, 4)
	t1.Title = "Households"
	t1.Column(0).StockName = "Deposits"
	t1.Column(1).StockName = "HouseLoans"
	t1.Column(2).StockName = "HouseEquity"
	t1.SetRowDescription(0, "Wages")

	t2 := table.New(1, 4)
	t2.Title = "Banks"
	t2.Column(0).StockName = "Deposits"
	t2.Column(1).StockName = "Reserves"
	t2.Column(1).Type = table.Asset
	t2.Column(2).StockName = "BankEquity"
	t2.SetRowDescription(0, "Interest")

	r.Register("Deposits", t1)
	r.Register("Deposits", t2)
	return t1, t2
}

func TestZeroEquationNotPropagated(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	// "0" 与空方程一样不参与传播
	t1.SetCellEquation(0, 0, "0")
	s.SynchronizeRelatedTables(t1)
	if t2.Rows() != 1 {
		t.Fatalf("\"0\" 方程不应在对端建行: %d 行", t2.Rows())
	}
	if t2.RowDescription(0) != "Interest" {
		t.Fatalf("对端表被意外改写: %q", t2.RowDescription(0))
	}
}

func TestNewFlowCreatesPeerRow(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	t1.SetCellEquation(0, 0, "50")
	s.SynchronizeRelatedTables(t1)
	// 对端应新增 Wages 行, 方程写入共享存量列
	row := -1
	for i := 0; i < t2.Rows(); i++ {
		if t2.RowDescription(i) == "Wages" {
			row = i
		}
	}
	if row < 0 {
		t.Fatalf("对端未新增 Wages 行")
	}
	if t2.CellEquation(row, 0) != "50" {
		t.Fatalf("对端方程错误: %q", t2.CellEquation(row, 0))
	}
	// 回拉阶段把对端已有的 Interest 行带回触发表
	found := false
	for i := 0; i < t1.Rows(); i++ {
		if t1.RowDescription(i) == "Interest" {
			found = true
		}
	}
	if found {
		t.Fatalf("对端 Interest 行没有非空方程, 不应回拉")
	}
}

func TestPullPhaseMergesPeerFlows(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	t1.SetCellEquation(0, 0, "w")
	t2.SetCellEquation(0, 0, "i")
	s.SynchronizeRelatedTables(t1)
	// 双方都应持有对方的流量行
	if findRow(t2, "Wages") < 0 {
		t.Fatalf("推送阶段未建行")
	}
	row := findRow(t1, "Interest")
	if row < 0 {
		t.Fatalf("回拉阶段未建行")
	}
	if t1.CellEquation(row, 0) != "i" {
		t.Fatalf("回拉方程错误: %q", t1.CellEquation(row, 0))
	}
}

func TestSyncIsFixedPoint(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	t1.SetCellEquation(0, 0, "w")
	t2.SetCellEquation(0, 0, "i")
	s.SynchronizeRelatedTables(t1)
	d1, d2 := t1.Dump(), t2.Dump()
	// 收敛后再次同步应为不动点
	s.SynchronizeRelatedTables(t1)
	s.SynchronizeRelatedTables(t2)
	if t1.Dump() != d1 || t2.Dump() != d2 {
		t.Fatalf("同步未收敛到不动点")
	}
}

func TestPriorityTableWins(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	t1.SetCellEquation(0, 0, "w_new")
	t2.SetRowDescription(0, "Wages")
	t2.SetCellEquation(0, 0, "w_old")
	s.SynchronizeRelatedTables(t1)
	if t2.CellEquation(0, 0) != "w_new" {
		t.Fatalf("优先表方程未覆盖: %q", t2.CellEquation(0, 0))
	}
	// 非优先来源不覆盖已有方程
	if t1.CellEquation(0, 0) != "w_new" {
		t.Fatalf("回拉阶段覆盖了触发表方程: %q", t1.CellEquation(0, 0))
	}
}

func TestReentrancyGuard(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	t2.SetCellEquation(0, 0, "i")
	s.inProgress[t1] = true
	if s.SynchronizeTable(t1, nil) {
		t.Fatalf("同步中的表应拒绝重入")
	}
	delete(s.inProgress, t1)
	if !s.SynchronizeTable(t1, nil) {
		t.Fatalf("解除保护后同步应执行并报告修改")
	}
}

func TestSynchronizeTableReportsModified(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	// 目标即优先表时为无操作
	if s.SynchronizeTable(t1, t1) {
		t.Fatalf("目标即优先表应返回 false")
	}
	t1.SetCellEquation(0, 0, "w")
	if !s.SynchronizeTable(t2, t1) {
		t.Fatalf("对端建行后应报告修改")
	}
	// 已收敛的再次同步无任何修改
	if s.SynchronizeTable(t2, t1) {
		t.Fatalf("无修改的同步应返回 false")
	}
	if s.SynchronizeTable(t1, nil) {
		t.Fatalf("回拉无新内容时应返回 false")
	}
}

func TestInitialValueFollowsPriority(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	t1.Column(0).InitialValue = 100
	t2.Column(0).InitialValue = 5
	s.SynchronizeRelatedTables(t1)
	if t2.Column(0).InitialValue != 100 {
		t.Fatalf("共享存量初值未跟随优先表: %g", t2.Column(0).InitialValue)
	}
}

func TestDeleteMatchingFlowRows(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	t1.SetCellEquation(0, 0, "50")
	s.SynchronizeRelatedTables(t1)
	if findRow(t2, "Wages") < 0 {
		t.Fatalf("前置同步失败")
	}
	n := s.DeleteMatchingFlowRows(t1, "Wages", []string{"Deposits"})
	if n != 1 {
		t.Fatalf("删除行数错误: 期望 1 实际 %d", n)
	}
	if findRow(t2, "Wages") >= 0 {
		t.Fatalf("对端行未删除")
	}
	// 再次删除无可删行
	if n := s.DeleteMatchingFlowRows(t1, "Wages", []string{"Deposits"}); n != 0 {
		t.Fatalf("重复删除应返回 0, 实际 %d", n)
	}
}

func TestDeleteRequiresNonZeroEquation(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, t2 := sharedPair(r)
	// 对端有同名行但共享存量列上只有 "0"
	t2.SetRowDescription(0, "Wages")
	t2.SetCellEquation(0, 0, "0")
	if n := s.DeleteMatchingFlowRows(t1, "Wages", []string{"Deposits"}); n != 0 {
		t.Fatalf("零方程行不应删除, 实际删除 %d", n)
	}
	if t2.Rows() != 1 {
		t.Fatalf("对端行被误删")
	}
}

func TestDeleteEmptyDescription(t *testing.T) {
	r := NewStockRegistry()
	s := NewSynchronizer(r)
	t1, _ := sharedPair(r)
	if n := s.DeleteMatchingFlowRows(t1, "   ", []string{"Deposits"}); n != 0 {
		t.Fatalf("空描述应为无操作")
	}
}
