package sfc

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"sfc/debug"
	"sfc/element"
	"sfc/table"
)

func TestLoadAndRunSectors(t *testing.T) {
	model := `
# 两部门经济: 企业向住户支付工资
.tran 0.01 1
sector Firms 0 100 1 be
sector Households 1 20 1 be
flow Wages 0 1 10
`
	c := New()
	if err := c.LoadString(model); err != nil {
		t.Fatalf("加载模型失败: %s", err)
	}
	if err := c.Run(); err != nil {
		t.Fatalf("仿真失败: %s", err)
	}
	firms, _ := c.Values.Get("Firms")
	households, _ := c.Values.Get("Households")
	if math.Abs(firms-90) > 1e-6 || math.Abs(households-30) > 1e-6 {
		t.Fatalf("存量结果错误: Firms=%g Households=%g", firms, households)
	}
	if math.Abs(firms+households-120) > 1e-9 {
		t.Fatalf("存量不守恒: %g", firms+households)
	}
}

func TestLoadIntegratingTable(t *testing.T) {
	tb := table.New(1, 4)
	tb.Column(0).StockName = "Firms"
	tb.Column(0).InitialValue = 10
	tb.SetRowDescription(0, "Sales")
	tb.SetCellEquation(0, 0, "2")
	model := fmt.Sprintf(".tran 0.01 1\ntable %s\n", tb.Dump())

	c := New()
	if err := c.LoadString(model); err != nil {
		t.Fatalf("加载模型失败: %s", err)
	}
	if err := c.Run(); err != nil {
		t.Fatalf("仿真失败: %s", err)
	}
	if v, ok := c.Values.Get("Firms"); !ok || math.Abs(v-12) > 1e-9 {
		t.Fatalf("积分结果错误: %g", v)
	}
}

func TestLoadSynchronizesTables(t *testing.T) {
	t1 := table.New(1, 4)
	t1.Column(0).StockName = "Deposits"
	t1.SetRowDescription(0, "Wages")
	t1.SetCellEquation(0, 0, "50")
	t2 := table.New(1, 4)
	t2.Column(0).StockName = "Deposits"
	t2.SetRowDescription(0, "Interest")
	model := fmt.Sprintf(".tran 0.01 1\ntable %s\ntable %s\n", t1.Dump(), t2.Dump())

	c := New()
	if err := c.LoadString(model); err != nil {
		t.Fatalf("加载模型失败: %s", err)
	}
	if !c.Registry.IsShared("Deposits") {
		t.Fatalf("共享存量未登记")
	}
	loaded := c.Elements[1].(*element.IntegratingTable).Table
	found := false
	for row := 0; row < loaded.Rows(); row++ {
		if loaded.RowDescription(row) == "Wages" {
			found = true
			if got := loaded.CellEquation(row, 0); got != "50" {
				t.Fatalf("同步方程错误: %q", got)
			}
		}
	}
	if !found {
		t.Fatalf("加载后未同步新流量行")
	}
}

func TestLoadClearsRegistries(t *testing.T) {
	c := New()
	if err := c.LoadString(".tran 0.01 1\nsector Firms 0 100\n"); err != nil {
		t.Fatalf("加载失败: %s", err)
	}
	if err := c.LoadString(".tran 0.01 1\nsector Banks 0 5\n"); err != nil {
		t.Fatalf("二次加载失败: %s", err)
	}
	if _, ok := c.Values.Get("Firms"); ok {
		t.Fatalf("二次加载未清空计算值注册表")
	}
	if len(c.Elements) != 1 {
		t.Fatalf("二次加载元件残留: %d", len(c.Elements))
	}
}

func TestLoadErrors(t *testing.T) {
	c := New()
	if err := c.LoadString("bogus 1 2 3\n"); err == nil {
		t.Fatalf("未知元件定义应报错")
	}
	if err := c.LoadString(".tran -1 1\n"); err == nil {
		t.Fatalf("非法步长应报错")
	}
	if err := c.LoadString("sector OnlyName\n"); err == nil {
		t.Fatalf("字段不足应报错")
	}
}

func TestExportRoundTrip(t *testing.T) {
	model := `.tran 0.01 2
sector Firms 0 100 1 be
sector Households 1 20 1
flow Wages 0 1 0.1*Firms
isrc -1 0 2
ramp -1 2 0 5
matrix CTM Deposits Loans
`
	c := New()
	if err := c.LoadString(model); err != nil {
		t.Fatalf("加载失败: %s", err)
	}
	var buf bytes.Buffer
	if err := c.Export(&buf); err != nil {
		t.Fatalf("导出失败: %s", err)
	}
	again := New()
	if err := again.LoadString(buf.String()); err != nil {
		t.Fatalf("再加载失败: %s", err)
	}
	var buf2 bytes.Buffer
	if err := again.Export(&buf2); err != nil {
		t.Fatalf("再导出失败: %s", err)
	}
	if buf.String() != buf2.String() {
		t.Fatalf("导出往返不一致:\n%s\n%s", buf.String(), buf2.String())
	}
	if !strings.Contains(buf.String(), "flow Wages 0 1 0.1*Firms") {
		t.Fatalf("流量导出缺失:\n%s", buf.String())
	}
}

func TestRecordDuringRun(t *testing.T) {
	c := New()
	if err := c.LoadString(".tran 0.1 1\nsector Firms 0 100 1 be\nflow Out 0 -1 5\n"); err != nil {
		t.Fatalf("加载失败: %s", err)
	}
	c.Record = debug.NewRecord("Firms")
	if err := c.Run(); err != nil {
		t.Fatalf("仿真失败: %s", err)
	}
	if c.Record.Len() != 10 {
		t.Fatalf("采样点数错误: %d", c.Record.Len())
	}
	series := c.Record.Series["Firms"]
	if series[0] >= 100 || series[9] >= series[0] {
		t.Fatalf("存量序列未按流量递减: %v", series)
	}
	if math.Abs(series[9]-95) > 1e-6 {
		t.Fatalf("末值错误: %g", series[9])
	}
}
