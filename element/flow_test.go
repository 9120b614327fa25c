package element

import (
	"math"
	"testing"

	"sfc/mna"
	"sfc/registry"
	"sfc/table"
)

func TestFlowEvaluation(t *testing.T) {
	values := registry.NewComputedValues()
	values.Set("Firms", 100, nil)
	e := NewFlow("Wages", 0, 1, "0.1*Firms", values)
	m := mna.NewSystem(2, 0)
	tm := &mna.Time{Time: 1, TimeStep: 0.01}
	e.StartIteration(tm)
	e.DoStep(m, tm)
	if math.Abs(e.Value()-10) > 1e-12 {
		t.Fatalf("流量求值错误: 期望 10 实际 %g", e.Value())
	}
	// 存量变化后下一步取新值
	values.Set("Firms", 50, nil)
	e.DoStep(m, tm)
	if math.Abs(e.Value()-5) > 1e-12 {
		t.Fatalf("流量未跟随存量: %g", e.Value())
	}
}

// 反复 DoStep 并求解直到收敛标志存活
func iterateFlow(t *testing.T, m *mna.System, tm *mna.Time, e *Flow) {
	t.Helper()
	for iter := 0; iter < 256; iter++ {
		m.RestoreLinear()
		m.SetConverged(true)
		e.DoStep(m, tm)
		if err := m.Solve(); err != nil {
			t.Fatalf("求解失败: %s", err)
		}
		if m.IsConverged() {
			return
		}
	}
	t.Fatalf("流量迭代未收敛")
}

func TestFlowTracksNodeVoltages(t *testing.T) {
	// 节点 0 注入 10A 经 1Ω 接地, 流量 0.2*Vs 注入节点 1 的 1Ω 负载:
	// V0 = 10/1.2, V1 = 0.2*V0
	values := registry.NewComputedValues()
	e := NewFlow("Spend", 0, 1, "0.2*Vs", values)
	m := mna.NewSystem(2, 0)
	m.BeginStamp()
	m.StampResistor(0, mna.Gnd, 1)
	m.StampResistor(1, mna.Gnd, 1)
	m.StampCurrentSource(mna.Gnd, 0, 10)
	m.SaveLinear()
	tm := &mna.Time{TimeStep: 0.01}
	e.StartIteration(tm)
	iterateFlow(t, m, tm, e)
	e.StartIteration(tm)
	iterateFlow(t, m, tm, e)
	if v := m.GetVoltage(0); math.Abs(v-10.0/1.2) > 1e-6 {
		t.Fatalf("付款节点电压错误: 期望 %g 实际 %g", 10.0/1.2, v)
	}
	if v := m.GetVoltage(1); math.Abs(v-2.0/1.2) > 1e-6 {
		t.Fatalf("收款节点电压错误: 期望 %g 实际 %g", 2.0/1.2, v)
	}
	if math.Abs(e.Value()-2.0/1.2) > 1e-6 {
		t.Fatalf("流量未跟随节点电压: %g", e.Value())
	}
}

func TestFlowClearsConvergedOnInputChange(t *testing.T) {
	values := registry.NewComputedValues()
	m := mna.NewSystem(1, 0)
	m.StampResistor(0, mna.Gnd, 1)
	m.StampCurrentSource(mna.Gnd, 0, 10)
	if err := m.Solve(); err != nil {
		t.Fatalf("求解失败: %s", err)
	}
	e := NewFlow("Tax", 0, mna.Gnd, "0.1*Vs", values)
	tm := &mna.Time{TimeStep: 0.01}
	e.StartIteration(tm)
	m.SetConverged(true)
	e.DoStep(m, tm)
	if m.IsConverged() {
		t.Fatalf("输入电压变化后收敛标志未清除")
	}
	// 输入稳定后标志存活
	m.SetConverged(true)
	e.DoStep(m, tm)
	if !m.IsConverged() {
		t.Fatalf("输入稳定后不应清除收敛标志")
	}
}

func TestFlowPublishesValue(t *testing.T) {
	values := registry.NewComputedValues()
	e := NewFlow("Wages", 0, 1, "5", values)
	m := mna.NewSystem(2, 0)
	tm := &mna.Time{TimeStep: 0.01}
	e.StartIteration(tm)
	e.DoStep(m, tm)
	e.StepFinished(m, tm)
	if v, ok := values.Get("Wages"); !ok || math.Abs(v-5) > 1e-12 {
		t.Fatalf("流量值未发布: %g", v)
	}
	if !values.ComputedThisStep("Wages") {
		t.Fatalf("流量值未标记已计算")
	}
}

func TestFlowStampsCurrent(t *testing.T) {
	values := registry.NewComputedValues()
	e := NewFlow("Pay", mna.Gnd, 0, "2", values)
	m := mna.NewSystem(1, 0)
	m.StampResistor(0, mna.Gnd, 10)
	tm := &mna.Time{TimeStep: 0.01}
	e.StartIteration(tm)
	e.DoStep(m, tm)
	if err := m.Solve(); err != nil {
		t.Fatalf("求解失败: %s", err)
	}
	if v := m.GetVoltage(0); math.Abs(v-20) > 1e-9 {
		t.Fatalf("流量注入错误: 期望 20 实际 %g", v)
	}
}

func TestFlowBadEquationDegrades(t *testing.T) {
	values := registry.NewComputedValues()
	e := NewFlow("Bad", 0, mna.Gnd, "1+*", values)
	m := mna.NewSystem(1, 0)
	tm := &mna.Time{TimeStep: 0.01}
	e.StartIteration(tm)
	e.DoStep(m, tm)
	// 非法方程退化为大电阻, 矩阵不奇异
	if err := m.Solve(); err != nil {
		t.Fatalf("退化电阻未避免奇异矩阵: %s", err)
	}
	if v := m.GetVoltage(0); v != 0 {
		t.Fatalf("退化后节点电压应为 0: %g", v)
	}
}

func TestPlainTableBalance(t *testing.T) {
	values := registry.NewComputedValues()
	tb := table.New(1, 4)
	tb.SetCellEquation(0, 0, "7")
	tb.SetCellEquation(0, 1, "4")
	tb.SetCellEquation(0, 2, "3")
	e := NewPlainTable(tb, values)
	e.StepFinished(mna.NewSystem(0, 0), &mna.Time{TimeStep: 0.01})
	sums := e.ColumnSums()
	if math.Abs(sums[0]-7) > 1e-12 || math.Abs(sums[3]-0) > 1e-12 {
		t.Fatalf("展示表列和错误: %v", sums)
	}
	if !e.IsBalanced(1e-9) {
		t.Fatalf("展示表应判定平衡")
	}
}
