package element

import (
	"log"
	"strings"

	"sfc/expr"
	"sfc/mna"
	"sfc/registry"
	"sfc/utils"
)

// 数值微分的电压扰动
const flowDerivStep = 1e-6

// Flow 扇区间流量元件
// 按方程取值的非线性电流源, 电流从付款扇区节点流向收款扇区节点.
// 方程可引用 Vs/Vd 即两端节点的当前存量, 其余自由标识符经计算值
// 注册表解析. 每次牛顿迭代对 Vs/Vd 数值求导后做线性化盖章,
// 时间步结束后以流量名发布取值
type Flow struct {
	Base
	Name     string
	N1, N2   mna.NodeID
	Equation string

	compiled *expr.Expr
	values   *registry.ComputedValues
	state    expr.State
	resolver flowResolver

	flow           float64
	lastVs, lastVd float64
	iter           int
}

// flowResolver 把 Vs/Vd 绑定到节点电压, 其余名称转交注册表
type flowResolver struct {
	base   expr.Resolver
	vs, vd float64
}

func (r *flowResolver) ResolveValue(name string) (float64, bool) {
	switch name {
	case "Vs":
		return r.vs, true
	case "Vd":
		return r.vd, true
	}
	if r.base != nil {
		return r.base.ResolveValue(name)
	}
	return 0, false
}

// NewFlow 初始化并编译流量方程
func NewFlow(name string, n1, n2 mna.NodeID, equation string, values *registry.ComputedValues) *Flow {
	e := &Flow{Name: name, N1: n1, N2: n2, Equation: equation, values: values}
	e.resolver.base = values
	e.state.Values = &e.resolver
	compiled, err := expr.Parse(equation)
	if err != nil {
		log.Printf("流量方程编译失败 %q: %s", equation, err)
		compiled = nil
	}
	e.compiled = compiled
	return e
}

// Value 当前流量
func (e *Flow) Value() float64 { return e.flow }

func (e *Flow) Reset() {
	e.flow = 0
	e.lastVs = 0
	e.lastVd = 0
	e.iter = 0
	e.state.LastOutput = 0
}

// 迭代次数越多容差越宽, 帮助收敛
func (e *Flow) convergeLimit() float64 {
	if e.iter < 10 {
		return 0.001
	}
	if e.iter < 100 {
		return 0.01
	}
	return 0.1
}

func (e *Flow) StartIteration(tm *mna.Time) {
	e.iter = 0
}

func (e *Flow) DoStep(m *mna.System, tm *mna.Time) {
	if e.compiled == nil {
		// 方程非法时退化为大电阻, 避免矩阵奇异
		m.StampResistor(e.N1, e.N2, 1e8)
		e.flow = 0
		return
	}
	vs := m.GetVoltage(e.N1)
	vd := m.GetVoltage(e.N2)

	limit := e.convergeLimit()
	e.iter++
	if utils.Abs(vs-e.lastVs) > limit || utils.Abs(vd-e.lastVd) > limit {
		m.SetConverged(false)
	}

	e.state.Time = tm.Time
	e.state.TimeStep = tm.TimeStep
	e.resolver.vs, e.resolver.vd = vs, vd
	e.flow = e.compiled.Eval(&e.state)

	// 牛顿迭代: I ≈ I0 + ∂I/∂Vs·ΔVs + ∂I/∂Vd·ΔVd
	e.resolver.vs = vs + flowDerivStep
	plus := e.compiled.Eval(&e.state)
	e.resolver.vs = vs - flowDerivStep
	minus := e.compiled.Eval(&e.state)
	dIdVs := (plus - minus) / (2 * flowDerivStep)
	e.resolver.vs = vs

	e.resolver.vd = vd + flowDerivStep
	plus = e.compiled.Eval(&e.state)
	e.resolver.vd = vd - flowDerivStep
	minus = e.compiled.Eval(&e.state)
	dIdVd := (plus - minus) / (2 * flowDerivStep)
	e.resolver.vd = vd

	if utils.Abs(dIdVs) > 1e-12 {
		m.StampMatrix(e.N1, e.N1, -dIdVs)
		m.StampMatrix(e.N2, e.N1, dIdVs)
	}
	if utils.Abs(dIdVd) > 1e-12 {
		m.StampMatrix(e.N1, e.N2, -dIdVd)
		m.StampMatrix(e.N2, e.N2, dIdVd)
	}
	// 常数部分剥离线性化项
	m.StampCurrentSource(e.N1, e.N2, e.flow-dIdVs*vs-dIdVd*vd)

	e.lastVs, e.lastVd = vs, vd
}

// StepFinished 以流量名发布取值, 供其他表格与矩阵引用
func (e *Flow) StepFinished(m *mna.System, tm *mna.Time) {
	if name := strings.TrimSpace(e.Name); name != "" && e.values != nil {
		e.values.Set(name, e.flow, e)
		e.values.MarkComputed(name)
	}
	e.state.LastOutput = e.flow
}
