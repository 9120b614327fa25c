package element

import "sfc/mna"

// Resistor 电阻
type Resistor struct {
	Base
	N1, N2     mna.NodeID
	Resistance float64

	current float64
}

// NewResistor 初始化
func NewResistor(n1, n2 mna.NodeID, r float64) *Resistor {
	return &Resistor{N1: n1, N2: n2, Resistance: r}
}

func (e *Resistor) Stamp(m *mna.System) {
	m.StampResistor(e.N1, e.N2, e.Resistance)
}

func (e *Resistor) CalculateCurrent(m *mna.System) {
	e.current = (m.GetVoltage(e.N1) - m.GetVoltage(e.N2)) / e.Resistance
}

// Current 流过电阻的电流
func (e *Resistor) Current() float64 { return e.current }

// DCSource 直流电压源
type DCSource struct {
	Base
	N1, N2  mna.NodeID
	Voltage float64

	vs      mna.VoltageID
	current float64
}

// NewDCSource 初始化, v 为 N2 相对 N1 的电压
func NewDCSource(n1, n2 mna.NodeID, v float64) *DCSource {
	return &DCSource{N1: n1, N2: n2, Voltage: v}
}

func (e *DCSource) VoltageSourceCount() int           { return 1 }
func (e *DCSource) SetVoltageSource(id mna.VoltageID) { e.vs = id }

func (e *DCSource) Stamp(m *mna.System) {
	m.StampVoltageSource(e.N1, e.N2, e.vs, e.Voltage)
}

func (e *DCSource) CalculateCurrent(m *mna.System) {
	e.current = m.GetVoltageSourceCurrent(e.vs)
}

// Current 流过电压源的电流
func (e *DCSource) Current() float64 { return e.current }

// RampSource 线性爬升电压源, 电压 = Offset + Rate × t
// 用作外生冲击输入, 每个时间步只更新右端项
type RampSource struct {
	Base
	N1, N2 mna.NodeID
	Offset float64
	Rate   float64

	vs      mna.VoltageID
	volts   float64
	current float64
}

// NewRampSource 初始化
func NewRampSource(n1, n2 mna.NodeID, offset, rate float64) *RampSource {
	return &RampSource{N1: n1, N2: n2, Offset: offset, Rate: rate}
}

func (e *RampSource) VoltageSourceCount() int           { return 1 }
func (e *RampSource) SetVoltageSource(id mna.VoltageID) { e.vs = id }

func (e *RampSource) StartIteration(tm *mna.Time) {
	e.volts = e.Offset + e.Rate*tm.Time
}

func (e *RampSource) Stamp(m *mna.System) {
	m.StampVoltageSource(e.N1, e.N2, e.vs, e.Offset)
}

func (e *RampSource) DoStep(m *mna.System, tm *mna.Time) {
	m.UpdateVoltageSource(e.vs, e.volts)
}

func (e *RampSource) CalculateCurrent(m *mna.System) {
	e.current = m.GetVoltageSourceCurrent(e.vs)
}

// Current 流过电压源的电流
func (e *RampSource) Current() float64 { return e.current }

// CurrentSource 恒定电流源, 电流从 N1 流向 N2
type CurrentSource struct {
	Base
	N1, N2  mna.NodeID
	Current float64
}

// NewCurrentSource 初始化
func NewCurrentSource(n1, n2 mna.NodeID, i float64) *CurrentSource {
	return &CurrentSource{N1: n1, N2: n2, Current: i}
}

func (e *CurrentSource) Stamp(m *mna.System) {
	m.StampCurrentSource(e.N1, e.N2, e.Current)
}
