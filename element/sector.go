package element

import (
	"sfc/mna"
	"sfc/registry"
)

// Sector 经济扇区元件
// 把扇区存量建模为对地电容上的电荷: 流入节点的净电流即净流量,
// 节点的基尔霍夫电流定律给出 流入-流出 = d(存量)/dt.
// 数值上采用伴随模型: 电容等效为电阻加历史电流源
type Sector struct {
	Name          string
	Node          mna.NodeID
	Capacitance   float64
	InitialStock  float64
	BackwardEuler bool // 默认梯形法

	values *registry.ComputedValues

	stock          float64
	compResistance float64
	curSource      float64
	netCurrent     float64
}

// NewSector 初始化并以初始存量发布计算值
func NewSector(name string, node mna.NodeID, initialStock float64, values *registry.ComputedValues) *Sector {
	e := &Sector{
		Name:         name,
		Node:         node,
		Capacitance:  1,
		InitialStock: initialStock,
		values:       values,
	}
	e.Reset()
	return e
}

// Stock 当前存量
func (e *Sector) Stock() float64 { return e.stock }

func (e *Sector) Reset() {
	e.stock = e.InitialStock
	e.compResistance = 0
	e.curSource = 0
	e.netCurrent = 0
	if e.values != nil {
		e.values.Set(e.Name, e.stock, e)
	}
}

func (e *Sector) StartIteration(tm *mna.Time) {
	if e.BackwardEuler {
		e.compResistance = tm.TimeStep / e.Capacitance
	} else {
		e.compResistance = tm.TimeStep / (2 * e.Capacitance)
	}
	if e.compResistance <= 0 {
		e.curSource = 0
		return
	}
	if e.BackwardEuler {
		e.curSource = -e.stock / e.compResistance
	} else {
		e.curSource = -e.stock/e.compResistance - e.netCurrent
	}
}

func (e *Sector) Stamp(m *mna.System) {
	if e.compResistance > 0 {
		m.StampResistor(e.Node, mna.Gnd, e.compResistance)
	}
}

func (e *Sector) DoStep(m *mna.System, tm *mna.Time) {
	if e.compResistance > 0 {
		m.StampCurrentSource(e.Node, mna.Gnd, e.curSource)
	}
}

func (e *Sector) CalculateCurrent(m *mna.System) {
	if e.compResistance > 0 {
		e.netCurrent = m.GetVoltage(e.Node)/e.compResistance + e.curSource
	}
}

// StepFinished 节点电压即积分后的新存量, 发布到计算值注册表
func (e *Sector) StepFinished(m *mna.System, tm *mna.Time) {
	e.stock = m.GetVoltage(e.Node)
	if e.values != nil {
		e.values.Set(e.Name, e.stock, e)
		e.values.MarkComputed(e.Name)
	}
}
