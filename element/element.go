package element

import "sfc/mna"

// Element 元件生命周期
// 求解器按阶段回调: 每个时间步 StartIteration 一次, DoStep 反复执行
// 直到收敛标志在一轮迭代后仍为真, 随后 CalculateCurrent 与 StepFinished
// 各执行一次. 元件只允许清除收敛标志, 不允许置位
type Element interface {
	Reset()
	StartIteration(tm *mna.Time)
	Stamp(m *mna.System)
	DoStep(m *mna.System, tm *mna.Time)
	CalculateCurrent(m *mna.System)
	StepFinished(m *mna.System, tm *mna.Time)
}

// Base 空实现, 元件内嵌后只覆写需要的阶段
type Base struct{}

func (Base) Reset()                              {}
func (Base) StartIteration(*mna.Time)            {}
func (Base) Stamp(*mna.System)                   {}
func (Base) DoStep(*mna.System, *mna.Time)       {}
func (Base) CalculateCurrent(*mna.System)        {}
func (Base) StepFinished(*mna.System, *mna.Time) {}

// VoltageSourcer 占用电压源行的元件, 求解器负责编号分配
type VoltageSourcer interface {
	VoltageSourceCount() int
	SetVoltageSource(id mna.VoltageID)
}
