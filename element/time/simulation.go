package time

import (
	"fmt"
	"math"

	"sfc/element"
	"sfc/mna"
)

// 单个时间步的牛顿迭代上限
const defaultMaxIterations = 256

// Simulation 瞬态仿真
// 单线程分阶段执行: 每个时间步先 StartIteration, 再重建线性部分,
// 然后反复 DoStep 并求解直至收敛标志在一轮迭代后仍为真,
// 最后 CalculateCurrent 与 StepFinished 各执行一次并提交时间
type Simulation struct {
	System   *mna.System
	Elements []element.Element
	Clock    mna.Time

	MaxIterations int

	// OnStepBegin 时间步开始时回调, 用于清除计算值的已计算标记
	OnStepBegin func()
	// OnStepDone 时间步提交后回调, 用于记录输出
	OnStepDone func(tm *mna.Time)
}

// NewSimulation 初始化并分配电压源编号
func NewSimulation(nodes int, timeStep float64, elements []element.Element) *Simulation {
	vsrcs := 0
	for _, e := range elements {
		if vs, ok := e.(element.VoltageSourcer); ok {
			vs.SetVoltageSource(mna.VoltageID(vsrcs))
			vsrcs += vs.VoltageSourceCount()
		}
	}
	return &Simulation{
		System:        mna.NewSystem(nodes, vsrcs),
		Elements:      elements,
		Clock:         mna.Time{TimeStep: timeStep},
		MaxIterations: defaultMaxIterations,
	}
}

// Reset 复位时钟与全部元件
func (s *Simulation) Reset() {
	s.Clock.Time = 0
	s.System.Reset()
	for _, e := range s.Elements {
		e.Reset()
	}
}

// Step 推进一个时间步
func (s *Simulation) Step() error {
	if s.OnStepBegin != nil {
		s.OnStepBegin()
	}
	for _, e := range s.Elements {
		e.StartIteration(&s.Clock)
	}
	s.System.BeginStamp()
	for _, e := range s.Elements {
		e.Stamp(s.System)
	}
	s.System.SaveLinear()

	converged := false
	for iter := 0; iter < s.MaxIterations; iter++ {
		s.System.RestoreLinear()
		s.System.SetConverged(true)
		for _, e := range s.Elements {
			e.DoStep(s.System, &s.Clock)
		}
		if err := s.System.Solve(); err != nil {
			return fmt.Errorf("时间 %g: %w", s.Clock.Time, err)
		}
		if s.System.IsConverged() {
			converged = true
			break
		}
	}
	if !converged {
		return fmt.Errorf("时间 %g: 迭代 %d 次未收敛", s.Clock.Time, s.MaxIterations)
	}

	for _, e := range s.Elements {
		e.CalculateCurrent(s.System)
	}
	for _, e := range s.Elements {
		e.StepFinished(s.System, &s.Clock)
	}
	s.Clock.Time += s.Clock.TimeStep
	if s.OnStepDone != nil {
		s.OnStepDone(&s.Clock)
	}
	return nil
}

// Run 连续仿真给定时长
func (s *Simulation) Run(duration float64) error {
	if s.Clock.TimeStep <= 0 {
		return fmt.Errorf("步长非法: %g", s.Clock.TimeStep)
	}
	steps := int(math.Round(duration / s.Clock.TimeStep))
	for i := 0; i < steps; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}
