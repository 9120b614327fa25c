package mna

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// NodeID 节点编号
// 节点从 0 开始编号, Gnd 为参考地, 不占矩阵行列
type NodeID int

// Gnd 接地节点
const Gnd NodeID = -1

// VoltageID 电压源编号
type VoltageID int

// Time 仿真时钟, 元件在生命周期回调中读取
type Time struct {
	Time     float64 // 当前仿真时间
	TimeStep float64 // 步长
}

// System 改进节点分析方程组 A·x = z
// 前 nodes 个未知量是节点电压, 其后是电压源电流.
// 线性元件在 Stamp 阶段写入, SaveLinear 备份后每次牛顿迭代
// 由 RestoreLinear 还原, 非线性元件在 DoStep 阶段叠加
type System struct {
	nodes int
	vsrcs int

	a *mat.Dense
	z *mat.VecDense
	x *mat.VecDense

	linearA *mat.Dense
	linearZ *mat.VecDense

	converged bool
}

// NewSystem 初始化方程组
func NewSystem(nodes, voltageSources int) *System {
	s := &System{nodes: nodes, vsrcs: voltageSources}
	if n := nodes + voltageSources; n > 0 {
		s.a = mat.NewDense(n, n, nil)
		s.z = mat.NewVecDense(n, nil)
		s.x = mat.NewVecDense(n, nil)
	}
	return s
}

// Size 方程组维度
func (s *System) Size() int { return s.nodes + s.vsrcs }

// Reset 清零矩阵与解向量
func (s *System) Reset() {
	if s.a == nil {
		return
	}
	s.a.Zero()
	s.z.Zero()
	s.x.Zero()
	s.linearA = nil
	s.linearZ = nil
}

// BeginStamp 清零系数矩阵与右端项, 保留上一步的解
func (s *System) BeginStamp() {
	if s.a == nil {
		return
	}
	s.a.Zero()
	s.z.Zero()
	s.linearA = nil
	s.linearZ = nil
}

func (s *System) row(n NodeID) int {
	if n == Gnd {
		return -1
	}
	return int(n)
}

// StampMatrix 向系数矩阵累加
func (s *System) StampMatrix(r, c NodeID, v float64) {
	i, j := s.row(r), s.row(c)
	if i < 0 || j < 0 {
		return
	}
	s.a.Set(i, j, s.a.At(i, j)+v)
}

// StampRightSide 向右端项累加
func (s *System) StampRightSide(n NodeID, v float64) {
	i := s.row(n)
	if i < 0 {
		return
	}
	s.z.SetVec(i, s.z.AtVec(i)+v)
}

// StampConductance 在两节点间叠加电导
func (s *System) StampConductance(n1, n2 NodeID, g float64) {
	s.StampMatrix(n1, n1, g)
	s.StampMatrix(n2, n2, g)
	s.StampMatrix(n1, n2, -g)
	s.StampMatrix(n2, n1, -g)
}

// StampResistor 在两节点间叠加电阻
func (s *System) StampResistor(n1, n2 NodeID, r float64) {
	s.StampConductance(n1, n2, 1/r)
}

// StampCurrentSource 叠加从 n1 流向 n2 的电流源
func (s *System) StampCurrentSource(n1, n2 NodeID, i float64) {
	s.StampRightSide(n1, -i)
	s.StampRightSide(n2, i)
}

// StampVoltageSource 叠加电压源 v(n1→n2)
func (s *System) StampVoltageSource(n1, n2 NodeID, vs VoltageID, v float64) {
	row := s.nodes + int(vs)
	i1, i2 := s.row(n1), s.row(n2)
	if i1 >= 0 {
		s.a.Set(row, i1, s.a.At(row, i1)-1)
		s.a.Set(i1, row, s.a.At(i1, row)-1)
	}
	if i2 >= 0 {
		s.a.Set(row, i2, s.a.At(row, i2)+1)
		s.a.Set(i2, row, s.a.At(i2, row)+1)
	}
	s.z.SetVec(row, s.z.AtVec(row)+v)
}

// UpdateVoltageSource 更新电压源取值, 仅修改右端项
func (s *System) UpdateVoltageSource(vs VoltageID, v float64) {
	row := s.nodes + int(vs)
	s.z.SetVec(row, v)
}

// SaveLinear 备份线性部分
func (s *System) SaveLinear() {
	if s.a == nil {
		return
	}
	s.linearA = mat.DenseCopyOf(s.a)
	s.linearZ = mat.VecDenseCopyOf(s.z)
}

// RestoreLinear 还原到线性部分, 供下一次牛顿迭代重新叠加
func (s *System) RestoreLinear() {
	if s.a == nil {
		return
	}
	if s.linearA == nil {
		s.a.Zero()
		s.z.Zero()
		return
	}
	s.a.Copy(s.linearA)
	s.z.CopyVec(s.linearZ)
}

// Solve LU 分解求解
// 维度为零的方程组 (纯表格模型) 直接视为已解
func (s *System) Solve() error {
	if s.a == nil {
		return nil
	}
	var lu mat.LU
	lu.Factorize(s.a)
	if err := lu.SolveVecTo(s.x, false, s.z); err != nil {
		return fmt.Errorf("方程组求解失败: %w", err)
	}
	return nil
}

// GetVoltage 读取节点电压
func (s *System) GetVoltage(n NodeID) float64 {
	i := s.row(n)
	if i < 0 || i >= s.nodes {
		return 0
	}
	return s.x.AtVec(i)
}

// GetVoltageSourceCurrent 读取流过电压源的电流
func (s *System) GetVoltageSourceCurrent(vs VoltageID) float64 {
	i := s.nodes + int(vs)
	if i >= s.Size() {
		return 0
	}
	return s.x.AtVec(i)
}

// IsConverged 查询收敛标志
func (s *System) IsConverged() bool { return s.converged }

// SetConverged 设置收敛标志
// 迭代开始时由求解器置真, 元件发现偏差时清除, 元件不得置真
func (s *System) SetConverged(v bool) { s.converged = v }
