package expr

import (
	"log"
	"math"
	"sync"
)

// 表达式节点类型
const (
	opValue   = iota // 数值常量
	opName           // 标识符, 求值时经 Resolver 解析
	opTime           // 仿真时间 t
	opTimeStep       // 步长 timestep / dt
	opLastOut        // 上一步积分输出 lastoutput
	opAdd
	opSub
	opMul
	opDiv
	opMod
	opNeg
	opLt
	opGt
	opLe
	opGe
	opEq
	opNe
	opFunc // 内置函数调用
)

// Resolver 解析自由标识符的取值来源
// 未知名称返回 false, 求值按 0 处理并记录一次日志
type Resolver interface {
	ResolveValue(name string) (float64, bool)
}

var (
	unknownMu    sync.Mutex
	unknownNames = make(map[string]bool)
)

// 同一名称只记录一次, 避免每次迭代刷屏
func logUnknownName(name string) {
	unknownMu.Lock()
	defer unknownMu.Unlock()
	if unknownNames[name] {
		return
	}
	unknownNames[name] = true
	log.Printf("未知标识符 %q, 按 0 求值", name)
}

// State 表达式求值状态
type State struct {
	Time       float64
	TimeStep   float64
	LastOutput float64
	Values     Resolver
}

// Expr 编译后的表达式树
type Expr struct {
	op    int
	value float64
	name  string
	fn    func(args []float64) float64
	args  []*Expr
}

// Eval 求值
// 求值过程不产生错误, 非法运算结果按 IEEE 浮点语义传播
func (e *Expr) Eval(s *State) float64 {
	switch e.op {
	case opValue:
		return e.value
	case opName:
		if s.Values != nil {
			if v, ok := s.Values.ResolveValue(e.name); ok {
				return v
			}
		}
		logUnknownName(e.name)
		return 0
	case opTime:
		return s.Time
	case opTimeStep:
		return s.TimeStep
	case opLastOut:
		return s.LastOutput
	case opAdd:
		return e.args[0].Eval(s) + e.args[1].Eval(s)
	case opSub:
		return e.args[0].Eval(s) - e.args[1].Eval(s)
	case opMul:
		return e.args[0].Eval(s) * e.args[1].Eval(s)
	case opDiv:
		return e.args[0].Eval(s) / e.args[1].Eval(s)
	case opMod:
		return math.Mod(e.args[0].Eval(s), e.args[1].Eval(s))
	case opNeg:
		return -e.args[0].Eval(s)
	case opLt:
		return boolVal(e.args[0].Eval(s) < e.args[1].Eval(s))
	case opGt:
		return boolVal(e.args[0].Eval(s) > e.args[1].Eval(s))
	case opLe:
		return boolVal(e.args[0].Eval(s) <= e.args[1].Eval(s))
	case opGe:
		return boolVal(e.args[0].Eval(s) >= e.args[1].Eval(s))
	case opEq:
		return boolVal(e.args[0].Eval(s) == e.args[1].Eval(s))
	case opNe:
		return boolVal(e.args[0].Eval(s) != e.args[1].Eval(s))
	case opFunc:
		args := make([]float64, len(e.args))
		for i, a := range e.args {
			args[i] = a.Eval(s)
		}
		return e.fn(args)
	}
	return 0
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Names 收集表达式引用的全部自由标识符
func (e *Expr) Names() []string {
	var out []string
	e.collectNames(&out)
	return out
}

func (e *Expr) collectNames(out *[]string) {
	if e.op == opName {
		for _, n := range *out {
			if n == e.name {
				return
			}
		}
		*out = append(*out, e.name)
		return
	}
	for _, a := range e.args {
		a.collectNames(out)
	}
}
