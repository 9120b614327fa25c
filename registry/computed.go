package registry

import "strings"

type computedEntry struct {
	value            float64
	owner            any
	computedThisStep bool
}

// ComputedValues 计算值注册表
// 扇区元件与积分表在每个时间步结束时发布存量的最新取值,
// 方程中的自由标识符经此表解析. 同名写入后写覆盖先写
type ComputedValues struct {
	values map[string]*computedEntry
	order  []string
}

// NewComputedValues 初始化
func NewComputedValues() *ComputedValues {
	return &ComputedValues{values: make(map[string]*computedEntry)}
}

// Set 发布计算值并记录所有者
func (c *ComputedValues) Set(name string, value float64, owner any) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	e, ok := c.values[name]
	if !ok {
		e = &computedEntry{}
		c.values[name] = e
		c.order = append(c.order, name)
	}
	e.value = value
	e.owner = owner
}

// Get 读取计算值
func (c *ComputedValues) Get(name string) (float64, bool) {
	if e, ok := c.values[name]; ok {
		return e.value, true
	}
	return 0, false
}

// ResolveValue 实现 expr.Resolver
func (c *ComputedValues) ResolveValue(name string) (float64, bool) {
	return c.Get(name)
}

// Owner 返回计算值的所有者
func (c *ComputedValues) Owner(name string) any {
	if e, ok := c.values[name]; ok {
		return e.owner
	}
	return nil
}

// MarkComputed 标记该值在当前时间步已经计算
func (c *ComputedValues) MarkComputed(name string) {
	if e, ok := c.values[name]; ok {
		e.computedThisStep = true
	}
}

// ComputedThisStep 查询当前时间步是否已计算
// 汇总矩阵用它避免对同一存量重复计数
func (c *ComputedValues) ComputedThisStep(name string) bool {
	if e, ok := c.values[name]; ok {
		return e.computedThisStep
	}
	return false
}

// BeginStep 时间步开始时清除全部已计算标记
func (c *ComputedValues) BeginStep() {
	for _, e := range c.values {
		e.computedThisStep = false
	}
}

// Names 按首次写入顺序返回全部名称
func (c *ComputedValues) Names() []string {
	return append([]string(nil), c.order...)
}

// Clear 清空注册表, 电路重置或加载时调用
func (c *ComputedValues) Clear() {
	c.values = make(map[string]*computedEntry)
	c.order = nil
}
