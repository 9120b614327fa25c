package table

import (
	"log"

	"sfc/expr"
)

// ColumnType 存量列类型
type ColumnType int

const (
	Asset     ColumnType = iota // 资产
	Liability                   // 负债
	Equity                      // 净值
	Computed                    // 推导列 A-L-E
)

// String 返回类型名称
func (t ColumnType) String() string {
	switch t {
	case Asset:
		return "ASSET"
	case Liability:
		return "LIABILITY"
	case Equity:
		return "EQUITY"
	case Computed:
		return "COMPUTED"
	}
	return "ASSET"
}

// ParseColumnType 从序列化整数还原列类型, 越界按资产处理
func ParseColumnType(v int) ColumnType {
	if v < int(Asset) || v > int(Computed) {
		return Asset
	}
	return ColumnType(v)
}

// Column 表格中的一列, 对应一个存量
type Column struct {
	StockName    string     // 存量名称, 即列头
	Type         ColumnType // 列类型
	InitialValue float64    // 存量初值

	equations []string     // 每行一个单元格方程文本
	compiled  []*expr.Expr // 惰性编译结果
	dirty     []bool       // 方程文本修改后待重新编译

	LastSum    float64 // 上一迭代的列和, 用于收敛判断
	LastOutput float64 // 离散积分输出
}

func newColumn(rows int) *Column {
	return &Column{
		equations: make([]string, rows),
		compiled:  make([]*expr.Expr, rows),
		dirty:     makeDirty(rows),
	}
}

func makeDirty(rows int) []bool {
	d := make([]bool, rows)
	for i := range d {
		d[i] = true
	}
	return d
}

// Equation 读取单元格方程文本
func (c *Column) Equation(row int) string {
	if row < 0 || row >= len(c.equations) {
		return ""
	}
	return c.equations[row]
}

// SetEquation 设置单元格方程文本, 编译延迟到首次求值
func (c *Column) SetEquation(row int, eq string) {
	if row < 0 || row >= len(c.equations) {
		return
	}
	if c.equations[row] == eq {
		return
	}
	c.equations[row] = eq
	c.compiled[row] = nil
	c.dirty[row] = true
}

// Compiled 取编译后的方程, 空方程与编译失败返回 nil
func (c *Column) Compiled(row int) *expr.Expr {
	if row < 0 || row >= len(c.equations) {
		return nil
	}
	if c.dirty[row] {
		c.dirty[row] = false
		text := c.equations[row]
		if text == "" {
			c.compiled[row] = nil
		} else {
			e, err := expr.Parse(text)
			if err != nil {
				log.Printf("单元格方程编译失败 %q: %s", text, err)
				e = nil
			}
			c.compiled[row] = e
		}
	}
	return c.compiled[row]
}

// Eval 对单元格求值, 空方程或编译失败按 0 处理
func (c *Column) Eval(row int, s *expr.State) float64 {
	e := c.Compiled(row)
	if e == nil {
		return 0
	}
	return e.Eval(s)
}

// resizeRows 调整行数并保留已有数据
func (c *Column) resizeRows(rows int) {
	eq := make([]string, rows)
	comp := make([]*expr.Expr, rows)
	dirty := make([]bool, rows)
	for i := 0; i < rows; i++ {
		if i < len(c.equations) {
			eq[i] = c.equations[i]
			comp[i] = c.compiled[i]
			dirty[i] = c.dirty[i]
		} else {
			dirty[i] = true
		}
	}
	c.equations, c.compiled, c.dirty = eq, comp, dirty
}

// removeRow 删除一行
func (c *Column) removeRow(row int) {
	if row < 0 || row >= len(c.equations) {
		return
	}
	c.equations = append(c.equations[:row], c.equations[row+1:]...)
	c.compiled = append(c.compiled[:row], c.compiled[row+1:]...)
	c.dirty = append(c.dirty[:row], c.dirty[row+1:]...)
}
