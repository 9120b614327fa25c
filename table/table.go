package table

import (
	"fmt"
	"strings"

	"sfc/expr"
)

// Watcher 行结构变化的观察者
// 表格行的增删改会使注册表缓存的合并行序失效
type Watcher interface {
	RowsChanged(t *Table)
}

// Table 资金流量表
// 行是流量, 列是存量, 单元格方程描述流量对存量的贡献,
// 列和即当前时间步流入该存量的净流量
type Table struct {
	Title             string
	Units             string
	DecimalPlaces     int
	ShowInitialValues bool

	rows            int
	rowDescriptions []string
	columns         []*Column

	watcher Watcher
}

// New 创建表格并填充默认值
func New(rows, cols int) *Table {
	t := &Table{
		Title:         "Table",
		DecimalPlaces: 2,
		rows:          rows,
	}
	t.rowDescriptions = make([]string, rows)
	for i := range t.rowDescriptions {
		t.rowDescriptions[i] = defaultRowDescription(i)
	}
	t.columns = make([]*Column, cols)
	for i := range t.columns {
		c := newColumn(rows)
		c.StockName = defaultStockName(i)
		c.Type = defaultColumnType(i, cols)
		t.columns[i] = c
	}
	return t
}

func defaultStockName(col int) string {
	return fmt.Sprintf("Stock%d", col+1)
}

func defaultRowDescription(row int) string {
	return fmt.Sprintf("Row%d", row+1)
}

// 新建列的默认类型: 末列为推导列 (列数足够时), 前三列覆盖资产/负债/净值
func defaultColumnType(col, cols int) ColumnType {
	if col == cols-1 && cols >= 4 {
		return Computed
	}
	switch col {
	case 1:
		return Liability
	case 2:
		return Equity
	}
	return Asset
}

// SetWatcher 设置行变化观察者
func (t *Table) SetWatcher(w Watcher) { t.watcher = w }

func (t *Table) notifyRows() {
	if t.watcher != nil {
		t.watcher.RowsChanged(t)
	}
}

// Rows 行数
func (t *Table) Rows() int { return t.rows }

// Cols 列数
func (t *Table) Cols() int { return len(t.columns) }

// Column 取列, 越界返回 nil
func (t *Table) Column(col int) *Column {
	if col < 0 || col >= len(t.columns) {
		return nil
	}
	return t.columns[col]
}

// RowDescription 读取流量描述
func (t *Table) RowDescription(row int) string {
	if row < 0 || row >= t.rows {
		return ""
	}
	return t.rowDescriptions[row]
}

// SetRowDescription 设置流量描述
func (t *Table) SetRowDescription(row int, desc string) {
	if row < 0 || row >= t.rows {
		return
	}
	if t.rowDescriptions[row] == desc {
		return
	}
	t.rowDescriptions[row] = desc
	t.notifyRows()
}

// CellEquation 读取单元格方程
func (t *Table) CellEquation(row, col int) string {
	if c := t.Column(col); c != nil {
		return c.Equation(row)
	}
	return ""
}

// SetCellEquation 设置单元格方程
func (t *Table) SetCellEquation(row, col int, eq string) {
	if c := t.Column(col); c != nil {
		c.SetEquation(row, eq)
	}
}

// IsComputedColumn 判断是否为推导列 A-L-E
// 旧版序列化数据没有列类型字段, 按末列位置判断
func (t *Table) IsComputedColumn(col int) bool {
	c := t.Column(col)
	if c == nil {
		return false
	}
	if c.Type == Computed {
		return true
	}
	return col == len(t.columns)-1 && len(t.columns) >= 4
}

// FindColumnByStock 按存量名查列, 未找到返回 -1
func (t *Table) FindColumnByStock(name string) int {
	for i, c := range t.columns {
		if c.StockName == name {
			return i
		}
	}
	return -1
}

// ColumnSum 求列和
// 普通列为各行单元格之和, 推导列为 资产-负债-净值
func (t *Table) ColumnSum(col int, s *expr.State) float64 {
	if t.IsComputedColumn(col) {
		return t.derivedSum(col, s)
	}
	c := t.Column(col)
	if c == nil {
		return 0
	}
	sum := 0.0
	for row := 0; row < t.rows; row++ {
		sum += c.Eval(row, s)
	}
	return sum
}

func (t *Table) derivedSum(skip int, s *expr.State) float64 {
	sum := 0.0
	for col, c := range t.columns {
		if col == skip || t.IsComputedColumn(col) {
			continue
		}
		v := t.ColumnSum(col, s)
		switch c.Type {
		case Liability, Equity:
			sum -= v
		default:
			sum += v
		}
	}
	return sum
}

// RowSum 求行和, 负债与净值列取负号
// 完全平衡的表格每一行的行和为零
func (t *Table) RowSum(row int, s *expr.State) float64 {
	sum := 0.0
	for col, c := range t.columns {
		if t.IsComputedColumn(col) {
			continue
		}
		v := c.Eval(row, s)
		switch c.Type {
		case Liability, Equity:
			sum -= v
		default:
			sum += v
		}
	}
	return sum
}

// IsFullyBalanced 判断所有行是否平衡
func (t *Table) IsFullyBalanced(s *expr.State, eps float64) bool {
	for row := 0; row < t.rows; row++ {
		v := t.RowSum(row, s)
		if v > eps || v < -eps {
			return false
		}
	}
	return true
}

// Validate 校验列类型约束
func (t *Table) Validate() error {
	return validateColumns(t.columns)
}

func validateColumns(columns []*Column) error {
	var asset, liability bool
	for col, c := range columns {
		if c.Type == Computed {
			if col != len(columns)-1 {
				return fmt.Errorf("推导列只能位于末列: 第 %d 列", col+1)
			}
			if len(columns) < 4 {
				return fmt.Errorf("列数不足 4 时不允许推导列")
			}
			continue
		}
		switch c.Type {
		case Asset:
			asset = true
		case Liability:
			liability = true
		}
	}
	if !asset || !liability {
		return fmt.Errorf("表格至少需要一个资产列和一个负债列")
	}
	return nil
}

// layoutColumns 生成调整列数后的列布局
// 列数不少于 4 时末列推导列保持在末尾, 新增列为资产列
func (t *Table) layoutColumns(cols int) []*Column {
	old := t.columns
	var tail *Column
	if n := len(old); n > 0 && old[n-1].Type == Computed && cols >= 4 {
		tail = old[n-1]
		old = old[:n-1]
	}
	limit := cols
	if tail != nil {
		limit--
	}
	next := make([]*Column, 0, cols)
	for i := 0; i < limit; i++ {
		if i < len(old) {
			next = append(next, old[i])
			continue
		}
		c := newColumn(t.rows)
		c.StockName = defaultStockName(i)
		c.Type = Asset
		next = append(next, c)
	}
	if tail != nil {
		next = append(next, tail)
	}
	return next
}

// Resize 调整行列数并保留已有数据
// 列数变化先校验新布局, 违反列类型约束时拒绝调整
func (t *Table) Resize(rows, cols int) error {
	if rows < 0 || cols < 0 {
		return fmt.Errorf("表格行列数非法: %d x %d", rows, cols)
	}
	var next []*Column
	if cols != len(t.columns) {
		next = t.layoutColumns(cols)
		if err := validateColumns(next); err != nil {
			return err
		}
	}
	if rows != t.rows {
		desc := make([]string, rows)
		for i := 0; i < rows; i++ {
			if i < t.rows {
				desc[i] = t.rowDescriptions[i]
			} else {
				desc[i] = defaultRowDescription(i)
			}
		}
		t.rowDescriptions = desc
		for _, c := range t.columns {
			c.resizeRows(rows)
		}
		t.rows = rows
	}
	if next != nil {
		for _, c := range next {
			c.resizeRows(t.rows)
		}
		t.columns = next
	}
	t.notifyRows()
	return nil
}

// AppendRow 追加一行并返回行号
func (t *Table) AppendRow(desc string) int {
	row := t.rows
	t.Resize(t.rows+1, len(t.columns))
	t.rowDescriptions[row] = strings.TrimSpace(desc)
	t.notifyRows()
	return row
}

// RemoveRow 删除一行
func (t *Table) RemoveRow(row int) {
	if row < 0 || row >= t.rows {
		return
	}
	t.rowDescriptions = append(t.rowDescriptions[:row], t.rowDescriptions[row+1:]...)
	for _, c := range t.columns {
		c.removeRow(row)
	}
	t.rows--
	t.notifyRows()
}

// StockNames 返回各列存量名
func (t *Table) StockNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.StockName
	}
	return names
}
