package table

import (
	"fmt"
	"strconv"
	"strings"

	"sfc/utils"
)

// Dump 序列化表格
// 格式: rows cols showInitialValues units decimalPlaces title
// 依次跟随列头/行描述/列初值/列类型/单元格方程 (按列优先),
// 文本字段经转义后以空格分隔
func (t *Table) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d %t %s %d %s",
		t.rows, len(t.columns), t.ShowInitialValues,
		utils.Escape(t.Units), t.DecimalPlaces, utils.Escape(t.Title))
	for _, c := range t.columns {
		b.WriteByte(' ')
		b.WriteString(utils.Escape(c.StockName))
	}
	for _, desc := range t.rowDescriptions {
		b.WriteByte(' ')
		b.WriteString(utils.Escape(desc))
	}
	for _, c := range t.columns {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(c.InitialValue, 'g', -1, 64))
	}
	for _, c := range t.columns {
		fmt.Fprintf(&b, " %d", c.Type)
	}
	for _, c := range t.columns {
		for row := 0; row < t.rows; row++ {
			b.WriteByte(' ')
			b.WriteString(utils.Escape(c.Equation(row)))
		}
	}
	return b.String()
}

// reader 带缺省回填的字段游标
// 旧版序列化数据缺少部分尾部字段, 数值读取按类型探测,
// 期望数值却遇到文本, 或字段耗尽, 均返回默认值且不前进
type reader struct {
	fields utils.Fields
	pos    int
}

// readDescription 读取行描述
// 只有行描述区允许整体缺失: 旧版数据行描述后紧跟数值初值,
// 探测到数字说明该区缺失, 返回默认值且不前进
func (r *reader) readDescription(def string) string {
	if r.pos >= len(r.fields) || r.fields.IsNumber(r.pos) {
		return def
	}
	s := utils.Unescape(r.fields[r.pos])
	r.pos++
	return s
}

func (r *reader) readFloat(def float64) float64 {
	if r.pos >= len(r.fields) || !r.fields.IsNumber(r.pos) {
		return def
	}
	v := r.fields.ParseFloat64(r.pos, def)
	r.pos++
	return v
}

func (r *reader) readInt(def int) int {
	if r.pos >= len(r.fields) || !r.fields.IsNumber(r.pos) {
		return def
	}
	v := r.fields.ParseInt(r.pos, def)
	r.pos++
	return v
}

func (r *reader) readBool(def bool) bool {
	if r.pos >= len(r.fields) {
		return def
	}
	if v, err := strconv.ParseBool(r.fields[r.pos]); err == nil {
		r.pos++
		return v
	}
	return def
}

// readText 按位置读取文本字段, 不做类型探测
// 标题/单位/列头可以是纯数字文本, 探测会错位后续全部字段
func (r *reader) readText(def string) string {
	if r.pos >= len(r.fields) {
		return def
	}
	s := utils.Unescape(r.fields[r.pos])
	r.pos++
	return s
}

// Parse 反序列化表格
// 对缺失的尾部字段回填默认值: 列头 StockN, 行描述 RowN, 初值 0, 类型资产
func Parse(line string) (*Table, error) {
	r := &reader{fields: utils.SplitFields(line)}
	rows := r.readInt(0)
	cols := r.readInt(0)
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("表格行列数非法: %d x %d", rows, cols)
	}
	t := New(rows, cols)
	t.ShowInitialValues = r.readBool(false)
	t.Units = r.readText("")
	t.DecimalPlaces = r.readInt(2)
	t.Title = r.readText("Table")
	for col := 0; col < cols; col++ {
		t.columns[col].StockName = r.readText(defaultStockName(col))
	}
	for row := 0; row < rows; row++ {
		t.rowDescriptions[row] = r.readDescription(defaultRowDescription(row))
	}
	for col := 0; col < cols; col++ {
		t.columns[col].InitialValue = r.readFloat(0)
	}
	for col := 0; col < cols; col++ {
		t.columns[col].Type = ParseColumnType(r.readInt(int(defaultColumnType(col, cols))))
	}
	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			t.columns[col].SetEquation(row, r.readText(""))
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
