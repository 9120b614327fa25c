package sfc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"sfc/debug"
	"sfc/element"
	eltime "sfc/element/time"
	"sfc/mna"
	"sfc/registry"
	"sfc/table"
	"sfc/utils"
)

// Circuit 存量流量一致性模型
// 聚合存量注册表/计算值注册表/同步器与全部元件,
// 注册表随模型注入, 不做全局单例
type Circuit struct {
	Registry *registry.StockRegistry
	Values   *registry.ComputedValues
	Sync     *registry.Synchronizer
	Elements []element.Element

	TimeStep float64
	Duration float64

	// Record 非空时每步提交后采样计算值
	Record *debug.Record

	nodes int
}

// New 初始化
func New() *Circuit {
	reg := registry.NewStockRegistry()
	return &Circuit{
		Registry: reg,
		Values:   registry.NewComputedValues(),
		Sync:     registry.NewSynchronizer(reg),
		TimeStep: 0.01,
		Duration: 1,
	}
}

func (c *Circuit) trackNode(n mna.NodeID) mna.NodeID {
	if int(n) >= c.nodes {
		c.nodes = int(n) + 1
	}
	return n
}

// AddSector 添加扇区元件
func (c *Circuit) AddSector(name string, node mna.NodeID, initialStock float64) *element.Sector {
	e := element.NewSector(name, c.trackNode(node), initialStock, c.Values)
	c.Elements = append(c.Elements, e)
	return e
}

// AddFlow 添加扇区间流量
func (c *Circuit) AddFlow(name string, n1, n2 mna.NodeID, equation string) *element.Flow {
	e := element.NewFlow(name, c.trackNode(n1), c.trackNode(n2), equation, c.Values)
	c.Elements = append(c.Elements, e)
	return e
}

// AddIntegratingTable 添加积分表并登记存量
func (c *Circuit) AddIntegratingTable(t *table.Table) *element.IntegratingTable {
	e := element.NewIntegratingTable(t, c.Registry, c.Values)
	c.Elements = append(c.Elements, e)
	return e
}

// AddPlainTable 添加展示表
func (c *Circuit) AddPlainTable(t *table.Table) *element.PlainTable {
	e := element.NewPlainTable(t, c.Values)
	c.Elements = append(c.Elements, e)
	return e
}

// AddMatrix 添加交易流量汇总矩阵
func (c *Circuit) AddMatrix(name string) *element.TransactionsMatrix {
	e := element.NewTransactionsMatrix(name, c.Registry, c.Values)
	c.Elements = append(c.Elements, e)
	return e
}

// AddElement 添加任意元件
func (c *Circuit) AddElement(e element.Element, nodes ...mna.NodeID) element.Element {
	for _, n := range nodes {
		c.trackNode(n)
	}
	c.Elements = append(c.Elements, e)
	return e
}

// SynchronizeAll 对全部积分表执行关联同步
func (c *Circuit) SynchronizeAll() {
	for _, e := range c.Elements {
		if it, ok := e.(*element.IntegratingTable); ok {
			c.Sync.SynchronizeRelatedTables(it.Table)
		}
	}
}

// Build 构建瞬态仿真器
func (c *Circuit) Build() *eltime.Simulation {
	sim := eltime.NewSimulation(c.nodes, c.TimeStep, c.Elements)
	sim.OnStepBegin = c.Values.BeginStep
	sim.OnStepDone = func(tm *mna.Time) {
		if c.Record != nil {
			c.Record.Update(tm.Time, c.Values)
		}
	}
	return sim
}

// Run 从初始状态完整仿真一次
func (c *Circuit) Run() error {
	sim := c.Build()
	c.Values.Clear()
	sim.Reset()
	return sim.Run(c.Duration)
}

// Load 加载模型文件
func (c *Circuit) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return c.Read(file)
}

// LoadString 从文本加载模型
func (c *Circuit) LoadString(text string) error {
	return c.Read(strings.NewReader(text))
}

// Read 读取模型定义
// 行式格式: # 为注释, .tran 定义步长与时长, 其余行为元件定义.
// 加载前清空两个注册表, 加载后执行一轮表间同步
func (c *Circuit) Read(r io.Reader) error {
	c.Registry.Clear()
	c.Values.Clear()
	c.Elements = nil
	c.nodes = 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := c.parseLine(line); err != nil {
			return fmt.Errorf("第 %d 行: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	c.SynchronizeAll()
	return nil
}

func (c *Circuit) parseLine(line string) error {
	fields := utils.SplitFields(line)
	switch fields[0] {
	case ".tran":
		c.TimeStep = fields.ParseFloat64(1, c.TimeStep)
		c.Duration = fields.ParseFloat64(2, c.Duration)
		if c.TimeStep <= 0 {
			return fmt.Errorf("步长非法: %g", c.TimeStep)
		}
	case "sector":
		if len(fields) < 4 {
			return fmt.Errorf("扇区定义字段不足: %s", line)
		}
		e := c.AddSector(fields.ParseString(1, ""),
			mna.NodeID(fields.ParseInt(2, 0)), fields.ParseFloat64(3, 0))
		e.Capacitance = fields.ParseFloat64(4, 1)
		e.BackwardEuler = fields.ParseString(5, "") == "be"
		e.Reset()
	case "flow":
		if len(fields) < 5 {
			return fmt.Errorf("流量定义字段不足: %s", line)
		}
		c.AddFlow(fields.ParseString(1, ""),
			mna.NodeID(fields.ParseInt(2, 0)), mna.NodeID(fields.ParseInt(3, 0)),
			strings.Join(fields[4:], " "))
	case "isrc":
		if len(fields) < 4 {
			return fmt.Errorf("电流源定义字段不足: %s", line)
		}
		n1, n2 := mna.NodeID(fields.ParseInt(1, 0)), mna.NodeID(fields.ParseInt(2, 0))
		c.AddElement(element.NewCurrentSource(n1, n2, fields.ParseFloat64(3, 0)), n1, n2)
	case "vsrc":
		if len(fields) < 4 {
			return fmt.Errorf("电压源定义字段不足: %s", line)
		}
		n1, n2 := mna.NodeID(fields.ParseInt(1, 0)), mna.NodeID(fields.ParseInt(2, 0))
		c.AddElement(element.NewDCSource(n1, n2, fields.ParseFloat64(3, 0)), n1, n2)
	case "ramp":
		if len(fields) < 5 {
			return fmt.Errorf("爬升源定义字段不足: %s", line)
		}
		n1, n2 := mna.NodeID(fields.ParseInt(1, 0)), mna.NodeID(fields.ParseInt(2, 0))
		c.AddElement(element.NewRampSource(n1, n2,
			fields.ParseFloat64(3, 0), fields.ParseFloat64(4, 0)), n1, n2)
	case "res":
		if len(fields) < 4 {
			return fmt.Errorf("电阻定义字段不足: %s", line)
		}
		n1, n2 := mna.NodeID(fields.ParseInt(1, 0)), mna.NodeID(fields.ParseInt(2, 0))
		c.AddElement(element.NewResistor(n1, n2, fields.ParseFloat64(3, 1)), n1, n2)
	case "table", "view":
		t, err := table.Parse(strings.TrimSpace(line[len(fields[0]):]))
		if err != nil {
			return err
		}
		if fields[0] == "table" {
			c.AddIntegratingTable(t)
		} else {
			c.AddPlainTable(t)
		}
	case "matrix":
		e := c.AddMatrix(fields.ParseString(1, "CTM"))
		if len(fields) > 2 {
			e.CustomStocks = append([]string(nil), fields[2:]...)
		}
	default:
		return fmt.Errorf("未知元件定义: %s", line)
	}
	return nil
}

// Export 导出模型定义
func (c *Circuit) Export(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, ".tran %g %g\n", c.TimeStep, c.Duration)
	for _, e := range c.Elements {
		switch v := e.(type) {
		case *element.Sector:
			be := ""
			if v.BackwardEuler {
				be = " be"
			}
			fmt.Fprintf(bw, "sector %s %d %g %g%s\n", v.Name, v.Node, v.InitialStock, v.Capacitance, be)
		case *element.Flow:
			fmt.Fprintf(bw, "flow %s %d %d %s\n", v.Name, v.N1, v.N2, v.Equation)
		case *element.CurrentSource:
			fmt.Fprintf(bw, "isrc %d %d %g\n", v.N1, v.N2, v.Current)
		case *element.DCSource:
			fmt.Fprintf(bw, "vsrc %d %d %g\n", v.N1, v.N2, v.Voltage)
		case *element.RampSource:
			fmt.Fprintf(bw, "ramp %d %d %g %g\n", v.N1, v.N2, v.Offset, v.Rate)
		case *element.Resistor:
			fmt.Fprintf(bw, "res %d %d %g\n", v.N1, v.N2, v.Resistance)
		case *element.IntegratingTable:
			fmt.Fprintf(bw, "table %s\n", v.Table.Dump())
		case *element.PlainTable:
			fmt.Fprintf(bw, "view %s\n", v.Table.Dump())
		case *element.TransactionsMatrix:
			if len(v.CustomStocks) > 0 {
				fmt.Fprintf(bw, "matrix %s %s\n", v.Name, strings.Join(v.CustomStocks, " "))
			} else {
				fmt.Fprintf(bw, "matrix %s\n", v.Name)
			}
		default:
			return fmt.Errorf("元件无法导出: %T", e)
		}
	}
	return bw.Flush()
}
