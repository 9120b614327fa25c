package debug

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Charts 曲线绘制
type Charts struct {
	Record
	Title string
}

// SavePNG 将记录的存量序列绘制为折线图
func (c *Charts) SavePNG(filename string) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "t"
	p.Legend.Top = true

	args := make([]any, 0, len(c.Names)*2)
	for _, name := range c.Names {
		series := c.Series[name]
		xys := make(plotter.XYs, len(series))
		for i, v := range series {
			xys[i].X = c.Time[i]
			xys[i].Y = v
		}
		args = append(args, name, xys)
	}
	if err := plotutil.AddLines(p, args...); err != nil {
		return fmt.Errorf("曲线添加失败: %w", err)
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("图表保存失败: %w", err)
	}
	return nil
}
