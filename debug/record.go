package debug

import (
	"encoding/json"
	"io"

	"sfc/registry"
)

// Record 记录仿真历史
// 每个时间步结束后采样计算值注册表中的存量序列
type Record struct {
	Names  []string             // 采样名称, 空则首次采样时取注册表全部名称
	Time   []float64            // 时间列
	Series map[string][]float64 // 每个名称一条序列
}

// NewRecord 初始化
func NewRecord(names ...string) *Record {
	return &Record{
		Names:  names,
		Series: make(map[string][]float64),
	}
}

// Update 采样一次
func (r *Record) Update(t float64, values *registry.ComputedValues) {
	if len(r.Names) == 0 {
		r.Names = values.Names()
	}
	r.Time = append(r.Time, t)
	for _, name := range r.Names {
		v, _ := values.Get(name)
		r.Series[name] = append(r.Series[name], v)
	}
}

// Len 采样点数
func (r *Record) Len() int { return len(r.Time) }

// Render 输出 JSON 格式的全部历史
func (r *Record) Render(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}
