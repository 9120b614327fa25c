package debug

import (
	"bytes"
	"strings"
	"testing"

	"sfc/registry"
)

func TestRecordUpdate(t *testing.T) {
	values := registry.NewComputedValues()
	values.Set("Firms", 10, nil)
	values.Set("Households", 5, nil)
	r := NewRecord("Firms")
	r.Update(0, values)
	values.Set("Firms", 12, nil)
	r.Update(0.01, values)
	if r.Len() != 2 {
		t.Fatalf("采样点数错误: %d", r.Len())
	}
	got := r.Series["Firms"]
	if got[0] != 10 || got[1] != 12 {
		t.Fatalf("序列记录错误: %v", got)
	}
	if _, ok := r.Series["Households"]; ok {
		t.Fatalf("未指定的名称不应记录")
	}
}

func TestRecordAutoNames(t *testing.T) {
	values := registry.NewComputedValues()
	values.Set("Firms", 1, nil)
	values.Set("Households", 2, nil)
	r := NewRecord()
	r.Update(0, values)
	if len(r.Names) != 2 {
		t.Fatalf("自动名称收集错误: %v", r.Names)
	}
}

func TestRecordRender(t *testing.T) {
	values := registry.NewComputedValues()
	values.Set("Firms", 10, nil)
	r := NewRecord("Firms")
	r.Update(0, values)
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		t.Fatalf("渲染失败: %s", err)
	}
	if !strings.Contains(buf.String(), "Firms") {
		t.Fatalf("渲染结果缺少序列名: %s", buf.String())
	}
}
