package utils

import (
	"strconv"
	"strings"
)

// Fields 模型定义行的字段序列
// 解析方法对缺失或非法字段返回默认值, 保证旧版本定义可以继续加载
type Fields []string

// SplitFields 按空白分割一行定义
func SplitFields(line string) Fields {
	return Fields(strings.Fields(line))
}

// ParseBool 解析布尔值
func (f Fields) ParseBool(i int, defaultValue bool) bool {
	if i < len(f) {
		if val, err := strconv.ParseBool(f[i]); err == nil {
			return val
		}
	}
	return defaultValue
}

// ParseInt 解析整数
func (f Fields) ParseInt(i int, defaultValue int) int {
	if i < len(f) {
		if val, err := strconv.Atoi(f[i]); err == nil {
			return val
		}
	}
	return defaultValue
}

// ParseFloat64 解析64位浮点数
func (f Fields) ParseFloat64(i int, defaultValue float64) float64 {
	if i < len(f) {
		if val, err := strconv.ParseFloat(f[i], 64); err == nil {
			return val
		}
	}
	return defaultValue
}

// ParseString 安全获取字符串
func (f Fields) ParseString(i int, defaultValue string) string {
	if i < len(f) {
		return f[i]
	}
	return defaultValue
}

// IsNumber 判断字段是否为数字
// 用于区分新旧两代表格序列化格式
func (f Fields) IsNumber(i int) bool {
	if i >= len(f) {
		return false
	}
	_, err := strconv.ParseFloat(f[i], 64)
	return err == nil
}
