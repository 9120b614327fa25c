package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Escape 转义表格序列化中的文本字段
// 字段之间以空白分隔, 所以文本内的空白与百分号按 %XX 十六进制转义,
// 空字符串转义为 %00 以保持字段数量不变
func Escape(text string) string {
	if text == "" {
		return "%00"
	}
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '%' || c == ' ' || c == '\t' || c == '\n' || c == '\r' || c < 0x20 {
			fmt.Fprintf(&b, "%%%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape 还原 Escape 转义的文本字段
func Unescape(text string) string {
	if text == "%00" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '%' && i+2 < len(text) {
			if v, err := strconv.ParseUint(text[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
