package utils

import "golang.org/x/exp/constraints"

// Abs 返回浮点数绝对值
func Abs[T constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// Clamp 将数值限制在 [lo, hi] 区间
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Near 判断两个浮点数是否在容差内相等
func Near[T constraints.Float](a, b, eps T) bool {
	return Abs(a-b) <= eps
}
