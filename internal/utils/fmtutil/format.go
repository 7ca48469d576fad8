// Package fmtutil provides formatting utilities for human-readable report output.
// Package fmtutil 提供用于人类可读报告输出的格式化工具。
package fmtutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatNumberWithComma formats a number with thousand separators.
// FormatNumberWithComma 格式化数字，添加千位分隔符。
func FormatNumberWithComma(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String()
}

// FormatBytes formats bytes to human readable format.
// FormatBytes 将字节格式化为可读格式。
func FormatBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	switch {
	case b < 1024:
		return fmt.Sprintf("%dB", b)
	case b < 1048576:
		return fmt.Sprintf("%.2fKB", float64(b)/1024)
	case b < 1073741824:
		return fmt.Sprintf("%.2fMB", float64(b)/1048576)
	default:
		return fmt.Sprintf("%.2fGB", float64(b)/1073741824)
	}
}

// FormatSeconds formats a response time given in seconds.
// FormatSeconds 格式化以秒为单位的响应时间。
func FormatSeconds(s float64) string {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return "-"
	}
	if s < 1 {
		return fmt.Sprintf("%.1fms", s*1000)
	}
	return fmt.Sprintf("%.3fs", s)
}

// FormatDuration formats a duration to human readable format.
// FormatDuration 将持续时间格式化为可读格式。
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

// FormatPercent formats part/total as a percentage with two decimals.
// FormatPercent 将 part/total 格式化为保留两位小数的百分比。
func FormatPercent(part, total int64) string {
	if total == 0 {
		return "0.00%"
	}
	value := float64(part) / float64(total) * 100
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", value)
}

// Truncate shortens s to at most n runes, marking the cut with "...".
// Truncate 将 s 截断为最多 n 个字符，并以 "..." 标记。
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
