package logengine

import (
	"fmt"
	"strings"
	"time"
)

// Default timestamp patterns per log format.
// 各日志格式的默认时间戳模式。
const (
	DefaultAccessTimestamp     = "%d/%b/%Y:%H:%M:%S %z"
	DefaultErrorTimestamp      = "%a %b %d %H:%M:%S %Y"
	DefaultNginxErrorTimestamp = "%Y/%m/%d %H:%M:%S"
	DefaultPHPErrorTimestamp   = "%d-%b-%Y %H:%M:%S %Z"
)

var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'z': "-0700",
	'Z': "MST",
	'j': "002",
	'T': "15:04:05",
	'D': "01/02/06",
	'F': "2006-01-02",
	'%': "%",
}

// StrftimeToLayout converts a strftime-like pattern into a Go time layout.
// A pattern without any '%' is assumed to already be a Go layout.
// StrftimeToLayout 将 strftime 风格的模式转换为 Go 时间布局。
func StrftimeToLayout(pattern string) (string, error) {
	if pattern == "" {
		return "", fmt.Errorf("empty timestamp pattern")
	}
	if !strings.Contains(pattern, "%") {
		return pattern, nil
	}

	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(pattern) {
			return "", fmt.Errorf("dangling %% at end of pattern %q", pattern)
		}
		i++
		d := pattern[i]
		if d == 'f' {
			// fractional seconds only make sense after a separator
			s := b.String()
			if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, ",") {
				return "", fmt.Errorf("%%f must follow '.' or ',' in pattern %q", pattern)
			}
			b.WriteString("000000")
			continue
		}
		layout, ok := strftimeDirectives[d]
		if !ok {
			return "", fmt.Errorf("unsupported directive %%%c in pattern %q", d, pattern)
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}

// FormatDate renders t with a strftime-like pattern, falling back to ISO dates
// when the pattern cannot be converted.
// FormatDate 使用 strftime 风格模式格式化时间。
func FormatDate(t time.Time, pattern string) string {
	layout, err := StrftimeToLayout(pattern)
	if err != nil {
		layout = time.DateOnly
	}
	return t.Format(layout)
}
