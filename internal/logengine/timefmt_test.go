package logengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStrftimeToLayout tests strftime to Go layout conversion
// TestStrftimeToLayout 测试 strftime 到 Go 布局的转换
func TestStrftimeToLayout(t *testing.T) {
	tests := []struct {
		pattern string
		layout  string
	}{
		{DefaultAccessTimestamp, "02/Jan/2006:15:04:05 -0700"},
		{DefaultErrorTimestamp, "Mon Jan 02 15:04:05 2006"},
		{DefaultNginxErrorTimestamp, "2006/01/02 15:04:05"},
		{DefaultPHPErrorTimestamp, "02-Jan-2006 15:04:05 MST"},
		{"%Y%m%d", "20060102"},
		{"%F %T", "2006-01-02 15:04:05"},
		{"%H:%M:%S.%f", "15:04:05.000000"},
		{"100%%", "100%"},
		{time.RFC3339, time.RFC3339},
	}
	for _, tt := range tests {
		got, err := StrftimeToLayout(tt.pattern)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.layout, got, tt.pattern)
	}
}

// TestStrftimeToLayout_Errors tests invalid patterns
// TestStrftimeToLayout_Errors 测试无效模式
func TestStrftimeToLayout_Errors(t *testing.T) {
	for _, pattern := range []string{"", "%Q", "%Y%", "%S%f"} {
		_, err := StrftimeToLayout(pattern)
		assert.Error(t, err, pattern)
	}
}

// TestFormatDate tests date rendering for report paths
// TestFormatDate 测试报告路径的日期格式化
func TestFormatDate(t *testing.T) {
	ts := time.Date(2025, time.April, 10, 13, 55, 36, 0, time.UTC)
	assert.Equal(t, "20250410", FormatDate(ts, "%Y%m%d"))
	assert.Equal(t, "2025-04-10", FormatDate(ts, "%Y-%m-%d"))
	assert.Equal(t, "2025-04-10", FormatDate(ts, "%Q"))
}
