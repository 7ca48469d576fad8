package logengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestReferrerDomain tests host extraction from referrers
// TestReferrerDomain 测试从来源中提取主机名
func TestReferrerDomain(t *testing.T) {
	tests := map[string]string{
		"":                              "",
		"-":                             "",
		"https://Example.COM/page":      "example.com",
		"http://www.example.com:8080/x": "www.example.com",
		"https://[2001:db8::1]:443/":    "2001:db8::1",
		"android-app://com.google.app":  "",
		"not a url":                     "",
		"http://%zz":                    "",
		"/relative/path":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ReferrerDomain(in), in)
	}
}

// TestClassifyReferrer tests referrer type rules
// TestClassifyReferrer 测试来源类型规则
func TestClassifyReferrer(t *testing.T) {
	tests := []struct {
		ref  string
		want ReferrerType
	}{
		{"", ReferrerDirect},
		{"-", ReferrerDirect},
		{"https://www.bing.com/search?q=x", ReferrerSearch},
		{"https://duckduckgo.com/", ReferrerSearch},
		{"https://m.facebook.com/story", ReferrerSocial},
		{"https://t.co/abc", ReferrerSocial},
		{"https://ad.doubleclick.net/click", ReferrerAdvertising},
		{"https://blog.example.org/post?utm_source=newsletter", ReferrerEmail},
		{"https://blog.example.org/post?utm_source=partner&utm_medium=cpc", ReferrerAdvertising},
		{"https://blog.example.org/post?utm_source=social", ReferrerSocial},
		{"https://blog.example.org/post", ReferrerReferral},
		{"garbage", ReferrerReferral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyReferrer(tt.ref), tt.ref)
	}
}

// TestSearchEngineOf tests engine and query extraction
// TestSearchEngineOf 测试搜索引擎与搜索词提取
func TestSearchEngineOf(t *testing.T) {
	engine, query := SearchEngineOf("https://www.google.co.uk/search?q=apache+logs")
	assert.Equal(t, "Google", engine)
	assert.Equal(t, "apache logs", query)

	engine, query = SearchEngineOf("https://www.baidu.com/s?wd=%E6%97%A5%E5%BF%97")
	assert.Equal(t, "Baidu", engine)
	assert.Equal(t, "日志", query)

	engine, query = SearchEngineOf("https://example.com/?q=x")
	assert.Equal(t, "", engine)
	assert.Equal(t, "", query)
}
