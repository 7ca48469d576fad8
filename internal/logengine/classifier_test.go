package logengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func accessRecord(ip, path, ref, ua string, status int) ParsedRecord {
	return ParsedRecord{Kind: KindAccess, Access: &AccessRecord{
		ClientIP:  ip,
		Timestamp: time.Date(2025, time.April, 10, 13, 0, 0, 0, time.UTC),
		Method:    "GET",
		Path:      path,
		Status:    status,
		Referrer:  ref,
		UserAgent: ua,
	}}
}

// TestStatusClassOf tests status code bucketing
// TestStatusClassOf 测试状态码分类
func TestStatusClassOf(t *testing.T) {
	tests := map[int]StatusClass{
		200: Status2xx, 204: Status2xx, 301: Status3xx, 404: Status4xx,
		503: Status5xx, 100: StatusOther, 0: StatusOther, -1: StatusOther, 999: StatusOther,
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusClassOf(code), code)
	}
}

// TestClassifier_IsBot tests case-insensitive bot signature matching
// TestClassifier_IsBot 测试不区分大小写的爬虫匹配
func TestClassifier_IsBot(t *testing.T) {
	c := NewClassifier(ClassifierOptions{BotSignatures: []string{"Googlebot", " curl ", ""}})

	assert.True(t, c.IsBot("Mozilla/5.0 (compatible; GOOGLEBOT/2.1)"))
	assert.True(t, c.IsBot("curl/8.0"))
	assert.False(t, c.IsBot("Mozilla/5.0 (Windows NT 10.0)"))
	assert.False(t, c.IsBot(""))

	empty := NewClassifier(ClassifierOptions{})
	assert.False(t, empty.IsBot("Googlebot"))
}

// TestClassifier_Classify tests derived tags of an access record
// TestClassifier_Classify 测试访问记录的派生标签
func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(ClassifierOptions{BotSignatures: DefaultBotSignatures})

	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	rec := c.Classify(accessRecord("203.0.113.5", "/img/logo.png", "https://www.google.com/search?q=gunlog", ua, 200))

	assert.Equal(t, KindAccess, rec.Kind)
	assert.False(t, rec.IsBot)
	assert.Equal(t, Status2xx, rec.StatusClass)
	assert.Equal(t, "www.google.com", rec.ReferrerDomain)
	assert.Equal(t, ReferrerSearch, rec.ReferrerType)
	assert.Equal(t, "Google", rec.SearchEngine)
	assert.Equal(t, "gunlog", rec.SearchQuery)
	assert.Equal(t, "Image", rec.ContentType)
	assert.Equal(t, "Mobile", rec.Device)
	assert.NotEqual(t, "Unknown", rec.Browser)
	assert.False(t, rec.InternalIP)
	assert.Equal(t, "203.0.113.5", rec.ClientIP())

	bot := c.Classify(accessRecord("10.1.2.3", "/", "", "Mozilla/5.0 (compatible; bingbot/2.0)", 404))
	assert.True(t, bot.IsBot)
	assert.Equal(t, "Bot", bot.Device)
	assert.Equal(t, Status4xx, bot.StatusClass)
	assert.Equal(t, ReferrerDirect, bot.ReferrerType)
	assert.Equal(t, "", bot.ReferrerDomain)
	assert.True(t, bot.InternalIP)

	blank := c.Classify(accessRecord("198.51.100.1", "/", "", "", 200))
	assert.False(t, blank.IsBot)
	assert.Equal(t, "Unknown", blank.Device)
	assert.Equal(t, "Unknown", blank.Browser)
}

// TestClassifier_ErrorRecord tests that error records only get IP tags
// TestClassifier_ErrorRecord 测试错误记录仅派生 IP 标签
func TestClassifier_ErrorRecord(t *testing.T) {
	c := NewClassifier(ClassifierOptions{BotSignatures: DefaultBotSignatures})
	rec := c.Classify(ParsedRecord{Kind: KindError, Error: &ErrorRecord{ClientIP: "127.0.0.1", Severity: SeverityError}})
	assert.Equal(t, KindError, rec.Kind)
	assert.False(t, rec.IsBot)
	assert.Equal(t, StatusOther, rec.StatusClass)
	assert.True(t, rec.InternalIP)
	assert.Equal(t, "127.0.0.1", rec.ClientIP())
}

// TestClassifier_Deterministic tests that repeated classification is stable
// TestClassifier_Deterministic 测试重复分类结果一致
func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(ClassifierOptions{BotSignatures: DefaultBotSignatures})
	in := accessRecord("192.0.2.1", "/a.css", "https://t.co/x", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0 Safari/537.36", 200)
	assert.Equal(t, c.Classify(in), c.Classify(in))
}

// TestContentTypeOf tests extension based categorization
// TestContentTypeOf 测试基于扩展名的分类
func TestContentTypeOf(t *testing.T) {
	tests := map[string]string{
		"/":                 "Page",
		"/about":            "Page",
		"/index.php?id=1":   "Page",
		"/static/app.JS":    "Script",
		"/s/site.css#x":     "Style",
		"/files/report.pdf": "Document",
		"/dl/tool.tar.gz":   "Download",
		"/fonts/a.woff2":    "Font",
		"/feed.xml":         "Data",
		"/video/intro.mp4":  "Media",
		"/weird.xyz":        "Other",
		"UNKNOWN":           "Other",
	}
	for in, want := range tests {
		assert.Equal(t, want, ContentTypeOf(in), in)
	}
}
