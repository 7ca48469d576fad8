package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/analysis"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/pkg/errors"
)

var fixedNow = time.Date(2025, time.April, 10, 18, 0, 0, 0, time.UTC)

func sampleSummary() *analysis.Summary {
	ips := aggregate.NewTable("requests_by_ip", aggregate.MetricCount)
	ips.Title = "Requests by IP"
	ips.Incr("192.0.2.7", 2)
	ips.Incr("<script>alert(1)</script>", 1)

	failures := aggregate.NewFailureTally(5)
	failures.Add(&logengine.ParseFailure{Line: logengine.RawLine{Text: "garbage", Source: "/var/log/access.log", Number: 3}, Reason: logengine.ReasonFieldCount})
	failures.Add(&logengine.ParseFailure{Line: logengine.RawLine{Text: "bad time", Source: "/var/log/access.log", Number: 9}, Reason: logengine.ReasonTimestamp})

	s := &analysis.Summary{
		Project:  "example.com",
		Date:     "20250410",
		Type:     analysis.TypeIP,
		Title:    "IP Analytics",
		Tables:   []*aggregate.Table{ips},
		Failures: failures,
		Records:  3,
		Events: []analysis.Event{{
			Time: time.Date(2025, time.April, 10, 13, 55, 36, 0, time.UTC), Type: "Attack Detected",
			IP: "192.0.2.7", Path: "/?q=<b>", Status: 403, Detail: "XSS Attack",
		}},
		Notes: []string{"Block IP 192.0.2.7 - Attack attempts"},
	}
	s.AddStat("Unique IPs", "2")
	return s
}

// TestProjectDir tests project directory names
// TestProjectDir 测试项目目录名
func TestProjectDir(t *testing.T) {
	assert.Equal(t, "example_com", ProjectDir("example.com"))
	assert.Equal(t, "www_example_co_uk", ProjectDir(" www.example.co.uk "))
	assert.Equal(t, "___etc", ProjectDir("../etc"))
}

// TestFileName tests report file names
// TestFileName 测试报表文件名
func TestFileName(t *testing.T) {
	assert.Equal(t, "ip_report_20250410.html", FileName(analysis.TypeIP, "20250410", "html"))
	assert.Equal(t, "error_report_20250410.txt", FileName(analysis.TypeError, "20250410", "txt"))
	assert.Equal(t, "custom_api_report_20250410.html", FileName(analysis.ReportType("custom:api"), "20250410", "html"))
}

// TestRenderText tests the plain text report
// TestRenderText 测试纯文本报表
func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, sampleSummary(), fixedNow))
	out := buf.String()

	assert.Contains(t, out, "IP Analytics for example.com")
	assert.Contains(t, out, "Generated on: 2025-04-10 18:00:00")
	assert.Contains(t, out, "2 lines failed to parse (field_count: 1, timestamp: 1)")
	assert.Contains(t, out, "Unique IPs")
	assert.Contains(t, out, "192.0.2.7")
	assert.Contains(t, out, "66.67%")
	assert.Contains(t, out, "Attack Detected")
	assert.Contains(t, out, "- Block IP 192.0.2.7 - Attack attempts")
	assert.Contains(t, out, "/var/log/access.log:3")
}

// TestRenderText_Truncated tests the table limit marker
// TestRenderText_Truncated 测试表格截断标记
func TestRenderText_Truncated(t *testing.T) {
	s := sampleSummary()
	s.Tables[0].Limit = 1
	s.Failures = nil

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, s, fixedNow))
	assert.Contains(t, buf.String(), "Requests by IP (top 1 of 2)")
	assert.Contains(t, buf.String(), "0 lines failed to parse")
}

// TestRenderHTML tests the HTML report and escaping of log text
// TestRenderHTML 测试 HTML 报表及日志文本转义
func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, sampleSummary(), fixedNow))
	out := buf.String()

	assert.Contains(t, out, "<title>IP Analytics for example.com - 20250410</title>")
	assert.Contains(t, out, "2 lines failed to parse")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "/?q=&lt;b&gt;")
	assert.Contains(t, out, "<th>Share</th>")
}

// TestNewWriter_Invalid tests writer option checks
// TestNewWriter_Invalid 测试 Writer 选项校验
func TestNewWriter_Invalid(t *testing.T) {
	_, err := NewWriter(Options{HTML: true})
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)

	_, err = NewWriter(Options{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
}

// TestWriter_WriteProject tests the output layout
// TestWriter_WriteProject 测试输出目录结构
func TestWriter_WriteProject(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{OutputDir: dir, HTML: true, Text: true, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	written, err := w.WriteProject("example.com", "20250410", []*analysis.Summary{sampleSummary()})
	require.NoError(t, err)

	dateDir := filepath.Join(dir, "example_com", "20250410")
	assert.Equal(t, dateDir, written.Dir)
	assert.Equal(t, []string{
		filepath.Join(dateDir, "ip_report_20250410.html"),
		filepath.Join(dateDir, "ip_report_20250410.txt"),
	}, written.Files)

	for _, p := range []string{
		filepath.Join(dateDir, "index.html"),
		filepath.Join(dir, "example_com", "ip_report_20250410.html"),
		filepath.Join(dir, "example_com", "ip_report_20250410.txt"),
		filepath.Join(dir, "example_com", "index.html"),
	} {
		assert.FileExists(t, p)
	}

	dateIndex, err := os.ReadFile(filepath.Join(dateDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(dateIndex), `href="ip_report_20250410.html"`)
	assert.Contains(t, string(dateIndex), "Unique IPs: 2")

	// A second date is listed newest first
	// 第二个日期按最新优先列出
	_, err = w.WriteProject("example.com", "20250411", []*analysis.Summary{sampleSummary()})
	require.NoError(t, err)
	projectIndex, err := os.ReadFile(filepath.Join(dir, "example_com", "index.html"))
	require.NoError(t, err)
	content := string(projectIndex)
	assert.Less(t, bytes.Index(projectIndex, []byte("20250411/index.html")), bytes.Index(projectIndex, []byte("20250410/index.html")))
	assert.Contains(t, content, "ip_report_20250411.html")
}

// TestWriter_TextOnly tests writing text reports only
// TestWriter_TextOnly 测试仅输出文本报表
func TestWriter_TextOnly(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{OutputDir: dir, Text: true})
	require.NoError(t, err)

	written, err := w.WriteProject("example.com", "20250410", []*analysis.Summary{sampleSummary()})
	require.NoError(t, err)
	require.Len(t, written.Files, 1)
	assert.Equal(t, ".txt", filepath.Ext(written.Files[0]))
	assert.NoFileExists(t, filepath.Join(written.Dir, "ip_report_20250410.html"))
}

// TestWriter_WriteDashboard tests the root index
// TestWriter_WriteDashboard 测试根目录索引
func TestWriter_WriteDashboard(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{OutputDir: dir, HTML: true, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	_, err = w.WriteProject("example.com", "20250410", []*analysis.Summary{sampleSummary()})
	require.NoError(t, err)
	_, err = w.WriteProject("old.example.org", "20250301", []*analysis.Summary{sampleSummary()})
	require.NoError(t, err)

	require.NoError(t, w.WriteDashboard([]ProjectEntry{
		{Name: "example.com", Status: "ok", Records: 1234, Failures: 2},
		{Name: "broken.example.net", Status: "failed"},
	}))

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `<a href="example_com/index.html">example.com</a>`)
	assert.Contains(t, out, `example_com/20250410/index.html`)
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "broken.example.net")
	assert.Contains(t, out, `<a href="old_example_org/index.html">old_example_org</a>`)
	assert.Equal(t, 1, bytes.Count(data, []byte(`href="example_com/index.html"`)))
}
