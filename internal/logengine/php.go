package logengine

import (
	"strconv"
	"strings"
)

// phpSeverities maps PHP error levels to severities.
// phpSeverities 将 PHP 错误级别映射为 Severity。
var phpSeverities = map[string]Severity{
	"notice":                  SeverityNotice,
	"deprecated":              SeverityNotice,
	"strict standards":        SeverityNotice,
	"warning":                 SeverityWarning,
	"error":                   SeverityError,
	"parse error":             SeverityError,
	"recoverable fatal error": SeverityError,
	"fatal error":             SeverityFatal,
	"catchable fatal error":   SeverityFatal,
}

// annotatePHP recognizes "PHP <Level>: msg in <file> on line <n>" and
// fills in SourceFile, LineNumber and a refined Severity.
// It reports whether the message carried a PHP prefix.
// annotatePHP 识别 PHP 错误消息并填充源文件、行号与级别。
func annotatePHP(rec *ErrorRecord) bool {
	msg := rec.Message
	if !strings.HasPrefix(msg, "PHP ") {
		return false
	}
	colon := strings.Index(msg, ": ")
	if colon < 0 {
		return false
	}
	level := strings.ToLower(strings.TrimSpace(msg[4:colon]))
	body := strings.TrimSpace(msg[colon+2:])

	rec.PHP = true
	if sev, ok := phpSeverities[level]; ok {
		rec.Severity = sev
	}

	if file, line, text, ok := splitFileLine(body); ok {
		rec.SourceFile = file
		rec.LineNumber = line
		body = text
	}
	rec.Message = body
	return true
}

// splitFileLine splits "msg in /path/file.php on line 12" into its parts.
// Trailing text after the line number (e.g. ", referer: ...") is dropped.
func splitFileLine(s string) (file string, line int, msg string, ok bool) {
	onLine := strings.LastIndex(s, " on line ")
	if onLine < 0 {
		return "", 0, s, false
	}
	digits := s[onLine+len(" on line "):]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", 0, s, false
	}
	n, err := strconv.Atoi(digits[:end])
	if err != nil {
		return "", 0, s, false
	}

	head := s[:onLine]
	in := strings.LastIndex(head, " in ")
	if in < 0 {
		return "", 0, s, false
	}
	return strings.TrimSpace(head[in+len(" in "):]), n, strings.TrimSpace(head[:in]), true
}
