package logengine

import (
	"fmt"
	"strings"
	"time"

	"github.com/netxfw/gunlog/pkg/errors"
)

// RawLine is a single line read from a log file.
// RawLine 表示从日志文件读取的一行。
type RawLine struct {
	Text   string
	Source string // file path the line came from
	Number int    // 1-based line number within Source
	Err    error  // set when the line could not be read
}

// Kind distinguishes access records from error records.
// Kind 区分访问记录与错误记录。
type Kind int

const (
	KindAccess Kind = iota
	KindError
)

func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "access"
}

// Severity is the normalized severity of an error log entry.
// Severity 为错误日志条目的规范化级别。
type Severity int

const (
	SeverityNotice Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

var severityNames = [...]string{"notice", "warning", "error", "fatal"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// ParseSeverity maps an Apache/Nginx level name (optionally prefixed with
// a module, e.g. "proxy_fcgi:error") to a Severity.
// ParseSeverity 将 Apache/Nginx 级别名称映射为 Severity。
func ParseSeverity(level string) (Severity, bool) {
	if i := strings.LastIndexByte(level, ':'); i >= 0 {
		level = level[i+1:]
	}
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "emerg", "emergency", "alert", "crit", "critical", "fatal":
		return SeverityFatal, true
	case "error", "err":
		return SeverityError, true
	case "warn", "warning":
		return SeverityWarning, true
	case "notice", "info", "debug":
		return SeverityNotice, true
	}
	// Apache trace1..trace8
	if strings.HasPrefix(level, "trace") {
		return SeverityNotice, true
	}
	return SeverityNotice, false
}

// AccessRecord is one parsed access log line.
// AccessRecord 为一条解析后的访问日志。
type AccessRecord struct {
	ClientIP        string
	Ident           string
	AuthUser        string
	Timestamp       time.Time
	Method          string
	Path            string
	Protocol        string
	Status          int
	BytesSent       int64
	Referrer        string
	UserAgent       string
	ResponseTime    float64 // seconds
	HasResponseTime bool
}

// ErrorRecord is one parsed error log line.
// ErrorRecord 为一条解析后的错误日志。
type ErrorRecord struct {
	Timestamp  time.Time
	Severity   Severity
	Message    string
	SourceFile string
	LineNumber int // 0 when absent
	Module     string
	ClientIP   string
	PHP        bool
}

// ParsedRecord holds exactly one of Access or Error depending on Kind.
// ParsedRecord 根据 Kind 持有 Access 或 Error 之一。
type ParsedRecord struct {
	Kind   Kind
	Access *AccessRecord
	Error  *ErrorRecord
}

// Timestamp returns the timestamp of whichever record is set.
func (r ParsedRecord) Timestamp() time.Time {
	switch {
	case r.Access != nil:
		return r.Access.Timestamp
	case r.Error != nil:
		return r.Error.Timestamp
	}
	return time.Time{}
}

// Failure reasons carried by ParseFailure.
// ParseFailure 携带的失败原因。
const (
	ReasonEmpty        = "empty"
	ReasonFieldCount   = "field_count"
	ReasonTimestamp    = "timestamp"
	ReasonRequest      = "request"
	ReasonStatus       = "status"
	ReasonBytes        = "bytes"
	ReasonSeverity     = "severity"
	ReasonResponseTime = "response_time"
	ReasonRead         = "read"
)

// ParseFailure describes a line that could not be parsed.
// ParseFailure 描述一条无法解析的行。
type ParseFailure struct {
	Line   RawLine
	Reason string
}

func (f *ParseFailure) Error() string {
	return fmt.Sprintf("%v: %s:%d: %s", errors.ErrMalformedLine, f.Line.Source, f.Line.Number, f.Reason)
}

// Unwrap lets errors.Is match ErrMalformedLine.
func (f *ParseFailure) Unwrap() error {
	return errors.ErrMalformedLine
}

func newFailure(line RawLine, reason string) *ParseFailure {
	return &ParseFailure{Line: line, Reason: reason}
}
