package logengine

import (
	"strconv"
	"strings"
	"time"

	"github.com/netxfw/gunlog/pkg/errors"
)

// Format names a supported log layout.
// Format 表示支持的日志格式。
type Format string

const (
	FormatCombined   Format = "combined"
	FormatCommon     Format = "common"
	FormatError      Format = "error"
	FormatNginxError Format = "nginx_error"
	FormatPHPError   Format = "php_error"
)

// Formats lists every supported format in documentation order.
var Formats = []Format{FormatCombined, FormatCommon, FormatError, FormatNginxError, FormatPHPError}

// ParseFormat validates a format name. An empty name selects combined.
// ParseFormat 校验格式名称，空字符串表示 combined。
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return FormatCombined, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.NewFormatError(name)
}

// IsAccess reports whether the format describes access log lines.
func (f Format) IsAccess() bool {
	return f == FormatCombined || f == FormatCommon
}

// DefaultTimestampPattern returns the strftime pattern used when none is configured.
// DefaultTimestampPattern 返回未配置时使用的时间戳模式。
func (f Format) DefaultTimestampPattern() string {
	switch f {
	case FormatError:
		return DefaultErrorTimestamp
	case FormatNginxError:
		return DefaultNginxErrorTimestamp
	case FormatPHPError:
		return DefaultPHPErrorTimestamp
	default:
		return DefaultAccessTimestamp
	}
}

// Options is the log format specification a Parser is built from.
// Options 为构建 Parser 所需的日志格式描述。
type Options struct {
	Format           Format
	TimestampPattern string
}

// Parser turns raw lines into records. It holds no mutable state besides a
// scratch token buffer, so one Parser must not be shared across goroutines.
// Parser 将原始行解析为记录，不可跨 goroutine 共享。
type Parser struct {
	format    Format
	layout    string
	tokenizer *Tokenizer
	extractor *IPExtractor
	buf       []Token
}

// NewParser validates opts and compiles the timestamp pattern.
// NewParser 校验选项并编译时间戳模式。
func NewParser(opts Options) (*Parser, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	pattern := opts.TimestampPattern
	if pattern == "" {
		pattern = format.DefaultTimestampPattern()
	}
	layout, err := StrftimeToLayout(pattern)
	if err != nil {
		return nil, errors.NewConfigError("timestamp_pattern", pattern)
	}
	return &Parser{
		format:    format,
		layout:    layout,
		tokenizer: NewTokenizer(),
		extractor: NewIPExtractor(),
		buf:       make([]Token, 0, 12),
	}, nil
}

// Format returns the format this parser was built for.
func (p *Parser) Format() Format {
	return p.format
}

// Parse parses one line. Exactly one of the results is set.
// Parse 解析一行，两个返回值中恰有一个非空。
func (p *Parser) Parse(line RawLine) (ParsedRecord, *ParseFailure) {
	if line.Err != nil {
		return ParsedRecord{}, newFailure(line, ReasonRead)
	}
	if strings.TrimSpace(line.Text) == "" {
		return ParsedRecord{}, newFailure(line, ReasonEmpty)
	}
	switch p.format {
	case FormatError:
		return p.parseApacheError(line)
	case FormatNginxError:
		return p.parseNginxError(line)
	case FormatPHPError:
		return p.parsePHPError(line)
	default:
		return p.parseAccess(line)
	}
}

// parseAccess handles
// ip ident authuser [timestamp] "request" status bytes ["referrer" "user-agent"] [response_time]
func (p *Parser) parseAccess(line RawLine) (ParsedRecord, *ParseFailure) {
	p.buf = p.tokenizer.Tokenize(line.Text, p.buf)
	tokens := p.buf

	want := 9
	if p.format == FormatCommon {
		want = 7
	}
	if len(tokens) < want {
		return ParsedRecord{}, newFailure(line, ReasonFieldCount)
	}

	if !tokens[3].Bracketed() {
		return ParsedRecord{}, newFailure(line, ReasonTimestamp)
	}
	ts, err := time.Parse(p.layout, tokens[3].Value)
	if err != nil {
		return ParsedRecord{}, newFailure(line, ReasonTimestamp)
	}

	if !tokens[4].Quoted() {
		return ParsedRecord{}, newFailure(line, ReasonRequest)
	}
	method, path, protocol := splitRequest(tokens[4].Value)

	status, ok := parseStatus(tokens[5].Value)
	if !ok {
		return ParsedRecord{}, newFailure(line, ReasonStatus)
	}

	var bytesSent int64
	if b := tokens[6].Value; b != "-" {
		bytesSent, err = strconv.ParseInt(b, 10, 64)
		if err != nil || bytesSent < 0 {
			return ParsedRecord{}, newFailure(line, ReasonBytes)
		}
	}

	rec := &AccessRecord{
		ClientIP:  tokens[0].Value,
		Ident:     dashToEmpty(tokens[1].Value),
		AuthUser:  dashToEmpty(tokens[2].Value),
		Timestamp: ts,
		Method:    method,
		Path:      path,
		Protocol:  protocol,
		Status:    status,
		BytesSent: bytesSent,
	}
	if p.format == FormatCombined {
		rec.Referrer = dashToEmpty(tokens[7].Value)
		rec.UserAgent = dashToEmpty(tokens[8].Value)
	}

	// optional trailing $request_time; quoted extras are ignored
	if len(tokens) > want && tokens[want].Delim == 0 {
		if v := tokens[want].Value; v != "-" {
			rt, err := strconv.ParseFloat(v, 64)
			if err != nil || rt < 0 {
				return ParsedRecord{}, newFailure(line, ReasonResponseTime)
			}
			rec.ResponseTime = rt
			rec.HasResponseTime = true
		}
	}

	return ParsedRecord{Kind: KindAccess, Access: rec}, nil
}

// parseApacheError handles
// [timestamp] [module:severity] [pid N:tid M] [client ip:port] message
func (p *Parser) parseApacheError(line RawLine) (ParsedRecord, *ParseFailure) {
	groups, rest, ok := leadingGroups(line.Text, 2)
	if !ok || len(groups) < 2 {
		return ParsedRecord{}, newFailure(line, ReasonFieldCount)
	}

	ts, err := time.Parse(p.layout, groups[0])
	if err != nil {
		return ParsedRecord{}, newFailure(line, ReasonTimestamp)
	}
	severity, ok := ParseSeverity(groups[1])
	if !ok {
		return ParsedRecord{}, newFailure(line, ReasonSeverity)
	}

	rec := &ErrorRecord{Timestamp: ts, Severity: severity}
	if i := strings.IndexByte(groups[1], ':'); i > 0 {
		rec.Module = groups[1][:i]
	}

	// optional [pid ...], [client ...] and [remote ...] groups
annotations:
	for {
		trimmed := strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(trimmed, "[") {
			break
		}
		end := strings.IndexByte(trimmed, ']')
		if end < 0 {
			break
		}
		group := trimmed[1:end]
		switch {
		case strings.HasPrefix(group, "pid "):
		case strings.HasPrefix(group, "client "):
			if ip, ok := p.extractor.ClientAfter(group, "client "); ok {
				rec.ClientIP = ip
			}
		case strings.HasPrefix(group, "remote "):
			if rec.ClientIP == "" {
				if ip, ok := p.extractor.ClientAfter(group, "remote "); ok {
					rec.ClientIP = ip
				}
			}
		default:
			break annotations
		}
		rest = trimmed[end+1:]
	}

	rec.Message = strings.TrimSpace(rest)
	annotatePHP(rec)
	return ParsedRecord{Kind: KindError, Error: rec}, nil
}

// parseNginxError handles
// YYYY/MM/DD HH:MM:SS [severity] pid#tid: *cid message, client: ip, server: ...
func (p *Parser) parseNginxError(line RawLine) (ParsedRecord, *ParseFailure) {
	text := line.Text
	open := strings.Index(text, " [")
	if open < 0 {
		return ParsedRecord{}, newFailure(line, ReasonFieldCount)
	}
	closeIdx := strings.IndexByte(text[open+2:], ']')
	if closeIdx < 0 {
		return ParsedRecord{}, newFailure(line, ReasonFieldCount)
	}
	closeIdx += open + 2

	ts, err := time.Parse(p.layout, strings.TrimSpace(text[:open]))
	if err != nil {
		return ParsedRecord{}, newFailure(line, ReasonTimestamp)
	}
	severity, ok := ParseSeverity(text[open+2 : closeIdx])
	if !ok {
		return ParsedRecord{}, newFailure(line, ReasonSeverity)
	}

	msg := strings.TrimSpace(text[closeIdx+1:])
	// pid#tid:
	if i := strings.Index(msg, ": "); i > 0 && strings.IndexByte(msg[:i], '#') > 0 {
		msg = strings.TrimSpace(msg[i+2:])
	}
	// *connection_id
	if strings.HasPrefix(msg, "*") {
		if i := strings.IndexByte(msg, ' '); i > 0 {
			msg = msg[i+1:]
		}
	}

	rec := &ErrorRecord{Timestamp: ts, Severity: severity}
	if ip, ok := p.extractor.ClientAfter(msg, "client: "); ok {
		rec.ClientIP = ip
	}
	if i := strings.Index(msg, ", client: "); i >= 0 {
		msg = msg[:i]
	}
	rec.Message = strings.TrimSpace(msg)
	annotatePHP(rec)
	return ParsedRecord{Kind: KindError, Error: rec}, nil
}

// parsePHPError handles PHP's own error_log layout
// [timestamp] PHP Level:  message in file on line n
func (p *Parser) parsePHPError(line RawLine) (ParsedRecord, *ParseFailure) {
	groups, rest, ok := leadingGroups(line.Text, 1)
	if !ok || len(groups) < 1 {
		return ParsedRecord{}, newFailure(line, ReasonFieldCount)
	}
	ts, err := time.Parse(p.layout, groups[0])
	if err != nil {
		return ParsedRecord{}, newFailure(line, ReasonTimestamp)
	}
	rec := &ErrorRecord{Timestamp: ts, Message: strings.TrimSpace(rest)}
	if annotatePHP(rec) {
		return ParsedRecord{Kind: KindError, Error: rec}, nil
	}

	// php-fpm master lines: "NOTICE: fpm is running"
	if i := strings.IndexByte(rec.Message, ':'); i > 0 {
		if sev, ok := ParseSeverity(rec.Message[:i]); ok {
			rec.Severity = sev
			rec.Message = strings.TrimSpace(rec.Message[i+1:])
			return ParsedRecord{Kind: KindError, Error: rec}, nil
		}
	}
	return ParsedRecord{}, newFailure(line, ReasonSeverity)
}

// leadingGroups collects up to max leading [..] groups and returns the remainder.
func leadingGroups(text string, max int) ([]string, string, bool) {
	groups := make([]string, 0, max)
	rest := text
	for len(groups) < max {
		rest = strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(rest, "[") {
			break
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, "", false
		}
		groups = append(groups, rest[1:end])
		rest = rest[end+1:]
	}
	return groups, rest, len(groups) > 0
}

// splitRequest splits a request line. "-" or a single token yields UNKNOWN.
// splitRequest 拆分请求行，"-" 或单个字段时返回 UNKNOWN。
func splitRequest(req string) (method, path, protocol string) {
	fields := strings.Fields(req)
	if len(fields) < 2 {
		return "UNKNOWN", "UNKNOWN", ""
	}
	method, path = fields[0], fields[1]
	if len(fields) >= 3 {
		protocol = fields[len(fields)-1]
		if len(fields) > 3 {
			// unencoded spaces in the path
			path = strings.Join(fields[1:len(fields)-1], " ")
		}
	}
	return method, path, protocol
}

func parseStatus(s string) (int, bool) {
	if len(s) != 3 {
		return 0, false
	}
	code, err := strconv.Atoi(s)
	if err != nil || code < 100 || code > 599 {
		return 0, false
	}
	return code, true
}

func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
