package aggregate

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/iputil"
	"github.com/netxfw/gunlog/pkg/errors"
)

// Env is the record view that custom where/key expressions are evaluated against.
// Env 为自定义 where/key 表达式求值时的记录视图。
type Env struct {
	Kind string // "access" or "error"

	IP           string
	Method       string
	Path         string
	Protocol     string
	Status       int
	StatusClass  string
	Bytes        int64
	Referrer     string
	UserAgent    string
	ResponseTime float64
	AuthUser     string

	IsBot          bool
	Internal       bool
	ReferrerDomain string
	ReferrerType   string
	SearchEngine   string
	SearchQuery    string
	Browser        string
	OS             string
	Device         string
	ContentType    string

	Severity   string
	Message    string
	SourceFile string
	Line       int
	PHP        bool

	Date  string // YYYY-MM-DD
	Hour  int
	Month string // YYYY-MM
}

var envPool = sync.Pool{
	New: func() interface{} {
		return &Env{}
	},
}

var (
	regexCache sync.Map
	regexCount int64
)

const maxCachedRegex = 1000

// Reset resets the environment for reuse.
func (e *Env) Reset() {
	*e = Env{}
}

// Fill populates the environment from rec.
// Fill 使用 rec 填充环境。
func (e *Env) Fill(rec *logengine.ClassifiedRecord) {
	e.Kind = rec.Kind.String()
	e.IP = rec.ClientIP()
	e.Internal = rec.InternalIP
	if a := rec.Access; a != nil {
		e.Method = a.Method
		e.Path = a.Path
		e.Protocol = a.Protocol
		e.Status = a.Status
		e.StatusClass = string(rec.StatusClass)
		e.Bytes = a.BytesSent
		e.Referrer = a.Referrer
		e.UserAgent = a.UserAgent
		e.ResponseTime = a.ResponseTime
		e.AuthUser = a.AuthUser
		e.IsBot = rec.IsBot
		e.ReferrerDomain = rec.ReferrerDomain
		e.ReferrerType = string(rec.ReferrerType)
		e.SearchEngine = rec.SearchEngine
		e.SearchQuery = rec.SearchQuery
		e.Browser = rec.Browser
		e.OS = rec.OS
		e.Device = rec.Device
		e.ContentType = rec.ContentType
	}
	if er := rec.Error; er != nil {
		e.Severity = er.Severity.String()
		e.Message = er.Message
		e.SourceFile = er.SourceFile
		e.Line = er.LineNumber
		e.PHP = er.PHP
	}
	if ts := recordTime(rec); !ts.IsZero() {
		e.Date = ts.Format("2006-01-02")
		e.Month = ts.Format("2006-01")
		e.Hour = ts.Hour()
	}
}

// Contains reports whether haystack contains needle (case sensitive).
func (e *Env) Contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

// IContains reports whether haystack contains needle, ignoring case.
func (e *Env) IContains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Like matches haystack against a '*' wildcard pattern; without '*' it is a substring test.
// Like 使用 '*' 通配符匹配 haystack，无 '*' 时为子串匹配。
func (e *Env) Like(haystack, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return strings.Contains(haystack, pattern)
	}
	quoted := regexp.QuoteMeta(pattern)
	re := cachedRegex("^" + strings.ReplaceAll(quoted, "\\*", ".*") + "$")
	return re != nil && re.MatchString(haystack)
}

// Match checks haystack against a regular expression.
// Match 检查 haystack 是否匹配正则表达式。
func (e *Env) Match(haystack, pattern string) bool {
	re := cachedRegex(pattern)
	return re != nil && re.MatchString(haystack)
}

// InCIDR reports whether the client IP is inside cidr.
// InCIDR 判断客户端 IP 是否位于 cidr 内。
func (e *Env) InCIDR(cidr string) bool {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return false
	}
	addr, err := iputil.ParseAddr(e.IP)
	if err != nil {
		return false
	}
	return prefix.Contains(addr)
}

func cachedRegex(pattern string) *regexp.Regexp {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	if atomic.LoadInt64(&regexCount) < maxCachedRegex {
		regexCache.Store(pattern, re)
		atomic.AddInt64(&regexCount, 1)
	}
	return re
}

var aliasPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bcontains\(`), "Contains("},
	{regexp.MustCompile(`\bicontains\(`), "IContains("},
	{regexp.MustCompile(`\blike\(`), "Like("},
	{regexp.MustCompile(`\bmatch\(`), "Match("},
	{regexp.MustCompile(`\bincidr\(`), "InCIDR("},
}

// preprocessExpression replaces lowercase function aliases with their exported
// counterparts. Only call sites are rewritten.
func preprocessExpression(src string) string {
	for _, a := range aliasPatterns {
		src = a.re.ReplaceAllString(src, a.replacement)
	}
	return src
}

func run(program *vm.Program, rec *logengine.ClassifiedRecord) (interface{}, error) {
	env := envPool.Get().(*Env)
	defer func() {
		env.Reset()
		envPool.Put(env)
	}()
	env.Fill(rec)
	return expr.Run(program, env)
}

// CompileFilter compiles a boolean where expression, e.g. `Status >= 500 && !IsBot`.
// Evaluation errors reject the record.
// CompileFilter 编译布尔 where 表达式，求值出错时丢弃该记录。
func CompileFilter(src string) (FilterFunc, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(preprocessExpression(src), expr.Env(&Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: where %q: %v", errors.ErrInvalidConfiguration, src, err)
	}
	return func(rec *logengine.ClassifiedRecord) bool {
		out, err := run(program, rec)
		if err != nil {
			return false
		}
		matched, ok := out.(bool)
		return ok && matched
	}, nil
}

// CompileKey resolves a key expression. Built-in key names (see KeyFuncs) are
// used directly; anything else is compiled as an expression whose result is
// formatted as the key. An empty or nil result skips the record.
// CompileKey 解析分组键：内置名称直接使用，否则编译为表达式。
func CompileKey(src string) (KeyFunc, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.NewConfigError("key", src)
	}
	if fn, ok := KeyFuncs[strings.ToLower(src)]; ok {
		return fn, nil
	}
	program, err := expr.Compile(preprocessExpression(src), expr.Env(&Env{}))
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", errors.ErrInvalidConfiguration, src, err)
	}
	return func(rec *logengine.ClassifiedRecord) (string, bool) {
		out, err := run(program, rec)
		if err != nil || out == nil {
			return "", false
		}
		key := fmt.Sprint(out)
		return key, key != ""
	}, nil
}

// CustomSpec is the configuration form of a user-defined table.
// CustomSpec 为用户自定义表的配置形式。
type CustomSpec struct {
	Name   string
	Title  string
	Key    string
	Where  string
	Metric string
	Limit  int
}

// BuildSpec compiles a CustomSpec into a GroupSpec. Custom tables only see access records.
// BuildSpec 将 CustomSpec 编译为 GroupSpec，自定义表仅处理访问记录。
func BuildSpec(c CustomSpec) (GroupSpec, error) {
	if strings.TrimSpace(c.Name) == "" {
		return GroupSpec{}, errors.NewConfigError("custom_reports.name", c.Name)
	}
	key, err := CompileKey(c.Key)
	if err != nil {
		return GroupSpec{}, err
	}
	metric, err := ParseMetric(c.Metric)
	if err != nil {
		return GroupSpec{}, err
	}
	where, err := CompileFilter(c.Where)
	if err != nil {
		return GroupSpec{}, err
	}
	title := c.Title
	if title == "" {
		title = c.Name
	}
	return GroupSpec{
		Name:   c.Name,
		Title:  title,
		Key:    key,
		Metric: metric,
		Filter: And(AccessOnly, where),
		Limit:  c.Limit,
	}, nil
}
