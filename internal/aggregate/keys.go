package aggregate

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/netxfw/gunlog/internal/logengine"
)

// KeyFunc maps a record to its grouping key. Returning false skips the record.
// KeyFunc 将记录映射为分组键，返回 false 表示跳过该记录。
type KeyFunc func(rec *logengine.ClassifiedRecord) (string, bool)

// FilterFunc selects the records a table sees.
// FilterFunc 选择表格需要处理的记录。
type FilterFunc func(rec *logengine.ClassifiedRecord) bool

func accessKey(fn func(a *logengine.AccessRecord) string) KeyFunc {
	return func(rec *logengine.ClassifiedRecord) (string, bool) {
		if rec.Access == nil {
			return "", false
		}
		k := fn(rec.Access)
		return k, k != ""
	}
}

func errorKey(fn func(e *logengine.ErrorRecord) string) KeyFunc {
	return func(rec *logengine.ClassifiedRecord) (string, bool) {
		if rec.Error == nil {
			return "", false
		}
		k := fn(rec.Error)
		return k, k != ""
	}
}

func tagKey(fn func(rec *logengine.ClassifiedRecord) string) KeyFunc {
	return func(rec *logengine.ClassifiedRecord) (string, bool) {
		k := fn(rec)
		return k, k != ""
	}
}

// Built-in key functions.
// 内置分组键函数。
var (
	// ByDate groups by YYYY-MM-DD in the record's own zone.
	ByDate KeyFunc = func(rec *logengine.ClassifiedRecord) (string, bool) {
		ts := recordTime(rec)
		if ts.IsZero() {
			return "", false
		}
		return ts.Format("2006-01-02"), true
	}

	// ByMonth groups by YYYY-MM.
	ByMonth KeyFunc = func(rec *logengine.ClassifiedRecord) (string, bool) {
		ts := recordTime(rec)
		if ts.IsZero() {
			return "", false
		}
		return ts.Format("2006-01"), true
	}

	// ByHour groups by hour of day, 00-23.
	ByHour KeyFunc = func(rec *logengine.ClassifiedRecord) (string, bool) {
		ts := recordTime(rec)
		if ts.IsZero() {
			return "", false
		}
		return fmt.Sprintf("%02d", ts.Hour()), true
	}

	ByClientIP KeyFunc = tagKey(func(rec *logengine.ClassifiedRecord) string { return rec.ClientIP() })

	ByPath   = accessKey(func(a *logengine.AccessRecord) string { return a.Path })
	ByMethod = accessKey(func(a *logengine.AccessRecord) string { return a.Method })
	ByStatus = accessKey(func(a *logengine.AccessRecord) string { return strconv.Itoa(a.Status) })

	ByUserAgent = accessKey(func(a *logengine.AccessRecord) string {
		if a.UserAgent == "" {
			return "-"
		}
		return a.UserAgent
	})

	ByStatusClass = tagKey(func(rec *logengine.ClassifiedRecord) string {
		if rec.Access == nil {
			return ""
		}
		return string(rec.StatusClass)
	})
	ByReferrerDomain = tagKey(func(rec *logengine.ClassifiedRecord) string { return rec.ReferrerDomain })
	ByReferrerType   = tagKey(func(rec *logengine.ClassifiedRecord) string { return string(rec.ReferrerType) })
	ByBrowser        = tagKey(func(rec *logengine.ClassifiedRecord) string { return rec.Browser })
	ByOS             = tagKey(func(rec *logengine.ClassifiedRecord) string { return rec.OS })
	ByDevice         = tagKey(func(rec *logengine.ClassifiedRecord) string { return rec.Device })
	ByContentType    = tagKey(func(rec *logengine.ClassifiedRecord) string { return rec.ContentType })
	BySearchEngine   = tagKey(func(rec *logengine.ClassifiedRecord) string { return rec.SearchEngine })
	BySearchQuery    = tagKey(func(rec *logengine.ClassifiedRecord) string { return strings.ToLower(rec.SearchQuery) })

	ByVisitorType = tagKey(func(rec *logengine.ClassifiedRecord) string {
		if rec.Access == nil {
			return ""
		}
		if rec.IsBot {
			return "Bot"
		}
		return "Human"
	})

	BySeverity   = errorKey(func(e *logengine.ErrorRecord) string { return e.Severity.String() })
	BySourceFile = errorKey(func(e *logengine.ErrorRecord) string { return e.SourceFile })

	// ByErrorSignature groups identical errors: "msg in file.php on line n"
	// when a source location is known, the message otherwise.
	ByErrorSignature = errorKey(ErrorSignature)
)

// ErrorSignature builds the grouping key for an error record.
// ErrorSignature 生成错误记录的分组键。
func ErrorSignature(e *logengine.ErrorRecord) string {
	if e.SourceFile == "" {
		return e.Message
	}
	return fmt.Sprintf("%s in %s on line %d", e.Message, filepath.Base(e.SourceFile), e.LineNumber)
}

// KeyFuncs indexes the built-in key functions by the names used in configuration.
// KeyFuncs 按配置中使用的名称索引内置分组键函数。
var KeyFuncs = map[string]KeyFunc{
	"date":            ByDate,
	"month":           ByMonth,
	"hour":            ByHour,
	"ip":              ByClientIP,
	"path":            ByPath,
	"method":          ByMethod,
	"status":          ByStatus,
	"status_class":    ByStatusClass,
	"severity":        BySeverity,
	"referrer_domain": ByReferrerDomain,
	"referrer_type":   ByReferrerType,
	"user_agent":      ByUserAgent,
	"browser":         ByBrowser,
	"os":              ByOS,
	"device":          ByDevice,
	"content_type":    ByContentType,
	"search_engine":   BySearchEngine,
	"search_query":    BySearchQuery,
	"visitor_type":    ByVisitorType,
	"error_signature": ByErrorSignature,
	"source_file":     BySourceFile,
}

// Built-in filters.
// 内置过滤器。
var (
	AccessOnly FilterFunc = func(rec *logengine.ClassifiedRecord) bool { return rec.Access != nil }
	ErrorsOnly FilterFunc = func(rec *logengine.ClassifiedRecord) bool { return rec.Error != nil }
	HumansOnly FilterFunc = func(rec *logengine.ClassifiedRecord) bool { return rec.Access != nil && !rec.IsBot }
	BotsOnly   FilterFunc = func(rec *logengine.ClassifiedRecord) bool { return rec.Access != nil && rec.IsBot }
	External   FilterFunc = func(rec *logengine.ClassifiedRecord) bool { return !rec.InternalIP }
	HasTiming  FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
		return rec.Access != nil && rec.Access.HasResponseTime
	}
)

// MinSeverity keeps error records at or above s.
func MinSeverity(s logengine.Severity) FilterFunc {
	return func(rec *logengine.ClassifiedRecord) bool {
		return rec.Error != nil && rec.Error.Severity >= s
	}
}

// StatusIn keeps access records whose status is one of codes.
func StatusIn(codes ...int) FilterFunc {
	return func(rec *logengine.ClassifiedRecord) bool {
		if rec.Access == nil {
			return false
		}
		for _, c := range codes {
			if rec.Access.Status == c {
				return true
			}
		}
		return false
	}
}

// And combines filters; nil filters are ignored.
// And 组合多个过滤器，忽略 nil。
func And(filters ...FilterFunc) FilterFunc {
	return func(rec *logengine.ClassifiedRecord) bool {
		for _, f := range filters {
			if f != nil && !f(rec) {
				return false
			}
		}
		return true
	}
}

func recordTime(rec *logengine.ClassifiedRecord) time.Time {
	switch {
	case rec.Access != nil:
		return rec.Access.Timestamp
	case rec.Error != nil:
		return rec.Error.Timestamp
	}
	return time.Time{}
}
