// Package analysis defines the report catalog: which tables each report type
// builds and the stateful extras fed in the same pass.
// Package analysis 定义报表目录：每种报表构建哪些表，以及同一遍历中的附加统计。
package analysis

import (
	"strings"
	"time"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/pkg/errors"
)

// ReportType names one report.
// ReportType 为报表类型名称。
type ReportType string

const (
	TypeError       ReportType = "error"
	TypeDaily       ReportType = "daily"
	TypeIP          ReportType = "ip"
	TypePopular     ReportType = "popular"
	TypePerformance ReportType = "performance"
	TypeContent     ReportType = "content"
	TypeSecurity    ReportType = "security"
	TypeSEO         ReportType = "seo"
	TypeTraffic     ReportType = "traffic"
	TypeCustom      ReportType = "custom"
)

// CustomPrefix selects a single configured custom report, e.g. "custom:api_errors".
const CustomPrefix = "custom:"

// Types lists the built-in report types in rendering order.
// Types 按渲染顺序列出内置报表类型。
var Types = []ReportType{
	TypeError, TypeDaily, TypeIP, TypePopular, TypePerformance,
	TypeContent, TypeSecurity, TypeSEO, TypeTraffic,
}

// Kind returns the log the report is built from.
func (t ReportType) Kind() logengine.Kind {
	switch t {
	case TypeError, TypeDaily:
		return logengine.KindError
	}
	return logengine.KindAccess
}

// FileStem is the report's file name prefix, e.g. "security_report".
// FileStem 返回报表文件名前缀。
func (t ReportType) FileStem() string {
	return strings.ReplaceAll(string(t), ":", "_") + "_report"
}

// IsCustom reports whether t is the custom report or one of its single-table forms.
func (t ReportType) IsCustom() bool {
	return t == TypeCustom || strings.HasPrefix(string(t), CustomPrefix)
}

// ParseType validates a built-in or custom report type name.
// Custom names are checked against the catalog by Catalog.Resolve.
// ParseType 校验报表类型名称。
func ParseType(name string) (ReportType, error) {
	t := ReportType(strings.ToLower(strings.TrimSpace(name)))
	if t.IsCustom() {
		return t, nil
	}
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", errors.NewReportError(name)
}

// Stat is one headline figure of a report.
// Stat 为报表中的一项概要数据。
type Stat struct {
	Name  string
	Value string
}

// Event is a notable occurrence worth listing individually (attacks, bursts, slow requests).
// Event 为需要单独列出的事件（攻击、突发访问、慢请求）。
type Event struct {
	Time      time.Time
	Type      string
	IP        string
	Path      string
	Status    int
	Detail    string
	UserAgent string
}

// Summary is everything the renderer needs for one report.
// Summary 为渲染单份报表所需的全部数据。
type Summary struct {
	Project  string
	Date     string
	Type     ReportType
	Title    string
	Tables   []*aggregate.Table
	Failures *aggregate.FailureTally
	Records  int64
	Stats    []Stat
	Events   []Event
	Notes    []string
}

// AddStat appends a headline figure.
func (s *Summary) AddStat(name, value string) {
	s.Stats = append(s.Stats, Stat{Name: name, Value: value})
}

// Stat returns the value of the named figure, or "".
// Stat 返回指定概要数据的值，不存在时返回空串。
func (s *Summary) Stat(name string) string {
	for _, st := range s.Stats {
		if st.Name == name {
			return st.Value
		}
	}
	return ""
}

// Table returns the named table, or nil.
func (s *Summary) Table(name string) *aggregate.Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Tracker is per-report state that does not fit a keyed table.
// Observe is called for every record of the pass, Finish once at the end.
// Tracker 为无法用分组表表达的报表状态；Observe 处理每条记录，Finish 在结束时调用一次。
type Tracker interface {
	Observe(rec *logengine.ClassifiedRecord)
	Finish(s *Summary)
}

// Options tunes the report-specific extras.
// Options 调整各报表的附加统计参数。
type Options struct {
	TopN                 int     // rows per table, 0 for all
	SlowThreshold        float64 // seconds
	MaxEvents            int
	RateLimit            int // requests per RateWindow per IP
	RateWindow           int // seconds
	AuthFailureThreshold int
	Custom               []aggregate.CustomSpec
}

// Defaults for Options.
// Options 的默认值。
const (
	DefaultTopN                 = 25
	DefaultSlowThreshold        = 1.0
	DefaultMaxEvents            = 100
	DefaultRateLimit            = 60
	DefaultRateWindow           = 60
	DefaultAuthFailureThreshold = 3
)

func (o Options) withDefaults() Options {
	if o.TopN < 0 {
		o.TopN = 0
	}
	if o.SlowThreshold <= 0 {
		o.SlowThreshold = DefaultSlowThreshold
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = DefaultMaxEvents
	}
	if o.RateLimit <= 0 {
		o.RateLimit = DefaultRateLimit
	}
	if o.RateWindow <= 0 {
		o.RateWindow = DefaultRateWindow
	}
	if o.AuthFailureThreshold <= 0 {
		o.AuthFailureThreshold = DefaultAuthFailureThreshold
	}
	return o
}
