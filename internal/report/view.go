package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/analysis"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
)

// Display limits for log-derived text.
const (
	maxKeyWidth    = 120
	maxSampleWidth = 200
	maxAgentWidth  = 80
)

type rowView struct {
	Key   string
	Value string
	Share string
}

type tableView struct {
	Title       string
	ValueHeader string
	ShowShare   bool
	Rows        []rowView
	Shown       int
	Total       int
}

// Truncated reports whether rows were cut to the table limit.
func (t tableView) Truncated() bool {
	return t.Shown < t.Total
}

type eventView struct {
	Time      string
	Type      string
	IP        string
	Path      string
	Status    string
	Detail    string
	UserAgent string
}

type sampleView struct {
	Where  string
	Reason string
	Text   string
}

type failureView struct {
	Total   int64
	Reasons []analysis.Stat
	Samples []sampleView
}

// Line is the "N lines failed to parse" sentence, with per-reason counts.
func (f failureView) Line() string {
	if f.Total == 0 {
		return "0 lines failed to parse"
	}
	parts := make([]string, len(f.Reasons))
	for i, r := range f.Reasons {
		parts[i] = r.Name + ": " + r.Value
	}
	noun := "lines"
	if f.Total == 1 {
		noun = "line"
	}
	return fmt.Sprintf("%s %s failed to parse (%s)", fmtutil.FormatNumberWithComma(f.Total), noun, strings.Join(parts, ", "))
}

// reportView is the renderer-neutral form of a Summary shared by the HTML
// and text outputs.
// reportView 为 HTML 与文本输出共用的 Summary 展示模型。
type reportView struct {
	Project   string
	Date      string
	Title     string
	Type      string
	Generated string
	Records   string
	Stats     []analysis.Stat
	Tables    []tableView
	Events    []eventView
	Notes     []string
	Failures  failureView
}

func newReportView(s *analysis.Summary, generated time.Time) reportView {
	v := reportView{
		Project:   s.Project,
		Date:      s.Date,
		Title:     s.Title,
		Type:      string(s.Type),
		Generated: generated.Format(time.DateTime),
		Records:   fmtutil.FormatNumberWithComma(s.Records),
		Stats:     s.Stats,
		Notes:     s.Notes,
		Failures:  newFailureView(s.Failures),
	}
	for _, t := range s.Tables {
		if t != nil {
			v.Tables = append(v.Tables, newTableView(t))
		}
	}
	for _, e := range s.Events {
		v.Events = append(v.Events, newEventView(e))
	}
	return v
}

func newTableView(t *aggregate.Table) tableView {
	rows := t.Rows()
	tv := tableView{
		Title:       t.Title,
		ValueHeader: valueHeader(t.Metric),
		ShowShare:   t.Metric == aggregate.MetricCount || t.Metric == aggregate.MetricBytes,
		Shown:       len(rows),
		Total:       t.Len(),
	}
	if tv.Title == "" {
		tv.Title = t.Name
	}
	total := int64(t.Total())
	for _, r := range rows {
		rv := rowView{
			Key:   fmtutil.Truncate(r.Key, maxKeyWidth),
			Value: formatValue(t.Metric, r.Value),
		}
		if tv.ShowShare {
			rv.Share = fmtutil.FormatPercent(int64(r.Value), total)
		}
		tv.Rows = append(tv.Rows, rv)
	}
	return tv
}

func newEventView(e analysis.Event) eventView {
	ev := eventView{
		Time:      "-",
		Type:      e.Type,
		IP:        e.IP,
		Path:      fmtutil.Truncate(e.Path, maxKeyWidth),
		Status:    "-",
		Detail:    e.Detail,
		UserAgent: fmtutil.Truncate(e.UserAgent, maxAgentWidth),
	}
	if !e.Time.IsZero() {
		ev.Time = e.Time.Format(time.DateTime)
	}
	if e.Status > 0 {
		ev.Status = fmt.Sprint(e.Status)
	}
	return ev
}

func newFailureView(f *aggregate.FailureTally) failureView {
	if f == nil {
		return failureView{}
	}
	fv := failureView{Total: f.Total}
	for _, r := range f.Reasons() {
		fv.Reasons = append(fv.Reasons, analysis.Stat{Name: r, Value: fmtutil.FormatNumberWithComma(f.ByReason[r])})
	}
	for _, s := range f.Samples {
		fv.Samples = append(fv.Samples, sampleView{
			Where:  fmt.Sprintf("%s:%d", s.Line.Source, s.Line.Number),
			Reason: s.Reason,
			Text:   fmtutil.Truncate(s.Line.Text, maxSampleWidth),
		})
	}
	return fv
}

func valueHeader(m aggregate.Metric) string {
	switch m {
	case aggregate.MetricBytes:
		return "Bandwidth"
	case aggregate.MetricDistinctIPs:
		return "Unique IPs"
	case aggregate.MetricAvgResponseTime:
		return "Avg Time"
	default:
		return "Count"
	}
}

func formatValue(m aggregate.Metric, v float64) string {
	switch m {
	case aggregate.MetricBytes:
		return fmtutil.FormatBytes(int64(v))
	case aggregate.MetricAvgResponseTime:
		return fmtutil.FormatSeconds(v)
	default:
		return fmtutil.FormatNumberWithComma(int64(v))
	}
}
