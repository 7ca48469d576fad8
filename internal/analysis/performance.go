package analysis

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
)

func performanceSpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "status_codes", Title: "Status Codes", Key: aggregate.ByStatus},
		{Name: "status_classes", Title: "Status Classes", Key: aggregate.ByStatusClass},
		{Name: "hourly_traffic", Title: "Hourly Traffic", Key: aggregate.ByHour, Filter: aggregate.AccessOnly, SortByKey: true},
		{Name: "hourly_response_time", Title: "Average Response Time by Hour", Key: aggregate.ByHour, Metric: aggregate.MetricAvgResponseTime, Filter: aggregate.HasTiming, SortByKey: true},
		{Name: "slowest_paths", Title: "Slowest Paths (average response time)", Key: aggregate.ByPath, Metric: aggregate.MetricAvgResponseTime, Filter: aggregate.HasTiming},
		{Name: "bytes_by_path", Title: "Largest Paths by Bandwidth", Key: aggregate.ByPath, Metric: aggregate.MetricBytes},
		{Name: "server_error_paths", Title: "Paths with Server Errors", Key: aggregate.ByPath, Filter: serverErrors},
		{Name: "methods", Title: "Requests by Method", Key: aggregate.ByMethod},
	}
}

// performanceTracker keeps every response time and size for percentiles,
// and the slowest requests over the threshold.
type performanceTracker struct {
	opts    Options
	times   stats.Float64Data
	sizes   stats.Float64Data
	total   int64
	errors  int64
	slowCnt int64
	slow    []Event
	slowRT  []float64
}

func newPerformanceTracker(o Options) Tracker {
	return &performanceTracker{opts: o}
}

func (t *performanceTracker) Observe(rec *logengine.ClassifiedRecord) {
	a := rec.Access
	if a == nil {
		return
	}
	t.total++
	t.sizes = append(t.sizes, float64(a.BytesSent))
	if rec.StatusClass == logengine.Status5xx {
		t.errors++
	}
	if !a.HasResponseTime {
		return
	}
	t.times = append(t.times, a.ResponseTime)
	if a.ResponseTime > t.opts.SlowThreshold {
		t.slowCnt++
		t.slow = append(t.slow, Event{
			Time:      a.Timestamp,
			Type:      "Slow Request",
			IP:        a.ClientIP,
			Path:      a.Path,
			Status:    a.Status,
			Detail:    fmtutil.FormatSeconds(a.ResponseTime),
			UserAgent: a.UserAgent,
		})
		t.slowRT = append(t.slowRT, a.ResponseTime)
		if len(t.slow) >= 2*t.opts.MaxEvents {
			t.trimSlow()
		}
	}
}

// trimSlow keeps the MaxEvents slowest requests, slowest first.
func (t *performanceTracker) trimSlow() {
	idx := make([]int, len(t.slow))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(t.slowRT[b], t.slowRT[a])
	})
	if len(idx) > t.opts.MaxEvents {
		idx = idx[:t.opts.MaxEvents]
	}
	slow := make([]Event, len(idx))
	rt := make([]float64, len(idx))
	for i, j := range idx {
		slow[i], rt[i] = t.slow[j], t.slowRT[j]
	}
	t.slow, t.slowRT = slow, rt
}

func (t *performanceTracker) Finish(s *Summary) {
	s.AddStat("Requests", fmtutil.FormatNumberWithComma(t.total))
	s.AddStat("Server Error Rate", fmtutil.FormatPercent(t.errors, t.total))

	if len(t.times) == 0 {
		s.Notes = append(s.Notes, "No response times found; append the request time in seconds to the access log format to enable timing figures.")
	} else {
		s.AddStat("Timed Requests", fmtutil.FormatNumberWithComma(int64(len(t.times))))
		addSeconds(s, "Min Response Time", t.times.Min)
		addSeconds(s, "Mean Response Time", t.times.Mean)
		addSeconds(s, "Median Response Time", t.times.Median)
		for _, p := range []float64{90, 95, 99} {
			v, err := t.times.Percentile(p)
			if err == nil {
				s.AddStat(fmt.Sprintf("P%.0f Response Time", p), fmtutil.FormatSeconds(v))
			}
		}
		addSeconds(s, "Max Response Time", t.times.Max)
		s.AddStat(fmt.Sprintf("Slow Requests (> %s)", fmtutil.FormatSeconds(t.opts.SlowThreshold)), fmtutil.FormatNumberWithComma(t.slowCnt))
	}

	if len(t.sizes) > 0 {
		if sum, err := t.sizes.Sum(); err == nil {
			s.AddStat("Total Bandwidth", fmtutil.FormatBytes(int64(sum)))
		}
		addBytes(s, "Mean Response Size", t.sizes.Mean)
		addBytes(s, "Median Response Size", t.sizes.Median)
		addBytes(s, "Max Response Size", t.sizes.Max)
	}

	t.trimSlow()
	s.Events = append(s.Events, t.slow...)
}

func addSeconds(s *Summary, name string, fn func() (float64, error)) {
	if v, err := fn(); err == nil {
		s.AddStat(name, fmtutil.FormatSeconds(v))
	}
}

func addBytes(s *Summary, name string, fn func() (float64, error)) {
	if v, err := fn(); err == nil {
		s.AddStat(name, fmtutil.FormatBytes(int64(v)))
	}
}
