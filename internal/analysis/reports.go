package analysis

import (
	"strconv"
	"time"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
)

// seriousError keeps error and fatal entries plus anything PHP reported.
var seriousError aggregate.FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
	return rec.Error != nil && (rec.Error.Severity >= logengine.SeverityError || rec.Error.PHP)
}

var byDateSeverity aggregate.KeyFunc = func(rec *logengine.ClassifiedRecord) (string, bool) {
	if rec.Error == nil || rec.Error.Timestamp.IsZero() {
		return "", false
	}
	return rec.Error.Timestamp.Format(time.DateOnly) + " " + rec.Error.Severity.String(), true
}

var pagesOnly aggregate.FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
	return rec.Access != nil && rec.ContentType == "Page"
}

var serverErrors aggregate.FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
	return rec.Access != nil && rec.StatusClass == logengine.Status5xx
}

func errorSpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "error_signatures", Title: "Most Frequent Errors", Key: aggregate.ByErrorSignature},
		{Name: "error_severity", Title: "Errors by Severity", Key: aggregate.BySeverity},
		{Name: "error_sources", Title: "Errors by Source File", Key: aggregate.BySourceFile},
		{Name: "error_clients", Title: "Errors by Client IP", Key: aggregate.ByClientIP, Filter: aggregate.ErrorsOnly},
		{Name: "error_dates", Title: "Errors per Day", Key: aggregate.ByDate, Filter: aggregate.ErrorsOnly, SortByKey: true},
	}
}

type errorTracker struct {
	total, php, serious int64
	first, last         time.Time
}

func newErrorTracker(Options) Tracker {
	return &errorTracker{}
}

func (t *errorTracker) Observe(rec *logengine.ClassifiedRecord) {
	e := rec.Error
	if e == nil {
		return
	}
	t.total++
	if e.PHP {
		t.php++
	}
	if e.Severity >= logengine.SeverityError {
		t.serious++
	}
	if ts := e.Timestamp; !ts.IsZero() {
		if t.first.IsZero() || ts.Before(t.first) {
			t.first = ts
		}
		if ts.After(t.last) {
			t.last = ts
		}
	}
}

func (t *errorTracker) Finish(s *Summary) {
	unique := 0
	if sig := s.Table("error_signatures"); sig != nil {
		unique = sig.Len()
	}
	s.AddStat("Total Entries", fmtutil.FormatNumberWithComma(t.total))
	s.AddStat("Unique Errors", strconv.Itoa(unique))
	s.AddStat("Error and Fatal Entries", fmtutil.FormatNumberWithComma(t.serious))
	s.AddStat("PHP Entries", fmtutil.FormatNumberWithComma(t.php))
	if !t.first.IsZero() {
		s.AddStat("First Entry", t.first.Format(time.DateTime))
		s.AddStat("Last Entry", t.last.Format(time.DateTime))
	}
}

func dailySpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "daily_errors", Title: "Errors per Day (error, fatal and PHP)", Key: aggregate.ByDate, Filter: seriousError, SortByKey: true},
		{Name: "daily_entries", Title: "Log Entries per Day", Key: aggregate.ByDate, Filter: aggregate.ErrorsOnly, SortByKey: true},
		{Name: "daily_severity", Title: "Entries per Day and Severity", Key: byDateSeverity, SortByKey: true},
		{Name: "monthly_entries", Title: "Log Entries per Month", Key: aggregate.ByMonth, Filter: aggregate.ErrorsOnly, SortByKey: true},
	}
}

func newDailyTracker(Options) Tracker {
	return finishFunc(func(s *Summary) {
		days := s.Table("daily_entries")
		errs := s.Table("daily_errors")
		if days == nil || errs == nil {
			return
		}
		s.AddStat("Days Covered", strconv.Itoa(days.Len()))
		s.AddStat("Error Entries", fmtutil.FormatNumberWithComma(errs.Count()))
		if top := errs.Top(1); len(top) > 0 {
			s.AddStat("Worst Day", top[0].Key+" ("+strconv.FormatInt(top[0].Cell.Count, 10)+")")
		}
		if days.Len() > 0 {
			avg := float64(errs.Count()) / float64(days.Len())
			s.AddStat("Errors per Day", strconv.FormatFloat(avg, 'f', 1, 64))
		}
	})
}

func ipSpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "requests_by_ip", Title: "Top IPs by Requests", Key: aggregate.ByClientIP, Filter: aggregate.AccessOnly},
		{Name: "bytes_by_ip", Title: "Top IPs by Bandwidth", Key: aggregate.ByClientIP, Metric: aggregate.MetricBytes, Filter: aggregate.AccessOnly},
		{Name: "bot_ips", Title: "Top Bot IPs", Key: aggregate.ByClientIP, Filter: aggregate.BotsOnly},
		{Name: "ips_by_date", Title: "Unique IPs per Day", Key: aggregate.ByDate, Metric: aggregate.MetricDistinctIPs, Filter: aggregate.AccessOnly, SortByKey: true},
	}
}

type ipTracker struct {
	total, internal int64
}

func newIPTracker(Options) Tracker {
	return &ipTracker{}
}

func (t *ipTracker) Observe(rec *logengine.ClassifiedRecord) {
	if rec.Access == nil {
		return
	}
	t.total++
	if rec.InternalIP {
		t.internal++
	}
}

func (t *ipTracker) Finish(s *Summary) {
	reqs := s.Table("requests_by_ip")
	if reqs == nil {
		return
	}
	s.AddStat("Unique IPs", fmtutil.FormatNumberWithComma(int64(reqs.Len())))
	s.AddStat("Internal Requests", fmtutil.FormatNumberWithComma(t.internal))
	s.AddStat("External Requests", fmtutil.FormatNumberWithComma(t.total-t.internal))
	if top := reqs.Top(1); len(top) > 0 {
		s.AddStat("Busiest IP", top[0].Key+" ("+fmtutil.FormatPercent(top[0].Cell.Count, t.total)+")")
	}
}

func popularSpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "popular_paths", Title: "Most Requested Paths", Key: aggregate.ByPath, Filter: aggregate.HumansOnly},
		{Name: "popular_pages", Title: "Most Popular Pages", Key: aggregate.ByPath, Filter: aggregate.And(aggregate.HumansOnly, pagesOnly)},
		{Name: "content_types", Title: "Requests by Content Type", Key: aggregate.ByContentType, Filter: aggregate.AccessOnly},
		{Name: "methods", Title: "Requests by Method", Key: aggregate.ByMethod},
		{Name: "popular_referrers", Title: "Top Referring Domains", Key: aggregate.ByReferrerDomain, Filter: aggregate.HumansOnly},
		{Name: "not_found", Title: "Most Requested Missing Paths", Key: aggregate.ByPath, Filter: aggregate.StatusIn(404)},
	}
}

func newPopularTracker(Options) Tracker {
	return finishFunc(func(s *Summary) {
		s.AddStat("Human Requests", fmtutil.FormatNumberWithComma(tableTotal(s, "popular_paths")))
		s.AddStat("Page Views", fmtutil.FormatNumberWithComma(tableTotal(s, "popular_pages")))
		if pages := s.Table("popular_pages"); pages != nil {
			s.AddStat("Unique Pages", fmtutil.FormatNumberWithComma(int64(pages.Len())))
		}
		s.AddStat("Not Found Requests", fmtutil.FormatNumberWithComma(tableTotal(s, "not_found")))
	})
}

func trafficSpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "daily_traffic", Title: "Daily Traffic", Key: aggregate.ByDate, Filter: aggregate.AccessOnly, SortByKey: true},
		{Name: "hourly_traffic", Title: "Hourly Traffic", Key: aggregate.ByHour, Filter: aggregate.AccessOnly, SortByKey: true},
		{Name: "ips_by_date", Title: "Unique IPs per Day", Key: aggregate.ByDate, Metric: aggregate.MetricDistinctIPs, Filter: aggregate.AccessOnly, SortByKey: true},
		{Name: "visitor_types", Title: "Bots vs Humans", Key: aggregate.ByVisitorType},
		{Name: "referrer_types", Title: "Traffic Sources", Key: aggregate.ByReferrerType, Filter: aggregate.HumansOnly},
		{Name: "referrer_domains", Title: "Referring Domains", Key: aggregate.ByReferrerDomain, Filter: aggregate.HumansOnly},
		{Name: "search_engines", Title: "Search Engines", Key: aggregate.BySearchEngine, Filter: aggregate.HumansOnly},
		{Name: "browsers", Title: "Browsers", Key: aggregate.ByBrowser, Filter: aggregate.HumansOnly},
		{Name: "operating_systems", Title: "Operating Systems", Key: aggregate.ByOS, Filter: aggregate.HumansOnly},
		{Name: "devices", Title: "Devices", Key: aggregate.ByDevice, Filter: aggregate.AccessOnly},
	}
}

type trafficTracker struct {
	total, humans int64
	bytes         int64
	visitors      map[string]struct{}
}

func newTrafficTracker(Options) Tracker {
	return &trafficTracker{visitors: make(map[string]struct{})}
}

func (t *trafficTracker) Observe(rec *logengine.ClassifiedRecord) {
	a := rec.Access
	if a == nil {
		return
	}
	t.total++
	t.bytes += a.BytesSent
	if rec.IsBot {
		return
	}
	t.humans++
	t.visitors[a.ClientIP+"|"+a.UserAgent] = struct{}{}
}

func (t *trafficTracker) Finish(s *Summary) {
	s.AddStat("Requests", fmtutil.FormatNumberWithComma(t.total))
	s.AddStat("Unique Visitors", fmtutil.FormatNumberWithComma(int64(len(t.visitors))))
	if ips := s.Table("ips_by_date"); ips != nil {
		s.AddStat("Unique IPs", fmtutil.FormatNumberWithComma(int64(ips.Total())))
	}
	s.AddStat("Human Requests", fmtutil.FormatNumberWithComma(t.humans)+" ("+fmtutil.FormatPercent(t.humans, t.total)+")")
	s.AddStat("Bot Requests", fmtutil.FormatNumberWithComma(t.total-t.humans)+" ("+fmtutil.FormatPercent(t.total-t.humans, t.total)+")")
	s.AddStat("Bandwidth", fmtutil.FormatBytes(t.bytes))
}
