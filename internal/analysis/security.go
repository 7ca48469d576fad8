package analysis

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
	"github.com/netxfw/gunlog/internal/utils/ipmerge"
	"github.com/netxfw/gunlog/internal/utils/iputil"
)

// Threat families detected in request lines, user agents and referrers.
// 在请求行、UA 与来源中检测的威胁类型。
const (
	ThreatSQLInjection     = "SQL Injection"
	ThreatXSS              = "XSS Attack"
	ThreatPathTraversal    = "Path Traversal"
	ThreatCommandInjection = "Command Injection"
	ThreatServerScan       = "Server Scan"
	ThreatScannerAgent     = "Suspicious User Agent"
)

type threatRule struct {
	name     string
	patterns []*regexp.Regexp
	request  bool // match the request line
	agent    bool // match the user agent and referrer
}

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// threatRules are checked in order. Command injection and server scans only
// look at the request line.
var threatRules = []threatRule{
	{ThreatSQLInjection, mustCompileAll(`union\s+select`, `select.+from`, `1=1`, `or\s+1\s*=`, `drop\s+table`), true, true},
	{ThreatXSS, mustCompileAll(`<script`, `javascript:`, `onerror=`, `onload=`, `onclick=`), true, true},
	{ThreatPathTraversal, mustCompileAll(`\.\./`, `\.\.%2f`, `/etc/passwd`), true, true},
	{ThreatCommandInjection, mustCompileAll(`;\s*[a-z]+`, `\|\s*[a-z]+`), true, false},
	{ThreatServerScan, mustCompileAll(`/admin`, `/wp-admin`, `/phpmyadmin`, `/\.git`, `/\.env`), true, false},
	{ThreatScannerAgent, mustCompileAll(`sqlmap`, `nikto`, `nmap`, `gobuster`, `dirbuster`), false, true},
}

// DetectThreats returns the threat families found in an access record, in rule order.
// DetectThreats 返回访问记录中检测到的威胁类型。
func DetectThreats(a *logengine.AccessRecord) []string {
	request := a.Method + " " + a.Path + " " + a.Protocol
	var found []string
	for _, r := range threatRules {
		if r.request && matchAny(r.patterns, request) ||
			r.agent && (matchAny(r.patterns, a.UserAgent) || matchAny(r.patterns, a.Referrer)) {
			found = append(found, r.name)
		}
	}
	return found
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// SensitiveResources are path fragments whose access is reported individually.
var SensitiveResources = []string{
	"/admin", "/wp-admin", "/login", "/wp-login", "/administrator",
	"/phpmyadmin", "/myadmin", "/.git", "/.env", "/config",
	"/wp-config", "/backup", "/db", "/database",
}

// SecurityStatusCodes are the statuses counted as security relevant.
var SecurityStatusCodes = []int{400, 401, 403, 405, 406, 429}

// SensitiveResource returns the first sensitive fragment contained in p.
func SensitiveResource(p string) (string, bool) {
	for _, r := range SensitiveResources {
		if strings.Contains(p, r) {
			return r, true
		}
	}
	return "", false
}

var externalAccess = aggregate.And(aggregate.AccessOnly, aggregate.External)

var sensitiveAccess aggregate.FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
	if rec.Access == nil || rec.InternalIP {
		return false
	}
	_, ok := SensitiveResource(rec.Access.Path)
	return ok
}

func securitySpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "security_status_codes", Title: "Security Status Codes", Key: aggregate.ByStatus, Filter: aggregate.And(externalAccess, aggregate.StatusIn(SecurityStatusCodes...))},
		{Name: "sensitive_paths", Title: "Sensitive Resources Accessed", Key: aggregate.ByPath, Filter: sensitiveAccess},
		{Name: "security_methods", Title: "Request Methods (external)", Key: aggregate.ByMethod, Filter: externalAccess},
	}
}

// Security score thresholds.
// 安全评分阈值。
const (
	ScoreGood = 90
	ScoreFair = 70
	ScorePoor = 50
)

// ScoreStatus names a 0-100 score band.
// ScoreStatus 返回评分所属等级。
func ScoreStatus(score int) string {
	switch {
	case score >= ScoreGood:
		return "Good"
	case score >= ScoreFair:
		return "Fair"
	case score >= ScorePoor:
		return "Poor"
	}
	return "Critical"
}

// SecurityScore starts at 100 and deducts for attacks (up to 50), auth
// failure events (5 each, up to 20) and sensitive accesses (2 each, up to 20).
// SecurityScore 计算安全评分。
func SecurityScore(attacks, authFailures, sensitive int64) int {
	score := int64(100)
	score -= min(50, attacks)
	score -= min(20, authFailures*5)
	score -= min(20, sensitive*2)
	return int(max(0, score))
}

// blockListThreshold promotes attackers to their /24 (IPv4) or /64 (IPv6) once
// this many addresses of the same network are listed.
const blockListThreshold = 4

// securityTracker sees external access records only.
type securityTracker struct {
	opts         Options
	rate         *logengine.Counter
	rateHits     map[string]int64
	authFails    map[string]int
	threats      *aggregate.Table
	sources      *aggregate.Table
	vectors      *aggregate.Table
	agents       *aggregate.Table
	hourly       *aggregate.Table
	attacks      int64
	authEvents   int64
	sensitive    int64
	events       []Event
	dropped      int64
	block        map[string]string
	rateLimitIPs []string
}

func newSecurityTracker(o Options) Tracker {
	t := &securityTracker{
		opts:      o,
		rate:      logengine.NewCounter(o.RateWindow),
		rateHits:  make(map[string]int64),
		authFails: make(map[string]int),
		threats:   aggregate.NewTable("threat_types", aggregate.MetricCount),
		sources:   aggregate.NewTable("attack_sources", aggregate.MetricCount),
		vectors:   aggregate.NewTable("attack_paths", aggregate.MetricCount),
		agents:    aggregate.NewTable("suspicious_user_agents", aggregate.MetricCount),
		hourly:    aggregate.NewTable("hourly_attacks", aggregate.MetricCount),
		block:     make(map[string]string),
	}
	t.threats.Title = "Threats by Type"
	t.sources.Title, t.sources.Limit = "Top Attack Sources", o.TopN
	t.vectors.Title, t.vectors.Limit = "Attacked Paths", o.TopN
	t.agents.Title, t.agents.Limit = "Suspicious User Agents", o.TopN
	t.hourly.Title, t.hourly.SortByKey = "Attacks by Hour", true
	return t
}

func (t *securityTracker) event(e Event) {
	if len(t.events) >= t.opts.MaxEvents {
		t.dropped++
		return
	}
	t.events = append(t.events, e)
}

func (t *securityTracker) Observe(rec *logengine.ClassifiedRecord) {
	a := rec.Access
	if a == nil || rec.InternalIP {
		return
	}
	base := Event{Time: a.Timestamp, IP: a.ClientIP, Path: a.Path, Status: a.Status, UserAgent: a.UserAgent}

	if a.Status == 401 || a.Status == 403 {
		t.authFails[a.ClientIP]++
		if n := t.authFails[a.ClientIP]; n >= t.opts.AuthFailureThreshold {
			t.authEvents++
			e := base
			e.Type, e.Detail = "Authentication Failure", fmt.Sprintf("Multiple auth failures (%d attempts)", n)
			t.event(e)
			t.recommend(a.ClientIP, "Multiple auth failures")
		}
	}

	if r, ok := SensitiveResource(a.Path); ok {
		t.sensitive++
		e := base
		e.Type, e.Detail = "Sensitive Resource Access", "Access to "+r
		t.event(e)
	}

	if addr, err := iputil.ParseAddr(a.ClientIP); err == nil {
		n := t.rate.Inc(addr, a.Timestamp)
		if n > t.opts.RateLimit {
			t.rateHits[a.ClientIP]++
			if t.rateHits[a.ClientIP] == 1 {
				e := base
				e.Type = "Rate Limit Exceeded"
				e.Detail = fmt.Sprintf("%d requests in %ds", n, t.rate.WindowSeconds())
				t.event(e)
				t.rateLimitIPs = append(t.rateLimitIPs, a.ClientIP)
			}
		}
	}

	threats := DetectThreats(a)
	if len(threats) == 0 {
		return
	}
	t.attacks += int64(len(threats))
	for _, th := range threats {
		t.threats.Add(th, rec)
		t.sources.Add(a.ClientIP, rec)
		t.vectors.Add(a.Path, rec)
		t.hourly.Add(fmt.Sprintf("%02d", a.Timestamp.Hour()), rec)
	}
	t.agents.Add(nonEmpty(a.UserAgent), rec)
	e := base
	e.Type, e.Detail = "Attack Detected", strings.Join(threats, ", ")
	t.event(e)
	if slices.Contains(threats, ThreatSQLInjection) || slices.Contains(threats, ThreatXSS) {
		t.recommend(a.ClientIP, "Attack attempts")
	}
}

func (t *securityTracker) recommend(ip, reason string) {
	if _, ok := t.block[ip]; !ok {
		t.block[ip] = reason
	}
}

func (t *securityTracker) Finish(s *Summary) {
	score := SecurityScore(t.attacks, t.authEvents, t.sensitive)
	s.AddStat("Security Score", fmt.Sprintf("%d/100", score))
	s.AddStat("Security Status", ScoreStatus(score))
	s.AddStat("Attacks Detected", fmtutil.FormatNumberWithComma(t.attacks))
	s.AddStat("Attack Sources", fmtutil.FormatNumberWithComma(int64(t.sources.Len())))
	s.AddStat("Auth Failure Events", fmtutil.FormatNumberWithComma(t.authEvents))
	s.AddStat("Sensitive Accesses", fmtutil.FormatNumberWithComma(t.sensitive))
	s.AddStat("Rate Limited IPs", fmtutil.FormatNumberWithComma(int64(len(t.rateLimitIPs))))

	s.Tables = append(s.Tables, t.threats, t.sources, t.vectors, t.agents, t.hourly)
	s.Events = append(s.Events, t.events...)
	if t.dropped > 0 {
		s.Notes = append(s.Notes, fmt.Sprintf("%d further security events not listed.", t.dropped))
	}

	ips := slices.Sorted(maps.Keys(t.block))
	for _, ip := range ips {
		s.Notes = append(s.Notes, fmt.Sprintf("Block IP %s - %s", ip, t.block[ip]))
	}
	for _, ip := range t.rateLimitIPs {
		s.Notes = append(s.Notes, "Rate limit IP "+ip)
	}
	if len(ips) > 1 {
		if cidrs := ipmerge.Summarize(ips, blockListThreshold, 24, 64); len(cidrs) > 0 {
			s.Notes = append(s.Notes, "Suggested block list: "+strings.Join(cidrs, " "))
		}
	}
}

func nonEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
