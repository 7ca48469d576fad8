package analysis

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
)

// searchBots maps search engine crawlers to lower-case user agent fragments.
// Order matters: the first match names the bot.
var searchBots = []struct {
	name      string
	fragments []string
}{
	{"Googlebot", []string{"googlebot", "google-site-verification", "google web preview", "google favicon"}},
	{"Bingbot", []string{"bingbot", "msnbot", "adidxbot", "bingpreview"}},
	{"Yandex", []string{"yandex"}},
	{"Baidu", []string{"baiduspider", "baidu"}},
	{"DuckDuckGo", []string{"duckduckbot", "duckduckgo"}},
	{"Yahoo", []string{"yahoo! slurp", "yahooseeker"}},
	{"Other", []string{"ahrefsbot", "semrushbot", "mj12bot", "dotbot", "blexbot", "seznambot"}},
}

// SearchBot names the search engine crawler behind a user agent, or "".
// SearchBot 返回 UA 对应的搜索引擎爬虫名称，非爬虫返回空串。
func SearchBot(ua string) string {
	if ua == "" {
		return ""
	}
	ua = strings.ToLower(ua)
	for _, b := range searchBots {
		for _, f := range b.fragments {
			if strings.Contains(ua, f) {
				return b.name
			}
		}
	}
	return ""
}

// organicPaths is the result page path of each engine known to the classifier.
var organicPaths = map[string]string{
	"Google":     "/search",
	"Bing":       "/search",
	"Yahoo":      "/search",
	"Yandex":     "/search",
	"Baidu":      "/s",
	"DuckDuckGo": "/",
	"Ecosia":     "/search",
}

// IsOrganic reports whether a search referral came from a result page.
// IsOrganic 判断搜索来源是否来自搜索结果页。
func IsOrganic(rec *logengine.ClassifiedRecord) bool {
	if rec.Access == nil || rec.SearchEngine == "" {
		return false
	}
	want, ok := organicPaths[rec.SearchEngine]
	if !ok {
		return false
	}
	u, err := url.Parse(rec.Access.Referrer)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Path), want)
}

var bySearchBot aggregate.KeyFunc = func(rec *logengine.ClassifiedRecord) (string, bool) {
	if rec.Access == nil {
		return "", false
	}
	bot := SearchBot(rec.Access.UserAgent)
	return bot, bot != ""
}

var searchBotOnly aggregate.FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
	return rec.Access != nil && SearchBot(rec.Access.UserAgent) != ""
}

var crawled = aggregate.And(searchBotOnly, func(rec *logengine.ClassifiedRecord) bool {
	return rec.Access.Method == "GET" && rec.Access.Status == 200
})

var crawlErrors = aggregate.And(searchBotOnly, func(rec *logengine.ClassifiedRecord) bool {
	return rec.Access.Status >= 400
})

var organicLanding aggregate.FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
	return rec.Access != nil && rec.Access.Status == 200 && IsOrganic(rec)
}

func seoSpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "search_bots", Title: "Search Engine Bots", Key: bySearchBot},
		{Name: "crawled_paths", Title: "Pages Crawled by Search Engines", Key: aggregate.ByPath, Filter: crawled},
		{Name: "crawl_errors", Title: "Crawl Errors", Key: aggregate.ByPath, Filter: crawlErrors},
		{Name: "bot_hourly", Title: "Search Bot Activity by Hour", Key: aggregate.ByHour, Filter: searchBotOnly, SortByKey: true},
		{Name: "search_referrers", Title: "Search Engine Referrals", Key: aggregate.BySearchEngine, Filter: aggregate.HumansOnly},
		{Name: "search_queries", Title: "Search Queries", Key: aggregate.BySearchQuery, Filter: aggregate.HumansOnly},
		{Name: "organic_landing_pages", Title: "Organic Landing Pages", Key: aggregate.ByPath, Filter: organicLanding},
	}
}

// Session and crawl limits.
// 会话与抓取相关阈值。
const (
	SessionTimeout   = 30 * time.Minute
	StaleCrawlPeriod = 30 * 24 * time.Hour
)

type visit struct {
	last time.Time
	path string
}

// seoTracker follows human sessions for entry and exit pages, and crawls for SEO issues.
type seoTracker struct {
	opts        Options
	botRequests int64
	http, https int64
	lastCrawl   map[string]time.Time // bot + " " + path
	crawledBy   map[string]string    // path -> first bot
	notFound    map[string]bool
	stale       map[string]bool
	sessions    map[string]visit
	entries     *aggregate.Table
	exits       *aggregate.Table
	issues      []Event
}

func newSEOTracker(o Options) Tracker {
	t := &seoTracker{
		opts:      o,
		lastCrawl: make(map[string]time.Time),
		crawledBy: make(map[string]string),
		notFound:  make(map[string]bool),
		stale:     make(map[string]bool),
		sessions:  make(map[string]visit),
		entries:   aggregate.NewTable("entry_pages", aggregate.MetricCount),
		exits:     aggregate.NewTable("exit_pages", aggregate.MetricCount),
	}
	t.entries.Title, t.entries.Limit = "Top Entry Pages", o.TopN
	t.exits.Title, t.exits.Limit = "Top Exit Pages", o.TopN
	return t
}

func (t *seoTracker) Observe(rec *logengine.ClassifiedRecord) {
	a := rec.Access
	if a == nil {
		return
	}
	switch {
	case strings.HasPrefix(a.Path, "https://"):
		t.https++
	case strings.HasPrefix(a.Path, "http://"):
		t.http++
	}
	if a.Status == 404 {
		t.notFound[a.Path] = true
	}

	if bot := SearchBot(a.UserAgent); bot != "" {
		t.botRequests++
		if a.Status == 200 && a.Method == "GET" {
			t.crawl(bot, a)
		}
		return
	}
	if rec.IsBot {
		return
	}

	v, ok := t.sessions[a.ClientIP]
	if !ok || a.Timestamp.Sub(v.last) >= SessionTimeout {
		if ok {
			t.exits.Incr(v.path, 1)
		}
		if a.Status == 200 && a.Method == "GET" {
			t.entries.Incr(a.Path, 1)
		}
	}
	t.sessions[a.ClientIP] = visit{last: a.Timestamp, path: a.Path}
}

func (t *seoTracker) crawl(bot string, a *logengine.AccessRecord) {
	key := bot + " " + a.Path
	if prev, ok := t.lastCrawl[key]; ok && !t.stale[key] {
		if gap := a.Timestamp.Sub(prev); gap > StaleCrawlPeriod {
			t.stale[key] = true
			t.issues = append(t.issues, Event{
				Time:   a.Timestamp,
				Type:   "Low Crawl Frequency",
				Path:   a.Path,
				Detail: fmt.Sprintf("Not crawled by %s in %d days", bot, int(gap.Hours()/24)),
			})
		}
	}
	t.lastCrawl[key] = a.Timestamp
	if _, ok := t.crawledBy[a.Path]; !ok {
		t.crawledBy[a.Path] = bot
	}
}

// SEOScore starts at 100 and deducts for issues (5 each, up to 30), missing or
// thin search bot activity (20 or 10) and the share of plain http URLs (up to 20).
// SEOScore 计算 SEO 评分。
func SEOScore(issues int, botRequests, http, https int64) int {
	score := 100 - min(30, issues*5)
	switch {
	case botRequests == 0:
		score -= 20
	case botRequests < 100:
		score -= 10
	}
	if http > 0 {
		score -= min(20, int(float64(http)/float64(http+https)*20))
	}
	return max(0, min(100, score))
}

func (t *seoTracker) Finish(s *Summary) {
	for _, path := range slices.Sorted(maps.Keys(t.crawledBy)) {
		if bot := t.crawledBy[path]; t.notFound[path] {
			t.issues = append(t.issues, Event{
				Type:   "404 for Indexed Page",
				Path:   path,
				Detail: fmt.Sprintf("Page is being crawled by %s but returns 404", bot),
			})
		}
	}
	if t.http > 0 {
		t.issues = append(t.issues, Event{
			Type:   "Non-HTTPS URLs",
			Detail: fmt.Sprintf("Found %d HTTP (non-secure) URLs", t.http),
		})
	}
	for _, v := range t.sessions {
		t.exits.Incr(v.path, 1)
	}

	score := SEOScore(len(t.issues), t.botRequests, t.http, t.https)
	s.AddStat("SEO Score", fmt.Sprintf("%d/100", score))
	s.AddStat("SEO Status", ScoreStatus(score))
	s.AddStat("Search Bot Requests", fmtutil.FormatNumberWithComma(t.botRequests))
	s.AddStat("Pages Crawled", fmtutil.FormatNumberWithComma(int64(len(t.crawledBy))))
	s.AddStat("Search Referrals", fmtutil.FormatNumberWithComma(tableTotal(s, "search_referrers")))
	s.AddStat("Organic Landings", fmtutil.FormatNumberWithComma(tableTotal(s, "organic_landing_pages")))
	s.AddStat("SEO Issues", fmtutil.FormatNumberWithComma(int64(len(t.issues))))

	s.Tables = append(s.Tables, t.entries, t.exits)
	events := t.issues
	if len(events) > t.opts.MaxEvents {
		s.Notes = append(s.Notes, fmt.Sprintf("%d further SEO issues not listed.", len(events)-t.opts.MaxEvents))
		events = events[:t.opts.MaxEvents]
	}
	s.Events = append(s.Events, events...)
}
