package analysis

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
)

// sectionPatterns map well-known path fragments to a category name.
// The first match wins.
var sectionPatterns = []struct {
	category  string
	fragments []string
}{
	{"Content", []string{"/blog/", "/news/", "/article/"}},
	{"Products", []string{"/product/", "/shop/", "/item/"}},
	{"Categories", []string{"/category/", "/catalog/"}},
	{"Tags", []string{"/tag/"}},
	{"Search", []string{"/search/"}},
	{"User", []string{"/user/", "/account/", "/profile/"}},
	{"API", []string{"/api/"}},
	{"Admin", []string{"/admin/", "/dashboard/"}},
	{"Community", []string{"/forum/", "/community/", "/discussion/"}},
}

// Category returns the content category and sub-category of a request path.
// Well-known sections win; otherwise the first two path segments are title-cased.
// Category 返回请求路径的内容分类与子分类。
func Category(p string) (category, sub string) {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	title := cases.Title(language.Und)
	category, sub = "Root", "General"
	if parts[0] != "" {
		category = title.String(parts[0])
	}
	if len(parts) > 1 && parts[1] != "" {
		sub = title.String(parts[1])
	}
	for _, sp := range sectionPatterns {
		for _, f := range sp.fragments {
			if strings.Contains(p, f) {
				return sp.category, sub
			}
		}
	}
	return category, sub
}

var byCategory aggregate.KeyFunc = func(rec *logengine.ClassifiedRecord) (string, bool) {
	if rec.Access == nil {
		return "", false
	}
	c, _ := Category(rec.Access.Path)
	return c, true
}

var bySection aggregate.KeyFunc = func(rec *logengine.ClassifiedRecord) (string, bool) {
	if rec.Access == nil {
		return "", false
	}
	c, sub := Category(rec.Access.Path)
	return c + " / " + sub, true
}

var contentViews = aggregate.And(aggregate.HumansOnly, func(rec *logengine.ClassifiedRecord) bool {
	return rec.StatusClass == logengine.Status2xx
})

var downloads aggregate.FilterFunc = func(rec *logengine.ClassifiedRecord) bool {
	return rec.Access != nil && (rec.ContentType == "Document" || rec.ContentType == "Download" || rec.ContentType == "Media")
}

func contentSpecs(Options) []aggregate.GroupSpec {
	return []aggregate.GroupSpec{
		{Name: "content_types", Title: "Requests by Content Type", Key: aggregate.ByContentType, Filter: aggregate.AccessOnly},
		{Name: "content_bandwidth", Title: "Bandwidth by Content Type", Key: aggregate.ByContentType, Metric: aggregate.MetricBytes, Filter: aggregate.AccessOnly},
		{Name: "content_categories", Title: "Content Categories", Key: byCategory, Filter: contentViews},
		{Name: "content_sections", Title: "Content Sections", Key: bySection, Filter: contentViews},
		{Name: "hourly_content_views", Title: "Content Views by Hour", Key: aggregate.ByHour, Filter: contentViews, SortByKey: true},
		{Name: "top_downloads", Title: "Top Documents, Media and Downloads", Key: aggregate.ByPath, Filter: downloads},
	}
}

func newContentTracker(Options) Tracker {
	return finishFunc(func(s *Summary) {
		s.AddStat("Content Views", fmtutil.FormatNumberWithComma(tableTotal(s, "hourly_content_views")))
		if cats := s.Table("content_categories"); cats != nil {
			s.AddStat("Categories", fmtutil.FormatNumberWithComma(int64(cats.Len())))
			if top := cats.Top(1); len(top) > 0 {
				s.AddStat("Top Category", top[0].Key)
			}
		}
		s.AddStat("Downloads", fmtutil.FormatNumberWithComma(tableTotal(s, "top_downloads")))
	})
}
