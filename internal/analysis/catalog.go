package analysis

import (
	"fmt"
	"slices"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/pkg/errors"
)

// definition is the recipe of one built-in report type.
type definition struct {
	title   string
	specs   func(o Options) []aggregate.GroupSpec
	tracker func(o Options) Tracker
}

var definitions = map[ReportType]definition{
	TypeError:       {title: "Error Log Analysis", specs: errorSpecs, tracker: newErrorTracker},
	TypeDaily:       {title: "Daily Error Summary", specs: dailySpecs, tracker: newDailyTracker},
	TypeIP:          {title: "IP Analytics", specs: ipSpecs, tracker: newIPTracker},
	TypePopular:     {title: "Popular Pages", specs: popularSpecs, tracker: newPopularTracker},
	TypePerformance: {title: "Performance Analysis", specs: performanceSpecs, tracker: newPerformanceTracker},
	TypeContent:     {title: "Content Analysis", specs: contentSpecs, tracker: newContentTracker},
	TypeSecurity:    {title: "Security Analysis", specs: securitySpecs, tracker: newSecurityTracker},
	TypeSEO:         {title: "SEO Analysis", specs: seoSpecs, tracker: newSEOTracker},
	TypeTraffic:     {title: "Traffic Analysis", specs: trafficSpecs, tracker: newTrafficTracker},
}

// Catalog resolves report types to table specs and trackers.
// Custom report expressions are compiled once when the catalog is built.
// Catalog 将报表类型解析为分组表与附加统计；自定义表达式在构建时编译一次。
type Catalog struct {
	opts   Options
	custom []aggregate.GroupSpec
}

// NewCatalog compiles the custom reports in opts. Any compile error is an
// invalid configuration.
// NewCatalog 编译 opts 中的自定义报表，编译失败属于配置错误。
func NewCatalog(opts Options) (*Catalog, error) {
	c := &Catalog{opts: opts.withDefaults()}
	seen := make(map[string]bool)
	for _, cs := range c.opts.Custom {
		spec, err := aggregate.BuildSpec(cs)
		if err != nil {
			return nil, fmt.Errorf("custom report %q: %w", cs.Name, err)
		}
		if seen[spec.Name] {
			return nil, errors.NewConfigError("custom_reports.name", spec.Name)
		}
		seen[spec.Name] = true
		if spec.Limit == 0 {
			spec.Limit = c.opts.TopN
		}
		spec.Name = CustomPrefix + spec.Name
		c.custom = append(c.custom, spec)
	}
	return c, nil
}

// Options returns the effective options.
func (c *Catalog) Options() Options {
	return c.opts
}

// Resolve validates and de-duplicates report names, keeping their order.
// No names selects every built-in report, plus the custom report when one is configured.
// Resolve 校验并去重报表名称；为空时选择全部内置报表（及已配置的自定义报表）。
func (c *Catalog) Resolve(names []string) ([]ReportType, error) {
	if len(names) == 0 {
		types := slices.Clone(Types)
		if len(c.custom) > 0 {
			types = append(types, TypeCustom)
		}
		return types, nil
	}
	var types []ReportType
	for _, name := range names {
		t, err := ParseType(name)
		if err != nil {
			return nil, err
		}
		if t.IsCustom() && !c.hasCustom(t) {
			return nil, errors.NewReportError(name)
		}
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types, nil
}

func (c *Catalog) hasCustom(t ReportType) bool {
	if t == TypeCustom {
		return len(c.custom) > 0
	}
	return slices.ContainsFunc(c.custom, func(s aggregate.GroupSpec) bool {
		return s.Name == string(t)
	})
}

// Title returns the display title of a report type.
// Title 返回报表类型的显示标题。
func (c *Catalog) Title(t ReportType) string {
	if d, ok := definitions[t]; ok {
		return d.title
	}
	if t == TypeCustom {
		return "Custom Reports"
	}
	for _, s := range c.custom {
		if s.Name == string(t) {
			return s.Title
		}
	}
	return string(t)
}

func (c *Catalog) specsFor(t ReportType) []aggregate.GroupSpec {
	if d, ok := definitions[t]; ok {
		specs := d.specs(c.opts)
		for i := range specs {
			if specs[i].Limit == 0 && !specs[i].SortByKey {
				specs[i].Limit = c.opts.TopN
			}
		}
		return specs
	}
	if t == TypeCustom {
		return c.custom
	}
	for _, s := range c.custom {
		if s.Name == string(t) {
			return []aggregate.GroupSpec{s}
		}
	}
	return nil
}

// NewPass prepares a single pass over one log kind for every report in types
// that reads that kind. Reports for the other kind are ignored.
// NewPass 为 types 中读取该日志类型的报表准备一次遍历，其他报表被忽略。
func (c *Catalog) NewPass(kind logengine.Kind, types []ReportType) *Pass {
	p := &Pass{Kind: kind, catalog: c, tables: make(map[ReportType][]string)}
	var specs []aggregate.GroupSpec
	for _, t := range types {
		if t.Kind() != kind {
			continue
		}
		p.types = append(p.types, t)
		for _, s := range c.specsFor(t) {
			specs = append(specs, s)
			p.tables[t] = append(p.tables[t], s.Name)
		}
		if d, ok := definitions[t]; ok && d.tracker != nil {
			tr := d.tracker(c.opts)
			p.trackers = append(p.trackers, tr)
			p.trackerOf = append(p.trackerOf, t)
		}
	}
	p.agg = aggregate.New(specs...)
	return p
}

// Pass feeds one log stream into every table and tracker of its reports.
// Pass 将一条日志流同时送入其报表的所有分组表与附加统计。
type Pass struct {
	Kind      logengine.Kind
	catalog   *Catalog
	types     []ReportType
	tables    map[ReportType][]string
	agg       *aggregate.Aggregator
	trackers  []Tracker
	trackerOf []ReportType
	summaries []*Summary
}

// Types returns the reports this pass produces.
func (p *Pass) Types() []ReportType {
	return p.types
}

// Empty reports whether the pass has nothing to produce.
func (p *Pass) Empty() bool {
	return len(p.types) == 0
}

// Add folds one classified record into every table and tracker.
// Add 将一条分类记录送入所有分组表与附加统计。
func (p *Pass) Add(rec *logengine.ClassifiedRecord) {
	p.agg.Add(rec)
	for _, tr := range p.trackers {
		tr.Observe(rec)
	}
}

// AddFailure tallies a parse failure.
func (p *Pass) AddFailure(f *logengine.ParseFailure) {
	p.agg.AddFailure(f)
}

// Result exposes the raw aggregate result.
func (p *Pass) Result() *aggregate.Result {
	return p.agg.Result()
}

// Summaries finishes the pass and builds one Summary per report. Later calls
// return the same summaries; the pass must not be fed afterwards.
// Summaries 结束遍历并为每份报表生成 Summary，之后不应再写入。
func (p *Pass) Summaries(project, date string) []*Summary {
	if p.summaries != nil {
		return p.summaries
	}
	res := p.agg.Result()
	out := make([]*Summary, 0, len(p.types))
	for _, t := range p.types {
		s := &Summary{
			Project:  project,
			Date:     date,
			Type:     t,
			Title:    p.catalog.Title(t),
			Failures: res.Failures,
			Records:  res.Records,
		}
		for _, name := range p.tables[t] {
			s.Tables = append(s.Tables, res.Table(name))
		}
		for i, tr := range p.trackers {
			if p.trackerOf[i] == t {
				tr.Finish(s)
			}
		}
		out = append(out, s)
	}
	p.summaries = out
	return out
}

// finishFunc is a Tracker that only derives figures from the finished tables.
type finishFunc func(s *Summary)

func (f finishFunc) Observe(*logengine.ClassifiedRecord) {}

func (f finishFunc) Finish(s *Summary) { f(s) }

// tableTotal returns the record count of a summary table, 0 when absent.
func tableTotal(s *Summary, name string) int64 {
	if t := s.Table(name); t != nil {
		return t.Count()
	}
	return 0
}
