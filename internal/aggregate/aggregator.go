package aggregate

import (
	"iter"
	"maps"
	"slices"

	"github.com/netxfw/gunlog/internal/logengine"
)

// GroupSpec describes one aggregate table: how records are keyed, filtered
// and measured.
// GroupSpec 描述一张聚合表：记录如何分组、过滤与度量。
type GroupSpec struct {
	Name      string
	Title     string
	Key       KeyFunc
	Metric    Metric
	Filter    FilterFunc
	Limit     int // rows to render, 0 for all
	SortByKey bool
}

func (s GroupSpec) newTable() *Table {
	t := NewTable(s.Name, s.Metric)
	if s.Title != "" {
		t.Title = s.Title
	}
	t.Limit, t.SortByKey = s.Limit, s.SortByKey
	return t
}

func (s GroupSpec) apply(t *Table, rec *logengine.ClassifiedRecord) {
	if s.Filter != nil && !s.Filter(rec) {
		return
	}
	key, ok := s.Key(rec)
	if !ok {
		return
	}
	t.Add(key, rec)
}

// Aggregate folds records into a single table for spec. Zero records yield an empty table.
// Aggregate 将记录折叠为 spec 描述的单张表，无记录时返回空表。
func Aggregate(records iter.Seq[logengine.ClassifiedRecord], spec GroupSpec) *Table {
	t := spec.newTable()
	for rec := range records {
		spec.apply(t, &rec)
	}
	return t
}

// DefaultMaxSamples is the number of failed lines kept for display.
const DefaultMaxSamples = 10

// FailureTally counts parse failures per reason and keeps the first few as samples.
// FailureTally 按原因统计解析失败，并保留前几条样本。
type FailureTally struct {
	Total      int64
	ByReason   map[string]int64
	Samples    []logengine.ParseFailure
	MaxSamples int
}

// NewFailureTally creates an empty tally keeping up to maxSamples samples.
func NewFailureTally(maxSamples int) *FailureTally {
	if maxSamples < 0 {
		maxSamples = 0
	}
	return &FailureTally{ByReason: make(map[string]int64), MaxSamples: maxSamples}
}

// Add records one failure.
func (f *FailureTally) Add(pf *logengine.ParseFailure) {
	if pf == nil {
		return
	}
	f.Total++
	f.ByReason[pf.Reason]++
	if len(f.Samples) < f.MaxSamples {
		f.Samples = append(f.Samples, *pf)
	}
}

// Merge adds other's counts; samples are appended up to MaxSamples.
// Merge 合并 other 的计数，样本追加至上限。
func (f *FailureTally) Merge(other *FailureTally) {
	if other == nil {
		return
	}
	f.Total += other.Total
	for reason, n := range other.ByReason {
		f.ByReason[reason] += n
	}
	for _, s := range other.Samples {
		if len(f.Samples) >= f.MaxSamples {
			break
		}
		f.Samples = append(f.Samples, s)
	}
}

// Reasons returns the failure reasons in lexical order.
func (f *FailureTally) Reasons() []string {
	return slices.Sorted(maps.Keys(f.ByReason))
}

// Result is everything one pass produced.
// Result 为一次遍历的全部产出。
type Result struct {
	Tables   map[string]*Table
	Order    []string // table names in spec order
	Records  int64
	Failures *FailureTally
}

// Table returns the named table, or an empty one when the pass did not build it.
// Table 返回指定名称的表，不存在时返回空表。
func (r *Result) Table(name string) *Table {
	if t, ok := r.Tables[name]; ok {
		return t
	}
	return NewTable(name, MetricCount)
}

// Merge folds other into r table by table. Tables only present in other are adopted.
// Merge 按表合并 other，仅存在于 other 的表直接采用。
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Records += other.Records
	r.Failures.Merge(other.Failures)
	for _, name := range other.Order {
		ot := other.Tables[name]
		if t, ok := r.Tables[name]; ok {
			t.Merge(ot)
			continue
		}
		t := NewTable(ot.Name, ot.Metric)
		t.Title, t.Limit, t.SortByKey = ot.Title, ot.Limit, ot.SortByKey
		t.Merge(ot)
		r.Tables[name] = t
		r.Order = append(r.Order, name)
	}
}

// Aggregator folds a record stream into many tables in a single pass.
// Specs sharing a name share one table; the first spec wins.
// Aggregator 在单次遍历中将记录流折叠为多张表，同名 spec 共享同一张表。
type Aggregator struct {
	specs  []GroupSpec
	tables []*Table
	result *Result
}

// New creates an Aggregator for specs.
// New 为 specs 创建 Aggregator。
func New(specs ...GroupSpec) *Aggregator {
	a := &Aggregator{
		result: &Result{
			Tables:   make(map[string]*Table),
			Failures: NewFailureTally(DefaultMaxSamples),
		},
	}
	for _, s := range specs {
		if s.Key == nil {
			continue
		}
		if _, dup := a.result.Tables[s.Name]; dup {
			continue
		}
		t := s.newTable()
		a.specs = append(a.specs, s)
		a.tables = append(a.tables, t)
		a.result.Tables[s.Name] = t
		a.result.Order = append(a.result.Order, s.Name)
	}
	return a
}

// Add folds one record into every table.
// Add 将一条记录折叠进所有表。
func (a *Aggregator) Add(rec *logengine.ClassifiedRecord) {
	a.result.Records++
	for i, s := range a.specs {
		s.apply(a.tables[i], rec)
	}
}

// AddFailure tallies a parse failure. Tables are unaffected.
// AddFailure 统计解析失败，不影响表。
func (a *Aggregator) AddFailure(f *logengine.ParseFailure) {
	a.result.Failures.Add(f)
}

// Result returns the accumulated result. The aggregator must not be used afterwards.
// Result 返回累积结果，之后不应再使用该聚合器。
func (a *Aggregator) Result() *Result {
	return a.result
}
