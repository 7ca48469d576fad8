package aggregate

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/pkg/errors"
)

// Metric selects how a table cell is turned into a number.
// Metric 决定表格单元如何转换为数值。
type Metric string

const (
	MetricCount           Metric = "count"
	MetricBytes           Metric = "bytes"
	MetricDistinctIPs     Metric = "distinct_ips"
	MetricAvgResponseTime Metric = "avg_response_time"
)

// Metrics lists every supported metric.
var Metrics = []Metric{MetricCount, MetricBytes, MetricDistinctIPs, MetricAvgResponseTime}

// ParseMetric validates a metric name. An empty name selects count.
// ParseMetric 校验指标名称，空字符串表示 count。
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	if m == "" {
		return MetricCount, nil
	}
	if slices.Contains(Metrics, m) {
		return m, nil
	}
	return "", errors.NewConfigError("metric", name)
}

// Cell accumulates everything recorded under one key.
// Cell 累积同一键下的所有记录。
type Cell struct {
	Count     int64
	Bytes     int64
	IPs       map[string]struct{} // only tracked for distinct_ips tables
	TimeSum   float64
	TimeCount int64
}

func (c *Cell) add(rec *logengine.ClassifiedRecord, trackIPs bool) {
	c.Count++
	if a := rec.Access; a != nil {
		c.Bytes += a.BytesSent
		if a.HasResponseTime {
			c.TimeSum += a.ResponseTime
			c.TimeCount++
		}
	}
	if trackIPs {
		if ip := rec.ClientIP(); ip != "" {
			if c.IPs == nil {
				c.IPs = make(map[string]struct{})
			}
			c.IPs[ip] = struct{}{}
		}
	}
}

func (c *Cell) merge(o *Cell) {
	c.Count += o.Count
	c.Bytes += o.Bytes
	c.TimeSum += o.TimeSum
	c.TimeCount += o.TimeCount
	if len(o.IPs) > 0 {
		if c.IPs == nil {
			c.IPs = make(map[string]struct{}, len(o.IPs))
		}
		maps.Copy(c.IPs, o.IPs)
	}
}

// AvgResponseTime returns the mean response time, or 0 when none was recorded.
func (c *Cell) AvgResponseTime() float64 {
	if c.TimeCount == 0 {
		return 0
	}
	return c.TimeSum / float64(c.TimeCount)
}

// Value derives the number for metric m.
// Value 按指标 m 计算数值。
func (c *Cell) Value(m Metric) float64 {
	switch m {
	case MetricBytes:
		return float64(c.Bytes)
	case MetricDistinctIPs:
		return float64(len(c.IPs))
	case MetricAvgResponseTime:
		return c.AvgResponseTime()
	default:
		return float64(c.Count)
	}
}

// Table maps grouping keys to cells. Keys are unique and insertion order is irrelevant.
// Table 将分组键映射到单元格，键唯一且与插入顺序无关。
type Table struct {
	Name      string
	Title     string
	Metric    Metric
	Limit     int  // rows to render, 0 for all
	SortByKey bool // render in key order (dates, hours)
	Cells     map[string]*Cell
}

// NewTable creates an empty table.
func NewTable(name string, metric Metric) *Table {
	if metric == "" {
		metric = MetricCount
	}
	return &Table{Name: name, Title: name, Metric: metric, Cells: make(map[string]*Cell)}
}

// Add folds rec into the cell for key.
// Add 将 rec 累加到 key 对应的单元格。
func (t *Table) Add(key string, rec *logengine.ClassifiedRecord) {
	cell, ok := t.Cells[key]
	if !ok {
		cell = &Cell{}
		t.Cells[key] = cell
	}
	cell.add(rec, t.Metric == MetricDistinctIPs)
}

// Incr counts n occurrences under key without a backing record.
// Incr 在 key 下累加 n 次计数（无对应记录）。
func (t *Table) Incr(key string, n int64) {
	cell, ok := t.Cells[key]
	if !ok {
		cell = &Cell{}
		t.Cells[key] = cell
	}
	cell.Count += n
}

// Merge adds other's cells into t key-wise; IP sets are unioned.
// Merge 按键合并 other 的单元格，IP 集合取并集。
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for key, oc := range other.Cells {
		cell, ok := t.Cells[key]
		if !ok {
			cell = &Cell{}
			t.Cells[key] = cell
		}
		cell.merge(oc)
	}
}

// Len returns the number of keys.
func (t *Table) Len() int {
	return len(t.Cells)
}

// Value returns the metric value for key, 0 when absent.
func (t *Table) Value(key string) float64 {
	if c, ok := t.Cells[key]; ok {
		return c.Value(t.Metric)
	}
	return 0
}

// Total combines every cell: a sum for count/bytes, the size of the IP union
// for distinct_ips and the overall mean for avg_response_time.
// Total 汇总所有单元格。
func (t *Table) Total() float64 {
	var all Cell
	for _, c := range t.Cells {
		all.merge(c)
	}
	return all.Value(t.Metric)
}

// Count returns the number of records folded into the table.
func (t *Table) Count() int64 {
	var n int64
	for _, c := range t.Cells {
		n += c.Count
	}
	return n
}

// Row is one key of a table with its derived value.
// Row 表示表格的一行。
type Row struct {
	Key   string
	Value float64
	Cell  *Cell
}

// Sorted returns rows ordered by value descending, then key ascending.
// Sorted 返回按数值降序、键升序排列的行。
func (t *Table) Sorted() []Row {
	rows := t.rows()
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return rows
}

// SortedByKey returns rows ordered by key, for date and hour tables.
// SortedByKey 返回按键排序的行，用于日期与小时表。
func (t *Table) SortedByKey() []Row {
	rows := t.rows()
	slices.SortFunc(rows, func(a, b Row) int {
		return strings.Compare(a.Key, b.Key)
	})
	return rows
}

// Top returns at most n rows of Sorted. n <= 0 returns all rows.
func (t *Table) Top(n int) []Row {
	rows := t.Sorted()
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// Rows returns the rows a renderer shows: key order for SortByKey tables,
// value order otherwise, cut to Limit.
// Rows 返回渲染所需的行：按表设置排序并截取至 Limit。
func (t *Table) Rows() []Row {
	if !t.SortByKey {
		return t.Top(t.Limit)
	}
	rows := t.SortedByKey()
	if t.Limit > 0 && len(rows) > t.Limit {
		rows = rows[:t.Limit]
	}
	return rows
}

func (t *Table) rows() []Row {
	rows := make([]Row, 0, len(t.Cells))
	for key, c := range t.Cells {
		rows = append(rows, Row{Key: key, Value: c.Value(t.Metric), Cell: c})
	}
	return rows
}
