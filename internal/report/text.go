package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/netxfw/gunlog/internal/analysis"
)

// RenderText writes the plain text form of a report.
// RenderText 输出报表的纯文本形式。
func RenderText(w io.Writer, s *analysis.Summary, generated time.Time) error {
	v := newReportView(s, generated)
	var b bytes.Buffer

	fmt.Fprintf(&b, "%s for %s\n", v.Title, v.Project)
	fmt.Fprintf(&b, "Report date: %s\n", v.Date)
	fmt.Fprintf(&b, "Generated on: %s\n", v.Generated)
	fmt.Fprintf(&b, "Records analysed: %s\n", v.Records)
	fmt.Fprintf(&b, "%s\n", v.Failures.Line())

	if len(v.Stats) > 0 {
		heading(&b, "Summary")
		t := newTextTable(&b, nil)
		for _, st := range v.Stats {
			t.Append([]string{st.Name, st.Value})
		}
		t.Render()
	}

	for _, tv := range v.Tables {
		title := tv.Title
		if tv.Truncated() {
			title = fmt.Sprintf("%s (top %d of %d)", tv.Title, tv.Shown, tv.Total)
		}
		heading(&b, title)
		if len(tv.Rows) == 0 {
			b.WriteString("No data.\n")
			continue
		}
		header := []string{"Item", tv.ValueHeader}
		if tv.ShowShare {
			header = append(header, "Share")
		}
		t := newTextTable(&b, header)
		t.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
		for _, r := range tv.Rows {
			row := []string{r.Key, r.Value}
			if tv.ShowShare {
				row = append(row, r.Share)
			}
			t.Append(row)
		}
		t.Render()
	}

	if len(v.Events) > 0 {
		heading(&b, "Events")
		t := newTextTable(&b, []string{"Time", "Type", "IP", "Path", "Status", "Detail"})
		for _, e := range v.Events {
			t.Append([]string{e.Time, e.Type, e.IP, e.Path, e.Status, e.Detail})
		}
		t.Render()
	}

	if len(v.Notes) > 0 {
		heading(&b, "Notes")
		for _, n := range v.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	if len(v.Failures.Samples) > 0 {
		heading(&b, "Parse Failure Samples")
		t := newTextTable(&b, []string{"Line", "Reason", "Text"})
		for _, s := range v.Failures.Samples {
			t.Append([]string{s.Where, s.Reason, s.Text})
		}
		t.Render()
	}

	_, err := w.Write(b.Bytes())
	return err
}

func heading(b *bytes.Buffer, title string) {
	fmt.Fprintf(b, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

func newTextTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	if header != nil {
		t.SetHeader(header)
		t.SetAutoFormatHeaders(false)
	}
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}
