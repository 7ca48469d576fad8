package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/netxfw/gunlog/internal/runner"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
)

// console prints command results, coloured unless disabled.
// console 输出命令结果，除非禁用否则带颜色。
type console struct {
	w      io.Writer
	colors bool
}

func newConsole(w io.Writer) *console {
	return &console{w: w, colors: !noColor && !color.NoColor}
}

func (c *console) header(title string) {
	if c.colors {
		color.New(color.FgCyan, color.Bold).Fprintf(c.w, "\n%s\n", title)
		color.New(color.FgCyan).Fprintf(c.w, "%s\n", strings.Repeat("═", len(title)))
		return
	}
	fmt.Fprintf(c.w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

func (c *console) keyValue(key, value string) {
	if c.colors {
		color.New(color.FgWhite, color.Bold).Fprintf(c.w, "%-18s", key+":")
		color.New(color.FgGreen).Fprintf(c.w, "%s\n", value)
		return
	}
	fmt.Fprintf(c.w, "%-18s %s\n", key+":", value)
}

func (c *console) colorize(text string, attr color.Attribute) string {
	if c.colors {
		return color.New(attr).Sprint(text)
	}
	return text
}

func (c *console) success(format string, args ...any) {
	fmt.Fprintln(c.w, c.colorize("[OK] ", color.FgGreen)+fmt.Sprintf(format, args...))
}

func (c *console) warn(format string, args ...any) {
	fmt.Fprintln(c.w, c.colorize("[WARN] ", color.FgYellow)+fmt.Sprintf(format, args...))
}

func (c *console) fail(format string, args ...any) {
	fmt.Fprintln(c.w, c.colorize("[ERROR] ", color.FgRed)+fmt.Sprintf(format, args...))
}

func (c *console) table(header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(c.w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	return t
}

func statusColor(s runner.Status) color.Attribute {
	switch s {
	case runner.StatusOK:
		return color.FgGreen
	case runner.StatusFailed:
		return color.FgRed
	default:
		return color.FgYellow
	}
}

// runSummary prints the per-project outcome of a run.
// runSummary 输出一次运行中各项目的结果。
func (c *console) runSummary(rep *runner.RunReport) {
	c.header("GunLog Run Summary")
	types := make([]string, len(rep.Types))
	for i, t := range rep.Types {
		types[i] = string(t)
	}
	c.keyValue("Report date", rep.Date)
	c.keyValue("Reports", strings.Join(types, ", "))
	c.keyValue("Duration", fmtutil.FormatDuration(rep.Duration))
	fmt.Fprintln(c.w)

	t := c.table([]string{"Project", "Status", "Lines", "Records", "Parse Failures", "Files", "Time", "Detail"})
	t.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for _, p := range rep.Projects {
		detail := p.Dir
		if p.Err != nil {
			detail = fmtutil.Truncate(p.Err.Error(), 80)
		}
		t.Append([]string{
			p.Project,
			c.colorize(string(p.Status), statusColor(p.Status)),
			fmtutil.FormatNumberWithComma(p.Lines),
			fmtutil.FormatNumberWithComma(p.Records),
			fmtutil.FormatNumberWithComma(p.Failures),
			fmt.Sprint(len(p.Reports)),
			fmtutil.FormatDuration(p.Duration),
			detail,
		})
	}
	t.Render()

	fmt.Fprintf(c.w, "\n%s ok, %s failed, %d empty, %d skipped\n",
		c.colorize(fmt.Sprint(rep.Count(runner.StatusOK)), color.FgGreen),
		c.colorize(fmt.Sprint(rep.Count(runner.StatusFailed)), color.FgRed),
		rep.Count(runner.StatusEmpty), rep.Count(runner.StatusSkipped))
}
