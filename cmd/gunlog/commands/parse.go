package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/config"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|glob]",
	Short: "Parse a log file or line and print the records",
	// Short: 解析日志文件或单行并输出记录
	Long: `Parse a log file (or a single --line) with the configured or given format
and print the classified records and parse failures. Useful to check a format
and timestamp pattern before a run.
使用配置或指定的格式解析日志文件（或 --line 指定的单行），输出分类后的记录与解析失败，
便于在运行前检查格式与时间戳模式。

Examples:
  gunlog parse /var/log/apache2/access.log --limit 5
  gunlog parse --format error --line '[Thu Apr 10 13:55:36 2025] [error] boom'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		timestamp, _ := cmd.Flags().GetString("timestamp")
		line, _ := cmd.Flags().GetString("line")
		limit, _ := cmd.Flags().GetInt("limit")

		if (len(args) == 0) == (line == "") {
			return fmt.Errorf("give exactly one of a file or --line")
		}

		cfg, err := loadConfig()
		if err != nil {
			if configPath != "" {
				return err
			}
			cfg = config.DefaultConfig()
		}
		opts := cfg.AccessParserOptions(format)
		if f, ferr := logengine.ParseFormat(format); ferr == nil && format != "" && !f.IsAccess() {
			opts = cfg.ErrorParserOptions(format)
		}
		if timestamp != "" {
			opts.TimestampPattern = timestamp
		}
		parser, err := logengine.NewParser(opts)
		if err != nil {
			return err
		}

		p := newRecordPrinter(newConsole(cmd.OutOrStdout()), parser.Format(), limit)
		classifier := logengine.NewClassifier(cfg.ClassifierOptions())
		feed := func(raw logengine.RawLine) {
			rec, fail := parser.Parse(raw)
			if fail != nil {
				p.failures.Add(fail)
				return
			}
			p.add(classifier.Classify(rec))
		}

		if line != "" {
			feed(logengine.RawLine{Text: line, Source: "--line", Number: 1})
		} else if _, err := logengine.NewReader().Read(cmd.Context(), args[0], feed); err != nil {
			return err
		}
		p.render()
		return nil
	},
}

const maxParseSamples = 1000

// recordPrinter collects the first records of a parse and the failure tally.
type recordPrinter struct {
	out      *console
	format   logengine.Format
	limit    int
	total    int64
	rows     [][]string
	failures *aggregate.FailureTally
}

func newRecordPrinter(out *console, format logengine.Format, limit int) *recordPrinter {
	samples := limit
	if samples <= 0 {
		samples = maxParseSamples
	}
	return &recordPrinter{out: out, format: format, limit: limit, failures: aggregate.NewFailureTally(samples)}
}

func (p *recordPrinter) add(rec logengine.ClassifiedRecord) {
	p.total++
	if p.limit > 0 && len(p.rows) >= p.limit {
		return
	}
	if a := rec.Access; a != nil {
		rt := "-"
		if a.HasResponseTime {
			rt = fmtutil.FormatSeconds(a.ResponseTime)
		}
		p.rows = append(p.rows, []string{
			a.Timestamp.Format(time.DateTime), a.ClientIP, a.Method, fmtutil.Truncate(a.Path, 60),
			fmt.Sprint(a.Status), fmtutil.FormatBytes(a.BytesSent), rt,
			fmt.Sprint(rec.IsBot), strings.Join(nonEmpty(rec.Browser, rec.OS, rec.Device), " / "),
		})
		return
	}
	if e := rec.Error; e != nil {
		source := "-"
		if e.SourceFile != "" {
			source = fmt.Sprintf("%s:%d", e.SourceFile, e.LineNumber)
		}
		p.rows = append(p.rows, []string{
			e.Timestamp.Format(time.DateTime), e.Severity.String(), e.Module, e.ClientIP,
			source, fmtutil.Truncate(e.Message, 80),
		})
	}
}

func (p *recordPrinter) render() {
	p.out.header(fmt.Sprintf("Records (%s format)", p.format))
	header := []string{"Time", "IP", "Method", "Path", "Status", "Bytes", "Resp Time", "Bot", "Agent"}
	if !p.format.IsAccess() {
		header = []string{"Time", "Severity", "Module", "Client", "Source", "Message"}
	}
	t := p.out.table(header)
	t.AppendBulk(p.rows)
	t.Render()
	if int64(len(p.rows)) < p.total {
		fmt.Fprintf(p.out.w, "(first %d of %s records)\n", len(p.rows), fmtutil.FormatNumberWithComma(p.total))
	}

	if p.failures.Total == 0 {
		p.out.success("%s records parsed, 0 lines failed to parse", fmtutil.FormatNumberWithComma(p.total))
		return
	}
	p.out.warn("%s records parsed, %s lines failed to parse",
		fmtutil.FormatNumberWithComma(p.total), fmtutil.FormatNumberWithComma(p.failures.Total))
	ft := p.out.table([]string{"Line", "Reason", "Text"})
	for _, f := range p.failures.Samples {
		ft.Append([]string{fmt.Sprintf("%s:%d", f.Line.Source, f.Line.Number), f.Reason, fmtutil.Truncate(f.Line.Text, 80)})
	}
	ft.Render()
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func init() {
	parseCmd.Flags().StringP("format", "f", "", "Log format: combined, common, error, nginx_error, php_error (default: parser.access_format)")
	parseCmd.Flags().String("timestamp", "", "strftime timestamp pattern, overriding the configured one")
	parseCmd.Flags().String("line", "", "Parse this single line instead of a file")
	parseCmd.Flags().IntP("limit", "n", 20, "Maximum records and failure samples to print (0 for all)")
}
