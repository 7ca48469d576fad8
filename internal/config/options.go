package config

import (
	"time"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/analysis"
	"github.com/netxfw/gunlog/internal/logengine"
)

// AccessParserOptions returns the parser options for access logs. A non-empty
// format overrides the configured one.
// AccessParserOptions 返回访问日志的解析选项，format 非空时覆盖配置。
func (c *GlobalConfig) AccessParserOptions(format string) logengine.Options {
	if format == "" {
		format = c.Parser.AccessFormat
	}
	return logengine.Options{Format: logengine.Format(format), TimestampPattern: c.Parser.AccessTimestamp}
}

// ErrorParserOptions returns the parser options for error logs.
// ErrorParserOptions 返回错误日志的解析选项。
func (c *GlobalConfig) ErrorParserOptions(format string) logengine.Options {
	if format == "" {
		format = c.Parser.ErrorFormat
	}
	if format == "" {
		format = string(logengine.FormatError)
	}
	return logengine.Options{Format: logengine.Format(format), TimestampPattern: c.Parser.ErrorTimestamp}
}

// ClassifierOptions returns the bot signatures: the configured list, or the
// built-in one when empty, followed by the extra signatures.
// ClassifierOptions 返回爬虫特征：配置列表（为空时为内置列表）加上额外特征。
func (c *GlobalConfig) ClassifierOptions() logengine.ClassifierOptions {
	sigs := c.Classifier.BotSignatures
	if len(sigs) == 0 {
		sigs = logengine.DefaultBotSignatures
	}
	out := make([]string, 0, len(sigs)+len(c.Classifier.ExtraBotSignatures))
	out = append(out, sigs...)
	out = append(out, c.Classifier.ExtraBotSignatures...)
	return logengine.ClassifierOptions{BotSignatures: out}
}

// AnalysisOptions maps the reports section and custom reports onto analysis.Options.
// AnalysisOptions 将 reports 配置与自定义报告映射为 analysis.Options。
func (c *GlobalConfig) AnalysisOptions() analysis.Options {
	r := c.Reports
	opts := analysis.Options{
		TopN:                 r.TopN,
		SlowThreshold:        r.SlowThreshold,
		MaxEvents:            r.MaxEvents,
		RateLimit:            r.RateLimit,
		RateWindow:           r.RateWindow,
		AuthFailureThreshold: r.AuthFailureThreshold,
	}
	for _, cr := range c.CustomReports {
		opts.Custom = append(opts.Custom, cr.Spec())
	}
	return opts
}

// Spec converts the entry into an aggregate.CustomSpec.
func (cr CustomReportConfig) Spec() aggregate.CustomSpec {
	return aggregate.CustomSpec{
		Name:   cr.Name,
		Title:  cr.Title,
		Key:    cr.Key,
		Where:  cr.Where,
		Metric: cr.Metric,
		Limit:  cr.Limit,
	}
}

// RunDate renders t with date_format; it names the report directory of a run.
// RunDate 使用 date_format 格式化 t，作为本次运行的报告目录名。
func (c *GlobalConfig) RunDate(t time.Time) string {
	pattern := c.DateFormat
	if pattern == "" {
		pattern = DefaultDateFormat
	}
	return logengine.FormatDate(t, pattern)
}
