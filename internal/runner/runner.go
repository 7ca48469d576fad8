// Package runner drives one reporting run: it reads every project's logs,
// aggregates them and writes the reports.
// Package runner 负责一次报表运行：读取各项目日志、聚合并输出报表。
package runner

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/netxfw/gunlog/internal/analysis"
	"github.com/netxfw/gunlog/internal/config"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/metrics"
	"github.com/netxfw/gunlog/internal/project"
	"github.com/netxfw/gunlog/internal/report"
	"github.com/netxfw/gunlog/internal/utils/logger"
	"github.com/netxfw/gunlog/pkg/errors"
)

// Status is the outcome of one project.
// Status 为单个项目的运行结果。
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusEmpty   Status = "empty"   // no requested report reads the project's logs
	StatusSkipped Status = "skipped" // the run was canceled before the project started
)

// Options tune a run beyond the configuration file.
// Options 为配置文件之外的运行参数。
type Options struct {
	// Types overrides reports.types when not empty.
	Types []string
	// Projects restricts the run to the named projects.
	Projects []string
	// Now is the clock for the run date and report stamps; time.Now when nil.
	Now func() time.Time
}

// ProjectResult describes one processed project.
// ProjectResult 描述单个项目的处理结果。
type ProjectResult struct {
	Project  string
	Status   Status
	Err      error
	Duration time.Duration
	Lines    int64
	Records  int64
	Failures int64
	Reports  []string
	Dir      string
}

// RunReport is the outcome of a run, with projects in CSV order.
// RunReport 为一次运行的结果，项目按 CSV 顺序排列。
type RunReport struct {
	Date     string
	Types    []analysis.ReportType
	Started  time.Time
	Duration time.Duration
	Projects []ProjectResult
}

// Count returns the number of projects with the given status.
func (r *RunReport) Count(s Status) int {
	n := 0
	for _, p := range r.Projects {
		if p.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any project failed.
func (r *RunReport) Failed() bool {
	return r.Count(StatusFailed) > 0
}

type parsers struct {
	access *logengine.Parser
	errlog *logengine.Parser
}

type runner struct {
	cfg     *config.GlobalConfig
	catalog *analysis.Catalog
	types   []analysis.ReportType
	writer  *report.Writer
	reader  *logengine.Reader
	date    string
}

// Run processes every project of cfg.ProjectsCSV with up to cfg.Workers
// projects in parallel. Configuration errors abort the run before any project
// starts; a project whose logs cannot be read fails alone. Canceling ctx stops
// new projects from starting while those in flight finish.
// Run 处理 cfg.ProjectsCSV 中的全部项目，最多 cfg.Workers 个并行。
// 配置错误会在任何项目开始前终止运行；日志不可读只会使该项目失败。
// 取消 ctx 后不再启动新项目，进行中的项目会完成。
func Run(ctx context.Context, cfg *config.GlobalConfig, opts Options) (*RunReport, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := logger.Get(ctx)
	started := opts.Now()

	projects, err := project.Load(ctx, cfg.ProjectsCSV)
	if err != nil {
		return nil, err
	}
	projects, err = selectProjects(projects, opts.Projects)
	if err != nil {
		return nil, err
	}

	catalog, err := analysis.NewCatalog(cfg.AnalysisOptions())
	if err != nil {
		return nil, err
	}
	names := cfg.Reports.Types
	if len(opts.Types) > 0 {
		names = opts.Types
	}
	types, err := catalog.Resolve(names)
	if err != nil {
		return nil, err
	}

	writer, err := report.NewWriter(report.Options{
		OutputDir: cfg.OutputDir,
		HTML:      cfg.Reports.HTML,
		Text:      cfg.Reports.Text,
		Now:       opts.Now,
	})
	if err != nil {
		return nil, err
	}

	// Format overrides are validated before any project starts.
	prepared := make([]parsers, len(projects))
	for i, p := range projects {
		if prepared[i], err = newParsers(cfg, p); err != nil {
			return nil, fmt.Errorf("project %s: %w", p.Name, err)
		}
	}

	r := &runner{
		cfg:     cfg,
		catalog: catalog,
		types:   types,
		writer:  writer,
		reader:  logengine.NewReader(),
		date:    cfg.RunDate(started),
	}
	rep := &RunReport{Date: r.date, Types: types, Started: started}
	rep.Projects = make([]ProjectResult, len(projects))

	workers := min(max(cfg.Workers, 1), max(len(projects), 1))
	log.Infow("Starting run", "projects", len(projects), "reports", len(types), "workers", workers, "date", r.date)

	// In-flight projects run on a context that outlives cancellation.
	workCtx := context.WithoutCancel(ctx)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rep.Projects[i] = r.runProject(workCtx, projects[i], prepared[i])
			}
		}()
	}

	next := 0
schedule:
	for ; next < len(projects); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break schedule
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(projects); i++ {
		rep.Projects[i] = ProjectResult{Project: projects[i].Name, Status: StatusSkipped, Err: errors.ErrCanceled}
	}

	if err := writer.WriteDashboard(dashboardEntries(rep)); err != nil {
		log.Errorw("Failed to write dashboard", "error", err)
	}

	finished := opts.Now()
	rep.Duration = finished.Sub(started)
	metrics.ObserveRun(rep.Count(StatusOK)+rep.Count(StatusEmpty), rep.Count(StatusFailed), finished, rep.Duration)
	if cfg.Metrics.Enabled {
		if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.Warnw("[WARN]  Failed to write metrics textfile", "path", cfg.Metrics.TextfilePath, "error", err)
		}
	}

	log.Infow("Run finished",
		"ok", rep.Count(StatusOK), "failed", rep.Count(StatusFailed),
		"empty", rep.Count(StatusEmpty), "skipped", rep.Count(StatusSkipped),
		"duration", rep.Duration)

	if next < len(projects) {
		return rep, fmt.Errorf("%w: %d projects not started: %w", errors.ErrCanceled, len(projects)-next, ctx.Err())
	}
	return rep, nil
}

// selectProjects keeps the named projects in CSV order. An unknown name is a
// configuration error.
func selectProjects(all []project.Project, names []string) ([]project.Project, error) {
	if len(names) == 0 {
		return all, nil
	}
	for _, n := range names {
		if !slices.ContainsFunc(all, func(p project.Project) bool { return p.Name == n }) {
			return nil, errors.NewConfigError("project", n)
		}
	}
	var out []project.Project
	for _, p := range all {
		if slices.Contains(names, p.Name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func newParsers(cfg *config.GlobalConfig, p project.Project) (parsers, error) {
	var pp parsers
	var err error
	if pp.access, err = logengine.NewParser(cfg.AccessParserOptions(p.Format)); err != nil {
		return pp, err
	}
	if pp.errlog, err = logengine.NewParser(cfg.ErrorParserOptions(p.ErrorFormat)); err != nil {
		return pp, err
	}
	return pp, nil
}

// runProject runs the access and error passes of one project and writes its reports.
// runProject 对单个项目执行访问日志与错误日志遍历并输出报表。
func (r *runner) runProject(ctx context.Context, p project.Project, pp parsers) (res ProjectResult) {
	ctx, log := logger.With(ctx, "project", p.Name)
	start := time.Now()
	res.Project = p.Name
	defer func() {
		res.Duration = time.Since(start)
		metrics.ObserveProject(p.Name, res.Status != StatusFailed, res.Duration)
	}()

	classifier := logengine.NewClassifier(r.cfg.ClassifierOptions())
	inputs := []struct {
		kind   logengine.Kind
		path   string
		parser *logengine.Parser
	}{
		{logengine.KindAccess, p.LogFile, pp.access},
		{logengine.KindError, p.ErrorLogFile, pp.errlog},
	}

	var summaries []*analysis.Summary
	for _, in := range inputs {
		pass := r.catalog.NewPass(in.kind, r.types)
		if pass.Empty() || in.path == "" {
			continue
		}
		if err := r.readPass(ctx, p.Name, pass, in.path, in.parser, classifier, &res); err != nil {
			log.Errorw("Project failed", "file", in.path, "kind", in.kind.String(), "error", err)
			res.Status = StatusFailed
			res.Err = fmt.Errorf("%s log: %w", in.kind, err)
			return res
		}
		summaries = append(summaries, pass.Summaries(p.Name, r.date)...)
	}

	if len(summaries) == 0 {
		log.Warnw("[WARN]  No requested report reads the logs of this project, skipping")
		res.Status = StatusEmpty
		return res
	}
	slices.SortStableFunc(summaries, func(a, b *analysis.Summary) int {
		return slices.Index(r.types, a.Type) - slices.Index(r.types, b.Type)
	})

	written, err := r.writer.WriteProject(p.Name, r.date, summaries)
	if err != nil {
		log.Errorw("Failed to write reports", "error", err)
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	formats := 0
	if r.cfg.Reports.HTML {
		formats++
	}
	if r.cfg.Reports.Text {
		formats++
	}
	for _, s := range summaries {
		metrics.ReportsWrittenTotal.WithLabelValues(p.Name, string(s.Type)).Add(float64(formats))
	}

	res.Status = StatusOK
	res.Dir = written.Dir
	res.Reports = written.Files
	log.Infow("[OK] Reports written", "dir", written.Dir, "files", len(written.Files), "records", res.Records, "failures", res.Failures)
	return res
}

// readPass streams one log path through the parser and classifier into pass.
func (r *runner) readPass(ctx context.Context, name string, pass *analysis.Pass, path string,
	parser *logengine.Parser, classifier *logengine.Classifier, res *ProjectResult) error {
	stats, err := r.reader.Read(ctx, path, func(line logengine.RawLine) {
		parsed, fail := parser.Parse(line)
		if fail != nil {
			pass.AddFailure(fail)
			return
		}
		rec := classifier.Classify(parsed)
		pass.Add(&rec)
	})
	kind := pass.Kind.String()
	res.Lines += stats.Lines
	metrics.LinesTotal.WithLabelValues(name, kind).Add(float64(stats.Lines))
	if err != nil {
		return err
	}

	result := pass.Result()
	res.Records += result.Records
	if f := result.Failures; f != nil {
		res.Failures += f.Total
		for reason, n := range f.ByReason {
			metrics.ParseFailuresTotal.WithLabelValues(name, kind, reason).Add(float64(n))
		}
	}
	return nil
}

func dashboardEntries(rep *RunReport) []report.ProjectEntry {
	var entries []report.ProjectEntry
	for _, p := range rep.Projects {
		entries = append(entries, report.ProjectEntry{
			Name:     p.Project,
			Status:   string(p.Status),
			Records:  p.Records,
			Failures: p.Failures,
		})
	}
	return entries
}
