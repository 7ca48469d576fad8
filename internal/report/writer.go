package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/netxfw/gunlog/internal/analysis"
	"github.com/netxfw/gunlog/internal/utils/fileutil"
	"github.com/netxfw/gunlog/internal/utils/fmtutil"
	"github.com/netxfw/gunlog/pkg/errors"
)

const (
	indexFile = "index.html"
	filePerm  = 0644
)

// ProjectDir turns a project name into its directory name: dots become
// underscores and path separators are not allowed through.
// ProjectDir 将项目名转换为目录名：点替换为下划线，并去除路径分隔符。
func ProjectDir(project string) string {
	r := strings.NewReplacer(".", "_", "/", "_", `\`, "_")
	return r.Replace(strings.TrimSpace(project))
}

// FileName is the report file name for a type, date and extension ("html" or "txt").
// FileName 返回报表文件名，ext 为 "html" 或 "txt"。
func FileName(t analysis.ReportType, date, ext string) string {
	return fmt.Sprintf("%s_%s.%s", t.FileStem(), date, ext)
}

// Options configures a Writer.
// Options 为 Writer 的配置。
type Options struct {
	OutputDir string
	HTML      bool
	Text      bool
	// Now stamps the generated pages; time.Now when nil.
	Now func() time.Time
}

// Writer lays reports out under OutputDir:
//
//	<output_dir>/index.html                                  dashboard
//	<output_dir>/<project>/index.html                        dates of a project
//	<output_dir>/<project>/<type>_report_<date>.{html,txt}   latest copies
//	<output_dir>/<project>/<date>/index.html                 reports of a date
//	<output_dir>/<project>/<date>/<type>_report_<date>.{html,txt}
//
// Writer 按上述目录结构输出报表。
type Writer struct {
	opts Options
}

// NewWriter creates a Writer. At least one output format must be enabled.
// NewWriter 创建 Writer，至少需要启用一种输出格式。
func NewWriter(opts Options) (*Writer, error) {
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, errors.NewConfigError("output_dir", opts.OutputDir)
	}
	if !opts.HTML && !opts.Text {
		return nil, errors.NewConfigError("reports.html", false)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Writer{opts: opts}, nil
}

// Written lists the files produced for one project and date.
type Written struct {
	Dir   string
	Files []string
}

type reportLink struct {
	Title    string
	HTML     string
	Text     string
	Headline string
	Records  string
	Failures string
}

// WriteProject renders every summary of one project run, copies the reports
// into the project directory and refreshes the date and project indexes.
// All summaries must share a project and date.
// WriteProject 输出某项目一次运行的全部报表，复制到项目目录并刷新日期与项目索引。
func (w *Writer) WriteProject(project, date string, summaries []*analysis.Summary) (*Written, error) {
	now := w.opts.Now()
	projectDir := filepath.Join(w.opts.OutputDir, ProjectDir(project))
	dateDir := filepath.Join(projectDir, date)
	out := &Written{Dir: dateDir}

	var links []reportLink
	for _, s := range summaries {
		link := reportLink{
			Title:    s.Title,
			Headline: headline(s),
			Records:  fmtutil.FormatNumberWithComma(s.Records),
			Failures: "0",
		}
		if s.Failures != nil {
			link.Failures = fmtutil.FormatNumberWithComma(s.Failures.Total)
		}

		if w.opts.HTML {
			name := FileName(s.Type, date, "html")
			var buf bytes.Buffer
			if err := RenderHTML(&buf, s, now); err != nil {
				return out, fmt.Errorf("render %s: %w", name, err)
			}
			if err := w.publish(projectDir, dateDir, name, buf.Bytes()); err != nil {
				return out, err
			}
			link.HTML = name
			out.Files = append(out.Files, filepath.Join(dateDir, name))
		}
		if w.opts.Text {
			name := FileName(s.Type, date, "txt")
			var buf bytes.Buffer
			if err := RenderText(&buf, s, now); err != nil {
				return out, fmt.Errorf("render %s: %w", name, err)
			}
			if err := w.publish(projectDir, dateDir, name, buf.Bytes()); err != nil {
				return out, err
			}
			link.Text = name
			if link.HTML == "" {
				link.HTML = name
			}
			out.Files = append(out.Files, filepath.Join(dateDir, name))
		}
		links = append(links, link)
	}

	if err := w.writeDateIndex(dateDir, project, date, links, now); err != nil {
		return out, err
	}
	if err := w.writeProjectIndex(projectDir, project, now); err != nil {
		return out, err
	}
	return out, nil
}

// publish writes a report into the date directory and copies it to the project directory.
func (w *Writer) publish(projectDir, dateDir, name string, data []byte) error {
	path := filepath.Join(dateDir, name)
	if err := fileutil.AtomicWriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := fileutil.CopyFile(path, filepath.Join(projectDir, name), filePerm); err != nil {
		return fmt.Errorf("copy report %s: %w", name, err)
	}
	return nil
}

func headline(s *analysis.Summary) string {
	if len(s.Stats) == 0 {
		return ""
	}
	return s.Stats[0].Name + ": " + s.Stats[0].Value
}

func (w *Writer) writeDateIndex(dateDir, project, date string, links []reportLink, now time.Time) error {
	var buf bytes.Buffer
	err := dateIndexTemplate.Execute(&buf, struct {
		Project, Date, Generated string
		Reports                  []reportLink
	}{project, date, now.Format(time.DateTime), links})
	if err != nil {
		return fmt.Errorf("render date index: %w", err)
	}
	return fileutil.AtomicWriteFile(filepath.Join(dateDir, indexFile), buf.Bytes(), filePerm)
}

// reportDates lists the date directories of a project that hold an index, newest first.
func reportDates(projectDir string) []string {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil
	}
	var dates []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(projectDir, e.Name(), indexFile)); err == nil {
			dates = append(dates, e.Name())
		}
	}
	slices.Sort(dates)
	slices.Reverse(dates)
	return dates
}

// latestCopies lists the report copies kept in the project directory.
func latestCopies(projectDir string) []string {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.Contains(name, "_report_") && strings.HasSuffix(name, ".html") {
			files = append(files, name)
		}
	}
	slices.Sort(files)
	return files
}

func (w *Writer) writeProjectIndex(projectDir, project string, now time.Time) error {
	var buf bytes.Buffer
	err := projectIndexTemplate.Execute(&buf, struct {
		Project, Generated string
		Latest, Dates      []string
	}{project, now.Format(time.DateTime), latestCopies(projectDir), reportDates(projectDir)})
	if err != nil {
		return fmt.Errorf("render project index: %w", err)
	}
	return fileutil.AtomicWriteFile(filepath.Join(projectDir, indexFile), buf.Bytes(), filePerm)
}

// ProjectEntry is one dashboard row. Status, Records and Failures describe the
// current run and are empty for projects only found on disk.
// ProjectEntry 为仪表盘中的一行；Status、Records、Failures 描述本次运行。
type ProjectEntry struct {
	Name     string
	Status   string
	Records  int64
	Failures int64
}

type dashboardRow struct {
	Name     string
	Dir      string
	Latest   string
	Dates    int
	Status   string
	Records  string
	Failures string
}

// WriteDashboard refreshes the root index. Projects of the current run come
// first in the given order, followed by every other project directory found
// under OutputDir.
// WriteDashboard 刷新根目录索引：先列出本次运行的项目，再列出输出目录中的其他项目。
func (w *Writer) WriteDashboard(entries []ProjectEntry) error {
	seen := make(map[string]bool)
	var rows []dashboardRow
	add := func(e ProjectEntry, counted bool) {
		dir := ProjectDir(e.Name)
		if seen[dir] {
			return
		}
		seen[dir] = true
		dates := reportDates(filepath.Join(w.opts.OutputDir, dir))
		row := dashboardRow{Name: e.Name, Dir: dir, Dates: len(dates), Status: e.Status, Records: "-", Failures: "-"}
		if len(dates) > 0 {
			row.Latest = dates[0]
		}
		if counted {
			row.Records = fmtutil.FormatNumberWithComma(e.Records)
			row.Failures = fmtutil.FormatNumberWithComma(e.Failures)
		}
		rows = append(rows, row)
	}
	for _, e := range entries {
		add(e, true)
	}

	dirs, err := os.ReadDir(w.opts.OutputDir)
	if err != nil && !os.IsNotExist(err) {
		return errors.NewFileError(w.opts.OutputDir, err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(w.opts.OutputDir, d.Name(), indexFile)); err == nil {
			add(ProjectEntry{Name: d.Name()}, false)
		}
	}

	var buf bytes.Buffer
	err = dashboardTemplate.Execute(&buf, struct {
		Generated string
		Projects  []dashboardRow
	}{w.opts.Now().Format(time.DateTime), rows})
	if err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return fileutil.AtomicWriteFile(filepath.Join(w.opts.OutputDir, indexFile), buf.Bytes(), filePerm)
}
