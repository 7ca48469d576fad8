// Package project loads the list of sites to analyse.
// Package project 加载待分析站点列表。
package project

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/netxfw/gunlog/internal/utils/logger"
	"github.com/netxfw/gunlog/pkg/errors"
)

// Column names of the project list.
const (
	ColumnProject      = "project"
	ColumnLogFile      = "log_file"
	ColumnErrorLogFile = "error_log_file"
	ColumnFormat       = "format"
	ColumnErrorFormat  = "error_format"
)

// Project is one row of the project list. LogFile and ErrorLogFile may be
// doublestar globs; either may be empty.
// Project 为项目列表中的一行，LogFile 与 ErrorLogFile 可为通配符，可以为空。
type Project struct {
	Name         string
	LogFile      string
	ErrorLogFile string
	Format       string // overrides parser.access_format
	ErrorFormat  string // overrides parser.error_format
	Line         int    // line in the CSV file
}

// Load reads the project list at path.
// Load 读取 path 处的项目列表。
func Load(ctx context.Context, path string) ([]Project, error) {
	safePath := filepath.Clean(path)
	f, err := os.Open(safePath) // #nosec G304 // path comes from the configuration
	if err != nil {
		return nil, fmt.Errorf("%w: projects_csv: %w", errors.ErrInvalidConfiguration, errors.NewFileError(safePath, err))
	}
	defer f.Close()
	return Parse(ctx, f, safePath)
}

// Parse reads a project list. The header must name project, log_file and
// error_log_file in any order; other columns are ignored. Rows without a
// project name or without any log path are skipped with a warning, as are
// repeated project names.
// Parse 读取项目列表。表头须包含 project、log_file、error_log_file（顺序任意），
// 其余列被忽略；缺少项目名或日志路径的行以及重复的项目会被跳过并记录警告。
func Parse(ctx context.Context, r io.Reader, source string) ([]Project, error) {
	log := logger.Get(ctx)

	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: empty project list", errors.ErrInvalidConfiguration, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfiguration, source, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, required := range []string{ColumnProject, ColumnLogFile, ColumnErrorLogFile} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s: missing column %q", errors.ErrInvalidConfiguration, source, required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var projects []Project
	seen := make(map[string]int)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfiguration, source, err)
		}
		line, _ := cr.FieldPos(0)

		p := Project{
			Name:         field(rec, ColumnProject),
			LogFile:      field(rec, ColumnLogFile),
			ErrorLogFile: field(rec, ColumnErrorLogFile),
			Format:       field(rec, ColumnFormat),
			ErrorFormat:  field(rec, ColumnErrorFormat),
			Line:         line,
		}
		switch {
		case p.Name == "" && p.LogFile == "" && p.ErrorLogFile == "":
			continue
		case p.Name == "":
			log.Warnw("[WARN]  Skipping project row without a name", "file", source, "line", line)
			continue
		case p.LogFile == "" && p.ErrorLogFile == "":
			log.Warnw("[WARN]  Skipping project without log files", "file", source, "line", line, "project", p.Name)
			continue
		}
		if first, dup := seen[p.Name]; dup {
			log.Warnw("[WARN]  Skipping repeated project", "file", source, "line", line, "project", p.Name, "first_line", first)
			continue
		}
		seen[p.Name] = line
		projects = append(projects, p)
	}
	return projects, nil
}
