package logengine

import (
	"context"
	"io/fs"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nxadm/tail"

	"github.com/netxfw/gunlog/internal/utils/fileutil"
	"github.com/netxfw/gunlog/internal/utils/logger"
	"github.com/netxfw/gunlog/pkg/errors"
)

// ReadStats summarizes one Read call.
// ReadStats 汇总一次读取的统计信息。
type ReadStats struct {
	Files []string
	Lines int64 // non-blank lines handed to the callback
	Blank int64
}

// Reader streams the lines of static log files in a single pass.
// Reader 以单次遍历方式读取静态日志文件。
type Reader struct{}

// NewReader creates a new Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Expand resolves a path or doublestar glob (e.g. /var/log/**/access*.log)
// into files in lexical order. A glob matching nothing is a file-not-found error.
// Expand 将路径或 doublestar 通配符展开为按字典序排列的文件列表。
func Expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, errors.NewFileError(pattern, err)
	}
	if len(matches) == 0 {
		return nil, errors.NewFileError(pattern, fs.ErrNotExist)
	}
	slices.Sort(matches)
	return matches, nil
}

// Read expands pattern and feeds every non-blank line of every matching file
// to fn, as one logical stream. It stops at the first unreadable file.
// Read 展开 pattern 并将所有匹配文件的非空行依次交给 fn。
func (r *Reader) Read(ctx context.Context, pattern string, fn func(RawLine)) (ReadStats, error) {
	var stats ReadStats
	files, err := Expand(pattern)
	if err != nil {
		return stats, err
	}
	for _, file := range files {
		lines, blank, err := r.ReadFile(ctx, file, fn)
		stats.Lines += lines
		stats.Blank += blank
		if err != nil {
			return stats, err
		}
		stats.Files = append(stats.Files, file)
	}
	return stats, nil
}

// ReadFile feeds every non-blank line of path to fn. Line numbers are 1-based
// and count blank lines. Invalid UTF-8 is replaced, never rejected.
// ReadFile 将 path 的所有非空行交给 fn，行号从 1 开始。
func (r *Reader) ReadFile(ctx context.Context, path string, fn func(RawLine)) (lines, blank int64, err error) {
	if err := fileutil.CheckReadable(path); err != nil {
		return 0, 0, errors.NewFileError(path, err)
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		ReOpen:    false,
		MustExist: true,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return 0, 0, errors.NewFileError(path, err)
	}

	log := logger.Get(ctx)
	log.Debugw("Reading log file", "file", path)

	number := 0
	for {
		if ctx.Err() != nil {
			stopTail(t)
			return lines, blank, ctx.Err()
		}
		select {
		case <-ctx.Done():
			stopTail(t)
			return lines, blank, ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Wait(); err != nil {
					return lines, blank, errors.NewFileError(path, err)
				}
				log.Debugw("Finished log file", "file", path, "lines", lines, "blank", blank)
				return lines, blank, nil
			}
			number++
			if line.Err != nil {
				log.Warnw("Error reading line", "file", path, "line", number, "error", line.Err)
				lines++
				fn(RawLine{Text: line.Text, Source: path, Number: number, Err: line.Err})
				continue
			}
			text := strings.TrimRight(line.Text, "\r")
			if strings.TrimSpace(text) == "" {
				blank++
				continue
			}
			lines++
			fn(RawLine{
				Text:   strings.ToValidUTF8(text, "�"),
				Source: path,
				Number: number,
			})
		}
	}
}

// stopTail kills the tail goroutine and drains any line it is blocked sending.
func stopTail(t *tail.Tail) {
	t.Kill(nil)
	go func() {
		for range t.Lines {
		}
	}()
	_ = t.Wait()
}
