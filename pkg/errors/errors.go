package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error taxonomy for a run. Malformed lines are recoverable, unreadable files
// fail one project, invalid configuration fails the whole run.
// 运行期错误分类：格式错误的行可恢复，不可读文件仅影响单个项目，无效配置终止整个运行。
var (
	ErrMalformedLine        = errors.New("malformed log line")
	ErrUnreadableFile       = errors.New("unreadable file")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrFileNotFound         = errors.New("file not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrUnknownReport        = errors.New("unknown report type")
	ErrUnknownFormat        = errors.New("unknown log format")
	ErrCanceled             = errors.New("operation canceled")
)

// NewFileError wraps an I/O failure on path as ErrUnreadableFile.
// Not-exist and permission causes are additionally tagged so callers can use errors.Is.
// NewFileError 将 path 上的 I/O 失败包装为 ErrUnreadableFile。
func NewFileError(path string, reason error) error {
	switch {
	case errors.Is(reason, fs.ErrNotExist):
		return fmt.Errorf("%w: %w: %s", ErrUnreadableFile, ErrFileNotFound, path)
	case errors.Is(reason, fs.ErrPermission):
		return fmt.Errorf("%w: %w: %s", ErrUnreadableFile, ErrPermissionDenied, path)
	default:
		return fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, reason)
	}
}

// NewConfigError reports an invalid configuration value.
// NewConfigError 报告无效的配置值。
func NewConfigError(field string, value interface{}) error {
	return fmt.Errorf("%w: field=%s value=%v", ErrInvalidConfiguration, field, value)
}

// NewReportError reports an unknown report type; it is a configuration error.
// NewReportError 报告未知的报告类型（属于配置错误）。
func NewReportError(name string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidConfiguration, ErrUnknownReport, name)
}

// NewFormatError reports an unknown log format; it is a configuration error.
// NewFormatError 报告未知的日志格式（属于配置错误）。
func NewFormatError(name string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidConfiguration, ErrUnknownFormat, name)
}

// IsFatalForRun reports whether err must abort the whole run.
// IsFatalForRun 判断错误是否需要终止整个运行。
func IsFatalForRun(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
