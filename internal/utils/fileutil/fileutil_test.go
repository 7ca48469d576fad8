package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAtomicWriteFile tests atomic writes into a missing directory
// TestAtomicWriteFile 测试向不存在的目录原子写入
func TestAtomicWriteFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "example_com", "20250410", "ip_report_20250410.html")

	require.NoError(t, AtomicWriteFile(target, []byte("<html></html>"), 0644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be renamed away")
}

// TestCopyFile tests copying a report file
// TestCopyFile 测试复制报告文件
func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "copy", "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("report"), 0644))

	require.NoError(t, CopyFile(src, dst, 0644))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "report", string(data))

	err = CopyFile(filepath.Join(dir, "missing.txt"), dst, 0644)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

// TestCheckReadable tests readability checks
// TestCheckReadable 测试可读性检查
func TestCheckReadable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "access.log")
	require.NoError(t, os.WriteFile(file, []byte("x\n"), 0644))

	assert.NoError(t, CheckReadable(file))
	assert.True(t, errors.Is(CheckReadable(filepath.Join(dir, "nope.log")), fs.ErrNotExist))
	assert.Error(t, CheckReadable(dir))
}
