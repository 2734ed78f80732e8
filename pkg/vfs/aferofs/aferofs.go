// Package aferofs adapts a vfs.FileSystem to afero.Fs so Go hosts can
// mount the virtual tree without a platform filesystem driver.
package aferofs

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"mcrawfs/pkg/vfs"

	"github.com/spf13/afero"
)

// ErrReadFailed an asynchronous frame read reported a failure.
var ErrReadFailed = errors.New("read failed")

// Fs is a read-only afero file system over a virtual directory.
type Fs struct {
	vfs *vfs.FileSystem
}

// New wraps a file system.
func New(v *vfs.FileSystem) *Fs {
	return &Fs{vfs: v}
}

// Name implements afero.Fs.
func (*Fs) Name() string { return "mcrawfs" }

func isRoot(name string) bool {
	return name == "" || name == "." || name == "/"
}

// Open implements afero.Fs.
func (f *Fs) Open(name string) (afero.File, error) {
	if isRoot(name) {
		return &file{fs: f, isDir: true}, nil
	}

	entry, exist := f.vfs.Find(name)
	if !exist {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return &file{fs: f, entry: entry}, nil
}

// OpenFile implements afero.Fs. Any write intent is rejected.
func (f *Fs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC
	if flag&writeFlags != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: syscall.EPERM}
	}
	return f.Open(name)
}

// Stat implements afero.Fs.
func (f *Fs) Stat(name string) (os.FileInfo, error) {
	if isRoot(name) {
		return &fileInfo{name: "/", isDir: true}, nil
	}

	entry, exist := f.vfs.Find(name)
	if !exist {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return infoOf(entry), nil
}

// The write surface fails wholesale.

// Create implements afero.Fs.
func (*Fs) Create(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "create", Path: name, Err: syscall.EPERM}
}

// Mkdir implements afero.Fs.
func (*Fs) Mkdir(name string, _ os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: name, Err: syscall.EPERM}
}

// MkdirAll implements afero.Fs.
func (*Fs) MkdirAll(name string, _ os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: name, Err: syscall.EPERM}
}

// Remove implements afero.Fs.
func (*Fs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: syscall.EPERM}
}

// RemoveAll implements afero.Fs.
func (*Fs) RemoveAll(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: syscall.EPERM}
}

// Rename implements afero.Fs.
func (*Fs) Rename(oldname, _ string) error {
	return &os.PathError{Op: "rename", Path: oldname, Err: syscall.EPERM}
}

// Chmod implements afero.Fs.
func (*Fs) Chmod(name string, _ os.FileMode) error {
	return &os.PathError{Op: "chmod", Path: name, Err: syscall.EPERM}
}

// Chown implements afero.Fs.
func (*Fs) Chown(name string, _, _ int) error {
	return &os.PathError{Op: "chown", Path: name, Err: syscall.EPERM}
}

// Chtimes implements afero.Fs.
func (*Fs) Chtimes(name string, _, _ time.Time) error {
	return &os.PathError{Op: "chtimes", Path: name, Err: syscall.EPERM}
}

// file is a handle on one entry, or on the root directory.
type file struct {
	fs    *Fs
	entry vfs.Entry
	isDir bool

	pos    int64
	dirPos int
	closed bool
}

// Name implements afero.File.
func (f *file) Name() string {
	if f.isDir {
		return "/"
	}
	return f.entry.Name
}

// Read implements afero.File. Image entries block until the renderer
// delivers the range.
func (f *file) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

// ReadAt implements afero.File.
func (f *file) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, afero.ErrFileClosed
	}
	if f.isDir {
		return 0, &os.PathError{Op: "read", Path: "/", Err: syscall.EISDIR}
	}
	if off < 0 {
		return 0, &os.PathError{Op: "read", Path: f.entry.Name, Err: os.ErrInvalid}
	}
	if off >= int64(f.entry.Size) {
		return 0, io.EOF
	}

	type outcome struct{ n, status int }
	done := make(chan outcome, 1)

	n := f.fs.vfs.Read(f.entry, f.fs.vfs.Options(), uint64(off), p,
		func(n, status int) { done <- outcome{n, status} })
	if n > 0 {
		return n, nil
	}
	if !f.entry.HasFrame {
		// Synchronous entry, zero bytes means end of file.
		return 0, io.EOF
	}

	out := <-done
	if out.status != 0 {
		return 0, &os.PathError{Op: "read", Path: f.entry.Name, Err: ErrReadFailed}
	}
	if out.n == 0 {
		return 0, io.EOF
	}
	return out.n, nil
}

// Seek implements afero.File.
func (f *file) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, afero.ErrFileClosed
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.pos + offset
	case io.SeekEnd:
		abs = int64(f.entry.Size) + offset
	default:
		return 0, os.ErrInvalid
	}
	if abs < 0 {
		return 0, os.ErrInvalid
	}
	f.pos = abs
	return abs, nil
}

// Readdir implements afero.File.
func (f *file) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDir {
		return nil, &os.PathError{Op: "readdir", Path: f.entry.Name, Err: syscall.ENOTDIR}
	}

	entries := f.fs.vfs.List("")
	if f.dirPos >= len(entries) {
		if count > 0 {
			return nil, io.EOF
		}
		return nil, nil
	}
	entries = entries[f.dirPos:]

	if count > 0 && count < len(entries) {
		entries = entries[:count]
	}
	f.dirPos += len(entries)

	infos := make([]os.FileInfo, len(entries))
	for i, e := range entries {
		infos[i] = infoOf(e)
	}
	return infos, nil
}

// Readdirnames implements afero.File.
func (f *file) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// Stat implements afero.File.
func (f *file) Stat() (os.FileInfo, error) {
	if f.isDir {
		return &fileInfo{name: "/", isDir: true}, nil
	}
	return infoOf(f.entry), nil
}

// Sync implements afero.File.
func (*file) Sync() error { return nil }

// Close implements afero.File.
func (f *file) Close() error {
	f.closed = true
	return nil
}

// Write implements afero.File.
func (f *file) Write([]byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.Name(), Err: syscall.EPERM}
}

// WriteAt implements afero.File.
func (f *file) WriteAt([]byte, int64) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.Name(), Err: syscall.EPERM}
}

// WriteString implements afero.File.
func (f *file) WriteString(string) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.Name(), Err: syscall.EPERM}
}

// Truncate implements afero.File.
func (f *file) Truncate(int64) error {
	return &os.PathError{Op: "truncate", Path: f.Name(), Err: syscall.EPERM}
}

type fileInfo struct {
	name  string
	size  int64
	isDir bool
}

func infoOf(e vfs.Entry) *fileInfo {
	return &fileInfo{
		name:  e.Name,
		size:  int64(e.Size),
		isDir: e.Kind == vfs.EntryDir,
	}
}

// Name implements os.FileInfo.
func (i *fileInfo) Name() string { return i.name }

// Size implements os.FileInfo.
func (i *fileInfo) Size() int64 { return i.size }

// Mode implements os.FileInfo.
func (i *fileInfo) Mode() os.FileMode {
	if i.isDir {
		return os.ModeDir | 0o555
	}
	return 0o444
}

// ModTime implements os.FileInfo.
func (*fileInfo) ModTime() time.Time { return time.Time{} }

// IsDir implements os.FileInfo.
func (i *fileInfo) IsDir() bool { return i.isDir }

// Sys implements os.FileInfo.
func (*fileInfo) Sys() interface{} { return nil }
