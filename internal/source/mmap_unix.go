//go:build unix

package source

import (
	"io/fs"
	"math"
	"os"
	"syscall"
)

// mapFile maps a regular file privately and read-only. The descriptor is
// closed as soon as the mapping exists; the pages stay valid until release.
// Empty and non-regular files (pipes, devices) are read into memory instead.
func mapFile(path string) (*mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !stat.Mode().IsRegular() || stat.Size() == 0 {
		return readFile(f)
	}
	if stat.Size() > math.MaxInt {
		return nil, &fs.PathError{Op: "mmap", Path: path, Err: syscall.EFBIG}
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_PRIVATE)
	if err != nil {
		return nil, &fs.PathError{Op: "mmap", Path: path, Err: err}
	}
	return &mapping{data: data, unmap: func() error { return syscall.Munmap(data) }}, nil
}
