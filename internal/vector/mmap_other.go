//go:build !unix

package vector

import "os"

// mmapFile falls back to a full read into process memory on platforms
// without a POSIX mmap syscall (e.g. Windows); the resulting slice is
// used identically by the loader either way.
func mmapFile(f *os.File) ([]byte, func() error, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
