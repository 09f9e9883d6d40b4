//go:build windows

package regst

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmapAnon maps n bytes backed by the paging file (Windows implementation).
func mmapAnon(n int) ([]byte, error) {
	size := uint64(n) //nolint:gosec // G115: n is a positive int
	handle, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		nil,
		windows.PAGE_READWRITE,
		uint32(size>>32),
		uint32(size), //nolint:gosec // G115: low half of size
		nil,
	)
	if err != nil {
		return nil, err
	}
	// The view keeps the mapping alive after the handle is closed.
	defer func() { _ = windows.CloseHandle(handle) }()

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_WRITE, 0, 0, uintptr(n))
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G103: addr is a valid view of n bytes returned by MapViewOfFile
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), nil
}

// munmapAnon unmaps memory returned by mmapAnon (Windows implementation).
func munmapAnon(mem []byte) error {
	return windows.UnmapViewOfFile(uintptr(unsafe.Pointer(unsafe.SliceData(mem))))
}
