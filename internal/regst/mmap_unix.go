//go:build unix

package regst

import "golang.org/x/sys/unix"

// mmapAnon maps n bytes of private anonymous memory (Unix implementation).
func mmapAnon(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// munmapAnon unmaps memory returned by mmapAnon (Unix implementation).
func munmapAnon(mem []byte) error {
	return unix.Munmap(mem)
}
