//go:build !unix && !windows

package regst

import "errors"

func mmapAnon(int) ([]byte, error) {
	return nil, errors.New("anonymous mappings are not supported on this platform")
}

func munmapAnon([]byte) error { return nil }
