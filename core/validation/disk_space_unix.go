//go:build !windows

package validation

import "golang.org/x/sys/unix"

func getDiskSpace(path string) (total, free int64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := int64(st.Bsize)
	// Bavail counts blocks usable without root, which is what a download gets.
	return int64(st.Blocks) * bsize, int64(st.Bavail) * bsize, nil
}
