//go:build windows

package validation

import "golang.org/x/sys/windows"

func getDiskSpace(path string) (total, free int64, err error) {
	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, err
	}
	var callerFree, totalBytes, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &callerFree, &totalBytes, &totalFree); err != nil {
		return 0, 0, err
	}
	return int64(totalBytes), int64(callerFree), nil
}
