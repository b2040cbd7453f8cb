//go:build windows

package install

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// removeStaging removes a staging directory if possible.
//
// On Windows, antivirus/indexers can briefly hold handles on freshly
// extracted files; we retry for a short period and fall back to scheduling
// deletion of the (then empty) directory at next reboot.
func removeStaging(dir string) error {
	if dir == "" {
		return nil
	}

	tryRemove := func() error {
		err := os.RemoveAll(dir)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var lastErr error
	for i := 0; i < 15; i++ {
		if lastErr = tryRemove(); lastErr == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return lastErr
	}
	if err := windows.MoveFileEx(p, nil, windows.MOVEFILE_DELAY_UNTIL_REBOOT); err != nil {
		return lastErr
	}
	return nil
}
