//go:build !windows

package install

import (
	"errors"
	"os"
)

// removeStaging removes a staging directory if possible.
func removeStaging(dir string) error {
	if dir == "" {
		return nil
	}
	err := os.RemoveAll(dir)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
