//go:build !unix && !windows

package install

func isCrossDevice(error) bool { return false }
