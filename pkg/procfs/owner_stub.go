//go:build !linux
// +build !linux

package procfs

import "errors"

var errUnsupported = errors.New("process ownership requires linux")

// OwnerUID is a placeholder on platforms without a proc tree.
func (t Tree) OwnerUID(pid int) (uint32, error) {
	return 0, errUnsupported
}

// CurrentUID always reports root on unsupported platforms.
func CurrentUID() uint32 {
	return 0
}
