//go:build linux
// +build linux

package procfs

import (
	"golang.org/x/sys/unix"
)

// OwnerUID resolves the uid owning a process via the mode bits of its proc
// directory.
func (t Tree) OwnerUID(pid int) (uint32, error) {
	var st unix.Stat_t
	if err := unix.Stat(t.Path(pid), &st); err != nil {
		return 0, Classify(err)
	}
	return st.Uid, nil
}

// CurrentUID is the invoking user, the default subject of an owner filter.
func CurrentUID() uint32 {
	return uint32(unix.Getuid())
}
