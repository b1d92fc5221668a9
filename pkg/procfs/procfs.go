// Package procfs is a thin line-source over the per-process accounting
// tree. The root is configurable so tests can point it at a synthetic
// fixture instead of the live /proc.
package procfs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jyeno/coremem/pkg/types"
)

// Tree addresses per-process files below a proc root.
type Tree struct {
	root string
}

// New returns a Tree rooted at root, or at the conventional location when
// root is empty.
func New(root string) Tree {
	if root == "" {
		root = types.DefaultProcRoot
	}
	return Tree{root: root}
}

// Root reports the directory this tree reads from.
func (t Tree) Root() string { return t.root }

// Path joins the root, the PID directory, and any trailing elements.
func (t Tree) Path(pid int, elem ...string) string {
	parts := append([]string{t.root, strconv.Itoa(pid)}, elem...)
	return filepath.Join(parts...)
}

// PIDs enumerates every numeric directory entry under the root. Non-numeric
// entries are not processes and are ignored.
func (t Tree) PIDs() ([]int, error) {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.root, err)
	}
	pids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Open opens one accounting file for a PID. The caller owns the close.
func (t Tree) Open(pid int, name string) (*os.File, error) {
	f, err := os.Open(t.Path(pid, name))
	if err != nil {
		return nil, Classify(err)
	}
	return f, nil
}

// ReadFile slurps one accounting file for a PID.
func (t Tree) ReadFile(pid int, name string) ([]byte, error) {
	data, err := os.ReadFile(t.Path(pid, name))
	if err != nil {
		return nil, Classify(err)
	}
	return data, nil
}

// Cmdline returns the NUL-separated argument vector with the trailing
// terminator stripped. An empty result means a kernel thread or a process
// that exited mid-read.
func (t Tree) Cmdline(pid int) ([]string, error) {
	data, err := t.ReadFile(pid, "cmdline")
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSuffix(data, []byte{0})
	if len(data) == 0 {
		return nil, nil
	}
	parts := bytes.Split(data, []byte{0})
	args := make([]string, len(parts))
	for i, part := range parts {
		args[i] = string(part)
	}
	return args, nil
}

// Comm returns the kernel's short task name, caching per tick so repeated
// lookups for the same PID hit the map rather than the filesystem.
func (t Tree) Comm(pid int, cache map[int]string) string {
	if name, ok := cache[pid]; ok {
		return name
	}
	name := fmt.Sprintf("pid-%d", pid)
	if data, err := t.ReadFile(pid, "comm"); err == nil {
		if comm := strings.TrimSpace(string(data)); comm != "" {
			name = comm
		}
	}
	cache[pid] = name
	return name
}

// Classify maps raw filesystem failures onto the sampling taxonomy: a file
// that disappeared means the process did, an EACCES means we may not read
// it. Anything else stays as-is and is treated as fatal upstream.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %v", types.ErrVanished, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", types.ErrDenied, err)
	default:
		return err
	}
}
