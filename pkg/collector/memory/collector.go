package memory

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jyeno/coremem/pkg/procfs"
	"github.com/jyeno/coremem/pkg/types"
)

// Options selects which processes the collector samples and how their
// display name is resolved.
type Options struct {
	// Explicit restricts sampling to these PIDs; empty means a full scan
	// of the proc tree.
	Explicit []int
	// OwnerUID, when non-nil, drops processes owned by any other uid.
	OwnerUID *uint32
	// ShowArgs renders the full command line instead of the executable
	// basename.
	ShowArgs bool
}

// Collect samples every selected process and returns the per-process
// samples plus running totals. Totals are accumulated once per successfully
// read process, before any aggregation. Processes that vanish or deny
// access mid-scan are dropped; an explicitly requested PID that does so is
// reported per PID and the rest of the list proceeds.
func Collect(tree procfs.Tree, opts Options) ([]types.ProcSample, types.Totals, error) {
	pids := opts.Explicit
	explicit := len(pids) > 0
	if !explicit {
		var err error
		if pids, err = tree.PIDs(); err != nil {
			return nil, types.Totals{}, err
		}
	}

	samples := make([]types.ProcSample, 0, len(pids))
	var totals types.Totals
	commCache := make(map[int]string, len(pids))

	for _, pid := range pids {
		sample, ok, err := collectOne(tree, pid, opts, commCache)
		if err != nil {
			if errors.Is(err, types.ErrVanished) || errors.Is(err, types.ErrDenied) {
				if explicit {
					logrus.WithField("pid", pid).Warnf("skipping requested pid: %v", err)
				} else {
					logrus.WithField("pid", pid).Debugf("skipping pid: %v", err)
				}
				continue
			}
			return nil, types.Totals{}, err
		}
		if !ok {
			continue
		}
		totals.Add(sample.MemorySample)
		samples = append(samples, sample)
	}
	return samples, totals, nil
}

// collectOne samples a single PID. ok is false when the process is filtered
// out by ownership; name resolution happens before the memory read so an
// unresolvable process never touches the totals.
func collectOne(tree procfs.Tree, pid int, opts Options, commCache map[int]string) (types.ProcSample, bool, error) {
	if opts.OwnerUID != nil {
		uid, err := tree.OwnerUID(pid)
		if err != nil {
			return types.ProcSample{}, false, err
		}
		if uid != *opts.OwnerUID {
			return types.ProcSample{}, false, nil
		}
	}

	name, err := resolveName(tree, pid, opts.ShowArgs, commCache)
	if err != nil {
		return types.ProcSample{}, false, err
	}

	mem, err := Read(tree, pid)
	if err != nil {
		return types.ProcSample{}, false, err
	}
	return types.ProcSample{
		PID:          pid,
		Name:         name,
		MemorySample: mem,
		MergeCount:   1,
	}, true, nil
}

// resolveName picks the display name: the joined command line when showArgs
// is set, otherwise the executable basename, with the kernel task name as a
// last resort for an empty argv[0]. An empty command line means a kernel
// thread or a process that exited mid-read, which skips the PID entirely.
func resolveName(tree procfs.Tree, pid int, showArgs bool, commCache map[int]string) (string, error) {
	args, err := tree.Cmdline(pid)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", types.ErrVanished
	}
	if showArgs {
		return strings.Join(args, " "), nil
	}
	if args[0] == "" {
		return tree.Comm(pid, commCache), nil
	}
	return filepath.Base(args[0]), nil
}
