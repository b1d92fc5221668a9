package memory

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jyeno/coremem/pkg/procfs"
	"github.com/jyeno/coremem/pkg/types"
)

// writeProcFiles lays out a synthetic per-process directory under root.
func writeProcFiles(t *testing.T, root string, pid int, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

const rollupFixture = `560bf9a10000-7ffdc59ea000 ---p 00000000 00:00 0   [rollup]
Rss:                1200 kB
Pss:                 800 kB
Shared_Clean:        300 kB
Shared_Dirty:        100 kB
Private_Clean:       200 kB
Private_Dirty:       600 kB
Referenced:         1100 kB
Anonymous:           700 kB
Swap:                 64 kB
SwapPss:              32 kB
`

func TestReadRollupArithmetic(t *testing.T) {
	root := t.TempDir()
	writeProcFiles(t, root, 10, map[string]string{"smaps_rollup": rollupFixture})

	sample, err := Read(procfs.New(root), 10)
	require.NoError(t, err)

	// private = 200+600; shared = 400 + 800 + round(0.5) - 800;
	// proportional swap supersedes the raw figure.
	require.Equal(t, uint64(800), sample.PrivateKB)
	require.Equal(t, uint64(401), sample.SharedKB)
	require.Equal(t, uint64(32), sample.SwapKB)
}

func TestReadPrefersRollupOverSmaps(t *testing.T) {
	root := t.TempDir()
	writeProcFiles(t, root, 11, map[string]string{
		"smaps_rollup": "Private_Dirty:   100 kB\n",
		"smaps":        "Private_Dirty:   999 kB\n",
	})

	sample, err := Read(procfs.New(root), 11)
	require.NoError(t, err)
	require.Equal(t, uint64(100), sample.PrivateKB)
}

func TestReadEmptyRollupFallsBackToSmaps(t *testing.T) {
	root := t.TempDir()
	writeProcFiles(t, root, 12, map[string]string{
		"smaps_rollup": "",
		"smaps":        "Private_Dirty:   999 kB\n",
	})

	sample, err := Read(procfs.New(root), 12)
	require.NoError(t, err)
	require.Equal(t, uint64(999), sample.PrivateKB)
}

func TestReadSmapsMultipleMappings(t *testing.T) {
	smaps := `00400000-00452000 r-xp 00000000 08:02 173521   /usr/bin/daemon
Size:                328 kB
Pss:                  63 kB
Shared_Clean:         88 kB
Private_Dirty:        12 kB
Swap:                  8 kB
7f2c00000000-7f2c00021000 rw-p 00000000 00:00 0
Pss:                  21 kB
Shared_Obj_Name:  libfoo.so
Private_Clean:         4 kB
Private_Hugetlb:    2048 kB
Shared_Hugetlb:     1024 kB
Swap:                  4 kB
`
	root := t.TempDir()
	writeProcFiles(t, root, 13, map[string]string{"smaps": smaps})

	sample, err := Read(procfs.New(root), 13)
	require.NoError(t, err)

	// private = 16; pss = 84 with two +0.5 adjustments; shared raw = 88 with
	// the unparseable object-name line skipped. shared = 88+84+1-16, then
	// hugepages fold into their buckets and raw swap stands (no SwapPss).
	require.Equal(t, uint64(16+2048), sample.PrivateKB)
	require.Equal(t, uint64(88+84+1-16+1024), sample.SharedKB)
	require.Equal(t, uint64(12), sample.SwapKB)
}

func TestReadWithoutProportionalShareKeepsRawSplit(t *testing.T) {
	root := t.TempDir()
	writeProcFiles(t, root, 14, map[string]string{
		"smaps_rollup": "Private_Dirty:  30 kB\nShared_Clean:  20 kB\nSwap:  5 kB\n",
	})

	sample, err := Read(procfs.New(root), 14)
	require.NoError(t, err)
	require.Equal(t, types.MemorySample{PrivateKB: 30, SharedKB: 20, SwapKB: 5}, sample)
}

func TestReadStatmFallback(t *testing.T) {
	t.Cleanup(func() { pageSizeKB = uint64(os.Getpagesize() / 1024) })
	pageSizeKB = 4

	root := t.TempDir()
	writeProcFiles(t, root, 15, map[string]string{"statm": "3000 1500 500 100 0 900 0\n"})

	sample, err := Read(procfs.New(root), 15)
	require.NoError(t, err)
	require.Equal(t, uint64(4000), sample.PrivateKB) // |1500-500| pages * 4
	require.Equal(t, uint64(2000), sample.SharedKB)
	require.Equal(t, uint64(0), sample.SwapKB, "coarse source has no swap accounting")
}

func TestReadStatmAbsoluteDifference(t *testing.T) {
	t.Cleanup(func() { pageSizeKB = uint64(os.Getpagesize() / 1024) })
	pageSizeKB = 4

	root := t.TempDir()
	writeProcFiles(t, root, 16, map[string]string{"statm": "10 2 5 0 0 0 0\n"})

	sample, err := Read(procfs.New(root), 16)
	require.NoError(t, err)
	require.Equal(t, uint64(12), sample.PrivateKB)
}

func TestReadStatmMalformedIsFatal(t *testing.T) {
	root := t.TempDir()
	writeProcFiles(t, root, 17, map[string]string{"statm": "only-one-field\n"})

	_, err := Read(procfs.New(root), 17)
	require.Error(t, err)
	require.NotErrorIs(t, err, types.ErrVanished)
	require.NotErrorIs(t, err, types.ErrDenied)
}

func TestReadVanishedProcess(t *testing.T) {
	root := t.TempDir()

	_, err := Read(procfs.New(root), 404)
	require.ErrorIs(t, err, types.ErrVanished)
}
