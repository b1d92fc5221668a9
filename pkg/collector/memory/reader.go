package memory

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jyeno/coremem/pkg/procfs"
	"github.com/jyeno/coremem/pkg/types"
)

// pageSizeKB allows tests to pin the page size for statm fixtures.
var pageSizeKB = uint64(os.Getpagesize() / 1024)

// buckets accumulates the labeled fields of one smaps/smaps_rollup scan.
// bias collects +0.5 per proportional-share line to correct the integer
// truncation in the kernel's per-mapping Pss figures.
type buckets struct {
	private     uint64
	privateHuge uint64
	shared      uint64
	sharedHuge  uint64
	swap        uint64
	swapPSS     uint64
	pss         uint64
	bias        float64
	havePSS     bool
	lines       int
}

// Read produces the memory sample for one PID, preferring the rollup
// summary, then the detailed per-mapping source, then the coarse statm
// page counts. Absent or unreadable detailed sources degrade to the next
// source; only statm failures surface to the caller.
func Read(tree procfs.Tree, pid int) (types.MemorySample, error) {
	for _, name := range []string{"smaps_rollup", "smaps"} {
		sample, ok, err := readDetailed(tree, pid, name)
		if err != nil {
			return types.MemorySample{}, err
		}
		if ok {
			return sample, nil
		}
	}
	return readStatm(tree, pid)
}

// readDetailed scans one labeled source. ok is false when the file is
// absent, unreadable, or empty, which sends the caller to the next source.
// Scan errors past a successful open are real I/O failures and fatal.
func readDetailed(tree procfs.Tree, pid int, name string) (types.MemorySample, bool, error) {
	f, err := tree.Open(pid, name)
	if err != nil {
		return types.MemorySample{}, false, nil
	}
	defer f.Close()

	var b buckets
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		b.scanLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return types.MemorySample{}, false, fmt.Errorf("scanning %s of pid %d: %w", name, pid, err)
	}
	if b.lines == 0 {
		return types.MemorySample{}, false, nil
	}
	return b.sample(), true, nil
}

// scanLine classifies one record. Hugepage labels must come before their
// generic prefixes, and Swap: carries its colon so SwapPss: cannot shadow
// it. Lines whose value field does not parse reference mapped objects
// rather than sizes and are skipped.
func (b *buckets) scanLine(line string) {
	b.lines++
	var target *uint64
	switch {
	case hasLabel(line, "Private_Hugetlb:"):
		target = &b.privateHuge
	case hasLabel(line, "Shared_Hugetlb:"):
		target = &b.sharedHuge
	case hasLabel(line, "Shared"):
		target = &b.shared
	case hasLabel(line, "Priv"):
		target = &b.private
	case hasLabel(line, "Pss:"):
		target = &b.pss
	case hasLabel(line, "Swap:"):
		target = &b.swap
	case hasLabel(line, "SwapPss:"):
		target = &b.swapPSS
	default:
		return
	}
	field, ok := nthField(line, 1)
	if !ok {
		return
	}
	v, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return
	}
	*target += v
	if target == &b.pss {
		b.havePSS = true
		b.bias += 0.5
	}
}

// sample applies the post-scan corrections in their required order: the
// proportional-share reallocation of shared cost, hugepages into private,
// proportional swap superseding raw swap, hugepages into shared.
func (b *buckets) sample() types.MemorySample {
	private := int64(b.private)
	shared := int64(b.shared)
	if b.havePSS {
		shared = shared + int64(b.pss) + int64(math.Round(b.bias)) - private
		if shared < 0 {
			shared = 0
		}
	}
	private += int64(b.privateHuge)
	swap := b.swap
	if b.swapPSS > 0 {
		swap = b.swapPSS
	}
	shared += int64(b.sharedHuge)
	return types.MemorySample{
		PrivateKB: uint64(private),
		SharedKB:  uint64(shared),
		SwapKB:    swap,
	}
}

// readStatm derives a coarse sample from resident and shared page counts.
// The source cannot separate private from shared precisely, so private is
// the absolute difference, and it carries no swap accounting at all.
func readStatm(tree procfs.Tree, pid int) (types.MemorySample, error) {
	data, err := tree.ReadFile(pid, "statm")
	if err != nil {
		return types.MemorySample{}, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return types.MemorySample{}, fmt.Errorf("unexpected statm format for pid %d", pid)
	}
	resident, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return types.MemorySample{}, fmt.Errorf("statm resident pages for pid %d: %w", pid, err)
	}
	shared, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return types.MemorySample{}, fmt.Errorf("statm shared pages for pid %d: %w", pid, err)
	}
	rssKB := resident * pageSizeKB
	sharedKB := shared * pageSizeKB
	privateKB := rssKB - sharedKB
	if sharedKB > rssKB {
		privateKB = sharedKB - rssKB
	}
	return types.MemorySample{PrivateKB: privateKB, SharedKB: sharedKB}, nil
}
