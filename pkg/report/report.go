// Package report turns raw per-process samples into the final table: it
// merges processes into per-program rows, orders and limits them, and
// renders the text output.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jyeno/coremem/pkg/types"
	"github.com/jyeno/coremem/pkg/units"
)

// RenderConfig carries the presentation switches consumed by Render.
type RenderConfig struct {
	ShowSwap     bool
	PerPID       bool
	TotalOnly    bool
	TotalMachine bool
}

// Aggregate folds same-named samples into per-program rows, summing their
// fields and counting the processes merged. In per-PID mode every sample is
// its own row. The linear scan is O(n²) over distinct program names on
// purpose: n is a few hundred at worst, and the scan preserves discovery
// order, which the stable sort below relies on for tie-breaking.
func Aggregate(samples []types.ProcSample, perPID bool) []types.ProcSample {
	if perPID {
		return samples
	}
	rows := make([]types.ProcSample, 0, len(samples))
	for _, sample := range samples {
		merged := false
		for i := range rows {
			if rows[i].Name == sample.Name {
				rows[i].PrivateKB += sample.PrivateKB
				rows[i].SharedKB += sample.SharedKB
				rows[i].SwapKB += sample.SwapKB
				rows[i].MergeCount++
				merged = true
				break
			}
		}
		if !merged {
			rows = append(rows, sample)
		}
	}
	return rows
}

// Order sorts rows ascending by RAM used with discovery order breaking
// ties, optionally reverses the whole sequence, and then keeps the last
// limit entries of whatever order resulted. The composition is fixed:
// limiting always takes the tail of the possibly-reversed sequence.
func Order(rows []types.ProcSample, reverse bool, limit int) []types.ProcSample {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RAMKB() < rows[j].RAMKB()
	})
	if reverse {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows
}

// Render writes the report. Total-only mode suppresses the table and emits
// a single line, raw kilobytes for machines or scaled for humans.
func Render(w io.Writer, rows []types.ProcSample, totals types.Totals, cfg RenderConfig) {
	if cfg.TotalOnly {
		if cfg.TotalMachine {
			fmt.Fprintf(w, "%d\n", totals.RAMKB)
		} else {
			fmt.Fprintf(w, "%s\n", units.HumanKB(totals.RAMKB))
		}
		return
	}

	width := 33
	header := " Private  +   Shared  =  RAM used"
	if cfg.ShowSwap {
		header += "   Swap used"
		width += 12
	}
	program := "Program"
	if cfg.PerPID {
		program += " [pid]"
	}
	fmt.Fprintf(w, "%s\t%s\n\n", header, program)

	for _, row := range rows {
		fmt.Fprintf(w, "%9s + %9s = %9s",
			units.HumanKB(row.PrivateKB),
			units.HumanKB(row.SharedKB),
			units.HumanKB(row.RAMKB()))
		if cfg.ShowSwap {
			fmt.Fprintf(w, "   %9s", units.HumanKB(row.SwapKB))
		}
		fmt.Fprintf(w, "\t%s\n", rowLabel(row, cfg.PerPID))
	}

	rule := strings.Repeat("-", width)
	fmt.Fprintf(w, "%s\n", rule)
	if cfg.ShowSwap {
		fmt.Fprintf(w, "%33s   %9s\n", units.HumanKB(totals.RAMKB), units.HumanKB(totals.SwapKB))
	} else {
		fmt.Fprintf(w, "%33s\n", units.HumanKB(totals.RAMKB))
	}
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", width))
}

// rowLabel suffixes the program name with its PID in per-PID mode, or the
// merge count when more than one process folded into the row.
func rowLabel(row types.ProcSample, perPID bool) string {
	if perPID {
		return fmt.Sprintf("%s [%d]", row.Name, row.PID)
	}
	if row.MergeCount > 1 {
		return fmt.Sprintf("%s (%d)", row.Name, row.MergeCount)
	}
	return row.Name
}
