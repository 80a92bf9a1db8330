package eggdrop

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Unreachable is the value of a state with floors left and no eggs. It is
// worse than any drop count a real strategy can need.
const Unreachable = math.MaxInt32

// Solution is the optimal worst-case number of drops for a state, and the
// relative position to drop from first. Action is 0 for terminal states.
type Solution struct {
	Value  int `json:"value" yaml:"value"`
	Action int `json:"action" yaml:"action"`
}

// Feasible is false for the Unreachable sentinel.
func (s Solution) Feasible() bool {
	return s.Value < Unreachable
}

// entrySize is how many bytes a table entry takes up.
const entrySize = 16

// Table holds the solution for every (eggs, untested) pair up to its
// dimensions. Entries are stored row by row, one row per egg count.
//
// With at least as many eggs as floors no strategy can run out, so every
// egg count e >= n has the answer of row n. A table keeps at most
// min(eggs, untested) rows and reads any larger egg count from row
// min(eggs, untested).
type Table struct {
	eggs     int
	untested int
	entries  []Solution
}

// tableRows is the number of egg rows a table for the given counts needs.
func tableRows(eggs, untested int) int {
	return min(eggs, untested)
}

func newTable(eggs, untested int) *Table {
	eggs = tableRows(eggs, untested)
	return &Table{
		eggs:     eggs,
		untested: untested,
		entries:  make([]Solution, (eggs+1)*(untested+1)),
	}
}

// tableBytes is the memory a table for the given counts would need. ok is
// false when the size does not fit in an int.
func tableBytes(eggs, untested int) (size uint64, ok bool) {
	rows := uint64(tableRows(eggs, untested)) + 1
	hi, cells := bits.Mul64(rows, uint64(untested)+1)
	if hi != 0 {
		return 0, false
	}
	hi, size = bits.Mul64(cells, entrySize)
	if hi != 0 || size > math.MaxInt {
		return 0, false
	}
	return size, true
}

func (t *Table) idx(eggs, untested int) int {
	return eggs*(t.untested+1) + untested
}

func (t *Table) set(eggs, untested int, sol Solution) {
	t.entries[t.idx(eggs, untested)] = sol
}

func (t *Table) get(eggs, untested int) Solution {
	return t.entries[t.idx(min(eggs, untested), untested)]
}

// Dims returns the egg rows and untested floor count stored. Egg counts
// above the stored rows are covered for any floor count up to the rows.
func (t *Table) Dims() (eggs, untested int) {
	return t.eggs, t.untested
}

// Covers reports whether the table can answer the given counts.
func (t *Table) Covers(eggs, untested int) bool {
	return eggs >= 0 && untested >= 0 && untested <= t.untested &&
		min(eggs, untested) <= t.eggs
}

// Lookup returns the stored solution for the given counts.
func (t *Table) Lookup(eggs, untested int) (Solution, bool) {
	if !t.Covers(eggs, untested) {
		return Solution{}, false
	}
	return t.get(eggs, untested), true
}

// Printable dumps every stored row as tab-separated lines.
func (t *Table) Printable() string {
	return t.PrintableUpTo(t.eggs, t.untested)
}

// PrintableUpTo dumps the solutions for 1 to eggs eggs and 0 to untested
// floors, skipping the unreachable zero-egg row. It returns "" when the
// table does not cover those counts.
func (t *Table) PrintableUpTo(eggs, untested int) string {
	if !t.Covers(eggs, untested) {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("eggs\tfloors\tdrops\taction\n")
	for e := 1; e <= eggs; e++ {
		for n := 0; n <= untested; n++ {
			sol := t.get(e, n)
			sb.WriteString(strconv.Itoa(e) + "\t" + strconv.Itoa(n) + "\t" +
				strconv.Itoa(sol.Value) + "\t" + strconv.Itoa(sol.Action) + "\n")
		}
	}
	return sb.String()
}
