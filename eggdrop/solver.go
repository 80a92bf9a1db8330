// Package eggdrop solves the egg drop problem: given some identical eggs and
// a run of floors, find the fewest drops that are guaranteed to pin down the
// critical floor, the lowest floor at which an egg breaks.
//
// The solver tabulates, bottom-up, the optimal worst-case drop count for
// every (eggs, untested floors) pair up to the requested state:
//
//	T[e][0] = 0
//	T[0][n] = Unreachable                              n > 0
//	T[e][n] = min over a of 1 + max(T[e-1][a-1], T[e][n-a])
//
// where a ranges over the legal drop positions (only a = 1 when e = 1).
package eggdrop

import (
	"fmt"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/eggdrop/cache"
)

// DefaultMemoryFraction is the share of system memory a single table may use.
const DefaultMemoryFraction = 0.25

// ParallelThreshold is the smallest column height (in floors) worth
// splitting across goroutines.
const ParallelThreshold = 256

type Solver struct {
	threads       int
	maxTableBytes uint64
	memo          *cache.Cache
}

// NewSolver returns a single-threaded solver with no memo; every Solve call
// builds a fresh table.
func NewSolver() *Solver {
	s := &Solver{threads: 1}
	s.SetMemoryFraction(DefaultMemoryFraction)
	return s
}

func (s *Solver) SetThreads(threads int) {
	s.threads = max(1, threads)
}

func (s *Solver) Threads() int {
	return s.threads
}

// SetMemo makes the solver keep its tables in c and answer later queries
// from any cached table that covers them.
func (s *Solver) SetMemo(c *cache.Cache) {
	s.memo = c
}

// SetMaxTableBytes limits the size of a single table. 0 means no limit.
func (s *Solver) SetMaxTableBytes(b uint64) {
	s.maxTableBytes = b
}

// SetMemoryFraction limits a table to a fraction of total system memory.
func (s *Solver) SetMemoryFraction(f float64) {
	total := memory.TotalMemory()
	if total == 0 || f <= 0 {
		// can't tell how much memory there is.
		s.maxTableBytes = 0
		return
	}
	s.maxTableBytes = uint64(float64(total) * f)
}

// Solve returns the optimal worst-case drop count for st and the first
// relative drop position that achieves it. A state with floors left and
// no eggs gets ErrNoFiniteStrategy along with an Unreachable solution.
func (s *Solver) Solve(st State) (Solution, error) {
	if err := st.validate(); err != nil {
		return Solution{}, err
	}
	t, err := s.Table(st.Eggs, st.Untested)
	if err != nil {
		return Solution{}, err
	}
	sol := t.get(st.Eggs, st.Untested)
	if !sol.Feasible() {
		return sol, fmt.Errorf("%w: %s", ErrNoFiniteStrategy, st)
	}
	return sol, nil
}

// Solve solves a fresh problem with the given eggs and floors.
func Solve(eggs, untested int) (Solution, error) {
	return NewSolver().Solve(State{Eggs: eggs, Untested: untested})
}

// Table returns a table covering eggs and untested floors, from the memo
// if one is there.
func (s *Solver) Table(eggs, untested int) (*Table, error) {
	if eggs < 0 || untested < 0 {
		return nil, fmt.Errorf("%w: eggs %d, untested %d", ErrInvalidState,
			eggs, untested)
	}
	if s.memo == nil {
		return s.tabulate(eggs, untested)
	}
	var covering *Table
	s.memo.Each(func(_ string, obj interface{}) bool {
		if t, ok := obj.(*Table); ok && t.Covers(eggs, untested) {
			covering = t
			return false
		}
		return true
	})
	if covering != nil {
		return covering, nil
	}
	obj, err := s.memo.Load(cache.Key(tableRows(eggs, untested), untested), func(string) (interface{}, error) {
		return s.tabulate(eggs, untested)
	})
	if err != nil {
		return nil, err
	}
	return obj.(*Table), nil
}

func (s *Solver) tabulate(eggs, untested int) (*Table, error) {
	size, ok := tableBytes(eggs, untested)
	if !ok {
		return nil, fmt.Errorf("%w: %d eggs x %d floors does not fit in memory",
			ErrTableTooLarge, eggs, untested)
	}
	if s.maxTableBytes > 0 && size > s.maxTableBytes {
		return nil, fmt.Errorf("%w: %d eggs x %d floors needs %d bytes, limit is %d",
			ErrTableTooLarge, eggs, untested, size, s.maxTableBytes)
	}
	log.Debug().Int("eggs", eggs).Int("untested", untested).
		Int("threads", s.threads).Msg("tabulating")

	t := newTable(eggs, untested)
	rows, _ := t.Dims()
	t.set(0, 0, Solution{Value: 0, Action: 0})
	for n := 1; n <= untested; n++ {
		t.set(0, n, Solution{Value: Unreachable, Action: 0})
	}
	// Every cell in column n depends only on columns < n, so a column can
	// be filled in any order. Rows above n are never read.
	for n := 1; n <= untested; n++ {
		top := min(rows, n)
		if s.threads < 2 || top < 2 || n < ParallelThreshold {
			for e := 1; e <= top; e++ {
				t.set(e, n, bestAction(t, e, n))
			}
			continue
		}
		g := errgroup.Group{}
		g.SetLimit(s.threads)
		for e := 1; e <= top; e++ {
			e := e
			g.Go(func() error {
				t.set(e, n, bestAction(t, e, n))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// bestAction evaluates every legal drop from (e, n), with e, n >= 1. Ties go
// to the lowest drop position.
func bestAction(t *Table, e, n int) Solution {
	best := Solution{Value: Unreachable, Action: 0}
	last := lastAction(e, n)
	for a := 1; a <= last; a++ {
		worst := max(t.get(e-1, a-1).Value, t.get(e, n-a).Value)
		if worst < Unreachable {
			worst++
		}
		if worst < best.Value {
			best = Solution{Value: worst, Action: a}
		}
	}
	return best
}
