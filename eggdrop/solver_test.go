package eggdrop

import (
	"errors"
	"math"
	"os"
	"strconv"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/eggdrop/cache"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func mustSolve(t *testing.T, eggs, floors int) Solution {
	t.Helper()
	sol, err := Solve(eggs, floors)
	require.NoError(t, err)
	return sol
}

func TestActions(t *testing.T) {
	is := is.New(t)

	acts, err := Actions(State{Eggs: 1, Untested: 0})
	is.NoErr(err)
	is.Equal(acts, []int{})

	acts, err = Actions(State{Eggs: 0, Untested: 5})
	is.NoErr(err)
	is.Equal(acts, []int{})

	acts, err = Actions(State{Eggs: 1, Untested: 5})
	is.NoErr(err)
	is.Equal(acts, []int{1})

	acts, err = Actions(State{Eggs: 2, Untested: 3})
	is.NoErr(err)
	is.Equal(acts, []int{1, 2, 3})

	_, err = Actions(State{Eggs: -1, Untested: 3})
	is.True(errors.Is(err, ErrInvalidState))
}

func TestTransition(t *testing.T) {
	is := is.New(t)
	st := State{Eggs: 2, Untested: 5}
	breaks, survives, err := Transition(st, 2)
	is.NoErr(err)
	is.Equal(breaks, State{Eggs: 1, Untested: 1, Offset: 0})
	is.Equal(survives, State{Eggs: 2, Untested: 3, Offset: 2})

	// Offsets only move on survival.
	st = State{Eggs: 3, Untested: 10, Offset: 20}
	breaks, survives, err = Transition(st, 4)
	is.NoErr(err)
	is.Equal(breaks, State{Eggs: 2, Untested: 3, Offset: 20})
	is.Equal(survives, State{Eggs: 3, Untested: 6, Offset: 24})
}

func TestTransitionInvalid(t *testing.T) {
	cases := []struct {
		name   string
		state  State
		action int
		err    error
	}{
		{"action too high", State{Eggs: 2, Untested: 5}, 6, ErrInvalidAction},
		{"action zero", State{Eggs: 2, Untested: 5}, 0, ErrInvalidAction},
		{"negative action", State{Eggs: 2, Untested: 5}, -1, ErrInvalidAction},
		{"solved state", State{Eggs: 2, Untested: 0}, 1, ErrInvalidAction},
		{"no eggs", State{Eggs: 0, Untested: 4}, 1, ErrInvalidAction},
		{"one egg above lowest floor", State{Eggs: 1, Untested: 4}, 2, ErrInvalidAction},
		{"negative eggs", State{Eggs: -1, Untested: 4}, 1, ErrInvalidState},
		{"negative floors", State{Eggs: 1, Untested: -4}, 1, ErrInvalidState},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := Transition(c.state, c.action)
			assert.ErrorIs(t, err, c.err)
		})
	}
}

func TestNewState(t *testing.T) {
	is := is.New(t)
	st, err := NewState(2, 10, 3)
	is.NoErr(err)
	is.Equal(st, State{Eggs: 2, Untested: 10, Offset: 3})
	low, high := st.Range()
	is.Equal(low, 4)
	is.Equal(high, 13)

	_, err = NewState(2, -1, 0)
	is.True(errors.Is(err, ErrInvalidState))
	_, err = NewState(2, 1, -1)
	is.True(errors.Is(err, ErrInvalidState))
}

func TestSolveEdgeCases(t *testing.T) {
	for _, eggs := range []int{1, 2, 100} {
		assert.Equal(t, Solution{Value: 0, Action: 0}, mustSolve(t, eggs, 0))
		assert.Equal(t, Solution{Value: 1, Action: 1}, mustSolve(t, eggs, 1))
	}
}

func TestSolveKnownValues(t *testing.T) {
	cases := []struct {
		eggs, floors, drops int
	}{
		{1, 0, 0},
		{1, 1, 1},
		{1, 10, 10},
		{2, 10, 4},
		{3, 10, 4},
		{2, 36, 8},
		{2, 100, 14},
		{3, 100, 9},
		{4, 100, 8},
	}
	for _, c := range cases {
		sol := mustSolve(t, c.eggs, c.floors)
		assert.Equal(t, c.drops, sol.Value, "eggs %d floors %d", c.eggs, c.floors)
	}
}

func TestSolveOneEggIsLinear(t *testing.T) {
	for n := 0; n <= 40; n++ {
		sol := mustSolve(t, 1, n)
		assert.Equal(t, n, sol.Value)
		if n > 0 {
			assert.Equal(t, 1, sol.Action)
		}
	}
}

func TestSolveMatchesClosedForm(t *testing.T) {
	s := NewSolver()
	tbl, err := s.Table(6, 150)
	require.NoError(t, err)
	for e := 1; e <= 6; e++ {
		for n := 0; n <= 150; n++ {
			sol, ok := tbl.Lookup(e, n)
			require.True(t, ok)
			drops, err := MinDrops(e, n)
			require.NoError(t, err)
			require.Equal(t, drops, sol.Value, "eggs %d floors %d", e, n)
		}
	}
}

func TestMonotonic(t *testing.T) {
	tbl, err := NewSolver().Table(5, 80)
	require.NoError(t, err)
	for e := 1; e <= 5; e++ {
		for n := 1; n <= 80; n++ {
			assert.LessOrEqual(t, tbl.get(e, n-1).Value, tbl.get(e, n).Value)
			if e > 1 {
				assert.LessOrEqual(t, tbl.get(e, n).Value, tbl.get(e-1, n).Value)
			}
		}
	}
}

func TestConsistency(t *testing.T) {
	s := NewSolver()
	for e := 1; e <= 4; e++ {
		for n := 1; n <= 50; n++ {
			st := State{Eggs: e, Untested: n}
			sol, err := s.Solve(st)
			require.NoError(t, err)
			breaks, survives, err := Transition(st, sol.Action)
			require.NoError(t, err)
			bsol, err := s.Solve(breaks)
			require.NoError(t, err)
			ssol, err := s.Solve(survives)
			require.NoError(t, err)
			require.Equal(t, sol.Value, 1+max(bsol.Value, ssol.Value))
		}
	}
}

func TestFirstAction(t *testing.T) {
	is := is.New(t)
	is.Equal(mustSolve(t, 2, 10), Solution{Value: 4, Action: 4})
	is.Equal(mustSolve(t, 2, 36), Solution{Value: 8, Action: 8})
	is.Equal(mustSolve(t, 2, 100), Solution{Value: 14, Action: 9})
}

func TestTieBreakPrefersLowestFloor(t *testing.T) {
	// With 3 eggs and 10 floors, any first drop from floor 3 through 7
	// needs 4 drops in the worst case.
	is := is.New(t)
	s := NewSolver()
	tbl, err := s.Table(3, 10)
	is.NoErr(err)
	for a := 3; a <= 7; a++ {
		worst := 1 + max(tbl.get(2, a-1).Value, tbl.get(3, 10-a).Value)
		is.Equal(worst, 4)
	}
	is.Equal(mustSolve(t, 3, 10), Solution{Value: 4, Action: 3})
}

func TestSolveIsIdempotent(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	st := State{Eggs: 3, Untested: 64, Offset: 7}
	a, err := s.Solve(st)
	is.NoErr(err)
	b, err := s.Solve(st)
	is.NoErr(err)
	is.Equal(a, b)
}

func TestOffsetDoesNotAffectValue(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	a, err := s.Solve(State{Eggs: 2, Untested: 20})
	is.NoErr(err)
	b, err := s.Solve(State{Eggs: 2, Untested: 20, Offset: 55})
	is.NoErr(err)
	is.Equal(a, b)
}

func TestSolveInvalid(t *testing.T) {
	_, err := Solve(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = Solve(1, -10)
	assert.ErrorIs(t, err, ErrInvalidState)

	sol, err := Solve(0, 10)
	assert.ErrorIs(t, err, ErrNoFiniteStrategy)
	assert.False(t, sol.Feasible())
	assert.Equal(t, 0, sol.Action)

	// No floors means nothing to find, eggs or not.
	sol, err = Solve(0, 0)
	assert.NoError(t, err)
	assert.Equal(t, Solution{}, sol)
}

func TestTableTooLarge(t *testing.T) {
	s := NewSolver()
	s.SetMaxTableBytes(1024)
	_, err := s.Solve(State{Eggs: 10, Untested: 1000})
	assert.ErrorIs(t, err, ErrTableTooLarge)
}

func TestParallelMatchesSerial(t *testing.T) {
	serial := NewSolver()
	parallel := NewSolver()
	parallel.SetThreads(4)

	st, err := serial.Table(6, ParallelThreshold+40)
	require.NoError(t, err)
	pt, err := parallel.Table(6, ParallelThreshold+40)
	require.NoError(t, err)
	assert.Equal(t, st.entries, pt.entries)
}

func TestMemoReusesCoveringTable(t *testing.T) {
	is := is.New(t)
	c := cache.New()
	s := NewSolver()
	s.SetMemo(c)

	_, err := s.Solve(State{Eggs: 3, Untested: 50})
	is.NoErr(err)
	is.Equal(c.Len(), 1)

	// Smaller states come out of the table we already have.
	sol, err := s.Solve(State{Eggs: 2, Untested: 36, Offset: 14})
	is.NoErr(err)
	is.Equal(sol.Value, 8)
	is.Equal(c.Len(), 1)

	_, err = s.Solve(State{Eggs: 4, Untested: 10})
	is.NoErr(err)
	is.Equal(c.Len(), 2)
}

func TestTablePrintable(t *testing.T) {
	tbl, err := NewSolver().Table(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "eggs\tfloors\tdrops\taction\n"+
		"1\t0\t0\t0\n"+
		"1\t1\t1\t1\n"+
		"1\t2\t2\t1\n", tbl.Printable())
}

func TestSolveMoreEggsThanFloors(t *testing.T) {
	is := is.New(t)
	for _, eggs := range []int{math.MaxInt, 1 << 40, 50, 1} {
		sol, err := Solve(eggs, 1)
		is.NoErr(err)
		is.Equal(sol, Solution{Value: 1, Action: 1})
	}
	for n := 0; n <= 40; n++ {
		want := mustSolve(t, n, n)
		is.Equal(mustSolve(t, math.MaxInt, n), want)
		is.Equal(mustSolve(t, n+7, n), want)
	}
}

func TestTableKeepsAtMostOneRowPerFloor(t *testing.T) {
	is := is.New(t)
	tbl, err := NewSolver().Table(math.MaxInt, 20)
	is.NoErr(err)
	eggs, floors := tbl.Dims()
	is.Equal(eggs, 20)
	is.Equal(floors, 20)
	is.True(tbl.Covers(1<<50, 20))
	is.True(!tbl.Covers(21, 21))

	sol, ok := tbl.Lookup(1<<50, 20)
	is.True(ok)
	is.Equal(sol.Value, mustSolve(t, 20, 20).Value)

	c := cache.New()
	s := NewSolver()
	s.SetMemo(c)
	_, err = s.Solve(State{Eggs: math.MaxInt, Untested: 10})
	is.NoErr(err)
	_, err = s.Solve(State{Eggs: 10, Untested: 10})
	is.NoErr(err)
	_, err = s.Solve(State{Eggs: 3, Untested: 7})
	is.NoErr(err)
	is.Equal(c.Len(), 1)
}

func TestTableBytesOverflow(t *testing.T) {
	is := is.New(t)
	_, ok := tableBytes(math.MaxInt, math.MaxInt)
	is.True(!ok)
	size, ok := tableBytes(math.MaxInt, 1)
	is.True(ok)
	is.Equal(size, uint64(2*2*entrySize))

	s := NewSolver()
	s.SetMaxTableBytes(0)
	_, err := s.Solve(State{Eggs: 1, Untested: math.MaxInt})
	is.True(errors.Is(err, ErrTableTooLarge))
}

func TestTablePrintableUpTo(t *testing.T) {
	tbl, err := NewSolver().Table(3, 3)
	require.NoError(t, err)
	rows := "eggs\tfloors\tdrops\taction\n" +
		"1\t0\t0\t0\n1\t1\t1\t1\n1\t2\t2\t1\n"
	for e := 2; e <= 4; e++ {
		rows += strconv.Itoa(e) + "\t0\t0\t0\n" +
			strconv.Itoa(e) + "\t1\t1\t1\n" +
			strconv.Itoa(e) + "\t2\t2\t1\n"
	}
	assert.Equal(t, rows, tbl.PrintableUpTo(4, 2))
	assert.Equal(t, "", tbl.PrintableUpTo(4, 4))
}
