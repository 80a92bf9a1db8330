package eggdrop

import (
	"math"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStrategyTwoEggsTenFloors(t *testing.T) {
	is := is.New(t)
	steps, err := NewSolver().Strategy(State{Eggs: 2, Untested: 10})
	is.NoErr(err)
	is.Equal(len(steps), 4)

	is.Equal(steps[0].Floor, 4)
	is.Equal(steps[0].Branch, Break)
	is.Equal(steps[0].Next, State{Eggs: 1, Untested: 3})

	is.Equal(steps[1].Floor, 1)
	is.Equal(steps[1].Branch, Survive)
	is.Equal(steps[2].Floor, 2)
	is.Equal(steps[3].Floor, 3)
	is.Equal(steps[3].Branch, Break)
	is.True(steps[3].Next.Terminal())

	is.Equal(StrategyLines(steps), []string{
		"Step 1:",
		"- Drop egg from floor 4",
		"- If egg breaks: Continue with 1 eggs for floors 1 to 3",
		"---",
		"Step 2:",
		"- Drop egg from floor 1",
		"- If egg survives: Continue with 1 eggs for floors 2 to 3",
		"---",
		"Step 3:",
		"- Drop egg from floor 2",
		"- If egg survives: Continue with 1 eggs for floors 3 to 3",
		"---",
		"Step 4:",
		"- Drop egg from floor 3",
		"- If egg breaks: Done, the critical floor is 3",
		"---",
	})
}

func TestStrategyUsesAbsoluteFloors(t *testing.T) {
	is := is.New(t)
	steps, err := NewSolver().Strategy(State{Eggs: 2, Untested: 10, Offset: 30})
	is.NoErr(err)
	is.Equal(steps[0].Floor, 34)
	is.Equal(steps[0].Action, 4)
	is.Equal(steps[len(steps)-1].Floor, 33)
}

func TestStrategyTerminates(t *testing.T) {
	s := NewSolver()
	for e := 1; e <= 4; e++ {
		for n := 0; n <= 60; n++ {
			st := State{Eggs: e, Untested: n}
			steps, err := s.Strategy(st)
			require.NoError(t, err)
			sol, err := s.Solve(st)
			require.NoError(t, err)

			assert.LessOrEqual(t, len(steps), e+n)
			// The narration follows the worst case, so it takes exactly as
			// many drops as the solution promises.
			assert.Equal(t, sol.Value, len(steps))
			if len(steps) > 0 {
				assert.True(t, steps[len(steps)-1].Next.Terminal())
			}
			for i, step := range steps {
				assert.Equal(t, i+1, step.Index)
			}
		}
	}
}

func TestStrategyTerminalStates(t *testing.T) {
	is := is.New(t)
	steps, err := NewSolver().Strategy(State{Eggs: 3, Untested: 0})
	is.NoErr(err)
	is.Equal(len(steps), 0)

	_, err = NewSolver().Strategy(State{Eggs: 0, Untested: 3})
	is.True(err != nil)
	assert.ErrorIs(t, err, ErrNoFiniteStrategy)

	_, err = NewSolver().Strategy(State{Eggs: 3, Untested: -3})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTree(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	for e := 1; e <= 3; e++ {
		for n := 0; n <= 30; n++ {
			st := State{Eggs: e, Untested: n}
			tree, err := s.Tree(st)
			is.NoErr(err)
			sol, err := s.Solve(st)
			is.NoErr(err)
			is.Equal(tree.Depth(), sol.Value)
			// One leaf per possible critical floor, including "none".
			is.Equal(tree.Leaves(), n+1)
		}
	}
}

func TestTreeLeavesNameEveryCriticalFloor(t *testing.T) {
	is := is.New(t)
	tree, err := NewSolver().Tree(State{Eggs: 2, Untested: 6})
	is.NoErr(err)

	seen := map[int]bool{}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Leaf() {
			seen[n.Critical] = true
			return
		}
		walk(n.Breaks)
		walk(n.Survives)
	}
	walk(tree)
	for floor := 1; floor <= 7; floor++ {
		is.True(seen[floor])
	}
}

func TestTreeLines(t *testing.T) {
	is := is.New(t)
	tree, err := NewSolver().Tree(State{Eggs: 2, Untested: 3})
	is.NoErr(err)
	is.Equal(tree.Lines(), []string{
		"Step 1:",
		"- Drop egg from floor 2",
		"Step 2 -> [Breaks at 2]:",
		"- Drop egg from floor 1",
		"Step 2 -> [Survives 2]:",
		"- Drop egg from floor 3",
	})
}

func TestTreeYAML(t *testing.T) {
	tree, err := NewSolver().Tree(State{Eggs: 1, Untested: 1})
	require.NoError(t, err)
	out, err := yaml.Marshal(tree)
	require.NoError(t, err)

	var back Node
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, 1, back.Floor)
	assert.Equal(t, 1, back.Breaks.Critical)
	assert.Equal(t, 2, back.Survives.Critical)
}

func TestStrategyMoreEggsThanFloors(t *testing.T) {
	is := is.New(t)
	s := NewSolver()
	many, err := s.Strategy(State{Eggs: math.MaxInt, Untested: 10})
	is.NoErr(err)
	enough, err := s.Strategy(State{Eggs: 10, Untested: 10})
	is.NoErr(err)
	is.Equal(len(many), len(enough))
	for i := range many {
		is.Equal(many[i].Floor, enough[i].Floor)
		is.Equal(many[i].Branch, enough[i].Branch)
	}

	tree, err := s.Tree(State{Eggs: 1 << 40, Untested: 7})
	is.NoErr(err)
	is.Equal(tree.Depth(), 3)
	is.Equal(tree.Leaves(), 8)
}
