package eggdrop

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Branch is the outcome of a single drop.
type Branch int

const (
	Break Branch = iota
	Survive
)

func (b Branch) String() string {
	switch b {
	case Break:
		return "breaks"
	case Survive:
		return "survives"
	}
	return "unknown"
}

func (b Branch) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Branch) UnmarshalText(text []byte) error {
	switch string(text) {
	case "breaks":
		*b = Break
	case "survives":
		*b = Survive
	default:
		return fmt.Errorf("unknown branch %q", text)
	}
	return nil
}

// Step is one drop in a narrated strategy.
type Step struct {
	Index  int    `json:"index" yaml:"index"`
	Action int    `json:"action" yaml:"action"`
	Floor  int    `json:"floor" yaml:"floor"`
	Branch Branch `json:"branch" yaml:"branch"`
	// From is the state the drop is made in; Next is the state the
	// narration continues with.
	From State `json:"from" yaml:"from"`
	Next State `json:"next" yaml:"next"`
}

// Lines renders the step the way it is shown to a user.
func (s Step) Lines() []string {
	lines := []string{
		fmt.Sprintf("Step %d:", s.Index),
		fmt.Sprintf("- Drop egg from floor %d", s.Floor),
	}
	low, high := s.Next.Range()
	switch {
	case s.Next.Solved() && s.Branch == Break:
		lines = append(lines, fmt.Sprintf(
			"- If egg breaks: Done, the critical floor is %d", low))
	case s.Next.Solved():
		lines = append(lines, "- If egg survives: Done, no untested floors remain")
	case s.Branch == Break:
		lines = append(lines, fmt.Sprintf(
			"- If egg breaks: Continue with %d eggs for floors %d to %d",
			s.Next.Eggs, low, high))
	default:
		lines = append(lines, fmt.Sprintf(
			"- If egg survives: Continue with %d eggs for floors %d to %d",
			s.Next.Eggs, low, high))
	}
	return lines
}

func (s Step) String() string {
	return strings.Join(s.Lines(), "\n")
}

// Strategy narrates the optimal play from st along its worst case. At each
// step it follows whichever outcome leaves more drops to go, preferring the
// break branch on a tie. This is not a real sequence of outcomes; an
// interactive caller should thread actual outcomes through Transition
// instead.
func (s *Solver) Strategy(st State) ([]Step, error) {
	if err := st.validate(); err != nil {
		return nil, err
	}
	t, err := s.Table(st.Eggs, st.Untested)
	if err != nil {
		return nil, err
	}
	if st.Failed() {
		return nil, fmt.Errorf("%w: %s", ErrNoFiniteStrategy, st)
	}
	steps := []Step{}
	cur := st
	for !cur.Terminal() {
		sol := t.get(cur.Eggs, cur.Untested)
		if sol.Action == 0 {
			break
		}
		breaks, survives, err := Transition(cur, sol.Action)
		if err != nil {
			return nil, err
		}
		step := Step{
			Index:  len(steps) + 1,
			Action: sol.Action,
			Floor:  cur.Floor(sol.Action),
			From:   cur,
		}
		if t.get(breaks.Eggs, breaks.Untested).Value >= t.get(survives.Eggs, survives.Untested).Value {
			step.Branch, step.Next = Break, breaks
		} else {
			step.Branch, step.Next = Survive, survives
		}
		steps = append(steps, step)
		cur = step.Next
	}
	return steps, nil
}

// StrategyLines flattens steps into display lines, with a separator after
// every step.
func StrategyLines(steps []Step) []string {
	return lo.FlatMap(steps, func(s Step, _ int) []string {
		return append(s.Lines(), "---")
	})
}
