// Package session walks one egg drop problem a drop at a time, with the
// outcome of every drop supplied from outside: a person at a shell, a script,
// or a simulated building.
//
// A Session is a value. Observing an outcome returns a new Session and leaves
// the old one alone, so a caller can keep, compare, or rewind them freely.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/eggdrop/eggdrop"
)

var (
	ErrFinished    = errors.New("session is finished")
	ErrNotFinished = errors.New("critical floor not determined yet")
)

// Outcome is what happened to the egg on a drop.
type Outcome = eggdrop.Branch

const (
	Broke    = eggdrop.Break
	Survived = eggdrop.Survive
)

// Decision records one drop and what came of it.
type Decision struct {
	Step    int     `json:"step" yaml:"step"`
	Floor   int     `json:"floor" yaml:"floor"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`
}

func (d Decision) String() string {
	what := "Egg survived"
	if d.Outcome == Broke {
		what = "Egg broke"
	}
	return fmt.Sprintf("Step %d: Dropped at floor %d - %s", d.Step, d.Floor, what)
}

type History []Decision

func (h History) String() string {
	return strings.Join(lo.Map(h, func(d Decision, _ int) string {
		return d.String()
	}), "\n")
}

type Session struct {
	solver  *eggdrop.Solver
	eggs    int
	floors  int
	state   eggdrop.State
	history History
}

// New starts a session for a building with the given floors. The solver
// should carry a memo if the session will be long; every step asks it about
// a smaller state.
func New(solver *eggdrop.Solver, eggs, floors int) (*Session, error) {
	st, err := eggdrop.NewState(eggs, floors, 0)
	if err != nil {
		return nil, err
	}
	if st.Failed() {
		return nil, fmt.Errorf("%w: %s", eggdrop.ErrNoFiniteStrategy, st)
	}
	return &Session{solver: solver, eggs: eggs, floors: floors, state: st}, nil
}

func (s *Session) State() eggdrop.State {
	return s.state
}

// Step is the number of the next drop, starting at 1.
func (s *Session) Step() int {
	return len(s.history) + 1
}

func (s *Session) History() History {
	return s.history
}

func (s *Session) Eggs() int {
	return s.eggs
}

func (s *Session) Floors() int {
	return s.floors
}

// Done means the critical floor is known. Only solved states end a session
// that follows recommendations; a session can't run out of eggs with floors
// left.
func (s *Session) Done() bool {
	return s.state.Terminal()
}

// Recommend returns the optimal next drop and the absolute floor to drop from.
func (s *Session) Recommend() (eggdrop.Solution, int, error) {
	if s.Done() {
		return eggdrop.Solution{}, 0, ErrFinished
	}
	sol, err := s.solver.Solve(s.state)
	if err != nil {
		return eggdrop.Solution{}, 0, err
	}
	return sol, s.state.Floor(sol.Action), nil
}

// Observe applies the outcome of dropping at the recommended floor and
// returns the session that follows.
func (s *Session) Observe(outcome Outcome) (*Session, error) {
	sol, floor, err := s.Recommend()
	if err != nil {
		return nil, err
	}
	breaks, survives, err := eggdrop.Transition(s.state, sol.Action)
	if err != nil {
		return nil, err
	}
	next := &Session{
		solver: s.solver,
		eggs:   s.eggs,
		floors: s.floors,
		// copy so sibling sessions never share a backing array.
		history: append(append(History{}, s.history...), Decision{
			Step: s.Step(), Floor: floor, Outcome: outcome,
		}),
	}
	switch outcome {
	case Broke:
		next.state = breaks
	case Survived:
		next.state = survives
	default:
		return nil, fmt.Errorf("unknown outcome %d", outcome)
	}
	log.Debug().Int("step", s.Step()).Int("floor", floor).
		Stringer("outcome", outcome).Stringer("state", next.state).
		Msg("observed")
	return next, nil
}

// CriticalFloor returns the lowest floor at which eggs break, once the
// session is done. If no floor in the building breaks an egg, breaks is false.
func (s *Session) CriticalFloor() (floor int, breaks bool, err error) {
	if !s.state.Solved() {
		return 0, false, ErrNotFinished
	}
	floor = s.state.Offset + 1
	return floor, floor <= s.floors, nil
}

// Oracle reveals what happens when an egg is dropped from a floor.
type Oracle interface {
	Drop(ctx context.Context, floor int) (Outcome, error)
}

// FixedOracle is a building whose critical floor is known. A critical floor
// above the top floor means eggs never break.
type FixedOracle struct {
	Critical int
}

func (o FixedOracle) Drop(_ context.Context, floor int) (Outcome, error) {
	if floor >= o.Critical {
		return Broke, nil
	}
	return Survived, nil
}

// Run plays the session out against an oracle, returning the finished session.
func (s *Session) Run(ctx context.Context, oracle Oracle) (*Session, error) {
	cur := s
	for !cur.Done() {
		if err := ctx.Err(); err != nil {
			return cur, err
		}
		_, floor, err := cur.Recommend()
		if err != nil {
			return cur, err
		}
		outcome, err := oracle.Drop(ctx, floor)
		if err != nil {
			return cur, err
		}
		cur, err = cur.Observe(outcome)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}
