package eggdrop

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

var (
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidAction    = errors.New("invalid action")
	ErrNoFiniteStrategy = errors.New("no finite strategy exists")
	ErrTableTooLarge    = errors.New("solution table too large")
)

// State is a point in the search. Untested floors form a contiguous range
// that starts right above Offset.
type State struct {
	Eggs     int `json:"eggs" yaml:"eggs"`
	Untested int `json:"untested" yaml:"untested"`
	// Offset is the highest floor known to be safe (0 if none). It only
	// maps relative drop positions to absolute floors.
	Offset int `json:"offset" yaml:"offset"`
}

func NewState(eggs, untested, offset int) (State, error) {
	s := State{Eggs: eggs, Untested: untested, Offset: offset}
	if err := s.validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

func (s State) validate() error {
	if s.Eggs < 0 || s.Untested < 0 || s.Offset < 0 {
		return fmt.Errorf("%w: eggs %d, untested %d, offset %d",
			ErrInvalidState, s.Eggs, s.Untested, s.Offset)
	}
	return nil
}

// Solved means no ambiguity is left.
func (s State) Solved() bool {
	return s.Untested == 0
}

// Failed means floors remain but there are no eggs to test them with.
func (s State) Failed() bool {
	return s.Eggs == 0 && s.Untested > 0
}

func (s State) Terminal() bool {
	return s.Solved() || s.Failed()
}

// Floor translates a relative drop position into an absolute floor.
func (s State) Floor(action int) int {
	return s.Offset + action
}

// Range returns the absolute floors still untested, lowest first.
func (s State) Range() (low, high int) {
	return s.Offset + 1, s.Offset + s.Untested
}

func (s State) String() string {
	return fmt.Sprintf("%d eggs, %d untested floors above floor %d",
		s.Eggs, s.Untested, s.Offset)
}

// Actions returns the legal relative drop positions for s.
func Actions(s State) ([]int, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return actions(s.Eggs, s.Untested), nil
}

func actions(eggs, untested int) []int {
	return lo.RangeFrom(1, lastAction(eggs, untested))
}

// lastAction is the highest legal relative drop position; every position
// from 1 up to it is legal. 0 means there is no legal action.
func lastAction(eggs, untested int) int {
	switch {
	case untested == 0 || eggs == 0:
		return 0
	case eggs == 1:
		// A lone egg can't be risked above the lowest untested floor.
		return 1
	}
	return untested
}

// Transition returns the two states that follow dropping from the relative
// position action: the one where the egg breaks, and the one where it survives.
func Transition(s State, action int) (breaks, survives State, err error) {
	if err = s.validate(); err != nil {
		return
	}
	if s.Terminal() {
		err = fmt.Errorf("%w: no drop possible from terminal state (%s)",
			ErrInvalidAction, s)
		return
	}
	if action < 1 || action > s.Untested {
		err = fmt.Errorf("%w: action %d outside [1, %d]", ErrInvalidAction,
			action, s.Untested)
		return
	}
	if action > lastAction(s.Eggs, s.Untested) {
		err = fmt.Errorf("%w: with one egg the only legal action is 1, got %d",
			ErrInvalidAction, action)
		return
	}
	breaks = State{Eggs: s.Eggs - 1, Untested: action - 1, Offset: s.Offset}
	survives = State{Eggs: s.Eggs, Untested: s.Untested - action, Offset: s.Floor(action)}
	return
}
