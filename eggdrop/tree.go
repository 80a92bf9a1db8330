package eggdrop

import (
	"fmt"
)

// Node is one state in the full decision tree of an optimal strategy. Inner
// nodes carry the drop to make and both outcomes; leaves are solved states
// and name the critical floor.
type Node struct {
	State    State `json:"state" yaml:"state"`
	Floor    int   `json:"floor,omitempty" yaml:"floor,omitempty"`
	Drops    int   `json:"drops" yaml:"drops"`
	Critical int   `json:"critical,omitempty" yaml:"critical,omitempty"`
	Breaks   *Node `json:"breaks,omitempty" yaml:"breaks,omitempty"`
	Survives *Node `json:"survives,omitempty" yaml:"survives,omitempty"`
}

func (n *Node) Leaf() bool {
	return n.Breaks == nil && n.Survives == nil
}

// Depth is the longest run of drops from n to a leaf.
func (n *Node) Depth() int {
	if n == nil || n.Leaf() {
		return 0
	}
	return 1 + max(n.Breaks.Depth(), n.Survives.Depth())
}

// Leaves counts the distinct outcomes the tree can end in.
func (n *Node) Leaves() int {
	if n == nil {
		return 0
	}
	if n.Leaf() {
		return 1
	}
	return n.Breaks.Leaves() + n.Survives.Leaves()
}

// Tree builds the optimal strategy from st with both outcomes followed at
// every drop.
func (s *Solver) Tree(st State) (*Node, error) {
	if err := st.validate(); err != nil {
		return nil, err
	}
	if st.Failed() {
		return nil, fmt.Errorf("%w: %s", ErrNoFiniteStrategy, st)
	}
	t, err := s.Table(st.Eggs, st.Untested)
	if err != nil {
		return nil, err
	}
	return buildNode(t, st)
}

func buildNode(t *Table, st State) (*Node, error) {
	sol := t.get(st.Eggs, st.Untested)
	n := &Node{State: st, Drops: sol.Value}
	if st.Solved() {
		n.Critical = st.Offset + 1
		return n, nil
	}
	breaks, survives, err := Transition(st, sol.Action)
	if err != nil {
		return nil, err
	}
	n.Floor = st.Floor(sol.Action)
	if n.Breaks, err = buildNode(t, breaks); err != nil {
		return nil, err
	}
	if n.Survives, err = buildNode(t, survives); err != nil {
		return nil, err
	}
	return n, nil
}

// Lines lists every drop in the tree, depth first with the break outcome
// first, each labelled with the outcomes that led to it.
func (n *Node) Lines() []string {
	var lines []string
	var walk func(node *Node, path string, step int)
	walk = func(node *Node, path string, step int) {
		if node == nil || node.Leaf() {
			return
		}
		lines = append(lines,
			fmt.Sprintf("Step %d%s:", step, path),
			fmt.Sprintf("- Drop egg from floor %d", node.Floor))
		walk(node.Breaks, fmt.Sprintf("%s -> [Breaks at %d]", path, node.Floor), step+1)
		walk(node.Survives, fmt.Sprintf("%s -> [Survives %d]", path, node.Floor), step+1)
	}
	walk(n, "", 1)
	return lines
}
