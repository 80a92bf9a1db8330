package eggdrop

import (
	"github.com/domino14/eggdrop/cache"
	"github.com/domino14/eggdrop/config"
)

// NewSolverFromConfig sets up a solver with the configured thread count and
// memory limit. memo may be nil.
func NewSolverFromConfig(cfg *config.Config, memo *cache.Cache) *Solver {
	s := NewSolver()
	s.SetThreads(cfg.GetInt(config.ConfigSolverThreads))
	s.SetMemoryFraction(cfg.GetFloat64(config.ConfigMaxTableMemoryFraction))
	if memo != nil {
		s.SetMemo(memo)
	}
	return s
}
