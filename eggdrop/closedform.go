package eggdrop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// exactBinomialLimit is the largest n for which every C(n, k) fits in an int.
const exactBinomialLimit = 66

// saturated caps MaxFloors so sums can't overflow.
const saturated = math.MaxInt >> 1

// MaxFloors is the number of floors that can be fully resolved with the
// given eggs and at most drops drops: the sum of C(drops, i) for i from 1 to
// eggs. Results past 2^53 (never needed by the DP) are approximate, and the
// value saturates instead of overflowing.
func MaxFloors(eggs, drops int) int {
	if eggs <= 0 || drops <= 0 {
		return 0
	}
	total := 0
	for i := 1; i <= min(eggs, drops); i++ {
		var c int
		switch {
		case i == 1:
			c = drops
		case drops <= exactBinomialLimit:
			c = combin.Binomial(drops, i)
		default:
			f := combin.GeneralizedBinomial(float64(drops), float64(i))
			if f >= saturated {
				return saturated
			}
			c = int(math.Round(f))
		}
		if c >= saturated-total {
			return saturated
		}
		total += c
	}
	return total
}

// MinDrops computes the same worst-case drop count as Solve, in
// O(eggs log floors) time and constant space, by searching for the fewest
// drops whose MaxFloors reaches floors. It yields no strategy, only the count.
func MinDrops(eggs, floors int) (int, error) {
	if eggs < 0 || floors < 0 {
		return 0, fmt.Errorf("%w: eggs %d, floors %d", ErrInvalidState, eggs, floors)
	}
	if floors == 0 {
		return 0, nil
	}
	if eggs == 0 {
		return Unreachable, fmt.Errorf("%w: 0 eggs, %d floors", ErrNoFiniteStrategy, floors)
	}
	hi := 1
	for MaxFloors(eggs, hi) < floors {
		hi *= 2
	}
	lo := hi / 2
	// MaxFloors(eggs, lo) < floors <= MaxFloors(eggs, hi)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if MaxFloors(eggs, mid) >= floors {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}
