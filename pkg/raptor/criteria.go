package raptor

import (
	"fmt"

	"github.com/travigo/raptor/pkg/timetable"
	"golang.org/x/exp/slices"
)

type Criterion string

const (
	CriterionArrival   Criterion = "arrival"
	CriterionTransfers Criterion = "transfers"
	CriterionWalking   Criterion = "walking"
	CriterionFare      Criterion = "fare"
)

const maxCriteria = 4

// Criteria configures a multi-criteria scan. Arrival time and number of boardings are always
// compared first, in that order, followed by Extra.
type Criteria struct {
	Extra []Criterion `yaml:"extra"`

	// BagCap bounds the labels kept per stop, 0 keeps every non-dominated label.
	BagCap int `yaml:"bag_cap" validate:"gte=0"`
}

func (c Criteria) Validate() error {
	if c.BagCap < 0 {
		return fmt.Errorf("%w: negative bag cap %d", ErrInvalidQuery, c.BagCap)
	}

	for i, criterion := range c.Extra {
		switch criterion {
		case CriterionWalking, CriterionFare:
		case CriterionArrival, CriterionTransfers:
			return fmt.Errorf("%w: %s is always compared", ErrInvalidQuery, criterion)
		default:
			return fmt.Errorf("%w: unknown criterion %q", ErrInvalidQuery, criterion)
		}

		if slices.Contains(c.Extra[:i], criterion) {
			return fmt.Errorf("%w: criterion %s listed twice", ErrInvalidQuery, criterion)
		}
	}

	return nil
}

// Order lists the compared criteria in the order labels are ranked by.
func (c Criteria) Order() []Criterion {
	return append([]Criterion{CriterionArrival, CriterionTransfers}, c.Extra...)
}

// Label is the criteria vector of one journey.
type Label struct {
	Arrival   timetable.Time
	Boardings int
	Walking   timetable.Time
	Fare      int64
}

func (l Label) Transfers() int {
	if l.Boardings == 0 {
		return 0
	}
	return l.Boardings - 1
}

type vector [maxCriteria]int64

type relation int8

const (
	incomparable relation = iota
	dominates
	dominated
	equivalent
)

// ranking projects labels onto the configured criteria.
type ranking struct {
	order []Criterion
	width int
}

func newRanking(c Criteria) ranking {
	order := c.Order()
	return ranking{order: order, width: len(order)}
}

func (r ranking) project(arrival int64, boardings int, walking timetable.Time, fare int64) vector {
	var v vector
	for i, criterion := range r.order {
		switch criterion {
		case CriterionArrival:
			v[i] = arrival
		case CriterionTransfers:
			v[i] = int64(boardings)
		case CriterionWalking:
			v[i] = int64(walking)
		case CriterionFare:
			v[i] = fare
		}
	}
	return v
}

func (r ranking) label(l Label) vector {
	return r.project(int64(l.Arrival), l.Boardings, l.Walking, l.Fare)
}

func (r ranking) relate(a, b *vector) relation {
	better, worse := false, false
	for i := 0; i < r.width; i++ {
		if a[i] < b[i] {
			better = true
		} else if a[i] > b[i] {
			worse = true
		}
	}

	switch {
	case better && worse:
		return incomparable
	case better:
		return dominates
	case worse:
		return dominated
	default:
		return equivalent
	}
}

func (r ranking) compare(a, b *vector) int {
	for i := 0; i < r.width; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Dominates reports whether a is no worse than b in every configured criterion and strictly better
// in at least one.
func (c Criteria) Dominates(a, b Label) bool {
	r := newRanking(c)
	va, vb := r.label(a), r.label(b)
	return r.relate(&va, &vb) == dominates
}

// Compare ranks labels lexicographically in criteria order.
func (c Criteria) Compare(a, b Label) int {
	r := newRanking(c)
	va, vb := r.label(a), r.label(b)
	return r.compare(&va, &vb)
}

// Covers reports whether a is no worse than b in every configured criterion.
func (c Criteria) Covers(a, b Label) bool {
	r := newRanking(c)
	va, vb := r.label(a), r.label(b)
	switch r.relate(&va, &vb) {
	case dominates, equivalent:
		return true
	}
	return false
}
