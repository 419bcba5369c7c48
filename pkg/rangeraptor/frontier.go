package rangeraptor

import (
	"github.com/travigo/raptor/pkg/journey"
	"github.com/travigo/raptor/pkg/raptor"
	"golang.org/x/exp/slices"
)

// Frontier deduplicates journeys riding the same boarding sequence and keeps those no other journey
// dominates. A journey dominates another when it departs no earlier and is no worse in arrival and,
// in multi-criteria mode, every configured criterion, while being strictly better somewhere.
func Frontier(journeys []*journey.Journey, mode Mode, criteria raptor.Criteria) []*journey.Journey {
	unique := map[string]*journey.Journey{}
	var order []string

	for _, j := range journeys {
		key := j.Key()
		existing, seen := unique[key]
		if !seen {
			order = append(order, key)
			unique[key] = j
			continue
		}
		if j.Departure > existing.Departure || (j.Departure == existing.Departure && j.Arrival < existing.Arrival) {
			unique[key] = j
		}
	}

	candidates := make([]*journey.Journey, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, unique[key])
	}

	var frontier []*journey.Journey
	for _, candidate := range candidates {
		dominated := slices.ContainsFunc(candidates, func(other *journey.Journey) bool {
			return other != candidate && dominates(other, candidate, mode, criteria)
		})
		if !dominated {
			frontier = append(frontier, candidate)
		}
	}

	frontier = dropTies(frontier, mode, criteria)

	slices.SortStableFunc(frontier, func(a, b *journey.Journey) int {
		if a.Departure != b.Departure {
			return int(a.Departure) - int(b.Departure)
		}
		if a.Arrival != b.Arrival {
			return int(a.Arrival) - int(b.Arrival)
		}
		return a.Boardings - b.Boardings
	})

	return frontier
}

func label(j *journey.Journey, mode Mode) raptor.Label {
	if mode != ModeMulti {
		return raptor.Label{Arrival: j.Arrival}
	}
	return raptor.Label{Arrival: j.Arrival, Boardings: j.Boardings, Walking: j.Walking, Fare: j.Fare}
}

func dominates(a, b *journey.Journey, mode Mode, criteria raptor.Criteria) bool {
	if a.Departure < b.Departure {
		return false
	}

	la, lb := label(a, mode), label(b, mode)
	if !criteria.Covers(la, lb) {
		return false
	}

	return a.Departure > b.Departure || criteria.Dominates(la, lb)
}

// dropTies keeps one journey out of each group equal in departure and every compared criterion,
// preferring the fewest boardings and then the first seen.
func dropTies(journeys []*journey.Journey, mode Mode, criteria raptor.Criteria) []*journey.Journey {
	var kept []*journey.Journey
	for _, j := range journeys {
		index := slices.IndexFunc(kept, func(other *journey.Journey) bool {
			return other.Departure == j.Departure && criteria.Compare(label(other, mode), label(j, mode)) == 0
		})
		switch {
		case index < 0:
			kept = append(kept, j)
		case j.Boardings < kept[index].Boardings:
			kept[index] = j
		}
	}
	return kept
}
