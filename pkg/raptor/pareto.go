package raptor

import (
	"github.com/travigo/raptor/pkg/journey"
	"github.com/travigo/raptor/pkg/timetable"
	"golang.org/x/exp/slices"
)

// ParetoResult holds the per-round Pareto bags of a multi-criteria scan. Labels live in one arena
// and bags reference them by index, so a label carried into later rounds is shared, never copied.
type ParetoResult struct {
	tt       *timetable.Timetable
	query    *resolvedQuery
	criteria Criteria
	ranking  ranking
	byFare   bool

	departure timetable.Time
	maxRounds int
	rounds    int
	stops     int

	arena []arenaLabel
	bags  [][]int32

	// non-dominated route phase labels of the current round, the sources of its transfers
	rides [][]int32

	overflows int
}

// Pareto runs the multi-criteria scan. The bag of a stop in round k holds every label reaching it with
// at most k boardings that no other such label dominates, subject to Criteria.BagCap.
func Pareto(tt *timetable.Timetable, q Query, criteria Criteria) (*ParetoResult, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	query, err := q.resolve(tt)
	if err != nil {
		return nil, err
	}

	n := tt.StopCount()

	r := &ParetoResult{
		tt:        tt,
		query:     query,
		criteria:  criteria,
		ranking:   newRanking(criteria),
		byFare:    slices.Contains(criteria.Extra, CriterionFare),
		departure: q.Departure,
		maxRounds: q.MaxRounds,
		stops:     n,
		bags:      make([][]int32, (q.MaxRounds+1)*n),
		rides:     make([][]int32, n),
	}

	marked := newStopSet(n)
	rode := newStopSet(n)
	queue := newPatternQueue(tt.PatternCount())
	routes := &routeBag{ranking: r.ranking}

	for _, origin := range query.origins {
		candidate := arenaLabel{
			Label:  Label{Arrival: q.Departure},
			stop:   origin,
			kind:   kindOrigin,
			parent: -1,
		}
		candidate.values = r.ranking.label(candidate.Label)

		index := r.add(candidate)
		r.insert(&r.bags[origin], index, 0, true)
		r.rides[origin] = append(r.rides[origin], index)

		rode.add(origin)
		marked.add(origin)
	}

	r.relaxTransfers(0, rode, marked)
	query.observer.RoundCompleted(0, marked.len())

	for k := 1; k <= q.MaxRounds && marked.len() > 0; k++ {
		r.rounds = k

		previous := (k - 1) * n
		current := k * n
		for stop := 0; stop < n; stop++ {
			if len(r.bags[previous+stop]) > 0 {
				r.bags[current+stop] = slices.Clone(r.bags[previous+stop])
			}
		}

		queue.collect(tt, marked)
		marked.clear()
		for _, stop := range rode.stops() {
			r.rides[stop] = r.rides[stop][:0]
		}
		rode.clear()

		for _, pattern := range queue.list {
			r.scanPattern(k, pattern, queue.start[pattern], routes, rode, marked)
		}
		queue.reset()

		r.relaxTransfers(k, rode, marked)
		query.observer.RoundCompleted(k, marked.len())
	}

	return r, nil
}

// pruned reports whether a label already at a destination is at least as good as candidate. Criteria
// never improve along a journey, so nothing built on candidate could join a destination bag.
func (r *ParetoResult) pruned(candidate *vector, round int) bool {
	current := round * r.stops
	for _, destination := range r.query.destinations {
		if r.covered(r.bags[current+int(destination)], candidate) {
			return true
		}
	}
	return false
}

func (r *ParetoResult) scanPattern(k int, index timetable.PatternIndex, start int, routes *routeBag, rode, marked *stopSet) {
	pattern := r.tt.Pattern(index)
	stops := pattern.Stops()
	trips := pattern.Trips()
	routeFare := r.tt.Route(pattern.Route).Fare
	previous := (k - 1) * r.stops
	current := k * r.stops

	routes.reset(r.byFare && pattern.HasFares())

	for position := start; position < len(stops); position++ {
		stop := stops[position]
		slot := current + int(stop)

		for _, riding := range routes.labels {
			candidate := arenaLabel{
				Label: Label{
					Arrival:   pattern.Arrival(riding.trip, position),
					Boardings: riding.boardings,
					Walking:   riding.walking,
					Fare:      riding.fare + pattern.Fare(riding.trip, position),
				},
				stop:   stop,
				round:  int32(k),
				kind:   kindTrip,
				trip:   trips[riding.trip],
				board:  int32(riding.board),
				alight: int32(position),
				parent: riding.parent,
			}
			candidate.values = r.ranking.label(candidate.Label)

			if r.pruned(&candidate.values, k) {
				continue
			}

			asRide := !r.covered(r.rides[stop], &candidate.values)
			asArrival := !r.covered(r.bags[slot], &candidate.values)
			if !asRide && !asArrival {
				continue
			}

			added := r.add(candidate)
			if asRide {
				r.insert(&r.rides[stop], added, k, false)
				rode.add(stop)
			}
			if asArrival && r.insert(&r.bags[slot], added, k, true) {
				marked.add(stop)
			}
		}

		if position == len(stops)-1 {
			break
		}

		for _, labelIndex := range r.bags[previous+int(stop)] {
			label := r.arena[labelIndex]
			if int(label.round) != k-1 {
				continue
			}

			trip, ok := pattern.EarliestTrip(position, label.Arrival)
			if !ok {
				continue
			}

			boarding := routeLabel{
				trip:      trip,
				board:     position,
				parent:    labelIndex,
				boardings: label.Boardings + 1,
				walking:   label.Walking,
				fare:      label.Fare + routeFare,
			}
			boarding.values = r.ranking.project(int64(trip), boarding.boardings, boarding.walking, boarding.fare)

			routes.merge(boarding)
		}
	}
}

func (r *ParetoResult) relaxTransfers(k int, rode, marked *stopSet) {
	current := k * r.stops

	for _, stop := range rode.stops() {
		for _, index := range r.rides[stop] {
			label := r.arena[index]

			for _, transfer := range r.tt.Transfers(stop) {
				candidate := arenaLabel{
					Label: Label{
						Arrival:   label.Arrival + transfer.Duration,
						Boardings: label.Boardings,
						Walking:   label.Walking + transfer.Duration,
						Fare:      label.Fare,
					},
					stop:     transfer.To,
					round:    int32(k),
					kind:     kindTransfer,
					from:     stop,
					duration: transfer.Duration,
					parent:   index,
				}
				candidate.values = r.ranking.label(candidate.Label)

				slot := current + int(transfer.To)
				if r.pruned(&candidate.values, k) || r.covered(r.bags[slot], &candidate.values) {
					continue
				}

				if r.insert(&r.bags[slot], r.add(candidate), k, true) {
					marked.add(transfer.To)
				}
			}
		}
	}
}

func (r *ParetoResult) Rounds() int {
	return r.rounds
}

func (r *ParetoResult) MaxRounds() int {
	return r.maxRounds
}

func (r *ParetoResult) Departure() timetable.Time {
	return r.departure
}

func (r *ParetoResult) Criteria() Criteria {
	return r.criteria
}

// Overflows counts the labels dropped because a bag exceeded its cap. A non-zero value means the
// bags may be missing non-dominated journeys.
func (r *ParetoResult) Overflows() int {
	return r.overflows
}

// Bag returns the final labels at a stop or station sorted lexicographically in criteria order.
func (r *ParetoResult) Bag(id string) ([]Label, error) {
	return r.BagWithin(id, r.maxRounds)
}

// BagWithin is Bag restricted to labels using at most rounds boardings.
func (r *ParetoResult) BagWithin(id string, rounds int) ([]Label, error) {
	indices, err := r.labelsAt(id, rounds)
	if err != nil {
		return nil, err
	}

	labels := make([]Label, len(indices))
	for i, index := range indices {
		labels[i] = r.arena[index].Label
	}
	return labels, nil
}

// Journeys reconstructs every label of the final bag at a stop or station.
func (r *ParetoResult) Journeys(id string) ([]*journey.Journey, error) {
	indices, err := r.labelsAt(id, r.maxRounds)
	if err != nil {
		return nil, err
	}

	journeys := make([]*journey.Journey, 0, len(indices))
	for _, index := range indices {
		j, err := journey.Reconstruct(r.tt, r, journey.Ref(index))
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}

	return journeys, nil
}

// NoPathFound reports that a destination was given and its bags stayed empty.
func (r *ParetoResult) NoPathFound() bool {
	if r.query.destinations == nil {
		return false
	}

	current := r.rounds * r.stops
	for _, destination := range r.query.destinations {
		if len(r.bags[current+int(destination)]) > 0 {
			return false
		}
	}
	return true
}

func (r *ParetoResult) labelsAt(id string, rounds int) ([]int32, error) {
	stops, err := r.tt.Resolve(id)
	if err != nil {
		return nil, err
	}

	if rounds > r.rounds {
		rounds = r.rounds
	}
	if rounds < 0 {
		rounds = 0
	}

	var indices []int32
	for _, stop := range stops {
		indices = append(indices, r.bags[rounds*r.stops+int(stop)]...)
	}

	slices.SortFunc(indices, func(a, b int32) int {
		if c := r.ranking.compare(&r.arena[a].values, &r.arena[b].values); c != 0 {
			return c
		}
		return int(a) - int(b)
	})

	if len(stops) > 1 {
		indices = r.frontier(indices)
	}

	return indices, nil
}

// frontier drops labels dominated by or equal to an earlier one. indices must be sorted.
func (r *ParetoResult) frontier(indices []int32) []int32 {
	var kept []int32
	for _, index := range indices {
		covered := slices.ContainsFunc(kept, func(other int32) bool {
			switch r.ranking.relate(&r.arena[other].values, &r.arena[index].values) {
			case dominates, equivalent:
				return true
			}
			return false
		})
		if !covered {
			kept = append(kept, index)
		}
	}
	return kept
}

func (r *ParetoResult) Hop(ref journey.Ref) (journey.Hop, bool) {
	if ref < 0 || int(ref) >= len(r.arena) {
		return journey.Hop{}, false
	}

	label := r.arena[ref]
	hop := journey.Hop{
		Stop:    label.stop,
		Arrival: label.Arrival,
		Parent:  journey.Ref(label.parent),
	}

	switch label.kind {
	case kindOrigin:
		hop.Kind = journey.HopOrigin
		hop.Parent = journey.NoRef
	case kindTrip:
		hop.Kind = journey.HopTrip
		hop.Trip = label.trip
		hop.BoardPosition = int(label.board)
		hop.AlightPosition = int(label.alight)
	case kindTransfer:
		hop.Kind = journey.HopTransfer
		hop.From = label.from
		hop.Duration = label.duration
	default:
		return journey.Hop{}, false
	}

	return hop, true
}
