package raptor

import (
	"github.com/travigo/raptor/pkg/journey"
	"github.com/travigo/raptor/pkg/timetable"
)

type labelKind uint8

const (
	kindNone labelKind = iota
	kindOrigin
	kindTrip
	kindTransfer
	kindRide
	kindCarried
)

const (
	phaseArrival = 0
	phaseRide    = 1
)

type rideLeg struct {
	trip      timetable.TripIndex
	boardStop timetable.StopIndex
	board     int32
	alight    int32
}

type transferLeg struct {
	from     timetable.StopIndex
	duration timetable.Time
}

// EarliestArrivalResult holds the per-round labels of an earliest arrival scan. Every slot is a
// (round, stop) pair laid out round-major. The ride columns hold what the route phase of a round
// produced, the arrival columns what the round ended with after transfers.
type EarliestArrivalResult struct {
	tt    *timetable.Timetable
	query *resolvedQuery

	departure timetable.Time
	maxRounds int
	rounds    int
	stops     int

	arrival     []timetable.Time
	arrivalKind []labelKind
	walks       []transferLeg

	ride     []timetable.Time
	rideKind []labelKind
	rides    []rideLeg

	best     []timetable.Time
	bestRide []timetable.Time
	bound    timetable.Time
}

// EarliestArrival runs the round based earliest arrival scan. Round k of the result holds, for every
// stop, the earliest arrival using at most k boardings.
func EarliestArrival(tt *timetable.Timetable, q Query) (*EarliestArrivalResult, error) {
	query, err := q.resolve(tt)
	if err != nil {
		return nil, err
	}

	n := tt.StopCount()
	size := (q.MaxRounds + 1) * n

	r := &EarliestArrivalResult{
		tt:          tt,
		query:       query,
		departure:   q.Departure,
		maxRounds:   q.MaxRounds,
		stops:       n,
		arrival:     fillTimes(size),
		arrivalKind: make([]labelKind, size),
		walks:       make([]transferLeg, size),
		ride:        fillTimes(size),
		rideKind:    make([]labelKind, size),
		rides:       make([]rideLeg, size),
		best:        fillTimes(n),
		bestRide:    fillTimes(n),
		bound:       timetable.Infinity,
	}

	marked := newStopSet(n)
	improved := newStopSet(n)
	queue := newPatternQueue(tt.PatternCount())

	for _, origin := range query.origins {
		r.ride[origin] = q.Departure
		r.rideKind[origin] = kindOrigin
		r.arrival[origin] = q.Departure
		r.arrivalKind[origin] = kindRide
		r.bestRide[origin] = q.Departure
		r.improve(origin, q.Departure)

		marked.add(origin)
		improved.add(origin)
	}

	r.relaxTransfers(0, improved, marked)
	query.observer.RoundCompleted(0, marked.len())

	for k := 1; k <= q.MaxRounds && marked.len() > 0; k++ {
		r.rounds = k

		previous := (k - 1) * n
		current := k * n
		for stop := 0; stop < n; stop++ {
			if r.arrival[previous+stop].Reachable() {
				r.arrival[current+stop] = r.arrival[previous+stop]
				r.arrivalKind[current+stop] = kindCarried
			}
		}

		queue.collect(tt, marked)
		marked.clear()
		improved.clear()

		for _, pattern := range queue.list {
			r.scanPattern(k, pattern, queue.start[pattern], improved, marked)
		}
		queue.reset()

		r.relaxTransfers(k, improved, marked)
		query.observer.RoundCompleted(k, marked.len())
	}

	return r, nil
}

func (r *EarliestArrivalResult) improve(stop timetable.StopIndex, t timetable.Time) {
	r.best[stop] = t
	if r.query.isDestination != nil && r.query.isDestination[stop] && t < r.bound {
		r.bound = t
	}
}

func (r *EarliestArrivalResult) accepts(stop timetable.StopIndex, t timetable.Time) bool {
	return t < r.best[stop] && t < r.bound
}

func (r *EarliestArrivalResult) scanPattern(k int, index timetable.PatternIndex, start int, improved, marked *stopSet) {
	pattern := r.tt.Pattern(index)
	stops := pattern.Stops()
	previous := (k - 1) * r.stops
	current := k * r.stops

	trip := -1
	var boardStop timetable.StopIndex
	var board int

	for position := start; position < len(stops); position++ {
		stop := stops[position]

		if trip >= 0 {
			arrival := pattern.Arrival(trip, position)

			// a ride that loses to a walked arrival still walks on in the transfer phase
			if arrival < r.bestRide[stop] && arrival < r.bound {
				slot := current + int(stop)

				r.bestRide[stop] = arrival
				r.ride[slot] = arrival
				r.rideKind[slot] = kindTrip
				r.rides[slot] = rideLeg{
					trip:      pattern.Trips()[trip],
					boardStop: boardStop,
					board:     int32(board),
					alight:    int32(position),
				}
				improved.add(stop)

				if arrival < r.best[stop] {
					r.improve(stop, arrival)
					r.arrival[slot] = arrival
					r.arrivalKind[slot] = kindRide
					marked.add(stop)
				}
			}
		}

		if position == len(stops)-1 {
			break
		}

		reached := r.arrival[previous+int(stop)]
		if !reached.Reachable() {
			continue
		}
		if trip >= 0 && reached > pattern.Departure(trip, position) {
			continue
		}

		limit := pattern.TripCount()
		if trip >= 0 {
			limit = trip
		}
		if earlier, ok := pattern.EarliestTripBefore(position, reached, limit); ok {
			trip = earlier
			boardStop = stop
			board = position
		}
	}
}

func (r *EarliestArrivalResult) relaxTransfers(k int, improved, marked *stopSet) {
	current := k * r.stops

	for _, stop := range improved.stops() {
		from := r.ride[current+int(stop)]

		for _, transfer := range r.tt.Transfers(stop) {
			arrival := from + transfer.Duration
			if !r.accepts(transfer.To, arrival) {
				continue
			}

			slot := current + int(transfer.To)
			r.improve(transfer.To, arrival)
			r.arrival[slot] = arrival
			r.arrivalKind[slot] = kindTransfer
			r.walks[slot] = transferLeg{from: stop, duration: transfer.Duration}

			marked.add(transfer.To)
		}
	}
}

// Rounds is the number of rounds actually executed. It is below MaxRounds when the scan reached a
// fixed point early.
func (r *EarliestArrivalResult) Rounds() int {
	return r.rounds
}

func (r *EarliestArrivalResult) MaxRounds() int {
	return r.maxRounds
}

func (r *EarliestArrivalResult) Departure() timetable.Time {
	return r.departure
}

// Arrival is the earliest arrival at a stop or station within the round limit.
func (r *EarliestArrivalResult) Arrival(id string) (timetable.Time, bool) {
	return r.ArrivalWithin(id, r.maxRounds)
}

// ArrivalWithin is the earliest arrival using at most rounds boardings.
func (r *EarliestArrivalResult) ArrivalWithin(id string, rounds int) (timetable.Time, bool) {
	stops, err := r.tt.Resolve(id)
	if err != nil || rounds < 0 {
		return timetable.Infinity, false
	}
	if rounds > r.rounds {
		rounds = r.rounds
	}

	best := timetable.Infinity
	for _, stop := range stops {
		if arrival := r.arrival[rounds*r.stops+int(stop)]; arrival < best {
			best = arrival
		}
	}

	return best, best.Reachable()
}

// DestinationArrival is the earliest arrival over all destination stops.
func (r *EarliestArrivalResult) DestinationArrival() (timetable.Time, bool) {
	return r.bound, r.bound.Reachable()
}

// NoPathFound reports that a destination was given and could not be reached.
func (r *EarliestArrivalResult) NoPathFound() bool {
	return r.query.destinations != nil && !r.bound.Reachable()
}

// Journey reconstructs the journey arriving earliest at a stop or station, with the fewest boardings
// among equally early ones.
func (r *EarliestArrivalResult) Journey(id string) (*journey.Journey, bool, error) {
	stops, err := r.tt.Resolve(id)
	if err != nil {
		return nil, false, err
	}

	target := timetable.NoStop
	for _, stop := range stops {
		if !r.best[stop].Reachable() {
			continue
		}
		if target == timetable.NoStop || r.best[stop] < r.best[target] ||
			(r.best[stop] == r.best[target] && r.firstRound(stop) < r.firstRound(target)) {
			target = stop
		}
	}

	if target == timetable.NoStop {
		return nil, false, nil
	}

	ref := slotRef(r.firstRound(target)*r.stops+int(target), phaseArrival)
	j, err := journey.Reconstruct(r.tt, r, ref)
	if err != nil {
		return nil, false, err
	}

	return j, true, nil
}

// Journeys returns the journey to id as a list, empty when it was not reached.
func (r *EarliestArrivalResult) Journeys(id string) ([]*journey.Journey, error) {
	j, found, err := r.Journey(id)
	if err != nil || !found {
		return nil, err
	}
	return []*journey.Journey{j}, nil
}

func (r *EarliestArrivalResult) firstRound(stop timetable.StopIndex) int {
	for k := 0; k <= r.rounds; k++ {
		if r.arrival[k*r.stops+int(stop)] == r.best[stop] {
			return k
		}
	}
	return r.rounds
}

func slotRef(slot int, phase int) journey.Ref {
	return journey.Ref(slot<<1 | phase)
}

func (r *EarliestArrivalResult) Hop(ref journey.Ref) (journey.Hop, bool) {
	if ref < 0 {
		return journey.Hop{}, false
	}

	slot := int(ref >> 1)
	phase := int(ref & 1)
	if slot >= len(r.arrival) {
		return journey.Hop{}, false
	}

	if phase == phaseArrival {
		for r.arrivalKind[slot] == kindCarried {
			if slot < r.stops {
				return journey.Hop{}, false
			}
			slot -= r.stops
		}

		switch r.arrivalKind[slot] {
		case kindRide:
			return r.Hop(slotRef(slot, phaseRide))
		case kindTransfer:
			walk := r.walks[slot]
			round := slot / r.stops
			return journey.Hop{
				Kind:     journey.HopTransfer,
				Stop:     timetable.StopIndex(slot % r.stops),
				Arrival:  r.arrival[slot],
				From:     walk.from,
				Duration: walk.duration,
				Parent:   slotRef(round*r.stops+int(walk.from), phaseRide),
			}, true
		default:
			return journey.Hop{}, false
		}
	}

	stop := timetable.StopIndex(slot % r.stops)
	switch r.rideKind[slot] {
	case kindOrigin:
		return journey.Hop{
			Kind:    journey.HopOrigin,
			Stop:    stop,
			Arrival: r.ride[slot],
			Parent:  journey.NoRef,
		}, true
	case kindTrip:
		leg := r.rides[slot]
		if slot < r.stops {
			return journey.Hop{}, false
		}
		return journey.Hop{
			Kind:           journey.HopTrip,
			Stop:           stop,
			Arrival:        r.ride[slot],
			Trip:           leg.trip,
			BoardPosition:  int(leg.board),
			AlightPosition: int(leg.alight),
			Parent:         slotRef(slot-r.stops-int(stop)+int(leg.boardStop), phaseArrival),
		}, true
	default:
		return journey.Hop{}, false
	}
}
