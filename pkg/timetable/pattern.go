package timetable

import "sort"

// Pattern is a group of trips of one route sharing an identical stop sequence. Trips inside a pattern
// never overtake each other, so departures at any position are sorted by trip position. Times are
// stored trip-major in flat columns.
type Pattern struct {
	Route RouteIndex

	stops      []StopIndex
	trips      []TripIndex
	arrivals   []Time
	departures []Time
	fares      []int64
}

func (p *Pattern) Stops() []StopIndex {
	return p.stops
}

func (p *Pattern) Trips() []TripIndex {
	return p.trips
}

func (p *Pattern) StopCount() int {
	return len(p.stops)
}

func (p *Pattern) TripCount() int {
	return len(p.trips)
}

func (p *Pattern) Arrival(trip int, position int) Time {
	return p.arrivals[trip*len(p.stops)+position]
}

func (p *Pattern) Departure(trip int, position int) Time {
	return p.departures[trip*len(p.stops)+position]
}

// Fare is the supplement charged when alighting trip at position.
func (p *Pattern) Fare(trip int, position int) int64 {
	if p.fares == nil {
		return 0
	}
	return p.fares[trip*len(p.stops)+position]
}

// HasFares reports whether any stop time of the pattern carries a supplement.
func (p *Pattern) HasFares() bool {
	return p.fares != nil
}

// EarliestTrip finds the first trip departing position at or after t.
func (p *Pattern) EarliestTrip(position int, t Time) (int, bool) {
	return p.EarliestTripBefore(position, t, len(p.trips))
}

// EarliestTripBefore is EarliestTrip restricted to trips [0, limit).
func (p *Pattern) EarliestTripBefore(position int, t Time, limit int) (int, bool) {
	if limit > len(p.trips) {
		limit = len(p.trips)
	}

	stride := len(p.stops)
	trip := sort.Search(limit, func(i int) bool {
		return p.departures[i*stride+position] >= t
	})

	if trip >= limit {
		return -1, false
	}
	return trip, true
}
