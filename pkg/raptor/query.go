package raptor

import (
	"errors"
	"fmt"

	"github.com/travigo/raptor/pkg/timetable"
)

// ErrInvalidQuery is returned for queries whose parameters can never be answered, such as a
// non-positive round limit.
var ErrInvalidQuery = errors.New("invalid query")

// Query describes a single scan. Origin and Destination may name a stop or a station; a station
// expands to all its stops. Destination is optional.
type Query struct {
	Origin      string
	Departure   timetable.Time
	Destination string

	// MaxRounds bounds the number of vehicle boardings.
	MaxRounds int

	Observer Observer
}

type resolvedQuery struct {
	origins       []timetable.StopIndex
	destinations  []timetable.StopIndex
	isDestination []bool
	observer      Observer
}

func (q Query) resolve(tt *timetable.Timetable) (*resolvedQuery, error) {
	if q.MaxRounds < 1 {
		return nil, fmt.Errorf("%w: max rounds must be at least 1, got %d", ErrInvalidQuery, q.MaxRounds)
	}
	if q.Departure < 0 || !q.Departure.Reachable() {
		return nil, fmt.Errorf("%w: departure time %d out of range", ErrInvalidQuery, q.Departure)
	}

	origins, err := tt.Resolve(q.Origin)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}

	resolved := &resolvedQuery{
		origins:  origins,
		observer: q.Observer,
	}

	if resolved.observer == nil {
		resolved.observer = NopObserver{}
	}

	if q.Destination != "" {
		destinations, err := tt.Resolve(q.Destination)
		if err != nil {
			return nil, fmt.Errorf("destination: %w", err)
		}

		resolved.destinations = destinations
		resolved.isDestination = make([]bool, tt.StopCount())
		for _, stop := range destinations {
			resolved.isDestination[stop] = true
		}
	}

	return resolved, nil
}
