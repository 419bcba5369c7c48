package rangeraptor

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/raptor/pkg/journey"
	"github.com/travigo/raptor/pkg/raptor"
	"github.com/travigo/raptor/pkg/timetable"
	"golang.org/x/exp/slices"
)

type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Request describes a range query. Every departure time in [From, To] is scanned independently.
type Request struct {
	Origin      string
	Destination string

	From timetable.Time
	To   timetable.Time

	// Step between scanned departure times. Zero scans every scheduled departure that can be caught
	// from the origin inside the window.
	Step timetable.Time

	MaxRounds int
	Mode      Mode
	Criteria  raptor.Criteria

	// Workers bounds the concurrently running scans, defaulting to GOMAXPROCS.
	Workers int

	Observer raptor.Observer
}

type FailedRun struct {
	Departure timetable.Time
	Err       error
}

type Result struct {
	// Journeys is the frontier over departure time and the arrival criteria, ordered by departure
	Journeys []*journey.Journey

	// Departures that were scanned to completion
	Departures []timetable.Time

	Failed []FailedRun

	// Cancelled is set when the context ended before every departure was scanned. Journeys then only
	// cover the runs that completed beforehand.
	Cancelled bool
}

// ByDeparture groups the frontier by journey departure time.
func (r *Result) ByDeparture() map[timetable.Time][]*journey.Journey {
	grouped := map[timetable.Time][]*journey.Journey{}
	for _, j := range r.Journeys {
		grouped[j.Departure] = append(grouped[j.Departure], j)
	}
	return grouped
}

type run struct {
	departure timetable.Time
	journeys  []*journey.Journey
	err       error
	discarded bool
}

// Run scans every departure of the window on a bounded worker pool, latest departure first, and merges
// the results. Runs are isolated: a failing run is reported in Result.Failed and the others carry on.
// Cancelling ctx stops dispatching new runs and discards the ones still in flight.
func Run(ctx context.Context, tt *timetable.Timetable, request Request) (*Result, error) {
	if err := request.validate(tt); err != nil {
		return nil, err
	}

	observer := request.Observer
	if observer == nil {
		observer = raptor.NopObserver{}
	}

	workers := request.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	departures, err := Departures(tt, request)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	p := pool.NewWithResults[run]().WithContext(ctx).WithMaxGoroutines(workers)

	for _, departure := range departures {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		p.Go(func(ctx context.Context) (run, error) {
			if ctx.Err() != nil {
				return run{departure: departure, discarded: true}, nil
			}

			outcome := scan(tt, request, observer, departure)
			observer.RunCompleted(departure, len(outcome.journeys), outcome.err)

			if ctx.Err() != nil {
				outcome.discarded = true
			}
			return outcome, nil
		})
	}

	runs, _ := p.Wait()

	// completion order is arbitrary, merge latest departure first
	slices.SortFunc(runs, func(a, b run) int {
		return int(b.departure) - int(a.departure)
	})

	var collected []*journey.Journey
	for _, outcome := range runs {
		switch {
		case outcome.discarded:
			result.Cancelled = true
		case outcome.err != nil:
			result.Failed = append(result.Failed, FailedRun{Departure: outcome.departure, Err: outcome.err})
		default:
			result.Departures = append(result.Departures, outcome.departure)
			collected = append(collected, outcome.journeys...)
		}
	}

	if ctx.Err() != nil {
		result.Cancelled = true
	}

	slices.Sort(result.Departures)
	slices.SortFunc(result.Failed, func(a, b FailedRun) int {
		return int(a.Departure) - int(b.Departure)
	})

	result.Journeys = Frontier(collected, request.Mode, request.Criteria)

	return result, nil
}

func (request Request) validate(tt *timetable.Timetable) error {
	if request.Destination == "" {
		return fmt.Errorf("%w: range queries need a destination", raptor.ErrInvalidQuery)
	}
	if request.To < request.From {
		return fmt.Errorf("%w: window ends at %s before it starts at %s", raptor.ErrInvalidQuery, request.To, request.From)
	}
	if request.Step < 0 {
		return fmt.Errorf("%w: negative step %d", raptor.ErrInvalidQuery, request.Step)
	}
	if request.MaxRounds < 1 {
		return fmt.Errorf("%w: max rounds must be at least 1, got %d", raptor.ErrInvalidQuery, request.MaxRounds)
	}

	switch request.Mode {
	case ModeSingle:
	case ModeMulti:
		if err := request.Criteria.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", raptor.ErrInvalidQuery, request.Mode)
	}

	if _, err := tt.Resolve(request.Origin); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if _, err := tt.Resolve(request.Destination); err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	return nil
}

func scan(tt *timetable.Timetable, request Request, observer raptor.Observer, departure timetable.Time) (outcome run) {
	outcome.departure = departure

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.journeys = nil
			outcome.err = fmt.Errorf("scan at %s panicked: %v", departure, recovered)
		}
	}()

	query := raptor.Query{
		Origin:      request.Origin,
		Departure:   departure,
		Destination: request.Destination,
		MaxRounds:   request.MaxRounds,
		Observer:    observer,
	}

	if request.Mode == ModeMulti {
		result, err := raptor.Pareto(tt, query, request.Criteria)
		if err != nil {
			outcome.err = err
			return outcome
		}
		outcome.journeys, outcome.err = result.Journeys(request.Destination)
		return outcome
	}

	result, err := raptor.EarliestArrival(tt, query)
	if err != nil {
		outcome.err = err
		return outcome
	}
	outcome.journeys, outcome.err = result.Journeys(request.Destination)
	return outcome
}

// Departures lists the departure times a request scans, latest first.
func Departures(tt *timetable.Timetable, request Request) ([]timetable.Time, error) {
	var departures []timetable.Time

	if request.Step > 0 {
		for t := int64(request.From); t <= int64(request.To); t += int64(request.Step) {
			departures = append(departures, timetable.Time(t))
		}
	} else {
		origins, err := tt.Resolve(request.Origin)
		if err != nil {
			return nil, err
		}

		seen := map[timetable.Time]bool{}
		add := func(t timetable.Time) {
			if t >= request.From && t <= request.To && !seen[t] {
				seen[t] = true
				departures = append(departures, t)
			}
		}

		for _, origin := range origins {
			scheduledDepartures(tt, origin, 0, add)
			for _, transfer := range tt.Transfers(origin) {
				scheduledDepartures(tt, transfer.To, transfer.Duration, add)
			}
		}
	}

	slices.Sort(departures)
	slices.Reverse(departures)

	return departures, nil
}

func scheduledDepartures(tt *timetable.Timetable, stop timetable.StopIndex, walk timetable.Time, add func(timetable.Time)) {
	for _, patternStop := range tt.PatternsAt(stop) {
		pattern := tt.Pattern(patternStop.Pattern)
		if patternStop.Position == pattern.StopCount()-1 {
			continue
		}
		for trip := 0; trip < pattern.TripCount(); trip++ {
			add(pattern.Departure(trip, patternStop.Position) - walk)
		}
	}
}
