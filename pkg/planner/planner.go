package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/journey"
	"github.com/travigo/raptor/pkg/rangeraptor"
	"github.com/travigo/raptor/pkg/raptor"
	"github.com/travigo/raptor/pkg/resultcache"
	"github.com/travigo/raptor/pkg/timetable"
	"golang.org/x/exp/slices"
)

type Kind string

const (
	KindEarliest Kind = "earliest"
	KindPareto   Kind = "pareto"
	KindRange    Kind = "range"
)

// Planner answers journey queries against one timetable with the configured routing defaults.
type Planner struct {
	Timetable *timetable.Timetable
	Defaults  config.Routing

	// Cache is optional, range query frontiers are only cached when it is set
	Cache *resultcache.Cache

	// Version identifies the loaded timetable inside cache keys
	Version string

	Logger zerolog.Logger
}

func New(tt *timetable.Timetable, defaults config.Routing) *Planner {
	return &Planner{
		Timetable: tt,
		Defaults:  defaults,
		Logger:    log.Logger,
	}
}

// Overrides are per request routing settings. Nil fields keep the planner defaults, so zero values
// such as an unbounded bag cap can be requested explicitly.
type Overrides struct {
	MaxRounds *int
	Mode      *string
	BagCap    *int
	Workers   *int
	Window    *int
	Step      *int

	// Criteria replaces the default extra criteria when non-nil, an empty slice clears them
	Criteria []string
}

// Request is one journey query.
type Request struct {
	Origin      string
	Destination string
	Departure   timetable.Time

	Routing Overrides

	// Optional journey filter expression, see Filter
	Filter string
}

type FailedDeparture struct {
	Departure timetable.Time `groups:"detailed" json:"departure"`
	Error     string         `groups:"detailed" json:"error"`
}

type Response struct {
	ID   string `groups:"basic,detailed" json:"id"`
	Kind Kind   `groups:"basic,detailed" json:"kind"`

	// Found is false when the destination could not be reached, before any filter is applied
	Found    bool               `groups:"basic,detailed" json:"found"`
	Journeys []*journey.Journey `groups:"basic,detailed" json:"journeys"`

	Departures []timetable.Time  `groups:"detailed" json:"departures,omitempty"`
	Failed     []FailedDeparture `groups:"detailed" json:"failed,omitempty"`
	Cancelled  bool              `groups:"detailed" json:"cancelled,omitempty"`
	Cached     bool              `groups:"detailed" json:"cached"`
}

func override[T any](field *T, value *T) {
	if value != nil {
		*field = *value
	}
}

// Routing merges overrides onto the planner defaults and validates the result.
func (p *Planner) Routing(overrides Overrides) (config.Routing, error) {
	routing := p.Defaults
	routing.Criteria = slices.Clone(p.Defaults.Criteria)

	override(&routing.MaxRounds, overrides.MaxRounds)
	override(&routing.Mode, overrides.Mode)
	override(&routing.BagCap, overrides.BagCap)
	override(&routing.Workers, overrides.Workers)
	override(&routing.Window, overrides.Window)
	override(&routing.Step, overrides.Step)
	if overrides.Criteria != nil {
		routing.Criteria = slices.Clone(overrides.Criteria)
	}

	if err := routing.Validate(); err != nil {
		return routing, fmt.Errorf("%w: %v", raptor.ErrInvalidQuery, err)
	}

	return routing, nil
}

func (p *Planner) query(request Request, routing config.Routing, logger zerolog.Logger) raptor.Query {
	return raptor.Query{
		Origin:      request.Origin,
		Departure:   request.Departure,
		Destination: request.Destination,
		MaxRounds:   routing.MaxRounds,
		Observer:    raptor.NewLogObserver(logger),
	}
}

// FindEarliestArrival runs a single criterion scan.
func (p *Planner) FindEarliestArrival(request Request) (*raptor.EarliestArrivalResult, error) {
	routing, err := p.Routing(request.Routing)
	if err != nil {
		return nil, err
	}

	return raptor.EarliestArrival(p.Timetable, p.query(request, routing, p.Logger))
}

// FindParetoJourneys runs a multi criteria scan with the configured criteria and bag cap.
func (p *Planner) FindParetoJourneys(request Request) (*raptor.ParetoResult, error) {
	routing, err := p.Routing(request.Routing)
	if err != nil {
		return nil, err
	}

	return raptor.Pareto(p.Timetable, p.query(request, routing, p.Logger), routing.RaptorCriteria())
}

// RangeRequest expands request into a range query over the configured window.
func (p *Planner) RangeRequest(request Request) (rangeraptor.Request, error) {
	routing, err := p.Routing(request.Routing)
	if err != nil {
		return rangeraptor.Request{}, err
	}

	to := int64(request.Departure) + int64(routing.Window)
	if to >= int64(timetable.Infinity) {
		return rangeraptor.Request{}, fmt.Errorf("%w: window of %ds from %s overflows the service day", raptor.ErrInvalidQuery, routing.Window, request.Departure)
	}

	return rangeraptor.Request{
		Origin:      request.Origin,
		Destination: request.Destination,
		From:        request.Departure,
		To:          timetable.Time(to),
		Step:        timetable.Time(routing.Step),
		MaxRounds:   routing.MaxRounds,
		Mode:        rangeraptor.Mode(routing.Mode),
		Criteria:    routing.RaptorCriteria(),
		Workers:     routing.Workers,
	}, nil
}

// FindRangeJourneys runs a range query, serving it from the cache when one is configured. The
// returned flag reports a cache hit.
func (p *Planner) FindRangeJourneys(ctx context.Context, request rangeraptor.Request) (*rangeraptor.Result, bool, error) {
	if request.Observer == nil {
		request.Observer = raptor.NewLogObserver(p.Logger)
	}

	var key string
	if p.Cache != nil {
		key = resultcache.Key(p.Version, request)
		if cached, exists := p.Cache.Get(ctx, key); exists {
			p.Logger.Debug().Str("key", key).Msg("Range query served from cache")
			return cached, true, nil
		}
	}

	result, err := rangeraptor.Run(ctx, p.Timetable, request)
	if err != nil {
		return nil, false, err
	}

	if p.Cache != nil {
		if err := p.Cache.Set(ctx, key, result); err != nil {
			p.Logger.Warn().Err(err).Str("key", key).Msg("Failed to cache range query")
		}
	}

	return result, false, nil
}

// Reconstructable is a completed scan that can produce journeys to a stop or station.
type Reconstructable interface {
	Journeys(id string) ([]*journey.Journey, error)
}

// Reconstruct returns the journeys a completed scan found to stop.
func (p *Planner) Reconstruct(result Reconstructable, stop string) ([]*journey.Journey, error) {
	return result.Journeys(stop)
}

// Plan runs one query of the given kind to its destination and applies the request filter.
func (p *Planner) Plan(ctx context.Context, kind Kind, request Request) (*Response, error) {
	response := &Response{
		ID:   uuid.New().String(),
		Kind: kind,
	}

	logger := p.Logger.With().
		Str("request", response.ID).
		Str("kind", string(kind)).
		Str("origin", request.Origin).
		Str("destination", request.Destination).
		Str("departure", request.Departure.String()).
		Logger()

	if request.Destination == "" {
		return nil, fmt.Errorf("%w: journeys need a destination", raptor.ErrInvalidQuery)
	}

	var filter *Filter
	if request.Filter != "" {
		var err error
		filter, err = NewFilter(request.Filter)
		if err != nil {
			return nil, err
		}
	}

	started := time.Now()

	var journeys []*journey.Journey
	var err error

	switch kind {
	case KindEarliest:
		var result *raptor.EarliestArrivalResult
		result, err = p.FindEarliestArrival(request)
		if err == nil {
			journeys, err = p.Reconstruct(result, request.Destination)
		}
	case KindPareto:
		var result *raptor.ParetoResult
		result, err = p.FindParetoJourneys(request)
		if err == nil {
			journeys, err = p.Reconstruct(result, request.Destination)
			if result.Overflows() > 0 {
				logger.Warn().Int("overflows", result.Overflows()).Msg("Pareto bags were truncated")
			}
		}
	case KindRange:
		var rangeRequest rangeraptor.Request
		rangeRequest, err = p.RangeRequest(request)
		if err == nil {
			rangeRequest.Observer = raptor.NewLogObserver(logger)

			var result *rangeraptor.Result
			result, response.Cached, err = p.FindRangeJourneys(ctx, rangeRequest)
			if err == nil {
				journeys = result.Journeys
				response.Departures = result.Departures
				response.Cancelled = result.Cancelled
				for _, failed := range result.Failed {
					response.Failed = append(response.Failed, FailedDeparture{
						Departure: failed.Departure,
						Error:     failed.Err.Error(),
					})
				}
			}
		}
	default:
		err = fmt.Errorf("%w: unknown query kind %q", raptor.ErrInvalidQuery, kind)
	}

	if err != nil {
		logger.Error().Err(err).Msg("Journey query failed")
		return nil, err
	}

	response.Found = len(journeys) > 0

	if filter != nil {
		journeys, err = filter.Apply(journeys)
		if err != nil {
			return nil, err
		}
	}

	if journeys == nil {
		journeys = []*journey.Journey{}
	}
	response.Journeys = journeys

	logger.Info().
		Bool("found", response.Found).
		Int("journeys", len(journeys)).
		Bool("cached", response.Cached).
		Dur("took", time.Since(started)).
		Msg("Journey query completed")

	return response, nil
}
