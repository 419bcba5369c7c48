package planner

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/travigo/raptor/pkg/journey"
)

var ErrInvalidFilter = errors.New("invalid filter")

// filterEnvironment is what a filter expression sees of a journey. Times are seconds after midnight.
type filterEnvironment struct {
	Origin      string
	Destination string

	Departure int
	Arrival   int
	Duration  int

	Boardings int
	Transfers int
	Walking   int
	Fare      int64
	Legs      int

	Routes []string
	Trips  []string
}

func newFilterEnvironment(j *journey.Journey) filterEnvironment {
	environment := filterEnvironment{
		Origin:      j.Origin,
		Destination: j.Destination,
		Departure:   int(j.Departure),
		Arrival:     int(j.Arrival),
		Duration:    int(j.Duration()),
		Boardings:   j.Boardings,
		Transfers:   j.Transfers(),
		Walking:     int(j.Walking),
		Fare:        j.Fare,
		Legs:        len(j.Legs),
		Routes:      []string{},
		Trips:       []string{},
	}

	for _, leg := range j.Legs {
		if leg.Kind == journey.LegKindTrip {
			environment.Routes = append(environment.Routes, leg.RouteID)
			environment.Trips = append(environment.Trips, leg.TripID)
		}
	}

	return environment
}

// Filter is a compiled boolean expression over journeys, such as
// `Transfers <= 1 && Arrival < 36000` or `"R2" not in Routes`.
type Filter struct {
	expression string
	program    *vm.Program
}

func NewFilter(expression string) (*Filter, error) {
	program, err := expr.Compile(expression, expr.Env(filterEnvironment{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	return &Filter{expression: expression, program: program}, nil
}

func (f *Filter) Match(j *journey.Journey) (bool, error) {
	output, err := expr.Run(f.program, newFilterEnvironment(j))
	if err != nil {
		return false, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, f.expression, err)
	}

	return output.(bool), nil
}

// Apply keeps the journeys matching the filter, in order.
func (f *Filter) Apply(journeys []*journey.Journey) ([]*journey.Journey, error) {
	var kept []*journey.Journey
	for _, j := range journeys {
		matches, err := f.Match(j)
		if err != nil {
			return nil, err
		}
		if matches {
			kept = append(kept, j)
		}
	}
	return kept, nil
}

// FilterJourneys applies a one-off filter expression.
func FilterJourneys(journeys []*journey.Journey, expression string) ([]*journey.Journey, error) {
	filter, err := NewFilter(expression)
	if err != nil {
		return nil, err
	}
	return filter.Apply(journeys)
}
