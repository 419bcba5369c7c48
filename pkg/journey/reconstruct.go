package journey

import (
	"errors"
	"fmt"

	"github.com/travigo/raptor/pkg/timetable"
	"golang.org/x/exp/slices"
)

// ErrUnreachablePredecessorChain means a scan result handed out a predecessor reference that does not
// resolve, or resolves to an inconsistent hop. It always indicates a defect in the scanner.
var ErrUnreachablePredecessorChain = errors.New("unreachable predecessor chain")

type HopKind uint8

const (
	HopOrigin HopKind = iota
	HopTrip
	HopTransfer
)

// Ref addresses one label inside a scan result. Its encoding belongs to the Chain that issued it.
type Ref int64

const NoRef Ref = -1

// Hop is a label as seen by the reconstructor: where it sits, when it arrived there and how.
type Hop struct {
	Kind    HopKind
	Stop    timetable.StopIndex
	Arrival timetable.Time

	// HopTrip
	Trip           timetable.TripIndex
	BoardPosition  int
	AlightPosition int

	// HopTransfer
	From     timetable.StopIndex
	Duration timetable.Time

	Parent Ref
}

// Chain is implemented by scan results so predecessor references can be walked without knowing how
// the scan laid out its state.
type Chain interface {
	Hop(ref Ref) (Hop, bool)
}

// chains longer than this can only come from a cycle
const maxHops = 1 << 16

func broken(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnreachablePredecessorChain, fmt.Sprintf(format, args...))
}

// Reconstruct walks predecessor references back from ref to the origin label and returns the legs in
// travel order. Every hop becomes exactly one leg.
func Reconstruct(tt *timetable.Timetable, chain Chain, ref Ref) (*Journey, error) {
	target, ok := chain.Hop(ref)
	if !ok {
		return nil, broken("reference %d does not resolve", ref)
	}

	journey := &Journey{
		Destination: tt.Stop(target.Stop).ID,
		Arrival:     target.Arrival,
	}

	var legs []Leg
	hop := target

	for steps := 0; hop.Kind != HopOrigin; steps++ {
		if steps > maxHops {
			return nil, broken("predecessor chain from reference %d does not terminate", ref)
		}

		parent, ok := chain.Hop(hop.Parent)
		if !ok {
			return nil, broken("parent reference %d does not resolve", hop.Parent)
		}

		var leg Leg
		var err error

		switch hop.Kind {
		case HopTrip:
			leg, err = tripLeg(tt, hop, parent)
			journey.Boardings++
			journey.Fare += leg.Fare
		case HopTransfer:
			leg, err = transferLeg(tt, hop, parent)
			journey.Walking += leg.Duration
		default:
			err = broken("unknown hop kind %d", hop.Kind)
		}
		if err != nil {
			return nil, err
		}

		legs = append(legs, leg)
		hop = parent
	}

	slices.Reverse(legs)

	journey.Origin = tt.Stop(hop.Stop).ID
	journey.Legs = legs
	journey.Departure = hop.Arrival

	if len(legs) > 0 && legs[len(legs)-1].Arrival != journey.Arrival {
		return nil, broken("legs arrive at %s but the label records %s", legs[len(legs)-1].Arrival, journey.Arrival)
	}

	retimeLeadingTransfers(journey)

	return journey, nil
}

func tripLeg(tt *timetable.Timetable, hop Hop, parent Hop) (Leg, error) {
	if hop.Trip < 0 || int(hop.Trip) >= tt.TripCount() {
		return Leg{}, broken("trip %d out of range", hop.Trip)
	}

	trip := tt.Trip(hop.Trip)
	pattern := tt.Pattern(trip.Pattern)
	stops := pattern.Stops()

	if hop.BoardPosition < 0 || hop.AlightPosition >= len(stops) || hop.BoardPosition >= hop.AlightPosition {
		return Leg{}, broken("trip %q ridden from position %d to %d", trip.ID, hop.BoardPosition, hop.AlightPosition)
	}
	if stops[hop.AlightPosition] != hop.Stop {
		return Leg{}, broken("trip %q does not alight at stop %q", trip.ID, tt.Stop(hop.Stop).ID)
	}

	boardStop := stops[hop.BoardPosition]
	departure := pattern.Departure(trip.Position, hop.BoardPosition)
	arrival := pattern.Arrival(trip.Position, hop.AlightPosition)

	if arrival != hop.Arrival {
		return Leg{}, broken("trip %q arrives at %s but the label records %s", trip.ID, arrival, hop.Arrival)
	}
	if parent.Stop != boardStop {
		return Leg{}, broken("trip %q boarded at %q but the predecessor sits at %q", trip.ID, tt.Stop(boardStop).ID, tt.Stop(parent.Stop).ID)
	}
	if parent.Arrival > departure {
		return Leg{}, broken("trip %q departs at %s before the predecessor arrives at %s", trip.ID, departure, parent.Arrival)
	}

	route := tt.Route(trip.Route)
	from := tt.Stop(boardStop)
	to := tt.Stop(hop.Stop)

	return Leg{
		Kind:         LegKindTrip,
		FromStop:     from.ID,
		FromStopName: from.Name,
		ToStop:       to.ID,
		ToStopName:   to.Name,
		TripID:       trip.ID,
		RouteID:      route.ID,
		RouteName:    route.Name,
		Headsign:     trip.Headsign,
		Departure:    departure,
		Arrival:      arrival,
		Duration:     arrival - departure,
		Fare:         route.Fare + pattern.Fare(trip.Position, hop.AlightPosition),
	}, nil
}

func transferLeg(tt *timetable.Timetable, hop Hop, parent Hop) (Leg, error) {
	if parent.Stop != hop.From {
		return Leg{}, broken("transfer leaves %q but the predecessor sits at %q", tt.Stop(hop.From).ID, tt.Stop(parent.Stop).ID)
	}
	if parent.Arrival+hop.Duration != hop.Arrival {
		return Leg{}, broken("transfer from %q takes %s but spans %s to %s", tt.Stop(hop.From).ID, hop.Duration, parent.Arrival, hop.Arrival)
	}

	from := tt.Stop(hop.From)
	to := tt.Stop(hop.Stop)

	return Leg{
		Kind:         LegKindTransfer,
		FromStop:     from.ID,
		FromStopName: from.Name,
		ToStop:       to.ID,
		ToStopName:   to.Name,
		Departure:    parent.Arrival,
		Arrival:      hop.Arrival,
		Duration:     hop.Duration,
	}, nil
}

// retimeLeadingTransfers moves walks before the first boarding as late as possible, so the journey
// departs at the latest time that still catches its first trip.
func retimeLeadingTransfers(journey *Journey) {
	first := slices.IndexFunc(journey.Legs, func(leg Leg) bool { return leg.Kind == LegKindTrip })
	if first < 0 {
		return
	}

	t := journey.Legs[first].Departure
	for i := first - 1; i >= 0; i-- {
		journey.Legs[i].Arrival = t
		journey.Legs[i].Departure = t - journey.Legs[i].Duration
		t = journey.Legs[i].Departure
	}

	journey.Departure = t
}
