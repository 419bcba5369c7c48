package journey

import (
	"crypto/sha256"
	"fmt"

	"github.com/travigo/raptor/pkg/timetable"
)

type LegKind string

const (
	LegKindTrip     LegKind = "trip"
	LegKindTransfer LegKind = "transfer"
)

// Leg is one atomic segment of a Journey: riding a trip between two of its stops, or walking a transfer.
type Leg struct {
	Kind LegKind `groups:"basic,detailed" json:"kind"`

	FromStop     string `groups:"basic,detailed" json:"fromStop"`
	FromStopName string `groups:"detailed" json:"fromStopName,omitempty"`
	ToStop       string `groups:"basic,detailed" json:"toStop"`
	ToStopName   string `groups:"detailed" json:"toStopName,omitempty"`

	TripID    string `groups:"basic,detailed" json:"tripId,omitempty"`
	RouteID   string `groups:"basic,detailed" json:"routeId,omitempty"`
	RouteName string `groups:"detailed" json:"routeName,omitempty"`
	Headsign  string `groups:"detailed" json:"headsign,omitempty"`

	Departure timetable.Time `groups:"basic,detailed" json:"departure"`
	Arrival   timetable.Time `groups:"basic,detailed" json:"arrival"`
	Duration  timetable.Time `groups:"basic,detailed" json:"duration"`

	Fare int64 `groups:"detailed" json:"fare"`
}

// Journey is an ordered sequence of legs. Leg i always ends at the stop leg i+1 starts from and never
// arrives after leg i+1 departs.
type Journey struct {
	Origin      string `groups:"basic,detailed" json:"origin"`
	Destination string `groups:"basic,detailed" json:"destination"`

	Departure timetable.Time `groups:"basic,detailed" json:"departure"`
	Arrival   timetable.Time `groups:"basic,detailed" json:"arrival"`

	Boardings int            `groups:"basic,detailed" json:"boardings"`
	Walking   timetable.Time `groups:"detailed" json:"walking"`
	Fare      int64          `groups:"detailed" json:"fare"`

	Legs []Leg `groups:"basic,detailed" json:"legs"`
}

// Transfers is the number of vehicle changes.
func (j *Journey) Transfers() int {
	if j.Boardings == 0 {
		return 0
	}
	return j.Boardings - 1
}

func (j *Journey) Duration() timetable.Time {
	return j.Arrival - j.Departure
}

// Key is a functional hash of the boarding sequence. Two journeys with the same key ride the same trips
// between the same stops and walk the same transfers, whichever departure time produced them.
func (j *Journey) Key() string {
	hash := sha256.New()

	hash.Write([]byte(j.Origin))
	hash.Write([]byte{0})
	for _, leg := range j.Legs {
		hash.Write([]byte(leg.Kind))
		hash.Write([]byte{0})
		hash.Write([]byte(leg.FromStop))
		hash.Write([]byte{0})
		hash.Write([]byte(leg.ToStop))
		hash.Write([]byte{0})
		hash.Write([]byte(leg.TripID))
		hash.Write([]byte{1})
	}

	return fmt.Sprintf("%x", hash.Sum(nil))
}

// Validate checks the leg chaining invariants.
func (j *Journey) Validate() error {
	for i := 1; i < len(j.Legs); i++ {
		previous := j.Legs[i-1]
		leg := j.Legs[i]

		if previous.ToStop != leg.FromStop {
			return fmt.Errorf("leg %d ends at %q but leg %d starts at %q", i-1, previous.ToStop, i, leg.FromStop)
		}
		if previous.Arrival > leg.Departure {
			return fmt.Errorf("leg %d arrives at %s after leg %d departs at %s", i-1, previous.Arrival, i, leg.Departure)
		}
	}

	for i, leg := range j.Legs {
		if leg.Arrival < leg.Departure {
			return fmt.Errorf("leg %d arrives before it departs", i)
		}
	}

	return nil
}
