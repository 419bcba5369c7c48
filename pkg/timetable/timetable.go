package timetable

import "fmt"

type StopIndex int32
type RouteIndex int32
type TripIndex int32
type PatternIndex int32

const NoStop StopIndex = -1

type Station struct {
	ID    string
	Name  string
	Stops []StopIndex
}

type Stop struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	StationID string
}

type Route struct {
	ID   string
	Name string
	Fare int64

	// Trips ordered by departure time at their first stop
	Trips    []TripIndex
	Patterns []PatternIndex
}

type Trip struct {
	ID       string
	Headsign string
	Route    RouteIndex

	Pattern  PatternIndex
	Position int // index of the trip inside its pattern

	StopTimes []StopTime
}

type StopTime struct {
	Stop      StopIndex
	Sequence  int
	Arrival   Time
	Departure Time
	Fare      int64
}

type Transfer struct {
	From     StopIndex
	To       StopIndex
	Duration Time
}

// PatternStop locates a stop inside a pattern. A stop visited twice by a looping pattern has two entries.
type PatternStop struct {
	Pattern  PatternIndex
	Position int
}

type Stats struct {
	Stations         int
	Stops            int
	Routes           int
	Patterns         int
	Trips            int
	StopTimes        int
	Transfers        int
	SkippedTransfers int
	OvertakingSplits int
}

// Timetable is the immutable, indexed form of a feed. Every index is built by New and never changes
// afterwards, so a *Timetable can be read concurrently by any number of scans. Slices returned by its
// accessors are shared and must be treated as read-only.
type Timetable struct {
	stations     []Station
	stationIndex map[string]int

	stops     []Stop
	stopIndex map[string]StopIndex

	routes     []Route
	routeIndex map[string]RouteIndex

	trips     []Trip
	tripIndex map[string]TripIndex

	patterns []Pattern

	transfers    [][]Transfer
	stopRoutes   [][]RouteIndex
	stopPatterns [][]PatternStop

	stats Stats
}

func (tt *Timetable) Stats() Stats {
	return tt.stats
}

func (tt *Timetable) StopCount() int {
	return len(tt.stops)
}

func (tt *Timetable) Stop(stop StopIndex) Stop {
	return tt.stops[stop]
}

func (tt *Timetable) StopByID(id string) (StopIndex, bool) {
	stop, exists := tt.stopIndex[id]
	return stop, exists
}

func (tt *Timetable) Station(id string) (Station, bool) {
	i, exists := tt.stationIndex[id]
	if !exists {
		return Station{}, false
	}
	return tt.stations[i], true
}

// Resolve maps a stop or station identifier onto the stops it stands for. Stop identifiers win when
// a stop and a station share an identifier.
func (tt *Timetable) Resolve(id string) ([]StopIndex, error) {
	if stop, exists := tt.stopIndex[id]; exists {
		return []StopIndex{stop}, nil
	}

	if i, exists := tt.stationIndex[id]; exists && len(tt.stations[i].Stops) > 0 {
		return tt.stations[i].Stops, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStop, id)
}

func (tt *Timetable) RouteCount() int {
	return len(tt.routes)
}

func (tt *Timetable) Route(route RouteIndex) Route {
	return tt.routes[route]
}

func (tt *Timetable) RouteByID(id string) (RouteIndex, bool) {
	route, exists := tt.routeIndex[id]
	return route, exists
}

// RouteTrips returns the trips of a route ordered by departure time at their first stop.
func (tt *Timetable) RouteTrips(route RouteIndex) []TripIndex {
	return tt.routes[route].Trips
}

func (tt *Timetable) TripCount() int {
	return len(tt.trips)
}

func (tt *Timetable) Trip(trip TripIndex) Trip {
	return tt.trips[trip]
}

func (tt *Timetable) TripByID(id string) (TripIndex, bool) {
	trip, exists := tt.tripIndex[id]
	return trip, exists
}

func (tt *Timetable) TripStopTimes(trip TripIndex) []StopTime {
	return tt.trips[trip].StopTimes
}

// Transfers returns the footpaths leaving a stop.
func (tt *Timetable) Transfers(stop StopIndex) []Transfer {
	return tt.transfers[stop]
}

// RoutesAt returns the routes serving a stop, in index order.
func (tt *Timetable) RoutesAt(stop StopIndex) []RouteIndex {
	return tt.stopRoutes[stop]
}

// PatternsAt returns every pattern position at which the stop is served.
func (tt *Timetable) PatternsAt(stop StopIndex) []PatternStop {
	return tt.stopPatterns[stop]
}

func (tt *Timetable) PatternCount() int {
	return len(tt.patterns)
}

func (tt *Timetable) Pattern(pattern PatternIndex) *Pattern {
	return &tt.patterns[pattern]
}
