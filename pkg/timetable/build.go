package timetable

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// New validates the tables and builds every index the scanners need. Any structural problem aborts
// construction with an error wrapping ErrMalformedTimetable.
func New(tables Tables) (*Timetable, error) {
	tt := &Timetable{
		stationIndex: make(map[string]int, len(tables.Stations)),
		stopIndex:    make(map[string]StopIndex, len(tables.Stops)),
		routeIndex:   make(map[string]RouteIndex, len(tables.Routes)),
		tripIndex:    make(map[string]TripIndex, len(tables.Trips)),
	}

	if err := tt.addStations(tables.Stations); err != nil {
		return nil, err
	}
	if err := tt.addStops(tables.Stops); err != nil {
		return nil, err
	}
	if err := tt.addRoutes(tables.Routes); err != nil {
		return nil, err
	}
	if err := tt.addTrips(tables.Trips); err != nil {
		return nil, err
	}
	if err := tt.addStopTimes(tables.StopTimes); err != nil {
		return nil, err
	}

	for _, route := range tt.routes {
		if len(route.Trips) == 0 {
			return nil, malformed("route %q has no trips", route.ID)
		}
	}

	tt.buildPatterns()

	if err := tt.addTransfers(tables.Transfers); err != nil {
		return nil, err
	}

	tt.buildStopIndices()

	tt.stats.Stations = len(tt.stations)
	tt.stats.Stops = len(tt.stops)
	tt.stats.Routes = len(tt.routes)
	tt.stats.Patterns = len(tt.patterns)
	tt.stats.Trips = len(tt.trips)
	tt.stats.StopTimes = len(tables.StopTimes)

	return tt, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedTimetable, fmt.Sprintf(format, args...))
}

func (tt *Timetable) addStations(rows []StationRow) error {
	for _, row := range rows {
		if row.ID == "" {
			return malformed("station with empty id")
		}
		if _, exists := tt.stationIndex[row.ID]; exists {
			return malformed("duplicate station %q", row.ID)
		}

		tt.stationIndex[row.ID] = len(tt.stations)
		tt.stations = append(tt.stations, Station{ID: row.ID, Name: row.Name})
	}

	return nil
}

func (tt *Timetable) addStops(rows []StopRow) error {
	for _, row := range rows {
		if row.ID == "" {
			return malformed("stop with empty id")
		}
		if _, exists := tt.stopIndex[row.ID]; exists {
			return malformed("duplicate stop %q", row.ID)
		}

		stop := StopIndex(len(tt.stops))

		if row.StationID != "" {
			station, exists := tt.stationIndex[row.StationID]
			if !exists {
				return malformed("stop %q references unknown station %q", row.ID, row.StationID)
			}
			tt.stations[station].Stops = append(tt.stations[station].Stops, stop)
		}

		tt.stopIndex[row.ID] = stop
		tt.stops = append(tt.stops, Stop{
			ID:        row.ID,
			Name:      row.Name,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
			StationID: row.StationID,
		})
	}

	return nil
}

func (tt *Timetable) addRoutes(rows []RouteRow) error {
	for _, row := range rows {
		if row.ID == "" {
			return malformed("route with empty id")
		}
		if _, exists := tt.routeIndex[row.ID]; exists {
			return malformed("duplicate route %q", row.ID)
		}
		if row.Fare < 0 {
			return malformed("route %q has negative fare", row.ID)
		}

		tt.routeIndex[row.ID] = RouteIndex(len(tt.routes))
		tt.routes = append(tt.routes, Route{ID: row.ID, Name: row.Name, Fare: row.Fare})
	}

	return nil
}

func (tt *Timetable) addTrips(rows []TripRow) error {
	for _, row := range rows {
		if row.ID == "" {
			return malformed("trip with empty id")
		}
		if _, exists := tt.tripIndex[row.ID]; exists {
			return malformed("duplicate trip %q", row.ID)
		}

		route, exists := tt.routeIndex[row.RouteID]
		if !exists {
			return malformed("trip %q references unknown route %q", row.ID, row.RouteID)
		}

		trip := TripIndex(len(tt.trips))
		tt.tripIndex[row.ID] = trip
		tt.trips = append(tt.trips, Trip{ID: row.ID, Headsign: row.Headsign, Route: route})
		tt.routes[route].Trips = append(tt.routes[route].Trips, trip)
	}

	return nil
}

func (tt *Timetable) addStopTimes(rows []StopTimeRow) error {
	for _, row := range rows {
		trip, exists := tt.tripIndex[row.TripID]
		if !exists {
			return malformed("stop time references unknown trip %q", row.TripID)
		}
		stop, exists := tt.stopIndex[row.StopID]
		if !exists {
			return malformed("stop time of trip %q references unknown stop %q", row.TripID, row.StopID)
		}
		if row.Fare < 0 {
			return malformed("stop time of trip %q at stop %q has negative fare", row.TripID, row.StopID)
		}

		tt.trips[trip].StopTimes = append(tt.trips[trip].StopTimes, StopTime{
			Stop:      stop,
			Sequence:  row.Sequence,
			Arrival:   row.Arrival,
			Departure: row.Departure,
			Fare:      row.Fare,
		})
	}

	for i := range tt.trips {
		trip := &tt.trips[i]
		if len(trip.StopTimes) == 0 {
			return malformed("trip %q has no stop times", trip.ID)
		}

		slices.SortStableFunc(trip.StopTimes, func(a, b StopTime) int {
			return a.Sequence - b.Sequence
		})

		previousDeparture := Time(0)
		for position, stopTime := range trip.StopTimes {
			if stopTime.Arrival < 0 || stopTime.Departure < stopTime.Arrival {
				return malformed("trip %q departs sequence %d before arriving", trip.ID, stopTime.Sequence)
			}
			if position > 0 && stopTime.Arrival < previousDeparture {
				return malformed("trip %q arrives at sequence %d before leaving the previous stop", trip.ID, stopTime.Sequence)
			}
			previousDeparture = stopTime.Departure
		}
	}

	return nil
}

func stopSequenceKey(stopTimes []StopTime) string {
	var key strings.Builder
	for _, stopTime := range stopTimes {
		key.WriteString(strconv.Itoa(int(stopTime.Stop)))
		key.WriteByte(',')
	}
	return key.String()
}

// overtakes reports whether trip b can not follow trip a inside one FIFO pattern.
func overtakes(a, b []StopTime) bool {
	for i := range a {
		if b[i].Departure < a[i].Departure || b[i].Arrival < a[i].Arrival {
			return true
		}
	}
	return false
}

func (tt *Timetable) buildPatterns() {
	for r := range tt.routes {
		route := &tt.routes[r]

		slices.SortStableFunc(route.Trips, tt.compareTrips)

		var groupOrder []string
		groups := map[string][][]TripIndex{}

		for _, trip := range route.Trips {
			stopTimes := tt.trips[trip].StopTimes
			key := stopSequenceKey(stopTimes)

			subPatterns, exists := groups[key]
			if !exists {
				groupOrder = append(groupOrder, key)
			}

			placed := false
			for i, subPattern := range subPatterns {
				last := tt.trips[subPattern[len(subPattern)-1]].StopTimes
				if !overtakes(last, stopTimes) {
					subPatterns[i] = append(subPattern, trip)
					placed = true
					break
				}
			}
			if !placed {
				if len(subPatterns) > 0 {
					tt.stats.OvertakingSplits++
				}
				subPatterns = append(subPatterns, []TripIndex{trip})
			}

			groups[key] = subPatterns
		}

		for _, key := range groupOrder {
			for _, trips := range groups[key] {
				route.Patterns = append(route.Patterns, tt.addPattern(RouteIndex(r), trips))
			}
		}
	}
}

func (tt *Timetable) compareTrips(a, b TripIndex) int {
	first := tt.trips[a].StopTimes
	second := tt.trips[b].StopTimes

	if first[0].Departure != second[0].Departure {
		return int(first[0].Departure) - int(second[0].Departure)
	}

	lastA := first[len(first)-1].Arrival
	lastB := second[len(second)-1].Arrival
	if lastA != lastB {
		return int(lastA) - int(lastB)
	}

	return strings.Compare(tt.trips[a].ID, tt.trips[b].ID)
}

func (tt *Timetable) addPattern(route RouteIndex, trips []TripIndex) PatternIndex {
	index := PatternIndex(len(tt.patterns))
	template := tt.trips[trips[0]].StopTimes
	stride := len(template)

	pattern := Pattern{
		Route:      route,
		stops:      make([]StopIndex, stride),
		trips:      trips,
		arrivals:   make([]Time, 0, stride*len(trips)),
		departures: make([]Time, 0, stride*len(trips)),
	}

	for i, stopTime := range template {
		pattern.stops[i] = stopTime.Stop
	}

	hasFares := false
	for position, trip := range trips {
		tt.trips[trip].Pattern = index
		tt.trips[trip].Position = position

		for _, stopTime := range tt.trips[trip].StopTimes {
			pattern.arrivals = append(pattern.arrivals, stopTime.Arrival)
			pattern.departures = append(pattern.departures, stopTime.Departure)
			if stopTime.Fare != 0 {
				hasFares = true
			}
		}
	}

	if hasFares {
		pattern.fares = make([]int64, 0, stride*len(trips))
		for _, trip := range trips {
			for _, stopTime := range tt.trips[trip].StopTimes {
				pattern.fares = append(pattern.fares, stopTime.Fare)
			}
		}
	}

	tt.patterns = append(tt.patterns, pattern)
	return index
}

func (tt *Timetable) addTransfers(rows []TransferRow) error {
	tt.transfers = make([][]Transfer, len(tt.stops))

	for _, row := range rows {
		from, exists := tt.stopIndex[row.FromStopID]
		if !exists {
			return malformed("transfer references unknown stop %q", row.FromStopID)
		}
		to, exists := tt.stopIndex[row.ToStopID]
		if !exists {
			return malformed("transfer references unknown stop %q", row.ToStopID)
		}
		if row.Duration < 0 {
			return malformed("transfer from %q to %q has negative duration", row.FromStopID, row.ToStopID)
		}

		if from == to {
			tt.stats.SkippedTransfers++
			continue
		}

		existing := slices.IndexFunc(tt.transfers[from], func(t Transfer) bool { return t.To == to })
		if existing >= 0 {
			tt.stats.SkippedTransfers++
			if row.Duration < tt.transfers[from][existing].Duration {
				tt.transfers[from][existing].Duration = row.Duration
			}
			continue
		}

		tt.transfers[from] = append(tt.transfers[from], Transfer{From: from, To: to, Duration: row.Duration})
		tt.stats.Transfers++
	}

	for _, transfers := range tt.transfers {
		slices.SortFunc(transfers, func(a, b Transfer) int {
			return int(a.To) - int(b.To)
		})
	}

	return nil
}

func (tt *Timetable) buildStopIndices() {
	tt.stopRoutes = make([][]RouteIndex, len(tt.stops))
	tt.stopPatterns = make([][]PatternStop, len(tt.stops))

	for p := range tt.patterns {
		pattern := &tt.patterns[p]

		for position, stop := range pattern.stops {
			tt.stopPatterns[stop] = append(tt.stopPatterns[stop], PatternStop{
				Pattern:  PatternIndex(p),
				Position: position,
			})

			if !slices.Contains(tt.stopRoutes[stop], pattern.Route) {
				tt.stopRoutes[stop] = append(tt.stopRoutes[stop], pattern.Route)
			}
		}
	}

	for _, routes := range tt.stopRoutes {
		slices.Sort(routes)
	}
}
