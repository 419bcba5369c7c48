package gtfs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/timetable"
	"github.com/travigo/raptor/pkg/util"
	"golang.org/x/exp/slices"
)

const serviceDateLayout = "20060102"

type Options struct {
	// Service date as YYYYMMDD, empty keeps every trip
	Date string

	// Agency names or ids to keep, empty keeps every agency
	Agencies []string

	// Walking time generated between every ordered pair of platforms of one station
	StationTransferTime timetable.Time

	Supplements []config.Supplement
}

func NewOptions(feed config.Feed) Options {
	return Options{
		Date:                feed.Date,
		Agencies:            util.RemoveDuplicateStrings(feed.Agencies, []string{}),
		StationTransferTime: timetable.Time(feed.StationTransferTime),
		Supplements:         feed.Supplements,
	}
}

// Load opens the feed at path and builds the timetable for the configured service day.
func Load(path string, options Options) (*timetable.Timetable, error) {
	schedule, err := Open(path)
	if err != nil {
		return nil, err
	}

	tables, err := schedule.Tables(options)
	if err != nil {
		return nil, err
	}

	tt, err := timetable.New(tables)
	if err != nil {
		return nil, err
	}

	stats := tt.Stats()
	log.Info().
		Str("path", path).
		Str("date", options.Date).
		Int("stations", stats.Stations).
		Int("stops", stats.Stops).
		Int("routes", stats.Routes).
		Int("patterns", stats.Patterns).
		Int("trips", stats.Trips).
		Int("transfers", stats.Transfers).
		Msg("Loaded timetable")

	return tt, nil
}

// Tables filters the schedule down to one service day and converts it into timetable rows.
func (gtfs *Schedule) Tables(options Options) (timetable.Tables, error) {
	var tables timetable.Tables

	services, err := gtfs.activeServices(options.Date)
	if err != nil {
		return tables, err
	}

	routes := gtfs.filterRoutes(options.Agencies)

	trips := map[string]bool{}
	for _, trip := range gtfs.Trips {
		if _, exists := routes[trip.RouteID]; !exists {
			continue
		}
		if services != nil && !services[trip.ServiceID] {
			continue
		}

		trips[trip.ID] = true
	}

	stopTimes, usedStops, err := gtfs.convertStopTimes(trips)
	if err != nil {
		return tables, err
	}

	// Trips where every stop time was dropped would leave empty trips behind
	for _, trip := range gtfs.Trips {
		if trips[trip.ID] && !stopTimes.has(trip.ID) {
			log.Warn().Str("trip", trip.ID).Msg("Trip has no usable stop times")
			delete(trips, trip.ID)
		}
	}
	usedRoutes := map[string]bool{}
	for _, trip := range gtfs.Trips {
		if !trips[trip.ID] {
			continue
		}
		usedRoutes[trip.RouteID] = true
		tables.Trips = append(tables.Trips, timetable.TripRow{
			ID:       trip.ID,
			RouteID:  trip.RouteID,
			Headsign: trip.Headsign,
		})
	}
	gtfs.applySupplements(stopTimes.rows, options.Supplements)
	tables.StopTimes = stopTimes.rows

	fares, err := gtfs.routeFares()
	if err != nil {
		return tables, err
	}

	for _, route := range gtfs.Routes {
		if usedRoutes[route.ID] {
			tables.Routes = append(tables.Routes, timetable.RouteRow{ID: route.ID, Name: route.Name(), Fare: fares[route.ID]})
		}
	}

	stations := map[string]bool{}
	platforms := map[string][]string{}
	var stationOrder []string

	for _, stop := range gtfs.Stops {
		if stop.Type == locationTypeStation {
			stations[stop.ID] = true
			tables.Stations = append(tables.Stations, timetable.StationRow{ID: stop.ID, Name: stop.Name})
		}
	}

	for _, stop := range gtfs.Stops {
		if stop.Type != locationTypeStop && stop.Type != locationTypePlatform {
			continue
		}

		row := timetable.StopRow{
			ID:        stop.ID,
			Name:      stop.Name,
			Latitude:  stop.Latitude,
			Longitude: stop.Longitude,
		}
		if stations[stop.Parent] {
			row.StationID = stop.Parent
			if _, exists := platforms[stop.Parent]; !exists {
				stationOrder = append(stationOrder, stop.Parent)
			}
			platforms[stop.Parent] = append(platforms[stop.Parent], stop.ID)
		}

		tables.Stops = append(tables.Stops, row)
	}

	knownStops := map[string]bool{}
	for _, stop := range tables.Stops {
		knownStops[stop.ID] = true
	}
	for stop := range usedStops {
		if !knownStops[stop] {
			return tables, fmt.Errorf("%w: stop_times.txt references unknown stop %q", timetable.ErrMalformedTimetable, stop)
		}
	}

	for _, station := range stationOrder {
		stops := platforms[station]
		for _, from := range stops {
			for _, to := range stops {
				if from == to {
					continue
				}
				tables.Transfers = append(tables.Transfers, timetable.TransferRow{
					FromStopID: from,
					ToStopID:   to,
					Duration:   options.StationTransferTime,
				})
			}
		}
	}

	for _, transfer := range gtfs.Transfers {
		if transfer.TransferType == transferNotPossible {
			continue
		}
		if !knownStops[transfer.FromStopID] || !knownStops[transfer.ToStopID] {
			log.Debug().Str("from", transfer.FromStopID).Str("to", transfer.ToStopID).Msg("Skipping transfer between unknown stops")
			continue
		}

		duration := 0
		if value := strings.TrimSpace(transfer.MinTransferTime); value != "" {
			duration, err = strconv.Atoi(value)
			if err != nil {
				return tables, fmt.Errorf("%w: transfer from %q to %q has invalid min_transfer_time %q",
					timetable.ErrMalformedTimetable, transfer.FromStopID, transfer.ToStopID, value)
			}
		}

		tables.Transfers = append(tables.Transfers, timetable.TransferRow{
			FromStopID: transfer.FromStopID,
			ToStopID:   transfer.ToStopID,
			Duration:   timetable.Time(duration),
		})
	}

	log.Debug().
		Int("trips", len(tables.Trips)).
		Int("routes", len(tables.Routes)).
		Int("stoptimes", len(tables.StopTimes)).
		Msg("Filtered schedule")

	return tables, nil
}

// activeServices returns the services running on date, or nil when every service is kept.
func (gtfs *Schedule) activeServices(date string) (map[string]bool, error) {
	if date == "" {
		return nil, nil
	}

	day, err := time.Parse(serviceDateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid service date %q: %w", date, err)
	}

	services := map[string]bool{}
	for _, calendar := range gtfs.Calendars {
		if calendar.RunsOn(date, day.Weekday()) {
			services[calendar.ServiceID] = true
		}
	}

	for _, calendarDate := range gtfs.CalendarDates {
		if calendarDate.Date != date {
			continue
		}

		switch calendarDate.ExceptionType {
		case exceptionAdded:
			services[calendarDate.ServiceID] = true
		case exceptionRemoved:
			delete(services, calendarDate.ServiceID)
		}
	}

	return services, nil
}

func (gtfs *Schedule) filterRoutes(agencies []string) map[string]*Route {
	routes := map[string]*Route{}

	var keep map[string]bool
	if len(agencies) > 0 {
		keep = map[string]bool{}
		for _, agency := range gtfs.Agencies {
			if slices.Contains(agencies, agency.Name) || slices.Contains(agencies, agency.ID) {
				keep[agency.ID] = true
			}
		}
	}

	for i := range gtfs.Routes {
		route := &gtfs.Routes[i]
		if keep != nil && !keep[route.AgencyID] {
			continue
		}
		routes[route.ID] = route
	}

	return routes
}

type stopTimeRows struct {
	rows  []timetable.StopTimeRow
	trips map[string]bool
}

func (s *stopTimeRows) has(trip string) bool {
	return s.trips[trip]
}

func (gtfs *Schedule) convertStopTimes(trips map[string]bool) (*stopTimeRows, map[string]bool, error) {
	result := &stopTimeRows{trips: map[string]bool{}}
	stops := map[string]bool{}
	skipped := map[string]bool{}

	for _, stopTime := range gtfs.StopTimes {
		if !trips[stopTime.TripID] || skipped[stopTime.TripID] {
			continue
		}

		arrivalValue := stopTime.ArrivalTime
		departureValue := stopTime.DepartureTime
		if arrivalValue == "" {
			arrivalValue = departureValue
		}
		if departureValue == "" {
			departureValue = arrivalValue
		}

		// Without interpolation an untimed stop can not be routed through
		if arrivalValue == "" {
			skipped[stopTime.TripID] = true
			continue
		}

		arrival, err := timetable.ParseTime(arrivalValue)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: trip %q: %v", timetable.ErrMalformedTimetable, stopTime.TripID, err)
		}
		departure, err := timetable.ParseTime(departureValue)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: trip %q: %v", timetable.ErrMalformedTimetable, stopTime.TripID, err)
		}

		result.rows = append(result.rows, timetable.StopTimeRow{
			TripID:    stopTime.TripID,
			StopID:    stopTime.StopID,
			Sequence:  stopTime.StopSequence,
			Arrival:   arrival,
			Departure: departure,
		})
	}

	filtered := result.rows[:0]
	for _, row := range result.rows {
		if skipped[row.TripID] {
			continue
		}
		filtered = append(filtered, row)
		result.trips[row.TripID] = true
		stops[row.StopID] = true
	}
	result.rows = filtered

	if len(skipped) > 0 {
		log.Warn().Int("trips", len(skipped)).Msg("Dropped trips with untimed stops")
	}

	return result, stops, nil
}

// routeFares prices every route named by a fare rule in minor currency units. A rule without route or
// zones sets the fare of routes no other rule names. When several rules match, the cheapest wins.
func (gtfs *Schedule) routeFares() (map[string]int64, error) {
	prices := map[string]int64{}
	for _, attribute := range gtfs.FareAttributes {
		price, err := strconv.ParseFloat(strings.TrimSpace(attribute.Price), 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("%w: fare %q has invalid price %q", timetable.ErrMalformedTimetable, attribute.ID, attribute.Price)
		}
		prices[attribute.ID] = int64(math.Round(price * 100))
	}

	fares := map[string]int64{}
	network, hasNetwork := int64(0), false

	for _, rule := range gtfs.FareRules {
		price, exists := prices[rule.FareID]
		if !exists {
			return nil, fmt.Errorf("%w: fare_rules.txt references unknown fare %q", timetable.ErrMalformedTimetable, rule.FareID)
		}
		if rule.zoned() {
			log.Debug().Str("fare", rule.FareID).Msg("Skipping zone based fare rule")
			continue
		}

		if rule.RouteID == "" {
			if !hasNetwork || price < network {
				network, hasNetwork = price, true
			}
			continue
		}

		if current, exists := fares[rule.RouteID]; !exists || price < current {
			fares[rule.RouteID] = price
		}
	}

	if hasNetwork {
		for _, route := range gtfs.Routes {
			if _, exists := fares[route.ID]; !exists {
				fares[route.ID] = network
			}
		}
	}

	return fares, nil
}

// applySupplements adds the configured supplements to the stop times they match. A supplement naming
// a station matches every platform of it.
func (gtfs *Schedule) applySupplements(rows []timetable.StopTimeRow, supplements []config.Supplement) {
	if len(supplements) == 0 {
		return
	}

	tripRoutes := map[string]string{}
	for _, trip := range gtfs.Trips {
		tripRoutes[trip.ID] = trip.RouteID
	}
	parents := map[string]string{}
	for _, stop := range gtfs.Stops {
		parents[stop.ID] = stop.Parent
	}

	applied := 0
	for i := range rows {
		row := &rows[i]
		route := tripRoutes[row.TripID]

		for _, supplement := range supplements {
			if supplement.Stop == "" || (supplement.Route != "" && supplement.Route != route) {
				continue
			}
			if supplement.Stop != row.StopID && supplement.Stop != parents[row.StopID] {
				continue
			}
			row.Fare += supplement.Fare
			applied++
		}
	}

	log.Debug().Int("supplements", len(supplements)).Int("stoptimes", applied).Msg("Applied fare supplements")
}
