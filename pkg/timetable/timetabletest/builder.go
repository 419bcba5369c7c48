// Package timetabletest builds small timetables for tests.
package timetabletest

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/travigo/raptor/pkg/timetable"
)

type Call struct {
	Stop      string
	Arrival   timetable.Time
	Departure timetable.Time
	Fare      int64
}

// At is a call arriving and departing at the same time.
func At(stop string, t timetable.Time) Call {
	return Call{Stop: stop, Arrival: t, Departure: t}
}

// Dwell is a call that waits at the stop between arrival and departure.
func Dwell(stop string, arrival, departure timetable.Time) Call {
	return Call{Stop: stop, Arrival: arrival, Departure: departure}
}

type Builder struct {
	tables timetable.Tables

	stops  map[string]int
	routes map[string]int
}

func New() *Builder {
	return &Builder{
		stops:  map[string]int{},
		routes: map[string]int{},
	}
}

func (b *Builder) Stop(id string) *Builder {
	b.stop(id)
	return b
}

func (b *Builder) stop(id string) int {
	if index, exists := b.stops[id]; exists {
		return index
	}

	b.stops[id] = len(b.tables.Stops)
	b.tables.Stops = append(b.tables.Stops, timetable.StopRow{ID: id, Name: "Stop " + id})
	return b.stops[id]
}

// Station groups stops, creating the ones not seen yet.
func (b *Builder) Station(id string, stops ...string) *Builder {
	b.tables.Stations = append(b.tables.Stations, timetable.StationRow{ID: id, Name: "Station " + id})
	for _, stop := range stops {
		b.tables.Stops[b.stop(stop)].StationID = id
	}
	return b
}

func (b *Builder) route(id string) int {
	if index, exists := b.routes[id]; exists {
		return index
	}

	b.routes[id] = len(b.tables.Routes)
	b.tables.Routes = append(b.tables.Routes, timetable.RouteRow{ID: id, Name: "Route " + id})
	return b.routes[id]
}

func (b *Builder) Fare(route string, fare int64) *Builder {
	b.tables.Routes[b.route(route)].Fare = fare
	return b
}

// Trip adds a trip calling at calls in order, creating its route and stops as needed.
func (b *Builder) Trip(route string, trip string, calls ...Call) *Builder {
	b.route(route)
	b.tables.Trips = append(b.tables.Trips, timetable.TripRow{ID: trip, RouteID: route, Headsign: "To " + calls[len(calls)-1].Stop})

	for sequence, call := range calls {
		b.stop(call.Stop)
		b.tables.StopTimes = append(b.tables.StopTimes, timetable.StopTimeRow{
			TripID:    trip,
			StopID:    call.Stop,
			Sequence:  sequence + 1,
			Arrival:   call.Arrival,
			Departure: call.Departure,
			Fare:      call.Fare,
		})
	}

	return b
}

// Transfer adds a directed footpath.
func (b *Builder) Transfer(from, to string, duration timetable.Time) *Builder {
	b.stop(from)
	b.stop(to)
	b.tables.Transfers = append(b.tables.Transfers, timetable.TransferRow{FromStopID: from, ToStopID: to, Duration: duration})
	return b
}

// Walk adds a footpath in both directions.
func (b *Builder) Walk(from, to string, duration timetable.Time) *Builder {
	return b.Transfer(from, to, duration).Transfer(to, from, duration)
}

func (b *Builder) Tables() timetable.Tables {
	return b.tables
}

func (b *Builder) Build(t testing.TB) *timetable.Timetable {
	t.Helper()

	tt, err := timetable.New(b.tables)
	require.NoError(t, err)
	return tt
}

// Line is three stops served by one trip: S1 at 0, S2 at 5, S3 at 10.
func Line() *Builder {
	return New().Trip("R1", "T1", At("S1", 0), At("S2", 5), At("S3", 10))
}

// Crossing is two routes meeting at a platform pair: R1 runs S1 to S2a, a 2 second walk leads to
// S2b where R2 continues to S4.
func Crossing() *Builder {
	return New().
		Trip("R1", "T1", At("S1", 0), At("S2a", 10), At("S3", 20)).
		Trip("R2", "T2", At("S5", 0), At("S2b", 15), At("S4", 30)).
		Transfer("S2a", "S2b", 2)
}

// Disconnected is Line plus a stop no trip or transfer reaches.
func Disconnected() *Builder {
	return Line().Stop("S9")
}

// Random builds a connected-looking network of trips with random stop sequences, travel times and
// footpaths. Trips of one route may overtake each other.
func Random(seed int64, stops int, routes int, trips int) *Builder {
	rng := rand.New(rand.NewSource(seed))
	b := New()

	for i := 0; i < stops; i++ {
		b.Stop(fmt.Sprintf("S%d", i))
	}

	for r := 0; r < routes; r++ {
		length := 3 + rng.Intn(3)
		sequence := rng.Perm(stops)[:length]
		route := fmt.Sprintf("R%d", r)
		b.Fare(route, int64(100+rng.Intn(4)*50))

		for t := 0; t < trips; t++ {
			clock := timetable.Time(rng.Intn(3600))
			calls := make([]Call, length)

			for i, stop := range sequence {
				if i > 0 {
					clock += timetable.Time(60 + rng.Intn(600))
				}
				arrival := clock
				clock += timetable.Time(rng.Intn(90))
				calls[i] = Dwell(fmt.Sprintf("S%d", stop), arrival, clock)
				calls[i].Fare = int64(rng.Intn(3) * 10)
			}

			b.Trip(route, fmt.Sprintf("%s-T%d", route, t), calls...)
		}
	}

	for i := 0; i < stops; i++ {
		from := rng.Intn(stops)
		to := rng.Intn(stops)
		if from == to {
			continue
		}
		b.Walk(fmt.Sprintf("S%d", from), fmt.Sprintf("S%d", to), timetable.Time(30+rng.Intn(300)))
	}

	return b
}
