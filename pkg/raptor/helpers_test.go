package raptor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/travigo/raptor/pkg/timetable"
)

type recorder struct {
	mu        sync.Mutex
	rounds    []int
	overflows []Label
}

func (r *recorder) RoundCompleted(round int, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, round)
}

func (r *recorder) BagOverflow(_ string, _ int, dropped Label) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overflows = append(r.overflows, dropped)
}

func (r *recorder) RunCompleted(timetable.Time, int, error) {}

// bruteForce computes earliest arrivals per round by trying every boarding of every trip, with at
// most one footpath after each ride.
func bruteForce(t *testing.T, tt *timetable.Timetable, origin string, departure timetable.Time, rounds int) [][]timetable.Time {
	t.Helper()

	origins, err := tt.Resolve(origin)
	require.NoError(t, err)

	n := tt.StopCount()
	arrival := make([][]timetable.Time, rounds+1)

	arrival[0] = fillTimes(n)
	for _, stop := range origins {
		arrival[0][stop] = departure
	}
	for _, stop := range origins {
		for _, transfer := range tt.Transfers(stop) {
			arrival[0][transfer.To] = min(arrival[0][transfer.To], departure+transfer.Duration)
		}
	}

	for k := 1; k <= rounds; k++ {
		ride := fillTimes(n)

		for trip := 0; trip < tt.TripCount(); trip++ {
			stopTimes := tt.TripStopTimes(timetable.TripIndex(trip))
			for i, board := range stopTimes {
				reached := arrival[k-1][board.Stop]
				if !reached.Reachable() || reached > board.Departure {
					continue
				}
				for _, alight := range stopTimes[i+1:] {
					ride[alight.Stop] = min(ride[alight.Stop], alight.Arrival)
				}
			}
		}

		arrival[k] = make([]timetable.Time, n)
		for stop := 0; stop < n; stop++ {
			arrival[k][stop] = min(arrival[k-1][stop], ride[stop])
		}
		for stop := 0; stop < n; stop++ {
			if !ride[stop].Reachable() {
				continue
			}
			for _, transfer := range tt.Transfers(timetable.StopIndex(stop)) {
				arrival[k][transfer.To] = min(arrival[k][transfer.To], ride[stop]+transfer.Duration)
			}
		}
	}

	return arrival
}

func stopID(i int) string {
	return fmt.Sprintf("S%d", i)
}
