package raptor

import (
	"github.com/travigo/raptor/pkg/timetable"
	"github.com/travigo/raptor/pkg/util"
	"golang.org/x/exp/slices"
)

type arenaLabel struct {
	Label
	values vector

	stop  timetable.StopIndex
	round int32
	kind  labelKind

	trip   timetable.TripIndex
	board  int32
	alight int32

	from     timetable.StopIndex
	duration timetable.Time

	parent int32
}

// covered reports whether a label of bag dominates or equals values.
func (r *ParetoResult) covered(bag []int32, values *vector) bool {
	for _, index := range bag {
		switch r.ranking.relate(&r.arena[index].values, values) {
		case dominates, equivalent:
			return true
		}
	}
	return false
}

func (r *ParetoResult) add(candidate arenaLabel) int32 {
	r.arena = append(r.arena, candidate)
	return int32(len(r.arena) - 1)
}

// insert adds a label no member of bag covers, evicting the members it dominates. With capped is set
// and the bag grows past BagCap, the lexicographically worst label is dropped again. It reports
// whether index is still a member afterwards.
func (r *ParetoResult) insert(bag *[]int32, index int32, round int, capped bool) bool {
	label := &r.arena[index]

	util.InPlaceFilter(bag, func(other int32) bool {
		return r.ranking.relate(&label.values, &r.arena[other].values) != dominates
	})
	*bag = append(*bag, index)

	if !capped || r.criteria.BagCap == 0 || len(*bag) <= r.criteria.BagCap {
		return true
	}

	worst := r.worst(*bag)
	dropped := (*bag)[worst]
	*bag = slices.Delete(*bag, worst, worst+1)

	r.overflows++
	r.query.observer.BagOverflow(r.tt.Stop(label.stop).ID, round, r.arena[dropped].Label)

	return dropped != index
}

// worst is the lexicographically last label of bag, the newest one on ties.
func (r *ParetoResult) worst(bag []int32) int {
	worst := 0
	for i := 1; i < len(bag); i++ {
		c := r.ranking.compare(&r.arena[bag[i]].values, &r.arena[bag[worst]].values)
		if c > 0 || (c == 0 && bag[i] > bag[worst]) {
			worst = i
		}
	}
	return worst
}

// routeLabel is a label riding a trip during a route scan. Its first ranked value is the trip position
// inside the pattern instead of an arrival time.
type routeLabel struct {
	values vector

	trip   int
	board  int
	parent int32

	boardings int
	walking   timetable.Time
	fare      int64
}

// routeBag holds the labels riding a pattern. With perTrip set, labels only compete with labels on the
// same trip: supplements vary per trip and stop, so an earlier trip does not bound what a later one
// charges further down the pattern.
type routeBag struct {
	ranking ranking
	labels  []routeLabel
	perTrip bool
}

func (b *routeBag) comparable(a, c *routeLabel) bool {
	return !b.perTrip || a.trip == c.trip
}

func (b *routeBag) merge(candidate routeLabel) {
	for i := range b.labels {
		if !b.comparable(&b.labels[i], &candidate) {
			continue
		}
		switch b.ranking.relate(&b.labels[i].values, &candidate.values) {
		case dominates, equivalent:
			return
		}
	}

	util.InPlaceFilter(&b.labels, func(label routeLabel) bool {
		return !b.comparable(&label, &candidate) || b.ranking.relate(&candidate.values, &label.values) != dominates
	})
	b.labels = append(b.labels, candidate)
}

func (b *routeBag) reset(perTrip bool) {
	b.labels = b.labels[:0]
	b.perTrip = perTrip
}
