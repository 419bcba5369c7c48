package raptor

import (
	"github.com/travigo/raptor/pkg/timetable"
	"golang.org/x/exp/slices"
)

type stopSet struct {
	marked []bool
	list   []timetable.StopIndex
}

func newStopSet(size int) *stopSet {
	return &stopSet{marked: make([]bool, size)}
}

func (s *stopSet) add(stop timetable.StopIndex) {
	if s.marked[stop] {
		return
	}
	s.marked[stop] = true
	s.list = append(s.list, stop)
}

func (s *stopSet) stops() []timetable.StopIndex {
	return s.list
}

func (s *stopSet) len() int {
	return len(s.list)
}

func (s *stopSet) clear() {
	for _, stop := range s.list {
		s.marked[stop] = false
	}
	s.list = s.list[:0]
}

// patternQueue collects the patterns serving marked stops together with the earliest marked
// position along each of them.
type patternQueue struct {
	start []int
	list  []timetable.PatternIndex
}

func newPatternQueue(size int) *patternQueue {
	start := make([]int, size)
	for i := range start {
		start[i] = -1
	}
	return &patternQueue{start: start}
}

func (q *patternQueue) collect(tt *timetable.Timetable, marked *stopSet) {
	for _, stop := range marked.stops() {
		for _, patternStop := range tt.PatternsAt(stop) {
			// nothing can be boarded at the last stop of a pattern
			if patternStop.Position == tt.Pattern(patternStop.Pattern).StopCount()-1 {
				continue
			}

			current := q.start[patternStop.Pattern]
			if current == -1 {
				q.list = append(q.list, patternStop.Pattern)
				q.start[patternStop.Pattern] = patternStop.Position
			} else if patternStop.Position < current {
				q.start[patternStop.Pattern] = patternStop.Position
			}
		}
	}

	slices.Sort(q.list)
}

func (q *patternQueue) reset() {
	for _, pattern := range q.list {
		q.start[pattern] = -1
	}
	q.list = q.list[:0]
}

func fillTimes(size int) []timetable.Time {
	times := make([]timetable.Time, size)
	for i := range times {
		times[i] = timetable.Infinity
	}
	return times
}
