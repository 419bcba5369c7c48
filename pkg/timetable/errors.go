package timetable

import "errors"

var (
	// ErrMalformedTimetable is returned by New when the input tables break a structural invariant.
	// No partial timetable is ever returned alongside it.
	ErrMalformedTimetable = errors.New("malformed timetable")

	// ErrUnknownStop is returned when a query references a stop or station that is not in the timetable.
	ErrUnknownStop = errors.New("unknown stop")
)
