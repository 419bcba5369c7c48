package raptor

import (
	"github.com/rs/zerolog"
	"github.com/travigo/raptor/pkg/timetable"
)

// Observer receives progress and degradation notices from the scanners. Implementations must be
// safe for concurrent use when shared between range query runs.
type Observer interface {
	RoundCompleted(round int, markedStops int)
	BagOverflow(stop string, round int, dropped Label)
	RunCompleted(departure timetable.Time, journeys int, err error)
}

type NopObserver struct{}

func (NopObserver) RoundCompleted(int, int)                 {}
func (NopObserver) BagOverflow(string, int, Label)          {}
func (NopObserver) RunCompleted(timetable.Time, int, error) {}

// LogObserver reports onto a zerolog logger.
type LogObserver struct {
	logger zerolog.Logger
}

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) RoundCompleted(round int, markedStops int) {
	o.logger.Debug().Int("round", round).Int("marked", markedStops).Msg("Round completed")
}

func (o *LogObserver) BagOverflow(stop string, round int, dropped Label) {
	o.logger.Warn().
		Str("stop", stop).
		Int("round", round).
		Str("arrival", dropped.Arrival.String()).
		Int("boardings", dropped.Boardings).
		Msg("Bag capacity exceeded, dropped worst label")
}

func (o *LogObserver) RunCompleted(departure timetable.Time, journeys int, err error) {
	if err != nil {
		o.logger.Error().Err(err).Str("departure", departure.String()).Msg("Range run failed")
		return
	}
	o.logger.Debug().Str("departure", departure.String()).Int("journeys", journeys).Msg("Range run completed")
}
