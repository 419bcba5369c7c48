package raptor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ttest "github.com/travigo/raptor/pkg/timetable/timetabletest"
)

func TestLogObserver(t *testing.T) {
	var buffer bytes.Buffer
	observer := NewLogObserver(zerolog.New(&buffer).Level(zerolog.DebugLevel))

	observer.RoundCompleted(2, 7)
	assert.Contains(t, buffer.String(), `"round":2`)
	assert.Contains(t, buffer.String(), `"marked":7`)
	buffer.Reset()

	observer.BagOverflow("S4", 3, Label{Arrival: 3600, Boardings: 2})
	assert.Contains(t, buffer.String(), `"level":"warn"`)
	assert.Contains(t, buffer.String(), `"arrival":"01:00:00"`)
	buffer.Reset()

	observer.RunCompleted(600, 0, errors.New("boom"))
	assert.Contains(t, buffer.String(), `"level":"error"`)
	assert.Contains(t, buffer.String(), `"departure":"00:10:00"`)
}

func TestLogObserverDuringScan(t *testing.T) {
	var buffer bytes.Buffer
	observer := NewLogObserver(zerolog.New(&buffer).Level(zerolog.WarnLevel))

	_, err := Pareto(ttest.Crossing().Build(t), Query{Origin: "S1", MaxRounds: 2, Observer: observer}, Criteria{BagCap: 1})
	require.NoError(t, err)

	// rounds are debug only and no bag of the crossing holds two labels
	assert.Empty(t, buffer.String())
}
