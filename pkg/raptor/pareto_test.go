package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/raptor/pkg/journey"
	"github.com/travigo/raptor/pkg/timetable"
	ttest "github.com/travigo/raptor/pkg/timetable/timetabletest"
)

// tradeoff offers a fast journey with a change at B and a slow direct one.
func tradeoff() *ttest.Builder {
	return ttest.New().
		Trip("direct", "D1", ttest.At("A", 0), ttest.At("D", 100)).
		Trip("feeder", "F1", ttest.At("A", 0), ttest.At("B", 10)).
		Trip("express", "E1", ttest.At("B", 20), ttest.At("D", 50))
}

func TestParetoKeepsTradeoffs(t *testing.T) {
	tt := tradeoff().Build(t)

	result, err := Pareto(tt, Query{Origin: "A", Departure: 0, Destination: "D", MaxRounds: 3}, Criteria{})
	require.NoError(t, err)

	bag, err := result.Bag("D")
	require.NoError(t, err)
	assert.Equal(t, []Label{
		{Arrival: 50, Boardings: 2},
		{Arrival: 100, Boardings: 1},
	}, bag)

	journeys, err := result.Journeys("D")
	require.NoError(t, err)
	require.Len(t, journeys, 2)

	assert.Equal(t, 2, journeys[0].Boardings)
	assert.Equal(t, "E1", journeys[0].Legs[1].TripID)
	assert.Equal(t, 1, journeys[1].Boardings)
	assert.Equal(t, "D1", journeys[1].Legs[0].TripID)

	withinOne, err := result.BagWithin("D", 1)
	require.NoError(t, err)
	assert.Equal(t, []Label{{Arrival: 100, Boardings: 1}}, withinOne)
}

func TestParetoScenarios(t *testing.T) {
	line := ttest.Line().Build(t)
	result, err := Pareto(line, Query{Origin: "S1", Departure: 0, Destination: "S3", MaxRounds: 1}, Criteria{})
	require.NoError(t, err)
	journeys, err := result.Journeys("S3")
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.Equal(t, timetable.Time(10), journeys[0].Arrival)
	assert.Len(t, journeys[0].Legs, 1)

	crossing := ttest.Crossing().Build(t)
	result, err = Pareto(crossing, Query{Origin: "S1", Departure: 0, Destination: "S4", MaxRounds: 2}, Criteria{})
	require.NoError(t, err)
	journeys, err = result.Journeys("S4")
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	require.Len(t, journeys[0].Legs, 3)
	assert.Equal(t, journey.LegKindTransfer, journeys[0].Legs[1].Kind)
	assert.Equal(t, timetable.Time(2), journeys[0].Legs[1].Duration)
	assert.Equal(t, 2, journeys[0].Boardings)

	disconnected := ttest.Disconnected().Build(t)
	result, err = Pareto(disconnected, Query{Origin: "S1", Departure: 0, Destination: "S9", MaxRounds: 3}, Criteria{})
	require.NoError(t, err)
	assert.True(t, result.NoPathFound())
	journeys, err = result.Journeys("S9")
	require.NoError(t, err)
	assert.Empty(t, journeys)
}

func TestParetoWalkingCriterion(t *testing.T) {
	builder := ttest.New().
		Trip("R1", "T1", ttest.At("A", 0), ttest.At("D", 100)).
		Walk("A", "D", 60)
	tt := builder.Build(t)

	query := Query{Origin: "A", Departure: 0, Destination: "D", MaxRounds: 2}

	plain, err := Pareto(tt, query, Criteria{})
	require.NoError(t, err)
	bag, err := plain.Bag("D")
	require.NoError(t, err)
	assert.Equal(t, []Label{{Arrival: 60, Walking: 60}}, bag)

	walking, err := Pareto(tt, query, Criteria{Extra: []Criterion{CriterionWalking}})
	require.NoError(t, err)
	bag, err = walking.Bag("D")
	require.NoError(t, err)
	assert.Equal(t, []Label{
		{Arrival: 60, Walking: 60},
		{Arrival: 100, Boardings: 1},
	}, bag)

	journeys, err := walking.Journeys("D")
	require.NoError(t, err)
	require.Len(t, journeys, 2)
	assert.Equal(t, timetable.Time(60), journeys[0].Walking)
	assert.Equal(t, journey.LegKindTransfer, journeys[0].Legs[0].Kind)
	assert.Equal(t, timetable.Time(0), journeys[1].Walking)
}

func TestParetoFareCriterion(t *testing.T) {
	tt := ttest.New().
		Trip("fast", "F1", ttest.At("A", 0), ttest.Call{Stop: "D", Arrival: 50, Departure: 50, Fare: 20}).
		Trip("slow", "S1", ttest.At("A", 0), ttest.At("D", 80)).
		Fare("fast", 300).
		Fare("slow", 100).
		Build(t)

	query := Query{Origin: "A", Departure: 0, Destination: "D", MaxRounds: 2}

	plain, err := Pareto(tt, query, Criteria{})
	require.NoError(t, err)
	bag, err := plain.Bag("D")
	require.NoError(t, err)
	assert.Equal(t, []Label{{Arrival: 50, Boardings: 1, Fare: 320}}, bag)

	fares, err := Pareto(tt, query, Criteria{Extra: []Criterion{CriterionFare}})
	require.NoError(t, err)
	journeys, err := fares.Journeys("D")
	require.NoError(t, err)
	require.Len(t, journeys, 2)
	assert.Equal(t, int64(320), journeys[0].Fare)
	assert.Equal(t, int64(100), journeys[1].Fare)
	assert.Equal(t, int64(320), journeys[0].Legs[0].Fare)
}

// A later trip of the same pattern without the supplement stays in the bag even though the earlier
// trip could be boarded first.
func TestParetoFareSupplementKeepsLaterTrip(t *testing.T) {
	tt := ttest.New().
		Trip("R", "T0", ttest.At("A", 0), ttest.At("B", 10), ttest.Call{Stop: "C", Arrival: 100, Departure: 100, Fare: 10}).
		Trip("R", "T1", ttest.At("A", 20), ttest.At("B", 60), ttest.At("C", 110)).
		Transfer("A", "B", 50).
		Build(t)

	result, err := Pareto(tt, Query{Origin: "A", Departure: 0, Destination: "C", MaxRounds: 1}, Criteria{Extra: []Criterion{CriterionFare}})
	require.NoError(t, err)

	bag, err := result.Bag("C")
	require.NoError(t, err)
	assert.Equal(t, []Label{
		{Arrival: 100, Boardings: 1, Fare: 10},
		{Arrival: 110, Boardings: 1, Walking: 50},
	}, bag)

	journeys, err := result.Journeys("C")
	require.NoError(t, err)
	require.Len(t, journeys, 2)
	assert.Equal(t, "T0", journeys[0].Legs[0].TripID)
	require.Len(t, journeys[1].Legs, 2)
	assert.Equal(t, journey.LegKindTransfer, journeys[1].Legs[0].Kind)
	assert.Equal(t, "T1", journeys[1].Legs[1].TripID)

	plain, err := Pareto(tt, Query{Origin: "A", Departure: 0, Destination: "C", MaxRounds: 1}, Criteria{})
	require.NoError(t, err)
	bag, err = plain.Bag("C")
	require.NoError(t, err)
	assert.Equal(t, []Label{{Arrival: 100, Boardings: 1, Fare: 10}}, bag)
}

func TestParetoBagCapTruncatesDeterministically(t *testing.T) {
	tt := tradeoff().Build(t)
	observer := &recorder{}

	result, err := Pareto(tt, Query{Origin: "A", Departure: 0, Destination: "D", MaxRounds: 3, Observer: observer}, Criteria{BagCap: 1})
	require.NoError(t, err)

	bag, err := result.Bag("D")
	require.NoError(t, err)
	assert.Equal(t, []Label{{Arrival: 50, Boardings: 2}}, bag)
	assert.Equal(t, 1, result.Overflows())
	assert.Equal(t, []Label{{Arrival: 100, Boardings: 1}}, observer.overflows)
}

func TestParetoRejectsBadCriteria(t *testing.T) {
	tt := ttest.Line().Build(t)
	query := Query{Origin: "S1", MaxRounds: 1}

	for _, criteria := range []Criteria{
		{BagCap: -1},
		{Extra: []Criterion{"comfort"}},
		{Extra: []Criterion{CriterionArrival}},
		{Extra: []Criterion{CriterionFare, CriterionFare}},
	} {
		_, err := Pareto(tt, query, criteria)
		assert.ErrorIs(t, err, ErrInvalidQuery, "%+v", criteria)
	}

	_, err := Pareto(tt, Query{Origin: "nowhere", MaxRounds: 1}, Criteria{})
	assert.ErrorIs(t, err, timetable.ErrUnknownStop)
}

func TestParetoBagsAreNonDominated(t *testing.T) {
	criteria := Criteria{Extra: []Criterion{CriterionWalking, CriterionFare}}

	for seed := int64(1); seed <= 6; seed++ {
		tt := ttest.Random(seed, 14, 6, 5).Build(t)

		result, err := Pareto(tt, Query{Origin: "S0", Departure: 0, MaxRounds: 4}, criteria)
		require.NoError(t, err)

		for stop := 0; stop < tt.StopCount(); stop++ {
			bag, err := result.Bag(stopID(stop))
			require.NoError(t, err)

			for i := range bag {
				for j := range bag {
					if i == j {
						continue
					}
					assert.False(t, criteria.Dominates(bag[i], bag[j]), "seed %d stop %d: %+v dominates %+v", seed, stop, bag[i], bag[j])
					assert.NotEqual(t, bag[i], bag[j])
				}
			}
		}
	}
}

func TestParetoMatchesEarliestArrival(t *testing.T) {
	const rounds = 4

	for seed := int64(1); seed <= 6; seed++ {
		tt := ttest.Random(seed, 14, 6, 5).Build(t)
		query := Query{Origin: "S3", Departure: 300, MaxRounds: rounds}

		earliest, err := EarliestArrival(tt, query)
		require.NoError(t, err)
		pareto, err := Pareto(tt, query, Criteria{Extra: []Criterion{CriterionWalking}})
		require.NoError(t, err)

		for stop := 0; stop < tt.StopCount(); stop++ {
			for k := 0; k <= rounds; k++ {
				expected, _ := earliest.ArrivalWithin(stopID(stop), k)

				bag, err := pareto.BagWithin(stopID(stop), k)
				require.NoError(t, err)

				actual := timetable.Infinity
				for _, label := range bag {
					actual = min(actual, label.Arrival)
					assert.LessOrEqual(t, label.Boardings, k)
				}
				assert.Equal(t, expected, actual, "seed %d stop %d round %d", seed, stop, k)
			}
		}
	}
}

func TestParetoUnboundedCapChangesNothing(t *testing.T) {
	tt := ttest.Random(11, 14, 6, 5).Build(t)
	query := Query{Origin: "S5", Departure: 0, MaxRounds: 4}
	criteria := Criteria{Extra: []Criterion{CriterionFare}}

	unbounded, err := Pareto(tt, query, criteria)
	require.NoError(t, err)

	criteria.BagCap = 1000
	capped, err := Pareto(tt, query, criteria)
	require.NoError(t, err)
	assert.Zero(t, capped.Overflows())

	for stop := 0; stop < tt.StopCount(); stop++ {
		expected, err := unbounded.Journeys(stopID(stop))
		require.NoError(t, err)
		actual, err := capped.Journeys(stopID(stop))
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}
}

func TestParetoJourneysRoundTrip(t *testing.T) {
	tt := ttest.Random(5, 14, 6, 5).Build(t)
	criteria := Criteria{Extra: []Criterion{CriterionWalking, CriterionFare}}

	result, err := Pareto(tt, Query{Origin: "S1", Departure: 0, MaxRounds: 4}, criteria)
	require.NoError(t, err)

	for stop := 0; stop < tt.StopCount(); stop++ {
		bag, err := result.Bag(stopID(stop))
		require.NoError(t, err)
		journeys, err := result.Journeys(stopID(stop))
		require.NoError(t, err)
		require.Len(t, journeys, len(bag))

		for i, j := range journeys {
			assert.NoError(t, j.Validate())
			assert.Equal(t, bag[i].Arrival, j.Arrival)
			assert.Equal(t, bag[i].Boardings, j.Boardings)
			assert.Equal(t, bag[i].Walking, j.Walking)
			assert.Equal(t, bag[i].Fare, j.Fare)
			if len(j.Legs) > 0 {
				assert.Equal(t, bag[i].Arrival, j.Legs[len(j.Legs)-1].Arrival)
			}
		}
	}
}

func TestParetoIsIdempotent(t *testing.T) {
	tt := ttest.Random(9, 14, 6, 5).Build(t)
	query := Query{Origin: "S4", Departure: 60, MaxRounds: 4}
	criteria := Criteria{Extra: []Criterion{CriterionWalking}}

	first, err := Pareto(tt, query, criteria)
	require.NoError(t, err)
	second, err := Pareto(tt, query, criteria)
	require.NoError(t, err)

	for stop := 0; stop < tt.StopCount(); stop++ {
		a, err := first.Journeys(stopID(stop))
		require.NoError(t, err)
		b, err := second.Journeys(stopID(stop))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestParetoStationBagIsMerged(t *testing.T) {
	tt := ttest.Crossing().Station("S2", "S2a", "S2b").Build(t)

	result, err := Pareto(tt, Query{Origin: "S1", Departure: 0, MaxRounds: 2}, Criteria{})
	require.NoError(t, err)

	bag, err := result.Bag("S2")
	require.NoError(t, err)
	assert.Equal(t, []Label{{Arrival: 10, Boardings: 1}}, bag)
}

func TestCriteriaOrder(t *testing.T) {
	criteria := Criteria{Extra: []Criterion{CriterionFare, CriterionWalking}}
	assert.Equal(t, []Criterion{CriterionArrival, CriterionTransfers, CriterionFare, CriterionWalking}, criteria.Order())

	cheap := Label{Arrival: 100, Boardings: 1, Fare: 10, Walking: 50}
	quick := Label{Arrival: 100, Boardings: 1, Fare: 20, Walking: 0}
	assert.Equal(t, -1, criteria.Compare(cheap, quick))
	assert.False(t, criteria.Dominates(cheap, quick))
	assert.True(t, Criteria{}.Dominates(Label{Arrival: 90, Boardings: 1}, quick))
	assert.False(t, Criteria{}.Dominates(quick, quick))
	assert.Equal(t, 0, quick.Transfers())
}
