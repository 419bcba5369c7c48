package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/planner"
	ttest "github.com/travigo/raptor/pkg/timetable/timetabletest"
)

func newTestApp(t *testing.T, builder *ttest.Builder) *fiber.App {
	t.Helper()

	p := planner.New(builder.Build(t), config.Default().Routing)
	p.Logger = zerolog.Nop()
	p.Version = "test"

	return NewApp(p)
}

func get(t *testing.T, app *fiber.App, target string) (int, map[string]any) {
	t.Helper()

	response, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), string(body))

	return response.StatusCode, decoded
}

func TestGetStop(t *testing.T) {
	app := newTestApp(t, ttest.Crossing().Station("ST", "S2a", "S2b"))

	status, body := get(t, app, "/stops/S2a")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "stop", body["type"])
	assert.Equal(t, "ST", body["station"])
	assert.Equal(t, []any{map[string]any{"id": "R1", "name": "Route R1"}}, body["routes"])
	assert.Equal(t, []any{map[string]any{"to": "S2b", "duration": float64(2)}}, body["transfers"])

	status, body = get(t, app, "/stops/ST")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "station", body["type"])
	assert.ElementsMatch(t, []any{"S2a", "S2b"}, body["stops"])

	status, body = get(t, app, "/stops/NOWHERE")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestGetVersion(t *testing.T) {
	status, body := get(t, newTestApp(t, ttest.Line()), "/version")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "test", body["timetable"])
	assert.Equal(t, float64(3), body["stops"])
}

func TestGetEarliestJourney(t *testing.T) {
	app := newTestApp(t, ttest.Crossing())

	status, body := get(t, app, "/journeys/earliest?origin=S1&destination=S4&departure=00:00:00")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "earliest", body["kind"])
	assert.NotContains(t, body, "cached")

	journeys := body["journeys"].([]any)
	require.Len(t, journeys, 1)
	first := journeys[0].(map[string]any)
	assert.Equal(t, float64(30), first["arrival"])
	assert.Len(t, first["legs"], 3)
	assert.NotContains(t, first, "walking")

	status, body = get(t, app, "/journeys/earliest?origin=S1&destination=S4&detail=true")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "cached")
	first = body["journeys"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(2), first["walking"])
}

func TestGetParetoJourneys(t *testing.T) {
	app := newTestApp(t, ttest.Crossing())

	status, body := get(t, app, "/journeys/pareto?origin=S1&destination=S4&criteria=walking,fare&bag_cap=8")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["journeys"], 1)

	status, body = get(t, app, "/journeys/pareto?origin=S1&destination=S4&criteria=&bag_cap=0")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["journeys"], 1)

	status, _ = get(t, app, "/journeys/pareto?origin=S1&destination=S4&criteria=scenery")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetRangeJourneys(t *testing.T) {
	app := newTestApp(t, ttest.New().
		Trip("R1", "T1", ttest.At("A", 0), ttest.At("B", 500)).
		Trip("R1", "T2", ttest.At("A", 600), ttest.At("B", 1100)).
		Trip("R1", "T3", ttest.At("A", 1200), ttest.At("B", 1700)))

	status, body := get(t, app, "/journeys/range?origin=A&destination=B&window=PT20M&step=PT10M&mode=single&detail=true")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["journeys"], 3)
	assert.Equal(t, []any{float64(0), float64(600), float64(1200)}, body["departures"])

	status, body = get(t, app, "/journeys/range?origin=A&destination=B&window=PT20M&step=PT10M&filter=Departure%20%3E%3D%20600")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["journeys"], 2)

	status, _ = get(t, app, "/journeys/range?origin=A&destination=B&window=an%20hour")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetJourneysNoPathFound(t *testing.T) {
	status, body := get(t, newTestApp(t, ttest.Disconnected()), "/journeys/earliest?origin=S1&destination=S9")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["found"])
	assert.Empty(t, body["journeys"])
}

func TestGetJourneysErrors(t *testing.T) {
	app := newTestApp(t, ttest.Line())

	tests := []struct {
		target string
		status int
	}{
		{target: "/journeys/earliest?origin=S1&destination=NOWHERE", status: fiber.StatusNotFound},
		{target: "/journeys/earliest?origin=S1", status: fiber.StatusBadRequest},
		{target: "/journeys/earliest?origin=S1&destination=S3&departure=noon", status: fiber.StatusBadRequest},
		{target: "/journeys/earliest?origin=S1&destination=S3&departure=1193047:00:00", status: fiber.StatusBadRequest},
		{target: "/journeys/range?origin=S1&destination=S3&departure=48:00:00&window=P70Y", status: fiber.StatusBadRequest},
		{target: "/journeys/earliest?origin=S1&destination=S3&max_rounds=many", status: fiber.StatusBadRequest},
		{target: "/journeys/earliest?origin=S1&destination=S3&max_rounds=99", status: fiber.StatusBadRequest},
		{target: "/journeys/earliest?origin=S1&destination=S3&filter=Arrival%20%2B", status: fiber.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.target, func(t *testing.T) {
			status, body := get(t, app, test.target)
			assert.Equal(t, test.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}
