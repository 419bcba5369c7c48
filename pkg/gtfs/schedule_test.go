package gtfs

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/raptor/pkg/config"
	"github.com/travigo/raptor/pkg/timetable"
)

func feedFiles() map[string]string {
	return map[string]string{
		"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
A1,Metro,http://metro.example,Europe/London
A2,Rail,http://rail.example,Europe/London
`,
		"stops.txt": `stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station
ST,Central,52.0,4.0,1,
P1,Central 1,52.0,4.0,0,ST
P2,Central 2,52.0,4.0,0,ST
B,Bridge,52.1,4.1,,
C,Castle,52.2,4.2,,
E,Entrance,52.0,4.0,2,ST
`,
		"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
R1,A1,1,Line one,3
R2,A2,,Intercity,2
`,
		"trips.txt": `route_id,service_id,trip_id,trip_headsign
R1,WEEKDAY,T1,Bridge
R1,WEEKEND,T2,Bridge
R2,WEEKDAY,T3,Castle
R2,SPECIAL,T4,Castle
`,
		"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
T1,08:00:00,08:00:00,P1,1
T1,08:10:00,08:11:00,B,2
T2,09:00:00,09:00:00,P1,1
T2,09:10:00,09:10:00,B,2
T3,25:10:00,25:10:00,C,2
T3,24:50:00,24:50:00,P2,1
T4,10:00:00,10:00:00,P2,1
T4,10:20:00,10:20:00,C,2
`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WEEKDAY,1,1,1,1,1,0,0,20260101,20261231
WEEKEND,0,0,0,0,0,1,1,20260101,20261231
`,
		"calendar_dates.txt": `service_id,date,exception_type
SPECIAL,20261014,1
WEEKDAY,20261225,2
`,
		"transfers.txt": `from_stop_id,to_stop_id,transfer_type,min_transfer_time
B,C,2,300
C,B,3,
`,
		"fare_attributes.txt": `fare_id,price,currency_type,payment_method,transfers
CITY,2.50,EUR,0,0
INTERCITY,12.00,EUR,0,
`,
		"fare_rules.txt": `fare_id,route_id,origin_id,destination_id,contains_id
CITY,R1,,,
INTERCITY,R2,,,
`,
	}
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()

	var buffer bytes.Buffer
	archive := zip.NewWriter(&buffer)
	for name, content := range files {
		writer, err := archive.Create(name)
		require.NoError(t, err)
		_, err = writer.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, archive.Close())

	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, buffer.Bytes(), 0o600))
	return path
}

func writeDirectory(t *testing.T, files map[string]string) string {
	t.Helper()

	directory := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(directory, name), []byte(content), 0o600))
	}
	return directory
}

func tripIDs(tables timetable.Tables) []string {
	var ids []string
	for _, trip := range tables.Trips {
		ids = append(ids, trip.ID)
	}
	return ids
}

func TestOpenZipAndDirectoryAgree(t *testing.T) {
	fromZip, err := Open(writeZip(t, feedFiles()))
	require.NoError(t, err)

	fromDirectory, err := Open(writeDirectory(t, feedFiles()))
	require.NoError(t, err)

	assert.Equal(t, fromZip, fromDirectory)
	assert.Len(t, fromZip.Stops, 6)
	assert.Len(t, fromZip.StopTimes, 8)
	assert.Len(t, fromZip.Transfers, 2)
}

func TestOpenRequiresCoreFiles(t *testing.T) {
	files := feedFiles()
	delete(files, "stops.txt")
	delete(files, "stop_times.txt")

	_, err := Open(writeDirectory(t, files))
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.ErrorContains(t, err, "stops.txt")
	assert.ErrorContains(t, err, "stop_times.txt")

	_, err = Open(writeZip(t, files))
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestOptionalFilesMayBeAbsent(t *testing.T) {
	files := feedFiles()
	delete(files, "agency.txt")
	delete(files, "calendar.txt")
	delete(files, "calendar_dates.txt")
	delete(files, "transfers.txt")
	delete(files, "fare_attributes.txt")
	delete(files, "fare_rules.txt")

	schedule, err := Open(writeDirectory(t, files))
	require.NoError(t, err)

	tables, err := schedule.Tables(Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2", "T3", "T4"}, tripIDs(tables))
	assert.Zero(t, tables.Routes[0].Fare)
}

func TestTablesForWeekday(t *testing.T) {
	schedule, err := Open(writeZip(t, feedFiles()))
	require.NoError(t, err)

	tables, err := schedule.Tables(Options{Date: "20261014", StationTransferTime: 120})
	require.NoError(t, err)

	assert.Equal(t, []string{"T1", "T3", "T4"}, tripIDs(tables))
	assert.Equal(t, []timetable.RouteRow{{ID: "R1", Name: "1", Fare: 250}, {ID: "R2", Name: "Intercity", Fare: 1200}}, tables.Routes)
	assert.Equal(t, []timetable.StationRow{{ID: "ST", Name: "Central"}}, tables.Stations)

	stations := map[string]string{}
	for _, stop := range tables.Stops {
		stations[stop.ID] = stop.StationID
	}
	assert.Equal(t, map[string]string{"P1": "ST", "P2": "ST", "B": "", "C": ""}, stations)

	assert.Equal(t, []timetable.TransferRow{
		{FromStopID: "P1", ToStopID: "P2", Duration: 120},
		{FromStopID: "P2", ToStopID: "P1", Duration: 120},
		{FromStopID: "B", ToStopID: "C", Duration: 300},
	}, tables.Transfers)

	for _, stopTime := range tables.StopTimes {
		if stopTime.TripID == "T3" && stopTime.StopID == "C" {
			assert.Equal(t, timetable.MustParseTime("25:10:00"), stopTime.Arrival)
			assert.Equal(t, 2, stopTime.Sequence)
		}
	}
}

func TestTablesFares(t *testing.T) {
	files := feedFiles()
	files["fare_attributes.txt"] += "NETWORK,1.75,EUR,0,\nZONE,0.80,EUR,0,\n"
	files["fare_rules.txt"] = `fare_id,route_id,origin_id,destination_id,contains_id
INTERCITY,R2,,,
NETWORK,,,,
ZONE,R1,Z1,Z2,
`

	schedule, err := Open(writeDirectory(t, files))
	require.NoError(t, err)

	tables, err := schedule.Tables(Options{Date: "20261014"})
	require.NoError(t, err)
	assert.Equal(t, []timetable.RouteRow{{ID: "R1", Name: "1", Fare: 175}, {ID: "R2", Name: "Intercity", Fare: 1200}}, tables.Routes)

	files["fare_rules.txt"] += "MISSING,R1,,,\n"
	schedule, err = Open(writeDirectory(t, files))
	require.NoError(t, err)
	_, err = schedule.Tables(Options{})
	assert.ErrorIs(t, err, timetable.ErrMalformedTimetable)

	files = feedFiles()
	files["fare_attributes.txt"] += "FREE,gratis,EUR,0,\n"
	schedule, err = Open(writeDirectory(t, files))
	require.NoError(t, err)
	_, err = schedule.Tables(Options{})
	assert.ErrorIs(t, err, timetable.ErrMalformedTimetable)
}

func TestTablesSupplements(t *testing.T) {
	schedule, err := Open(writeZip(t, feedFiles()))
	require.NoError(t, err)

	tables, err := schedule.Tables(Options{Date: "20261014", Supplements: []config.Supplement{
		{Route: "R2", Stop: "ST", Fare: 167},
		{Stop: "B", Fare: 20},
	}})
	require.NoError(t, err)

	fares := map[string]int64{}
	for _, stopTime := range tables.StopTimes {
		fares[stopTime.TripID+"@"+stopTime.StopID] = stopTime.Fare
	}
	assert.Equal(t, map[string]int64{
		"T1@P1": 0,
		"T1@B":  20,
		"T3@C":  0,
		"T3@P2": 167,
		"T4@P2": 167,
		"T4@C":  0,
	}, fares)
}

func TestTablesServiceDays(t *testing.T) {
	schedule, err := Open(writeZip(t, feedFiles()))
	require.NoError(t, err)

	tests := []struct {
		date  string
		trips []string
	}{
		{date: "20261017", trips: []string{"T2"}},
		{date: "20261225", trips: nil},
		{date: "20270104", trips: nil},
		{date: "", trips: []string{"T1", "T2", "T3", "T4"}},
	}

	for _, test := range tests {
		t.Run(test.date, func(t *testing.T) {
			tables, err := schedule.Tables(Options{Date: test.date})
			require.NoError(t, err)
			assert.Equal(t, test.trips, tripIDs(tables))
		})
	}

	_, err = schedule.Tables(Options{Date: "2026-10-14"})
	assert.Error(t, err)
}

func TestTablesAgencyFilter(t *testing.T) {
	schedule, err := Open(writeZip(t, feedFiles()))
	require.NoError(t, err)

	tables, err := schedule.Tables(Options{Date: "20261014", Agencies: []string{"Rail"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"T3", "T4"}, tripIDs(tables))
	assert.Len(t, tables.Routes, 1)

	tables, err = schedule.Tables(Options{Agencies: []string{"A1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, tripIDs(tables))
}

func TestTablesDropsUntimedTrips(t *testing.T) {
	files := feedFiles()
	files["stop_times.txt"] += "T4,,,B,3\n"

	schedule, err := Open(writeDirectory(t, files))
	require.NoError(t, err)

	tables, err := schedule.Tables(Options{Date: "20261014"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T3"}, tripIDs(tables))
	for _, stopTime := range tables.StopTimes {
		assert.NotEqual(t, "T4", stopTime.TripID)
	}
}

func TestTablesRejectsUnknownStops(t *testing.T) {
	files := feedFiles()
	files["stop_times.txt"] += "T1,08:20:00,08:20:00,NOWHERE,3\n"

	schedule, err := Open(writeDirectory(t, files))
	require.NoError(t, err)

	_, err = schedule.Tables(Options{})
	assert.ErrorIs(t, err, timetable.ErrMalformedTimetable)
}

func TestLoad(t *testing.T) {
	options := NewOptions(config.Feed{
		Date:                "20261014",
		Agencies:            []string{" Metro ", "Rail", "Metro"},
		StationTransferTime: 90,
	})
	assert.Equal(t, []string{"Metro", "Rail"}, options.Agencies)

	tt, err := Load(writeZip(t, feedFiles()), options)
	require.NoError(t, err)

	stats := tt.Stats()
	assert.Equal(t, 1, stats.Stations)
	assert.Equal(t, 4, stats.Stops)
	assert.Equal(t, 3, stats.Trips)
	assert.Equal(t, 3, stats.Transfers)

	stops, err := tt.Resolve("ST")
	require.NoError(t, err)
	assert.Len(t, stops, 2)

	p1, ok := tt.StopByID("P1")
	require.True(t, ok)
	transfers := tt.Transfers(p1)
	require.Len(t, transfers, 1)
	assert.Equal(t, timetable.Time(90), transfers[0].Duration)
}
