package timetable

// Tables is the in-memory tabular form of a feed, as produced by an ingestion collaborator such as pkg/gtfs.
type Tables struct {
	Stations  []StationRow
	Stops     []StopRow
	Routes    []RouteRow
	Trips     []TripRow
	StopTimes []StopTimeRow
	Transfers []TransferRow
}

type StationRow struct {
	ID   string
	Name string
}

type StopRow struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64

	// StationID is optional and must reference a StationRow when set
	StationID string
}

type RouteRow struct {
	ID   string
	Name string

	// Fare charged once per boarding, in minor currency units
	Fare int64
}

type TripRow struct {
	ID       string
	RouteID  string
	Headsign string
}

type StopTimeRow struct {
	TripID    string
	StopID    string
	Sequence  int
	Arrival   Time
	Departure Time

	// Fare supplement charged when alighting at this stop time
	Fare int64
}

type TransferRow struct {
	FromStopID string
	ToStopID   string
	Duration   Time
}
