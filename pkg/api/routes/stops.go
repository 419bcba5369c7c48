package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/raptor/pkg/planner"
	"github.com/travigo/raptor/pkg/timetable"
)

type stopRoute struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type stopTransfer struct {
	To       string         `json:"to"`
	Duration timetable.Time `json:"duration"`
}

type stopView struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Station   string         `json:"station,omitempty"`
	Routes    []stopRoute    `json:"routes"`
	Transfers []stopTransfer `json:"transfers"`
}

type stationView struct {
	Type  string   `json:"type"`
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Stops []string `json:"stops"`
}

func StopsRouter(router fiber.Router, p *planner.Planner) {
	router.Get("/:identifier", func(c *fiber.Ctx) error {
		return getStop(c, p.Timetable)
	})
}

func getStop(c *fiber.Ctx, tt *timetable.Timetable) error {
	identifier := c.Params("identifier")

	if index, exists := tt.StopByID(identifier); exists {
		stop := tt.Stop(index)
		view := stopView{
			Type:      "stop",
			ID:        stop.ID,
			Name:      stop.Name,
			Latitude:  stop.Latitude,
			Longitude: stop.Longitude,
			Station:   stop.StationID,
			Routes:    []stopRoute{},
			Transfers: []stopTransfer{},
		}

		for _, routeIndex := range tt.RoutesAt(index) {
			route := tt.Route(routeIndex)
			view.Routes = append(view.Routes, stopRoute{ID: route.ID, Name: route.Name})
		}
		for _, transfer := range tt.Transfers(index) {
			view.Transfers = append(view.Transfers, stopTransfer{
				To:       tt.Stop(transfer.To).ID,
				Duration: transfer.Duration,
			})
		}

		return c.JSON(view)
	}

	if station, exists := tt.Station(identifier); exists {
		view := stationView{
			Type:  "station",
			ID:    station.ID,
			Name:  station.Name,
			Stops: []string{},
		}
		for _, stop := range station.Stops {
			view.Stops = append(view.Stops, tt.Stop(stop).ID)
		}

		return c.JSON(view)
	}

	c.SendStatus(fiber.StatusNotFound)
	return c.JSON(fiber.Map{
		"error": "Could not find stop or station matching identifier",
	})
}
