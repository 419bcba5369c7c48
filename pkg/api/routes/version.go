package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/raptor/pkg/planner"
)

func APIVersion(p *planner.Planner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats := p.Timetable.Stats()

		return c.JSON(fiber.Map{
			"version":   "v0.1",
			"timetable": p.Version,
			"stops":     stats.Stops,
			"routes":    stats.Routes,
			"trips":     stats.Trips,
		})
	}
}
