package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/raptor/pkg/api/routes"
	"github.com/travigo/raptor/pkg/planner"
)

// NewApp wires the routes onto a fiber app answering from p.
func NewApp(p *planner.Planner) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/version", routes.APIVersion(p))

	routes.StopsRouter(webApp.Group("/stops"), p)
	routes.JourneysRouter(webApp.Group("/journeys"), p)

	return webApp
}

func SetupServer(listen string, p *planner.Planner) error {
	return NewApp(p).Listen(listen)
}
