package routes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/raptor/pkg/planner"
	"github.com/travigo/raptor/pkg/raptor"
	"github.com/travigo/raptor/pkg/timetable"
	"github.com/travigo/raptor/pkg/util"

	iso8601 "github.com/senseyeio/duration"
)

func JourneysRouter(router fiber.Router, p *planner.Planner) {
	router.Get("/earliest", planJourneys(p, planner.KindEarliest))
	router.Get("/pareto", planJourneys(p, planner.KindPareto))
	router.Get("/range", planJourneys(p, planner.KindRange))
}

func planJourneys(p *planner.Planner, kind planner.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		request, err := parsePlanRequest(c)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		response, err := p.Plan(c.UserContext(), kind, request)
		if err != nil {
			c.SendStatus(planErrorStatus(err))
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		groups := []string{"basic"}
		if c.Query("detail") == "true" {
			groups = []string{"basic", "detailed"}
		}

		responseReduced, err := sheriff.Marshal(&sheriff.Options{
			Groups: groups,
		}, response)
		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sherrif could not reduce journeys",
			})
		}

		return c.JSON(responseReduced)
	}
}

func planErrorStatus(err error) int {
	switch {
	case errors.Is(err, timetable.ErrUnknownStop):
		return fiber.StatusNotFound
	case errors.Is(err, raptor.ErrInvalidQuery), errors.Is(err, planner.ErrInvalidFilter):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func parsePlanRequest(c *fiber.Ctx) (planner.Request, error) {
	request := planner.Request{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Filter:      c.Query("filter"),
	}

	if request.Origin == "" || request.Destination == "" {
		return request, errors.New("Parameters origin and destination are required")
	}

	if departure := c.Query("departure"); departure != "" {
		t, err := timetable.ParseTime(departure)
		if err != nil {
			return request, fmt.Errorf("Parameter departure should be a HH:MM:SS service day time: %w", err)
		}
		request.Departure = t
	}

	var err error
	routing := &request.Routing

	if routing.MaxRounds, err = integerQuery(c, "max_rounds"); err != nil {
		return request, err
	}
	if routing.BagCap, err = integerQuery(c, "bag_cap"); err != nil {
		return request, err
	}
	if routing.Workers, err = integerQuery(c, "workers"); err != nil {
		return request, err
	}
	if routing.Window, err = durationQuery(c, "window"); err != nil {
		return request, err
	}
	if routing.Step, err = durationQuery(c, "step"); err != nil {
		return request, err
	}

	if mode := c.Query("mode"); mode != "" {
		routing.Mode = &mode
	}

	// an empty criteria parameter clears the configured extra criteria
	if c.Context().QueryArgs().Has("criteria") {
		routing.Criteria = []string{}
		if criteria := c.Query("criteria"); criteria != "" {
			routing.Criteria = util.RemoveDuplicateStrings(strings.Split(criteria, ","), []string{})
		}
	}

	return request, nil
}

func integerQuery(c *fiber.Ctx, name string) (*int, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("Parameter %s should be a positive integer", name)
	}
	return &n, nil
}

var durationReference = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// durationQuery reads an ISO8601 duration such as PT1H30M as seconds.
func durationQuery(c *fiber.Ctx, name string) (*int, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}

	duration, err := iso8601.ParseISO8601(value)
	if err != nil {
		return nil, fmt.Errorf("Parameter %s should be an ISO8601 duration: %w", name, err)
	}

	return util.Pointer(int(duration.Shift(durationReference).Sub(durationReference) / time.Second)), nil
}
