package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
)

const rulemakingNotFound = "Rulemaking not found"

func ListRulemakingsHandler(svc *service.RulemakingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rulemakings, err := svc.ListActive(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"rulemakings": rulemakings})
	}
}

func GetRulemakingHandler(svc *service.RulemakingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return notFound(err, rulemakingNotFound)
		}
		return c.JSON(fiber.Map{"rulemaking": r})
	}
}

func CreateRulemakingHandler(svc *service.RulemakingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.RulemakingInput
		if err := c.BodyParser(&in); err != nil {
			return badBody()
		}

		r, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rulemaking": r})
	}
}

func UpdateRulemakingHandler(svc *service.RulemakingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.RulemakingInput
		if err := c.BodyParser(&in); err != nil {
			return badBody()
		}

		r, err := svc.Update(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return notFound(err, rulemakingNotFound)
		}
		return c.JSON(fiber.Map{"rulemaking": r})
	}
}

// RulemakingAnalyticsHandler reports submission counters between startDate and
// endDate (inclusive), defaulting to 2024-01-01 through today.
func RulemakingAnalyticsHandler(svc *service.AnalyticsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end := service.ReportWindowStart, model.NewDate(time.Now())

		verr := &service.ValidationError{}
		if raw := c.Query("startDate"); raw != "" {
			d, err := model.ParseDate(raw)
			if err != nil {
				verr.Add("startDate", "startDate must be an ISO-8601 date")
			}
			start = d
		}
		if raw := c.Query("endDate"); raw != "" {
			d, err := model.ParseDate(raw)
			if err != nil {
				verr.Add("endDate", "endDate must be an ISO-8601 date")
			}
			end = d
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		report, err := svc.Report(c.UserContext(), c.Params("id"), start, end)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"analytics": report})
	}
}
