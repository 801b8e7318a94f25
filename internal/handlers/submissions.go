package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
)

func submissionFilter(c *fiber.Ctx) model.SubmissionFilter {
	return model.SubmissionFilter{
		RulemakingID: c.Query("rulemaking_id"),
		Status:       c.Query("status"),
		Limit:        c.QueryInt("limit", 100),
		Offset:       c.QueryInt("offset", 0),
	}
}

func ListSubmissionsHandler(svc *service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subs, err := svc.List(c.UserContext(), submissionFilter(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"submissions": subs})
	}
}

func SubmissionStatsHandler(svc *service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.Stats(c.UserContext(), c.Query("rulemaking_id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"stats": stats})
	}
}

// ExportSubmissionsHandler returns every matching submission as JSON or as a CSV attachment
func ExportSubmissionsHandler(svc *service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := c.Query("format", service.ExportJSON)
		if format != service.ExportJSON && format != service.ExportCSV {
			verr := &service.ValidationError{}
			verr.Add("format", "Format must be json or csv")
			return verr
		}

		// exports are not paginated
		filter := model.SubmissionFilter{
			RulemakingID: c.Query("rulemaking_id"),
			Status:       c.Query("status"),
		}
		rows, err := svc.Export(c.UserContext(), filter)
		if err != nil {
			return err
		}

		if format == service.ExportJSON {
			return c.JSON(fiber.Map{"submissions": rows})
		}

		var buf bytes.Buffer
		if err := service.WriteCSV(&buf, rows); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s"`, service.ExportFilename(time.Now())))
		return c.Send(buf.Bytes())
	}
}

// GetSubmissionHandler returns the full record, request metadata included
func GetSubmissionHandler(svc *service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, err := svc.GetForAdmin(c.UserContext(), c.Params("id"))
		if err != nil {
			return notFound(err, submissionNotFound)
		}
		return c.JSON(fiber.Map{"submission": sub})
	}
}
