package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jjenkins/publiccomment/internal/model"
)

// Export formats
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
)

// ExportColumns is the CSV header, matching the JSON field names of model.ExportRow
var ExportColumns = []string{
	"id", "rulemaking_id", "user_name", "user_email", "user_city", "user_state", "user_zip",
	"personal_story", "why_it_matters", "experiences", "concerns",
	"generated_comment", "final_comment", "submission_status", "federal_register_submission_id",
	"recaptcha_verified", "created_at", "submitted_at",
	"rulemaking_title", "agency", "docket_id",
}

// ExportFilename names a CSV export taken at now
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("submissions_%s.csv", now.UTC().Format(model.DateLayout))
}

// WriteCSV writes rows with a header line. Values are rendered exactly as in the JSON export.
func WriteCSV(w io.Writer, rows []model.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(exportRecord(row)); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRecord(row model.ExportRow) []string {
	submittedAt := ""
	if row.SubmittedAt != nil {
		submittedAt = row.SubmittedAt.Format(time.RFC3339Nano)
	}
	return []string{
		row.ID,
		row.RulemakingID,
		row.Name,
		row.Email,
		row.City,
		row.State,
		row.Zip,
		row.PersonalStory,
		row.WhyItMatters,
		row.Experiences,
		row.Concerns,
		row.GeneratedComment,
		row.FinalComment,
		row.Status,
		row.FederalRegisterSubmissionID,
		strconv.FormatBool(row.RecaptchaVerified),
		row.CreatedAt.Format(time.RFC3339Nano),
		submittedAt,
		row.RulemakingTitle,
		row.Agency,
		row.DocketID,
	}
}
