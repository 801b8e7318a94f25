package service_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
)

func TestExportFilename(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "submissions_2025-03-09.csv", service.ExportFilename(at))
}

// The CSV and JSON exports must carry the same value for every column.
func TestWriteCSVMatchesJSON(t *testing.T) {
	submitted := time.Date(2025, 3, 10, 12, 0, 0, 123456789, time.UTC)
	rows := []model.ExportRow{
		{
			Submission: model.Submission{
				ID:           "s1",
				RulemakingID: "r1",
				Narrative: model.Narrative{
					Name:          "Ana, Jr.",
					State:         "OH",
					PersonalStory: "line one\nline \"two\"",
				},
				GeneratedComment:  "Dear agency,",
				FinalComment:      "Dear agency, final",
				Status:            model.SubmissionSubmitted,
				RecaptchaVerified: true,
				CreatedAt:         time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC),
				SubmittedAt:       &submitted,
			},
			RulemakingTitle: "Supervisory Designation",
			Agency:          "CFPB",
			DocketID:        "CFPB-2025-0018",
		},
		{
			Submission: model.Submission{
				ID:               "s2",
				RulemakingID:     "gone",
				Narrative:        model.Narrative{Name: "Ben"},
				GeneratedComment: "draft",
				Status:           model.SubmissionDraft,
				CreatedAt:        time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, service.WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(rows)+1)
	assert.Equal(t, service.ExportColumns, records[0])

	for i, row := range rows {
		raw, err := json.Marshal(row)
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))

		for c, col := range service.ExportColumns {
			want := ""
			if v, ok := fields[col]; ok && v != nil {
				want = fmt.Sprint(v)
			}
			assert.Equal(t, want, records[i+1][c], "row %d column %s", i, col)
		}
	}
}
