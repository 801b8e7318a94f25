package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jjenkins/publiccomment/internal/model"
)

func TestBuildPrompt(t *testing.T) {
	r := &model.Rulemaking{
		Agency:           "CFPB",
		Title:            "Supervisory Designation",
		DocketID:         "CFPB-2025-0018",
		Description:      "Raises the standard.",
		OppositionPoints: model.OppositionPoints{"Delays protection"},
	}

	t.Run("fills placeholders", func(t *testing.T) {
		p := BuildPrompt(r, model.Narrative{Name: "Jane Doe"})

		assert.Contains(t, p, `opposing the CFPB's proposed rule "Supervisory Designation" (Docket No. CFPB-2025-0018)`)
		assert.Contains(t, p, "- Name: Jane Doe\n")
		assert.Contains(t, p, "- Location: Not provided\n")
		assert.Contains(t, p, "- Personal story: Not provided\n")
		assert.Contains(t, p, "- Concerns about the rule: Not provided\n")
		assert.Contains(t, p, "No legal analysis provided")
		assert.Contains(t, p, `["Delays protection"]`)
		assert.Contains(t, p, "DO NOT quote")
		assert.Contains(t, p, "300-500 words")
		assert.Contains(t, p, "NEVER suggests policy alternatives")
		assert.Contains(t, p, "NEVER mentions facts")
	})

	t.Run("uses narrative", func(t *testing.T) {
		p := BuildPrompt(r, model.Narrative{Name: "Jane", City: "Dayton", State: "OH", Concerns: "Fees"})
		assert.Contains(t, p, "- Location: Dayton, OH\n")
		assert.Contains(t, p, "- Concerns about the rule: Fees\n")
		assert.Equal(t, 1, strings.Count(p, "Dayton"))
	})

	t.Run("deterministic", func(t *testing.T) {
		n := model.Narrative{Name: "Jane", PersonalStory: "story"}
		assert.Equal(t, BuildPrompt(r, n), BuildPrompt(r, n))
	})

	t.Run("no opposition points", func(t *testing.T) {
		p := BuildPrompt(&model.Rulemaking{Agency: "A", Title: "T", DocketID: "D"}, model.Narrative{Name: "J"})
		assert.Contains(t, p, "No specific opposition points provided")
		assert.Contains(t, p, "No description provided")
	})
}
