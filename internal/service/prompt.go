package service

import (
	"encoding/json"
	"strings"

	"github.com/jjenkins/publiccomment/internal/model"
)

const notProvided = "Not provided"

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// BuildPrompt renders the letter-drafting prompt. The output depends only on its inputs.
func BuildPrompt(r *model.Rulemaking, n model.Narrative) string {
	location := notProvided
	switch {
	case n.City != "" && n.State != "":
		location = n.City + ", " + n.State
	case n.City != "":
		location = n.City
	case n.State != "":
		location = n.State
	}

	points := "No specific opposition points provided"
	if len(r.OppositionPoints) > 0 {
		if b, err := json.Marshal([]string(r.OppositionPoints)); err == nil {
			points = string(b)
		}
	}

	var b strings.Builder
	b.WriteString("You are helping create a unique, personalized comment letter opposing the ")
	b.WriteString(r.Agency + "'s proposed rule \"" + r.Title + "\" (Docket No. " + r.DocketID + ").\n\n")

	b.WriteString("The user has provided:\n")
	b.WriteString("- Name: " + n.Name + "\n")
	b.WriteString("- Location: " + location + "\n")
	b.WriteString("- Personal story: " + orDefault(n.PersonalStory, notProvided) + "\n")
	b.WriteString("- Why this issue matters: " + orDefault(n.WhyItMatters, notProvided) + "\n")
	b.WriteString("- Relevant experiences: " + orDefault(n.Experiences, notProvided) + "\n")
	b.WriteString("- Concerns about the rule: " + orDefault(n.Concerns, notProvided) + "\n\n")

	b.WriteString("Background context (DO NOT quote or copy directly from any source):\n")
	b.WriteString(orDefault(r.Description, "No description provided") + "\n\n")

	b.WriteString("Legal analysis context (DO NOT quote directly):\n")
	b.WriteString(orDefault(r.LegalAnalysis, "No legal analysis provided") + "\n\n")

	b.WriteString("Key opposition points (DO NOT quote directly):\n")
	b.WriteString(points + "\n\n")

	b.WriteString(`Write a completely original, authentic comment letter that:
- Sounds like it comes from this specific person, not a template
- Uses ONLY their own words and experiences as the foundation
- Explains the issue in their voice, using analogies or examples that fit their background
- Makes 1-3 points about why the rule change is problematic based on their stated concerns
- Connects to their community or personal situation
- Shows genuine concern rather than policy jargon
- Is 300-500 words
- Avoids any phrases that sound like they came from advocacy materials
- Uses conversational but respectful tone appropriate for government comment
- NEVER suggests policy alternatives or solutions - only expresses opposition to the proposed rule
- NEVER mentions facts, statistics, or claims not provided by the user
- Focuses on the user's perspective and concerns rather than broader policy arguments
- Includes proper formatting with clear paragraphs

The goal is a letter so personal and authentic that it clearly comes from a real person with genuine concerns, based solely on what they have shared with you.`)

	return b.String()
}
