// Package templates renders the server-side HTML pages.
//
//go:generate templ generate
package templates

import (
	"strings"

	"github.com/jjenkins/publiccomment/internal/model"
)

// LetterPage is the printable view of a citizen's comment letter
type LetterPage struct {
	Submission *model.Submission
	Rulemaking *model.Rulemaking
}

func letterTitle(p LetterPage) string {
	if p.Rulemaking == nil {
		return "Comment letter"
	}
	return "Comment on " + p.Rulemaking.DocketID
}

// paragraphs splits text on blank lines, dropping empty blocks
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}
